// Package indicators implements the Indicator Cache (C2): a single-flight,
// size-bounded LRU memoization layer over indicator-vector computation,
// keyed by (symbol, indicator set, parameters, as-of date).
//
// Rather than computing the indicator set inline per request with no
// caching, this is a standalone, concurrency-safe cache using
// golang.org/x/sync/singleflight, so concurrent callers for an identical
// fingerprint share one computation instead of racing duplicate work.
package indicators

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// Fingerprint identifies one indicator computation:
// (symbol, indicator set, parameter tuple, as-of date).
type Fingerprint struct {
	Symbol string
	Params string // opaque parameter tuple, e.g. "sma20,sma50,rsi14"
	AsOf   time.Time
}

func (f Fingerprint) key() string {
	return fmt.Sprintf("%s|%s|%s", f.Symbol, f.Params, f.AsOf.Format("2006-01-02"))
}

// Computer computes the full indicator vector and pattern hits for a bar
// window. Implementations must be pure functions of bars — the cache's
// correctness depends on that determinism.
type Computer interface {
	Compute(symbol string, bars []core.Bar) (*core.IndicatorVector, []core.PatternHit, error)
}

type entry struct {
	key     string
	vector  *core.IndicatorVector
	hits    []core.PatternHit
	elem    *list.Element
}

// Cache is the size-bounded LRU, single-flight indicator cache.
type Cache struct {
	mu       sync.Mutex
	items    map[string]*entry
	order    *list.List
	capacity int

	group singleflight.Group
	comp  Computer
}

// New builds a Cache with the given eviction capacity (number of
// fingerprints held at once) wrapping comp for cache-miss computation.
func New(capacity int, comp Computer) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		items:    make(map[string]*entry),
		order:    list.New(),
		capacity: capacity,
		comp:     comp,
	}
}

// Get returns the indicator vector and pattern hits for (symbol, bars) at
// fingerprint fp, computing on a cache miss. Concurrent callers for the
// same fingerprint block on the single in-flight computation and all
// observe its result, success or error.
func (c *Cache) Get(ctx context.Context, fp Fingerprint, bars []core.Bar) (*core.IndicatorVector, []core.PatternHit, error) {
	key := fp.key()

	c.mu.Lock()
	if e, ok := c.items[key]; ok {
		c.order.MoveToFront(e.elem)
		c.mu.Unlock()
		return e.vector, e.hits, nil
	}
	c.mu.Unlock()

	type result struct {
		vector *core.IndicatorVector
		hits   []core.PatternHit
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		vector, hits, err := c.comp.Compute(fp.Symbol, bars)
		if err != nil {
			return nil, err
		}
		c.put(key, vector, hits)
		return result{vector: vector, hits: hits}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	r := v.(result)
	return r.vector, r.hits, nil
}

func (c *Cache) put(key string, vector *core.IndicatorVector, hits []core.PatternHit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.vector, e.hits = vector, hits
		c.order.MoveToFront(e.elem)
		return
	}

	e := &entry{key: key, vector: vector, hits: hits}
	e.elem = c.order.PushFront(key)
	c.items[key] = e

	for c.order.Len() > c.capacity {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.order.Remove(back)
		delete(c.items, back.Value.(string))
	}
}

// Evict removes every cached entry; used by the periodic eviction sweep
// scheduled job, run on a cron schedule rather than only on capacity
// pressure.
func (c *Cache) Evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry)
	c.order = list.New()
}

// Len reports how many fingerprints are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
