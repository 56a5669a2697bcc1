package indicators

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

type countingComputer struct {
	calls int32
	delay time.Duration
}

func (c *countingComputer) Compute(symbol string, bars []core.Bar) (*core.IndicatorVector, []core.PatternHit, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return &core.IndicatorVector{UnstablePrefix: len(bars)}, nil, nil
}

func makeBars(n int) []core.Bar {
	bars := make([]core.Bar, n)
	for i := range bars {
		bars[i] = core.Bar{Symbol: "AAPL", Date: time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC), Close: float64(100 + i)}
	}
	return bars
}

func TestCache_MissThenHit(t *testing.T) {
	comp := &countingComputer{}
	c := New(10, comp)
	fp := Fingerprint{Symbol: "AAPL", Params: "sma20", AsOf: day(1)}
	bars := makeBars(30)

	_, _, err := c.Get(context.Background(), fp, bars)
	require.NoError(t, err)
	_, _, err = c.Get(context.Background(), fp, bars)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&comp.calls))
}

func TestCache_SingleFlightCollapsesConcurrentCallers(t *testing.T) {
	comp := &countingComputer{delay: 20 * time.Millisecond}
	c := New(10, comp)
	fp := Fingerprint{Symbol: "AAPL", Params: "sma20", AsOf: day(1)}
	bars := makeBars(30)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.Get(context.Background(), fp, bars)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&comp.calls))
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	comp := &countingComputer{}
	c := New(2, comp)
	bars := makeBars(30)

	c.Get(context.Background(), Fingerprint{Symbol: "A", AsOf: day(1)}, bars)
	c.Get(context.Background(), Fingerprint{Symbol: "B", AsOf: day(1)}, bars)
	c.Get(context.Background(), Fingerprint{Symbol: "C", AsOf: day(1)}, bars)

	assert.Equal(t, 2, c.Len())

	// B is still cached; A, the least recently used, was evicted.
	c.Get(context.Background(), Fingerprint{Symbol: "B", AsOf: day(1)}, bars)
	assert.Equal(t, int32(3), atomic.LoadInt32(&comp.calls))
	c.Get(context.Background(), Fingerprint{Symbol: "A", AsOf: day(1)}, bars)
	assert.Equal(t, int32(4), atomic.LoadInt32(&comp.calls))
}

func TestCache_Evict(t *testing.T) {
	comp := &countingComputer{}
	c := New(10, comp)
	bars := makeBars(30)
	c.Get(context.Background(), Fingerprint{Symbol: "A", AsOf: day(1)}, bars)
	require.Equal(t, 1, c.Len())
	c.Evict()
	assert.Equal(t, 0, c.Len())
}

func TestDefaultComputer_InsufficientBarsLeavesNilSlices(t *testing.T) {
	comp := NewDefaultComputer()
	bars := makeBars(5)
	v, _, err := comp.Compute("AAPL", bars)
	require.NoError(t, err)
	assert.Nil(t, v.SMA20)
	assert.Nil(t, v.SMA200)
}

func TestDefaultComputer_EmptyBarsIsInsufficientData(t *testing.T) {
	comp := NewDefaultComputer()
	_, _, err := comp.Compute("AAPL", nil)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func day(n int) time.Time { return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC) }
