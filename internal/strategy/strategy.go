// Package strategy implements the capability-set design note of spec §9: a
// strategy is dynamic-dispatched via a narrow interface rather than a class
// hierarchy, its signal is a tagged variant over {BUY, SELL, HOLD} plus an
// optional metadata map (the static-typed replacement for the source's loose
// associative-array signals), and built-in strategies self-register into a
// Registry at init() time — the same idiom as the teacher's
// sequences/patterns.BasePattern + DefaultPatternRegistry.
package strategy

import (
	"fmt"
	"sync"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// SignalAction is the tagged variant a strategy emits for one bar.
type SignalAction string

const (
	SignalBuy  SignalAction = "BUY"
	SignalSell SignalAction = "SELL"
	SignalHold SignalAction = "HOLD"
)

// Signal is a strategy's decision for one symbol at one point in time.
type Signal struct {
	Action     SignalAction   `json:"action"`
	Confidence float64        `json:"confidence"` // [0,1]
	Reasoning  string         `json:"reasoning,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Strategy is the dispatch surface every backtestable trading rule
// implements. Analyze is called with the bar window ending the day before
// the decision date (never the decision day itself — C7/C8's no-look-ahead
// invariant is enforced by the caller, not by Strategy implementations).
type Strategy interface {
	Name() string
	Describe() string
	Analyze(symbol string, window []core.Bar, currentPrice float64) Signal
	SetParams(params map[string]any)
	GetParams() map[string]any
}

// Registry holds named strategies for lookup by name. The server's report
// routes resolve single-backtest strategies from DefaultRegistry and build
// the C12 comparison set from it.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// DefaultRegistry is populated at init() time by this package's built-in
// strategies, mirroring the teacher's DefaultPatternRegistry package-level
// singleton.
var DefaultRegistry = NewRegistry()

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds s under s.Name(), overwriting any existing entry of the
// same name.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get looks up a strategy by name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q not registered", name)
	}
	return s, nil
}

// Names returns every registered strategy name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		out = append(out, n)
	}
	return out
}
