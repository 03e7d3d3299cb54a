package cost

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Total is the accumulated usage for one provider and model.
type Total struct {
	Provider string
	Model    string
	Calls    int
	Usage    Usage
	USD      float64
}

// Tracker accumulates oracle usage across seeds. It is safe for concurrent
// use.
type Tracker struct {
	calc *Calculator

	mu     sync.Mutex
	totals map[string]*Total
}

// NewTracker creates a Tracker pricing calls with calc.
func NewTracker(calc *Calculator) *Tracker {
	return &Tracker{calc: calc, totals: make(map[string]*Total)}
}

// Add records one call, logs it, and returns its estimated cost.
func (t *Tracker) Add(provider, model, seed string, u Usage) float64 {
	usd := t.calc.Tokens(model, u)

	zap.L().Info("oracle usage",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.String("seed", seed),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheWriteTokens),
		zap.Int64("cache_read_tokens", u.CacheReadTokens),
		zap.Float64("estimated_cost_usd", usd),
	)

	t.mu.Lock()
	defer t.mu.Unlock()
	key := provider + "/" + model
	tot, ok := t.totals[key]
	if !ok {
		tot = &Total{Provider: provider, Model: model}
		t.totals[key] = tot
	}
	tot.Calls++
	tot.Usage = tot.Usage.Plus(u)
	tot.USD += usd
	return usd
}

// Totals returns accumulated usage ordered by provider then model.
func (t *Tracker) Totals() []Total {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Total, 0, len(t.totals))
	for _, tot := range t.totals {
		out = append(out, *tot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// Log writes a summary line per model. Nothing is logged before the first
// call.
func (t *Tracker) Log() {
	for _, tot := range t.Totals() {
		zap.L().Info("oracle usage total",
			zap.String("provider", tot.Provider),
			zap.String("model", tot.Model),
			zap.Int("calls", tot.Calls),
			zap.Int64("input_tokens", tot.Usage.InputTokens),
			zap.Int64("output_tokens", tot.Usage.OutputTokens),
			zap.Float64("estimated_cost_usd", tot.USD),
		)
	}
}
