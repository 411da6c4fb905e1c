// Package cost estimates generation spend from token usage.
package cost

import "sync"

// Rates holds per-model pricing configuration.
type Rates struct {
	Models map[string]ModelRate `yaml:"models" mapstructure:"models"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Generation computes the cost of one generation call. Unknown models cost 0.
func (c *Calculator) Generation(model string, input, output int64) float64 {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// Known reports whether the model has a configured rate.
func (c *Calculator) Known(model string) bool {
	_, ok := c.rates.Models[model]
	return ok
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"gemini-1.5-flash":           {Input: 0.075, Output: 0.30},
			"gemini-1.5-pro":             {Input: 1.25, Output: 5.00},
			"gemini-2.0-flash":           {Input: 0.10, Output: 0.40},
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		},
	}
}

// Usage is the accumulated generation usage of one run.
type Usage struct {
	Calls        int
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
	Priced       bool // false when some model had no rate
}

// Tracker accumulates usage across generation calls. Safe for concurrent use.
type Tracker struct {
	calc *Calculator

	mu    sync.Mutex
	usage Usage
}

// NewTracker creates a Tracker pricing calls with calc.
func NewTracker(calc *Calculator) *Tracker {
	return &Tracker{calc: calc, usage: Usage{Priced: true}}
}

// Record adds one generation call.
func (t *Tracker) Record(model string, input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.Calls++
	t.usage.InputTokens += input
	t.usage.OutputTokens += output
	t.usage.CostUSD += t.calc.Generation(model, input, output)
	if !t.calc.Known(model) {
		t.usage.Priced = false
	}
}

// Usage returns the totals so far.
func (t *Tracker) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}
