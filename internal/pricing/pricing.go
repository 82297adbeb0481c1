// Package pricing implements the deterministic cost engine (C1): a per-model
// pricing table and a cost function computing integer microdollars from
// token usage, generalized from the teacher's float64-per-1K cost
// calculator to the spec's ceiling-divided integer-microdollar arithmetic.
package pricing

import "sync"

// DefaultModel is billed for any model not present in the table.
const DefaultModel = "gpt-4o"

// Rate holds per-model pricing in microdollars per one million tokens.
type Rate struct {
	InputPerMillion  int64
	OutputPerMillion int64
}

// Table is an immutable-after-startup pricing table, safe for concurrent
// reads; mutation is only expected during initialization.
type Table struct {
	mu    sync.RWMutex
	rates map[string]Rate
}

// NewTable creates a pricing table seeded with rates.
func NewTable(seed map[string]Rate) *Table {
	t := &Table{rates: make(map[string]Rate, len(seed))}
	for model, r := range seed {
		t.rates[model] = r
	}
	return t
}

// Register adds or replaces the pricing row for model.
func (t *Table) Register(model string, r Rate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rates[model] = r
}

// Lookup returns the rate for model, falling back to DefaultModel's rate
// when model is unknown. ok reports whether the exact model was found.
func (t *Table) Lookup(model string) (rate Rate, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if r, found := t.rates[model]; found {
		return r, true
	}
	return t.rates[DefaultModel], false
}

// Models returns the model ids with an explicit pricing row, for the
// /v1/models listing. DefaultModel's fallback row is not itself a model
// clients call by that name, so it is included only if registered under
// its own id.
func (t *Table) Models() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	models := make([]string, 0, len(t.rates))
	for model := range t.rates {
		models = append(models, model)
	}
	return models
}

// Cost computes the ceil((promptTokens*InputPerMillion +
// completionTokens*OutputPerMillion) / 1e6) microdollar charge for model.
// Zero tokens always yield zero cost; the result is never negative.
// Intermediate arithmetic is carried in int64, which comfortably holds the
// worst case named in the spec (1e6 tokens * 6e7 rate = 6e13).
func (t *Table) Cost(model string, promptTokens, completionTokens int64) int64 {
	if promptTokens == 0 && completionTokens == 0 {
		return 0
	}

	rate, _ := t.Lookup(model)

	numerator := promptTokens*rate.InputPerMillion + completionTokens*rate.OutputPerMillion
	if numerator <= 0 {
		return 0
	}

	const million = 1_000_000
	return (numerator + million - 1) / million
}
