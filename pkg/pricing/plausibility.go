package pricing

import "strings"

// bound is an inclusive plausible price range in CHF.
type bound struct {
	min float64
	max float64
}

// PlausibilityTable holds per-category sanity bounds for prices that
// rest on a single data point. Thin data is where scraper garbage and
// hallucinated estimates slip through; a median over several
// observations self-corrects, one number does not.
type PlausibilityTable struct {
	bounds   map[string]bound
	fallback bound
}

// DefaultPlausibility returns bounds tuned for Swiss second-hand
// categories.
func DefaultPlausibility() *PlausibilityTable {
	return &PlausibilityTable{
		bounds: map[string]bound{
			"kleidung":    {min: 5, max: 800},
			"clothing":    {min: 5, max: 800},
			"schuhe":      {min: 10, max: 600},
			"shoes":       {min: 10, max: 600},
			"sport":       {min: 5, max: 3000},
			"fitness":     {min: 5, max: 3000},
			"elektronik":  {min: 10, max: 5000},
			"electronics": {min: 10, max: 5000},
			"haushalt":    {min: 5, max: 2500},
			"household":   {min: 5, max: 2500},
			"möbel":       {min: 20, max: 5000},
			"furniture":   {min: 20, max: 5000},
			"velo":        {min: 50, max: 8000},
			"bike":        {min: 50, max: 8000},
		},
		fallback: bound{min: 1, max: 10000},
	}
}

// Plausible reports whether amount is within the category's bounds.
// Unknown categories use a wide catch-all range.
func (t *PlausibilityTable) Plausible(category string, amount float64) bool {
	b, ok := t.bounds[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		b = t.fallback
	}
	return amount >= b.min && amount <= b.max
}
