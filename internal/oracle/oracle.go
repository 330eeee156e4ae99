package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mbaumgartner/flipradar/internal/budget"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// MaxBatchQueries caps how many identities one batched price request
// may carry. Queries beyond the cap are dropped, not split into a
// second request.
const MaxBatchQueries = 20

// PriceQuery names one identity within a batched price request. Key is
// echoed by the backend so partial answers can be matched back.
type PriceQuery struct {
	Key      string
	Identity domain.ProductIdentity
}

// PriceQuote is the oracle's answer for one identity.
type PriceQuote struct {
	NewPrice    *float64 `json:"new_price_chf"`
	ResalePrice *float64 `json:"resale_price_chf"`
	Confidence  float64  `json:"confidence"`
}

// Estimator answers price and composition questions the market data
// cannot. Implementations must return budget.ErrBudgetExhausted when
// the daily spend is gone so callers can degrade instead of retrying.
type Estimator interface {
	QueryPrices(ctx context.Context, queries []PriceQuery) (map[string]PriceQuote, error)
	DecomposeBundle(ctx context.Context, title, description string) ([]domain.BundleComponent, error)
}

// Oracle implements Estimator on top of an LLMBackend, guarded by a
// daily budget.
type Oracle struct {
	backend     LLMBackend
	guard       *budget.Guard
	temperature float64
	maxTokens   int
}

var _ Estimator = (*Oracle)(nil)

// Option configures the Oracle.
type Option func(*Oracle)

// WithTemperature sets the LLM temperature.
func WithTemperature(t float64) Option {
	return func(o *Oracle) {
		o.temperature = t
	}
}

// WithMaxTokens sets the max tokens for LLM responses.
func WithMaxTokens(n int) Option {
	return func(o *Oracle) {
		o.maxTokens = n
	}
}

// WithBudgetGuard sets the daily spend guard.
func WithBudgetGuard(g *budget.Guard) Option {
	return func(o *Oracle) {
		o.guard = g
	}
}

// New creates an Oracle.
func New(backend LLMBackend, opts ...Option) *Oracle {
	o := &Oracle{
		backend:     backend,
		temperature: 0.1,
		maxTokens:   1024,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// batchAnswer is the JSON shape the price query prompt asks for.
type batchAnswer struct {
	Quotes []struct {
		Key         string   `json:"key"`
		NewPrice    *float64 `json:"new_price_chf"`
		ResalePrice *float64 `json:"resale_price_chf"`
		Confidence  float64  `json:"confidence"`
	} `json:"quotes"`
}

// QueryPrices asks the backend for new and resale prices for a whole
// batch of identities in one request; queries beyond MaxBatchQueries
// are dropped. The result maps query keys to quotes. Partial answers
// are expected: keys the backend skipped, invented, or answered with a
// negative price are simply absent.
func (o *Oracle) QueryPrices(ctx context.Context, queries []PriceQuery) (map[string]PriceQuote, error) {
	quotes := make(map[string]PriceQuote, len(queries))
	if len(queries) == 0 {
		return quotes, nil
	}
	if len(queries) > MaxBatchQueries {
		queries = queries[:MaxBatchQueries]
	}

	if err := o.allow(ctx); err != nil {
		return nil, err
	}

	prompt, err := RenderPriceQueryPrompt(queries)
	if err != nil {
		return nil, fmt.Errorf("rendering price query prompt: %w", err)
	}

	resp, err := o.backend.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		Format:      FormatJSON,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("calling oracle for prices: %w", err)
	}

	var answer batchAnswer
	if err := json.Unmarshal([]byte(resp.Content), &answer); err != nil {
		return nil, fmt.Errorf("parsing oracle quotes: %w", err)
	}

	asked := make(map[string]bool, len(queries))
	for _, q := range queries {
		asked[q.Key] = true
	}

	for _, q := range answer.Quotes {
		if !asked[q.Key] {
			continue
		}
		if q.NewPrice != nil && *q.NewPrice < 0 {
			continue
		}
		if q.ResalePrice != nil && *q.ResalePrice < 0 {
			continue
		}
		quotes[q.Key] = PriceQuote{
			NewPrice:    q.NewPrice,
			ResalePrice: q.ResalePrice,
			Confidence:  q.Confidence,
		}
	}

	return quotes, nil
}

type decomposition struct {
	Components []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		UnitSpec string `json:"unit_spec"`
	} `json:"components"`
	Confidence float64 `json:"confidence"`
}

// DecomposeBundle asks the backend to break an unresolved bundle into
// components. An empty result means the composition stays unknown.
func (o *Oracle) DecomposeBundle(ctx context.Context, title, description string) ([]domain.BundleComponent, error) {
	if err := o.allow(ctx); err != nil {
		return nil, err
	}

	prompt, err := RenderDecomposePrompt(title, description)
	if err != nil {
		return nil, fmt.Errorf("rendering decompose prompt: %w", err)
	}

	resp, err := o.backend.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		Format:      FormatJSON,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("calling oracle for decomposition: %w", err)
	}

	var dec decomposition
	if err := json.Unmarshal([]byte(resp.Content), &dec); err != nil {
		return nil, fmt.Errorf("parsing oracle decomposition: %w", err)
	}

	components := make([]domain.BundleComponent, 0, len(dec.Components))
	for _, c := range dec.Components {
		if c.Name == "" || c.Quantity < 1 {
			continue
		}
		components = append(components, domain.BundleComponent{
			Name:     c.Name,
			Quantity: c.Quantity,
			UnitSpec: c.UnitSpec,
		})
	}
	return components, nil
}

func (o *Oracle) allow(ctx context.Context) error {
	if o.guard == nil {
		return nil
	}
	return o.guard.Allow(ctx)
}
