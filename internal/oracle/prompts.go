package oracle

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// priceQueryTmpl is the batched price estimation prompt template.
const priceQueryTmpl = `Estimate prices on the Swiss second-hand market for every
product below. Respond ONLY with a JSON object matching the schema. Prices are CHF.
Echo each product's key exactly as given. Omit products you cannot estimate;
never invent a product that is not listed.

Products:
{{range .Queries}}- key: {{.Key}}
  brand: {{.Brand}}, model: {{.Model}}, category: {{.Category}}, specs: {{.KeySpecs}}
{{end}}
Schema:
{
  "quotes": [
    {
      "key": string,
      "new_price_chf": number | null,
      "resale_price_chf": number | null,
      "confidence": float between 0 and 1
    }
  ]
}`

// decomposeTmpl is the bundle decomposition prompt template.
const decomposeTmpl = `This second-hand listing offers several items. Break it into
its individual components. Respond ONLY with a JSON object. Never guess a piece
count from a total weight; if the composition is unclear, return an empty list.

Title: {{.Title}}
Description: {{.Description}}

Schema:
{
  "components": [
    {
      "name": string,
      "quantity": integer,
      "unit_spec": string (per-piece spec like "5kg", "" if none)
    }
  ],
  "confidence": float between 0 and 1
}`

// queryData holds the template variables for one product in the price
// query prompt.
type queryData struct {
	Key      string
	Brand    string
	Model    string
	Category string
	KeySpecs string
}

// decomposeData holds the template variables for the decompose prompt.
type decomposeData struct {
	Title       string
	Description string
}

var (
	priceQueryTemplate = template.Must(template.New("price-query").Parse(priceQueryTmpl))
	decomposeTemplate  = template.Must(template.New("decompose").Parse(decomposeTmpl))
)

// RenderPriceQueryPrompt renders the batched price estimation prompt.
func RenderPriceQueryPrompt(queries []PriceQuery) (string, error) {
	data := struct{ Queries []queryData }{
		Queries: make([]queryData, 0, len(queries)),
	}
	for _, q := range queries {
		data.Queries = append(data.Queries, queryData{
			Key:      q.Key,
			Brand:    orNA(q.Identity.Brand),
			Model:    orNA(q.Identity.Model),
			Category: orNA(q.Identity.Category),
			KeySpecs: formatKeySpecs(q.Identity.KeySpecs),
		})
	}

	var buf bytes.Buffer
	if err := priceQueryTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering price query prompt: %w", err)
	}
	return buf.String(), nil
}

// RenderDecomposePrompt renders the bundle decomposition prompt.
func RenderDecomposePrompt(title, description string) (string, error) {
	var buf bytes.Buffer
	data := decomposeData{
		Title:       title,
		Description: truncate(description, 500),
	}
	if err := decomposeTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering decompose prompt: %w", err)
	}
	return buf.String(), nil
}

func formatKeySpecs(specs map[string]string) string {
	if len(specs) == 0 {
		return "N/A"
	}

	var parts []string
	for k, v := range specs {
		parts = append(parts, k+": "+v)
	}

	return strings.Join(parts, ", ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
