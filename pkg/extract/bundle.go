package extract

import (
	"regexp"
	"strconv"
	"strings"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// Keywords that suggest a multi-item offer without saying what's in it.
var bundleKeywords = map[string]bool{
	"set":      true,
	"bundle":   true,
	"inkl":     true,
	"inklusiv": true,
	"komplett": true,
	"konvolut": true,
	"paket":    true,
	"sammlung": true,
	"lot":      true,
	"zubehör":  true,
	"zubehoer": true,
}

// ClassifyBundle decides what kind of offer a listing describes, from
// its normalized title and (when already fetched) its description.
// Rules are ordered; the first that fires wins:
//
//  1. explicit quantity × measure breakdown in the title or the
//     description → quantity bundle with resolved components
//  2. bare quantity marker ("3x Stativ") → quantity bundle
//  3. bare measure with no count ("30kg Hantelset") → weight-or-measure
//     bundle, needs enrichment
//  4. bundle keyword with no breakdown → unknown, needs enrichment
//  5. otherwise → single item
//
// A total weight is never converted into a piece count here; only an
// explicit breakdown or enrichment may resolve composition.
func ClassifyBundle(normalizedTitle, description string, interps []domain.QuantityInterpretation) domain.BundleClassification {
	pairs := ComposePairs(interps)
	bareMeasures := BareMeasures(interps)

	for _, p := range pairs {
		if p.Quantity > 1 && p.MeasureUnit != "" {
			return domain.BundleClassification{
				Type:       domain.BundleQuantity,
				Confidence: 0.9,
				Components: componentsFromPair(normalizedTitle, p),
			}
		}
	}

	if comps := breakdownComponents(normalizedTitle, description); len(comps) > 0 {
		return domain.BundleClassification{
			Type:       domain.BundleQuantity,
			Confidence: 0.9,
			Components: comps,
		}
	}

	for _, p := range pairs {
		if p.Quantity > 1 {
			return domain.BundleClassification{
				Type:       domain.BundleQuantity,
				Confidence: 0.8,
				Components: componentsFromPair(normalizedTitle, p),
			}
		}
	}

	// A bare measure is a total, never a piece count. Composition has
	// to come from a breakdown or from enrichment.
	if len(bareMeasures) > 0 {
		return domain.BundleClassification{
			Type:            domain.BundleWeightOrMeasure,
			Confidence:      0.6,
			NeedsEnrichment: true,
		}
	}

	if containsBundleKeyword(normalizedTitle) {
		return domain.BundleClassification{
			Type:            domain.BundleUnknown,
			Confidence:      0.5,
			NeedsEnrichment: true,
		}
	}

	return domain.BundleClassification{
		Type:       domain.BundleSingleItem,
		Confidence: 0.8,
	}
}

func containsBundleKeyword(title string) bool {
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, ".,!?:;()[]\"'")
		if bundleKeywords[w] {
			return true
		}
		// German compounds: Hantelset, Werkzeugpaket.
		if strings.HasSuffix(w, "set") || strings.HasSuffix(w, "paket") {
			return true
		}
	}
	return strings.Contains(title, "+")
}

// breakdownRegex matches one component of an explicit breakdown like
// "2x 5kg Hantelscheiben + 4x 2.5kg Hantelscheiben": a count, an
// optional per-piece measure, and an optional item name.
var breakdownRegex = regexp.MustCompile(
	`(?i)(\d+)\s*[x×]\s*(?:(\d+(?:[.,]\d+)?)\s*(kg|ml|cl|cm|mm|zoll|inch|oz|lbs|g|l)\s*)?([\p{L}][\p{L}\d.-]*)?`,
)

// breakdownComponents extracts resolved components from a free-text
// breakdown, typically found in a listing description. Only fires on
// an unambiguous breakdown: at least one match with a per-piece
// measure, or several count markers. A component without its own name
// inherits the item noun of the title.
func breakdownComponents(normalizedTitle, text string) []domain.BundleComponent {
	matches := breakdownRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	measured := false
	components := make([]domain.BundleComponent, 0, len(matches))
	for _, m := range matches {
		qty, err := strconv.Atoi(m[1])
		if err != nil || qty < 1 {
			continue
		}

		comp := domain.BundleComponent{Quantity: qty}
		if m[2] != "" {
			val, err := parseDecimal(m[2])
			if err != nil {
				continue
			}
			comp.UnitSpec = formatMeasure(val) + strings.ToLower(m[3])
			measured = true
		}

		name := Singularize(m[4])
		if name == "" {
			name = componentName(normalizedTitle)
		}
		if comp.UnitSpec != "" {
			name = strings.TrimSpace(name + " " + comp.UnitSpec)
		}
		comp.Name = name

		components = append(components, comp)
	}

	if !measured && len(components) < 2 {
		return nil
	}
	return components
}

// componentsFromPair builds the single resolved component of an
// explicit "N × spec" breakdown: the singularized item name with the
// per-piece spec, repeated N times.
func componentsFromPair(normalizedTitle string, p QuantityMeasurePair) []domain.BundleComponent {
	name := componentName(normalizedTitle)
	comp := domain.BundleComponent{Name: name, Quantity: p.Quantity}
	if p.MeasureUnit != "" {
		comp.UnitSpec = p.UnitSpec()
		comp.Name = strings.TrimSpace(name + " " + comp.UnitSpec)
	}
	return []domain.BundleComponent{comp}
}

// componentName extracts the item noun from a title, stripping numeric
// tokens and units, and singularizes it.
func componentName(normalizedTitle string) string {
	stripped := numericTokenRegex.ReplaceAllString(normalizedTitle, " ")

	var kept []string
	for _, w := range strings.Fields(stripped) {
		lw := strings.Trim(strings.ToLower(w), ".,!?:;()[]\"'")
		if lw == "" || measureUnits[lw] != "" || quantityUnits[lw] != "" {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return strings.TrimSpace(normalizedTitle)
	}

	// Singularize the last noun, which in German titles names the item.
	kept[len(kept)-1] = Singularize(kept[len(kept)-1])
	return strings.Join(kept, " ")
}

// Singularize applies a small German plural heuristic: nouns ending in
// "-en" with a longer stem drop the trailing "n" (Hantelscheiben →
// Hantelscheibe, Matten → Matte). Anything else is left alone; a wrong
// singular is worse than a plural for identity matching.
func Singularize(word string) string {
	if len(word) > 4 && strings.HasSuffix(strings.ToLower(word), "en") {
		return word[:len(word)-1]
	}
	return word
}
