package extract

import (
	"regexp"
	"strconv"
	"strings"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// Units denoting a measured quantity of one logical item.
var measureUnits = map[string]string{
	"kg":   "kg",
	"g":    "g",
	"ml":   "ml",
	"l":    "l",
	"cl":   "cl",
	"cm":   "cm",
	"mm":   "mm",
	"zoll": "zoll",
	"inch": "zoll",
	"oz":   "oz",
	"lbs":  "lbs",
}

// Units denoting a count of identical items.
var quantityUnits = map[string]string{
	"x":      "x",
	"×":      "x",
	"stk":    "stk",
	"stück":  "stk",
	"stueck": "stk",
	"pcs":    "stk",
	"pieces": "stk",
}

// numericTokenRegex matches one number with an optional unit suffix.
// Longer unit alternatives come first so "stück" wins over "s…".
// The unit may be attached ("5kg", "4x") or spaced ("5 kg", "4 x").
var numericTokenRegex = regexp.MustCompile(
	`(?i)(\d+(?:[.,]\d+)?)\s*(stück|stueck|pieces|zoll|inch|stk|pcs|lbs|ml|cl|cm|mm|kg|oz|g|l|x|×)?`,
)

// ClassifyNumericTokens inspects every numeric token in a title and
// decides whether it denotes a count of identical items or a measured
// quantity of one logical item. An explicit breakdown like "4x 15kg"
// yields two interpretations, a quantity of 4 and a measure of 15kg,
// in title order so callers can compose them. A number without a unit
// is Unknown with low confidence, never a quantity.
func ClassifyNumericTokens(title string) []domain.QuantityInterpretation {
	matches := numericTokenRegex.FindAllStringSubmatch(title, -1)
	if len(matches) == 0 {
		return nil
	}

	interps := make([]domain.QuantityInterpretation, 0, len(matches))
	for _, m := range matches {
		num, err := parseDecimal(m[1])
		if err != nil {
			continue
		}

		unit := strings.ToLower(m[2])
		switch {
		case unit == "":
			interps = append(interps, domain.QuantityInterpretation{
				RawNumber:  num,
				Kind:       domain.NumericUnknown,
				Confidence: 0.4,
			})
		case measureUnits[unit] != "":
			interps = append(interps, domain.QuantityInterpretation{
				RawNumber:  num,
				Unit:       measureUnits[unit],
				Kind:       domain.NumericMeasure,
				Confidence: 0.9,
			})
		case quantityUnits[unit] != "":
			interps = append(interps, domain.QuantityInterpretation{
				RawNumber:  num,
				Unit:       quantityUnits[unit],
				Kind:       domain.NumericQuantity,
				Confidence: 0.9,
			})
		default:
			interps = append(interps, domain.QuantityInterpretation{
				RawNumber:  num,
				Unit:       unit,
				Kind:       domain.NumericUnknown,
				Confidence: 0.3,
			})
		}
	}

	return interps
}

// QuantityMeasurePair is a composed "N × M<unit>" reading: N identical
// pieces of M unit each.
type QuantityMeasurePair struct {
	Quantity     int
	MeasureValue float64
	MeasureUnit  string
}

// TotalMeasure is Quantity × MeasureValue in MeasureUnit.
func (p QuantityMeasurePair) TotalMeasure() float64 {
	return float64(p.Quantity) * p.MeasureValue
}

// UnitSpec renders the per-piece measure, e.g. "5kg" or "2.5kg".
func (p QuantityMeasurePair) UnitSpec() string {
	return formatMeasure(p.MeasureValue) + p.MeasureUnit
}

// ComposePairs walks interpretations in title order and pairs each
// quantity with the measure that immediately follows it ("4x 15kg" →
// {4, 15, kg}). A quantity with no adjacent measure becomes a bare
// pair (count only). Measures without a preceding quantity are not
// paired: a bare measure is never a piece count.
func ComposePairs(interps []domain.QuantityInterpretation) []QuantityMeasurePair {
	var pairs []QuantityMeasurePair

	for i := 0; i < len(interps); i++ {
		if interps[i].Kind != domain.NumericQuantity {
			continue
		}

		pair := QuantityMeasurePair{Quantity: int(interps[i].RawNumber)}
		if i+1 < len(interps) && interps[i+1].Kind == domain.NumericMeasure {
			pair.MeasureValue = interps[i+1].RawNumber
			pair.MeasureUnit = interps[i+1].Unit
			i++
		}
		pairs = append(pairs, pair)
	}

	return pairs
}

// BareMeasures returns measures that have no preceding quantity marker,
// i.e. candidates for weight-or-measure bundle classification.
func BareMeasures(interps []domain.QuantityInterpretation) []domain.QuantityInterpretation {
	var bare []domain.QuantityInterpretation

	prevQuantity := false
	for _, in := range interps {
		switch in.Kind {
		case domain.NumericMeasure:
			if !prevQuantity {
				bare = append(bare, in)
			}
			prevQuantity = false
		case domain.NumericQuantity:
			prevQuantity = true
		default:
			prevQuantity = false
		}
	}

	return bare
}

// HasQuantity reports whether any token was read as a piece count.
func HasQuantity(interps []domain.QuantityInterpretation) bool {
	for _, in := range interps {
		if in.Kind == domain.NumericQuantity {
			return true
		}
	}
	return false
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

func formatMeasure(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s
}
