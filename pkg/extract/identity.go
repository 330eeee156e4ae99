package extract

import (
	"sort"
	"strings"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// Known brands, lowercased. Multi-word brands are matched before their
// prefixes ("tommy hilfiger" before any single-token scan).
var knownBrands = []string{
	"tommy hilfiger",
	"hugo boss",
	"north face",
	"calvin klein",
	"ralph lauren",
	"louis vuitton",
	"bose",
	"sonos",
	"dyson",
	"kitchenaid",
	"vitamix",
	"thule",
	"garmin",
	"polar",
	"suunto",
	"kettler",
	"hammer",
	"domyos",
	"decathlon",
	"ikea",
	"apple",
	"samsung",
	"sony",
	"nintendo",
	"lego",
	"playmobil",
	"nike",
	"adidas",
	"puma",
	"mammut",
	"salomon",
	"scott",
	"specialized",
	"cube",
	"trek",
	"stokke",
	"bugaboo",
	"weber",
	"bosch",
	"makita",
	"dewalt",
	"hilti",
	"miele",
	"jura",
	"delonghi",
	"nespresso",
}

// Spec attributes that move price. Everything else (size, color,
// condition) is cosmetic and excluded so that cosmetic variants of the
// same product collapse onto one identity.
var priceRelevantSpecs = map[string]bool{
	"capacity": true,
	"weight":   true,
	"volume":   true,
	"length":   true,
	"storage":  true,
	"material": true,
}

// BuildIdentity derives the canonical product identity from a
// normalized title. Deterministic: the same normalized title always
// yields the same identity regardless of listing metadata.
func BuildIdentity(normalizedTitle, categoryHint string) domain.ProductIdentity {
	lower := strings.ToLower(normalizedTitle)

	id := domain.ProductIdentity{
		Category: strings.ToLower(strings.TrimSpace(categoryHint)),
	}

	for _, brand := range knownBrands {
		if idx := strings.Index(lower, brand); idx >= 0 {
			id.Brand = brand
			rest := lower[:idx] + lower[idx+len(brand):]
			id.Model = collapseSpaces(rest)
			break
		}
	}
	if id.Brand == "" {
		id.Model = collapseSpaces(lower)
	}

	if specs := extractKeySpecs(normalizedTitle); len(specs) > 0 {
		id.KeySpecs = specs
	}

	return id
}

// IdentityKey renders a deterministic grouping key:
// brand:model:category:spec=val,... with specs sorted by name. Listings
// differing only in cosmetics produce identical keys.
func IdentityKey(id domain.ProductIdentity) string {
	parts := []string{
		keyPart(id.Brand),
		keyPart(id.Model),
		keyPart(id.Category),
	}

	if len(id.KeySpecs) > 0 {
		names := make([]string, 0, len(id.KeySpecs))
		for name := range id.KeySpecs {
			names = append(names, name)
		}
		sort.Strings(names)

		specs := make([]string, 0, len(names))
		for _, name := range names {
			specs = append(specs, keyPart(name)+"="+keyPart(id.KeySpecs[name]))
		}
		parts = append(parts, strings.Join(specs, ","))
	}

	return strings.Join(parts, ":")
}

const unknownKey = "unknown"

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func keyPart(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return unknownKey
	}
	return strings.ReplaceAll(s, " ", "_")
}

// extractKeySpecs pulls measurable, price-relevant attributes out of a
// title: measures like "5kg" or "500ml" become weight/volume specs.
func extractKeySpecs(title string) map[string]string {
	interps := ClassifyNumericTokens(title)
	specs := make(map[string]string)

	for _, in := range interps {
		if in.Kind != domain.NumericMeasure {
			continue
		}
		name := specNameForUnit(in.Unit)
		if name == "" {
			continue
		}
		// First measure per spec wins; duplicates in a title are noise.
		if _, ok := specs[name]; !ok {
			specs[name] = formatMeasure(in.RawNumber) + in.Unit
		}
	}

	if len(specs) == 0 {
		return nil
	}
	return specs
}

func specNameForUnit(unit string) string {
	switch unit {
	case "kg", "g", "oz", "lbs":
		return "weight"
	case "ml", "cl", "l":
		return "volume"
	case "cm", "mm", "zoll":
		return "length"
	default:
		return ""
	}
}

// GroupByIdentity groups listings that resolve to the same product:
// identity key to the IDs of every listing carrying it, in input
// order. Pure and idempotent; grouping never drops a listing from
// evaluation, it lets one price lookup serve the whole group. Listings
// without an identity key are not grouped.
func GroupByIdentity(listings []domain.Listing) map[string][]string {
	groups := make(map[string][]string)

	for i := range listings {
		key := listings[i].IdentityKey
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], listings[i].ID)
	}

	return groups
}
