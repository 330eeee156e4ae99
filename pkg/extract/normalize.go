// Package extract turns noisy classifieds titles into canonical,
// price-relevant product identities: title normalization, numeric token
// interpretation, bundle classification, identity construction and
// deduplication, plus the per-listing decision gate.
package extract

import (
	"regexp"
	"strings"
)

// Condition and marketing filler commonly found in Swiss/German
// classifieds titles. Removed before search and comparison; none of
// these carry price-relevant information.
var noiseWords = map[string]bool{
	"neu":              true,
	"neuwertig":        true,
	"ovp":              true,
	"originalverpackt": true,
	"top":              true,
	"zustand":          true,
	"gebraucht":        true,
	"wenig":            true,
	"getragen":         true,
	"original":         true,
	"mega":             true,
	"super":            true,
	"schön":            true,
	"schoen":           true,
	"toll":             true,
	"rar":              true,
	"selten":           true,
	"günstig":          true,
	"guenstig":         true,
	"occasion":         true,
	"sale":             true,
}

// Color tokens are cosmetic and never price-relevant.
var colorWords = map[string]bool{
	"schwarz": true,
	"weiss":   true,
	"weiß":    true,
	"rot":     true,
	"blau":    true,
	"grün":    true,
	"gruen":   true,
	"gelb":    true,
	"grau":    true,
	"braun":   true,
	"rosa":    true,
	"pink":    true,
	"beige":   true,
	"orange":  true,
	"violett": true,
	"lila":    true,
	"silber":  true,
	"gold":    true,
}

// Connector words are only stripped when trailing.
var connectorWords = map[string]bool{
	"und": true, "mit": true, "für": true, "fuer": true,
	"in": true, "aus": true, "von": true, "oder": true,
}

var (
	// Size markers with a value: "Gr. 42", "Grösse M", "Größe 38".
	sizeMarkerRegex = regexp.MustCompile(`(?i)\bgr(?:össe|öße|oesse|\.)?\s*(xs|s|m|l|xl|xxl|xxxl|\d{2})\b`)

	// Standalone multi-letter sizes, any case.
	letterSizeRegex = regexp.MustCompile(`(?i)\b(xs|xl|xxl|xxxl|3xl)\b`)

	// Standalone single-letter sizes. Case-sensitive on purpose: a lone
	// uppercase S/M/L in a title is a clothing size, a lowercase l or g
	// next to a number is a unit.
	singleLetterSizeRegex = regexp.MustCompile(`\b(S|M|L)\b`)

	multiSpaceRegex = regexp.MustCompile(`\s{2,}`)
)

// Category hints for which numeric size ranges are stripped.
var clothingCategories = map[string]bool{
	"kleidung": true, "clothing": true, "fashion": true,
	"schuhe": true, "shoes": true,
}

// Normalize strips locale noise from a raw title: condition and
// marketing words, colors, size tokens and trailing punctuation.
// Brand, model and measurable specs survive. Deterministic; returns a
// best-effort cleanup and never fails on malformed input.
func Normalize(rawTitle, categoryHint string) string {
	s := sizeMarkerRegex.ReplaceAllString(rawTitle, " ")
	s = letterSizeRegex.ReplaceAllString(s, " ")
	s = singleLetterSizeRegex.ReplaceAllString(s, " ")

	if clothingCategories[strings.ToLower(categoryHint)] {
		s = stripClothingSizes(s)
	}

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		key := strings.ToLower(strings.Trim(w, ".,!?:;()[]\"'-"))
		if noiseWords[key] || colorWords[key] {
			continue
		}
		kept = append(kept, w)
	}

	// Drop trailing connectors and punctuation left dangling after
	// noise removal.
	for len(kept) > 0 {
		last := strings.ToLower(strings.Trim(kept[len(kept)-1], ".,!?:;()[]\"'-+"))
		if last == "" || connectorWords[last] {
			kept = kept[:len(kept)-1]
			continue
		}
		break
	}

	out := strings.Join(kept, " ")
	out = strings.Trim(out, " .,!?:;-")
	out = multiSpaceRegex.ReplaceAllString(out, " ")
	if out == "" {
		return strings.TrimSpace(rawTitle)
	}
	return out
}

// Bare numbers in clothing/shoe size ranges. Only applied when the
// category hint says clothing, so spec values like "40 zoll" elsewhere
// are untouched.
var clothingSizeRegex = regexp.MustCompile(`\b(3[2-9]|4[0-8]|5[0-6])\b`)

func stripClothingSizes(s string) string {
	return clothingSizeRegex.ReplaceAllStringFunc(s, func(m string) string {
		return " "
	})
}
