package extract

import (
	"fmt"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// Minimum classification confidence for pricing a bundle straight from
// its title.
const readyConfidence = 0.7

// ErrTerminalState is returned on any attempt to advance a listing
// past ready_for_pricing or skipped.
var ErrTerminalState = fmt.Errorf("gate state is terminal")

// AdvanceGate moves a listing's decision gate one step based on its
// current bundle classification. A listing gets at most one enrichment
// round: from enriched it either becomes ready or is skipped, never
// enriched again.
func AdvanceGate(state domain.GateState, c domain.BundleClassification) (domain.GateState, error) {
	switch state {
	case domain.GateInitial:
		if Resolved(c) {
			return domain.GateReadyForPricing, nil
		}
		return domain.GateNeedsEnrichment, nil

	case domain.GateNeedsEnrichment:
		return domain.GateEnriched, nil

	case domain.GateEnriched:
		if Resolved(c) {
			return domain.GateReadyForPricing, nil
		}
		return domain.GateSkipped, nil

	case domain.GateReadyForPricing, domain.GateSkipped:
		return state, ErrTerminalState

	default:
		return state, fmt.Errorf("unknown gate state %q", state)
	}
}

// Resolved reports whether a classification is trustworthy enough to
// price without further data.
func Resolved(c domain.BundleClassification) bool {
	if c.NeedsEnrichment {
		return false
	}
	switch c.Type {
	case domain.BundleSingleItem:
		return true
	case domain.BundleQuantity:
		return c.Confidence >= readyConfidence && len(c.Components) > 0
	default:
		return false
	}
}
