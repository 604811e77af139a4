// Package gate implements the automatic accept/review decision for
// extracted statement data.
package gate

import (
	"github.com/ledgerflow/ledgerflow/internal/model"
)

// Decision routes a completed extraction to auto-save, human review, or
// a hard block.
type Decision string

// Decisions.
const (
	AutoEligible Decision = "AUTO_ELIGIBLE"
	NeedsReview  Decision = "NEEDS_REVIEW"
	Blocked      Decision = "BLOCKED"
)

// ConfidenceBand is the user-facing label for an extraction confidence
// score.
type ConfidenceBand string

// Confidence bands.
const (
	BandHigh   ConfidenceBand = "HIGH"
	BandMedium ConfidenceBand = "MEDIUM"
	BandLow    ConfidenceBand = "LOW"
)

// Confidence thresholds separating the bands.
const (
	HighConfidenceThreshold   = 0.8
	MediumConfidenceThreshold = 0.6
)

// Band maps a confidence score to its band.
func Band(score float64) ConfidenceBand {
	switch {
	case score >= HighConfidenceThreshold:
		return BandHigh
	case score >= MediumConfidenceThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Evaluate maps an extraction result and its duplicate check to a
// decision. Deterministic and side-effect free: the same inputs produce
// the same answer on every call.
//
// Auto-eligibility requires a high-band confidence, a present ending
// balance, a matched account, and a duplicate check that recommends
// proceeding. A conflicting-value duplicate blocks regardless of
// confidence until the caller supplies an explicit override; the
// override neutralizes the conflict rather than recomputing the check.
func Evaluate(result *model.ExtractionResult, dup model.DuplicateCheck, override bool) Decision {
	if dup.Conflict == model.ConflictValueMismatch && !override {
		return Blocked
	}

	if result == nil {
		return NeedsReview
	}
	if Band(result.Confidence) != BandHigh {
		return NeedsReview
	}
	if !result.EndingBalance.Valid {
		return NeedsReview
	}
	if result.MatchedAccount == "" {
		return NeedsReview
	}

	if dup.Action == model.ActionProceed {
		return AutoEligible
	}
	if override {
		// Caller has explicitly accepted the duplicate.
		return AutoEligible
	}

	return NeedsReview
}
