package model

// ConflictType classifies the relationship between a candidate balance
// and an existing stored record for the same account and period.
type ConflictType string

// Conflict classifications.
const (
	ConflictNone          ConflictType = "NONE"
	ConflictSameValue     ConflictType = "SAME_VALUE"
	ConflictValueMismatch ConflictType = "VALUE_MISMATCH"
)

// RecommendedAction is the reconciliation engine's verdict on whether a
// candidate balance may be written.
type RecommendedAction string

// Recommended actions.
const (
	ActionProceed         RecommendedAction = "PROCEED"
	ActionConfirmOverride RecommendedAction = "CONFIRM_OVERRIDE"
	ActionBlock           RecommendedAction = "BLOCK"
)

// DuplicateCheck is the outcome of one duplicate reconciliation pass.
// It is computed fresh each time a commit is attempted and never persisted.
type DuplicateCheck struct {
	IsDuplicate bool
	Conflict    ConflictType
	Existing    *BalanceRecord
	Context     []BalanceRecord // further matches, informational only
	Similarity  float64         // 0-100
	Action      RecommendedAction
	Message     string
}
