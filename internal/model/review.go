package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReviewDraft holds one item's editable fields while a human confirms or
// corrects them. Mutable only inside an open review session; discarded on
// cancel.
type ReviewDraft struct {
	Account string
	Date    time.Time
	Amount  decimal.NullDecimal
	Notes   string
}
