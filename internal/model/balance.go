package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DataSource tags how a balance record entered the store.
type DataSource string

// Data source constants.
const (
	SourceExtracted DataSource = "EXTRACTED"
	SourceManual    DataSource = "MANUAL"
)

// BalanceRecord is one stored account balance. The balance store owns
// persistence; this type is the shared in-memory representation.
// Amount is a signed decimal; deposit/withdrawal interpretation belongs
// to the store's own accounting rules.
type BalanceRecord struct {
	ID         int64
	Account    string
	Date       time.Time
	Amount     decimal.Decimal
	Source     DataSource
	Confidence float64
	Notes      string
	CreatedAt  time.Time
}

// CommitRequest carries one verified balance to the batch commit
// coordinator. ItemID is the zero UUID for manual entries.
type CommitRequest struct {
	ItemID     uuid.UUID
	Account    string
	Date       time.Time
	Amount     decimal.NullDecimal
	Notes      string
	Source     DataSource
	Confidence float64
	Override   bool
}

// MissingFieldsError reports every required field absent from a commit
// request, so a review session can surface them all at once.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Validate checks the commit invariant: a non-empty account reference,
// a balance date, and a numeric balance amount must all be present.
func (r *CommitRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Account) == "" {
		missing = append(missing, "account")
	}
	if r.Date.IsZero() {
		missing = append(missing, "date")
	}
	if !r.Amount.Valid {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}
