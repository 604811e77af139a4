// Package model defines the core domain models used throughout the application.
package model

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MediaKind identifies the kind of file a statement was uploaded as.
type MediaKind string

// Supported media kinds.
const (
	MediaDocument MediaKind = "DOCUMENT"
	MediaImage    MediaKind = "IMAGE"
)

// MediaKindForFilename maps a filename extension to a media kind.
// The second return value is false for unsupported extensions.
func MediaKindForFilename(name string) (MediaKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MediaDocument, true
	case ".png", ".jpg", ".jpeg":
		return MediaImage, true
	default:
		return "", false
	}
}

// ItemStatus tracks where a statement item is in the ingestion pipeline.
type ItemStatus string

// Item status constants. Transitions are owned by the tracker; nothing
// else may set these directly.
const (
	StatusPending    ItemStatus = "PENDING"
	StatusProcessing ItemStatus = "PROCESSING"
	StatusCompleted  ItemStatus = "COMPLETED"
	StatusReviewing  ItemStatus = "REVIEWING"
	StatusSaved      ItemStatus = "SAVED"
	StatusFailed     ItemStatus = "FAILED"
)

// StatementItem represents one uploaded file tracked through a batch.
// Failed items are terminal; resubmitting a file creates a new item.
type StatementItem struct {
	ID             uuid.UUID
	Filename       string
	Kind           MediaKind
	Status         ItemStatus
	Result         *ExtractionResult
	FailureMessage string
	BalanceID      int64 // assigned once the item reaches Saved
}

// UploadRecord is the audit trail entry the store keeps for every file
// accepted into a batch, used for filename-duplicate warnings.
type UploadRecord struct {
	ID         int64
	Filename   string
	UploadedAt time.Time
	Status     ItemStatus
	BalanceID  int64
}

// PageLocator identifies which page of a multi-page document held the
// relevant figures.
type PageLocator struct {
	Page       int
	TotalPages int
}

// AccountSuggestion is a candidate account match produced by extraction.
type AccountSuggestion struct {
	Account string
	Score   float64
}

// ExtractionResult holds the structured fields produced by the external
// extraction service for a single statement file. Immutable once produced.
type ExtractionResult struct {
	Institution      string
	AccountType      string
	AccountNumber    string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	BeginningBalance decimal.NullDecimal
	EndingBalance    decimal.NullDecimal
	Confidence       float64
	MatchedAccount   string
	Suggestions      []AccountSuggestion
	Page             PageLocator
}
