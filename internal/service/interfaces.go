// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ledgerflow/ledgerflow/internal/model"
)

// BalanceStore defines the contract for the external balance store.
// The store owns BalanceRecord persistence; this core only references it.
type BalanceStore interface {
	// Balance operations
	SaveBalance(ctx context.Context, record *model.BalanceRecord) error
	GetBalance(ctx context.Context, id int64) (*model.BalanceRecord, error)
	ListBalances(ctx context.Context, account string) ([]model.BalanceRecord, error)
	ListBalancesInWindow(ctx context.Context, account string, from, to time.Time) ([]model.BalanceRecord, error)

	// Upload audit trail
	RecordUpload(ctx context.Context, upload *model.UploadRecord) error
	FindUploadByFilename(ctx context.Context, filename string) (*model.UploadRecord, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Extractor defines the contract for the external extraction capability
// that turns one statement file into structured fields plus a confidence
// score. One call per file; there is no mid-flight cancellation.
type Extractor interface {
	ExtractStatement(ctx context.Context, filename string, data []byte) (*model.ExtractionResult, error)
}

// PreviewFetcher supplies the human-reviewable page for the review UI.
// Consumed, not produced, by this core.
type PreviewFetcher interface {
	FetchPreview(ctx context.Context, itemRef string) (data []byte, contentType string, err error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
