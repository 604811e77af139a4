// Package testutil provides test helpers for the ingestion pipeline.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/storage"
)

// SetupTestStore creates an in-memory balance store with migrations
// applied and cleanup registered.
func SetupTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// SeedBalance inserts one balance record and returns it with its
// assigned ID.
func SeedBalance(t *testing.T, store *storage.SQLiteStore, account string, date time.Time, amount string) *model.BalanceRecord {
	t.Helper()

	record := &model.BalanceRecord{
		Account:    account,
		Date:       date,
		Amount:     decimal.RequireFromString(amount),
		Source:     model.SourceManual,
		Confidence: 1.0,
	}
	if err := store.SaveBalance(context.Background(), record); err != nil {
		t.Fatalf("failed to seed balance: %v", err)
	}
	return record
}

// Result builds a high-confidence extraction result suitable for
// auto-eligibility, which tests then degrade as needed.
func Result(account string, periodEnd time.Time, ending string, confidence float64) *model.ExtractionResult {
	return &model.ExtractionResult{
		Institution:    "Acme Brokerage",
		AccountType:    "brokerage",
		PeriodStart:    time.Date(periodEnd.Year(), periodEnd.Month(), 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      periodEnd,
		EndingBalance:  decimal.NewNullDecimal(decimal.RequireFromString(ending)),
		Confidence:     confidence,
		MatchedAccount: account,
		Page:           model.PageLocator{Page: 1, TotalPages: 4},
	}
}
