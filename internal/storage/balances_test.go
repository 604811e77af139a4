package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/ledgerflow/internal/common"
	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/storage"
	"github.com/ledgerflow/ledgerflow/internal/testutil"
)

func TestSaveAndGetBalance(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	record := &model.BalanceRecord{
		Account:    "brokerage-1",
		Date:       time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("1000.55"),
		Source:     model.SourceExtracted,
		Confidence: 0.92,
		Notes:      "Imported from Acme Brokerage statement",
	}
	require.NoError(t, store.SaveBalance(ctx, record))
	require.NotZero(t, record.ID)

	got, err := store.GetBalance(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "brokerage-1", got.Account)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1000.55")))
	assert.Equal(t, model.SourceExtracted, got.Source)
	assert.InDelta(t, 0.92, got.Confidence, 0.0001)
	assert.Equal(t, record.Notes, got.Notes)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveBalancePreservesExactDecimal(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	// Values that lose precision through float64 round-tripping must
	// survive storage exactly.
	for _, amount := range []string{"0.10", "123456789.01", "-0.07", "9999999999999.99"} {
		record := &model.BalanceRecord{
			Account:    "brokerage-1",
			Date:       time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			Amount:     decimal.RequireFromString(amount),
			Source:     model.SourceManual,
			Confidence: 1.0,
		}
		require.NoError(t, store.SaveBalance(ctx, record))

		got, err := store.GetBalance(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, amount, got.Amount.StringFixed(2))
	}
}

func TestSaveBalanceUpdateInPlace(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	seeded := testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), "1000.00")

	update := &model.BalanceRecord{
		ID:         seeded.ID,
		Account:    "brokerage-1",
		Date:       seeded.Date,
		Amount:     decimal.RequireFromString("1500.00"),
		Source:     model.SourceExtracted,
		Confidence: 0.9,
		Notes:      "corrected after override",
	}
	require.NoError(t, store.SaveBalance(ctx, update))

	balances, err := store.ListBalances(ctx, "brokerage-1")
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.True(t, balances[0].Amount.Equal(decimal.RequireFromString("1500.00")))
	assert.Equal(t, "corrected after override", balances[0].Notes)
}

func TestSaveBalanceUpdateMissingRow(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	err := store.SaveBalance(ctx, &model.BalanceRecord{
		ID:         999,
		Account:    "brokerage-1",
		Date:       time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("1.00"),
		Source:     model.SourceManual,
		Confidence: 1.0,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveBalanceValidation(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	tests := []struct {
		name   string
		record *model.BalanceRecord
	}{
		{"nil record", nil},
		{"empty account", &model.BalanceRecord{
			Date: time.Now(), Source: model.SourceManual,
		}},
		{"zero date", &model.BalanceRecord{
			Account: "a", Source: model.SourceManual,
		}},
		{"confidence out of range", &model.BalanceRecord{
			Account: "a", Date: time.Now(), Source: model.SourceManual, Confidence: 1.5,
		}},
		{"unknown source", &model.BalanceRecord{
			Account: "a", Date: time.Now(), Source: "GUESSED", Confidence: 1.0,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.SaveBalance(ctx, tt.record))
		})
	}
}

func TestGetBalanceNotFound(t *testing.T) {
	store := testutil.SetupTestStore(t)
	_, err := store.GetBalance(context.Background(), 12345)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListBalancesOrdering(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), "900.00")
	testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), "1100.00")
	testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), "1000.00")
	testutil.SeedBalance(t, store, "savings-9",
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), "50.00")

	balances, err := store.ListBalances(ctx, "brokerage-1")
	require.NoError(t, err)
	require.Len(t, balances, 3)
	assert.Equal(t, time.March, balances[0].Date.Month())
	assert.Equal(t, time.February, balances[1].Date.Month())
	assert.Equal(t, time.January, balances[2].Date.Month())
}

func TestListBalancesInWindow(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), "900.00")
	inWindow := testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "1000.00")
	onBoundary := testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), "1050.00")
	testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), "1100.00")

	balances, err := store.ListBalancesInWindow(ctx, "brokerage-1",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, balances, 2)

	// Newest first; both window edges are inclusive.
	assert.Equal(t, onBoundary.ID, balances[0].ID)
	assert.Equal(t, inWindow.ID, balances[1].ID)
}

func TestListBalancesEmptyAccount(t *testing.T) {
	store := testutil.SetupTestStore(t)
	_, err := store.ListBalances(context.Background(), "  ")
	assert.ErrorIs(t, err, storage.ErrEmptyString)
}
