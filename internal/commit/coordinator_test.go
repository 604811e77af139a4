package commit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/reconcile"
	"github.com/ledgerflow/ledgerflow/internal/testutil"
)

func request(account string, date time.Time, amount string, override bool) model.CommitRequest {
	return model.CommitRequest{
		ItemID:     uuid.New(),
		Account:    account,
		Date:       date,
		Amount:     decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Source:     model.SourceExtracted,
		Confidence: 0.9,
		Override:   override,
	}
}

func TestCommitSuccess(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	coordinator := NewCoordinator(store, reconcile.New(store))

	march := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	summary := coordinator.Commit(ctx, []model.CommitRequest{
		request("brokerage-1", march, "1000.00", false),
	})

	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Outcomes, 1)
	require.NoError(t, summary.Outcomes[0].Err)
	assert.NotZero(t, summary.Outcomes[0].BalanceID)

	saved, err := store.GetBalance(ctx, summary.Outcomes[0].BalanceID)
	require.NoError(t, err)
	assert.Equal(t, "brokerage-1", saved.Account)
	assert.True(t, saved.Amount.Equal(decimal.RequireFromString("1000.00")))
}

func TestCommitRejectsConflictWithoutOverride(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	coordinator := NewCoordinator(store, reconcile.New(store))

	testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "1000.00")

	march := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	summary := coordinator.Commit(ctx, []model.CommitRequest{
		request("brokerage-1", march, "1500.00", false),
	})

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Outcomes, 1)

	var conflict *ConflictError
	require.ErrorAs(t, summary.Outcomes[0].Err, &conflict)
	assert.ErrorIs(t, summary.Outcomes[0].Err, ErrDuplicateConflict)
	assert.False(t, conflict.RequiresConfirmation())
	assert.Equal(t, model.ConflictValueMismatch, conflict.Check.Conflict)

	// Nothing was written.
	balances, err := store.ListBalances(ctx, "brokerage-1")
	require.NoError(t, err)
	assert.Len(t, balances, 1)
}

func TestCommitOverrideReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	coordinator := NewCoordinator(store, reconcile.New(store))

	seeded := testutil.SeedBalance(t, store, "brokerage-1",
		time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "1000.00")

	march := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	summary := coordinator.Commit(ctx, []model.CommitRequest{
		request("brokerage-1", march, "1500.00", true),
	})

	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, seeded.ID, summary.Outcomes[0].BalanceID)

	// Overriding updates the stored record; the month still has
	// exactly one balance for this account.
	balances, err := store.ListBalances(ctx, "brokerage-1")
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.True(t, balances[0].Amount.Equal(decimal.RequireFromString("1500.00")))
}

func TestCommitTwoFilesSameMonth(t *testing.T) {
	// Two statements for the same account and month in one batch: the
	// first commits cleanly, the second hits the fresh duplicate check
	// even though both were evaluated against an empty store.
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	coordinator := NewCoordinator(store, reconcile.New(store))

	march := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	summary := coordinator.Commit(ctx, []model.CommitRequest{
		request("brokerage-1", march, "1000.00", false),
		request("brokerage-1", march, "1500.00", false),
	})

	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.NoError(t, summary.Outcomes[0].Err)
	assert.ErrorIs(t, summary.Outcomes[1].Err, ErrDuplicateConflict)

	balances, err := store.ListBalances(ctx, "brokerage-1")
	require.NoError(t, err)
	assert.Len(t, balances, 1)
}

func TestCommitPartialFailureContinues(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	coordinator := NewCoordinator(store, reconcile.New(store))

	march := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	invalid := model.CommitRequest{
		ItemID: uuid.New(),
		Source: model.SourceExtracted,
	}

	summary := coordinator.Commit(ctx, []model.CommitRequest{
		request("brokerage-1", march, "1000.00", false),
		invalid,
		request("savings-9", march, "250.00", false),
	})

	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	var missing *model.MissingFieldsError
	require.ErrorAs(t, summary.Outcomes[1].Err, &missing)
	assert.ElementsMatch(t, []string{"account", "date", "amount"}, missing.Fields)

	// The item after the failure still landed.
	balances, err := store.ListBalances(ctx, "savings-9")
	require.NoError(t, err)
	assert.Len(t, balances, 1)
}

func TestResubmitAfterSaveIsCaught(t *testing.T) {
	// A statement committed once and submitted again in a later batch
	// trips the same-value check instead of inserting a second record.
	ctx := context.Background()
	store := testutil.SetupTestStore(t)
	coordinator := NewCoordinator(store, reconcile.New(store))

	march := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	first := coordinator.Commit(ctx, []model.CommitRequest{
		request("brokerage-1", march, "1000.00", false),
	})
	require.Equal(t, 1, first.Succeeded)

	second := coordinator.Commit(ctx, []model.CommitRequest{
		request("brokerage-1", march, "1000.00", false),
	})
	require.Equal(t, 1, second.Failed)

	var conflict *ConflictError
	require.ErrorAs(t, second.Outcomes[0].Err, &conflict)
	assert.True(t, conflict.RequiresConfirmation())
	assert.Equal(t, model.ConflictSameValue, conflict.Check.Conflict)

	// Overriding resolves it without growing the store.
	third := coordinator.Commit(ctx, []model.CommitRequest{
		request("brokerage-1", march, "1000.00", true),
	})
	require.Equal(t, 1, third.Succeeded)

	balances, err := store.ListBalances(ctx, "brokerage-1")
	require.NoError(t, err)
	assert.Len(t, balances, 1)
}

func TestQuickSaveRequest(t *testing.T) {
	item := model.StatementItem{
		ID:       uuid.New(),
		Filename: "march.pdf",
		Status:   model.StatusCompleted,
		Result: testutil.Result("brokerage-1",
			time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), "1000.00", 0.92),
	}

	req, err := QuickSaveRequest(item, false)
	require.NoError(t, err)
	assert.Equal(t, item.ID, req.ItemID)
	assert.Equal(t, "brokerage-1", req.Account)
	assert.Equal(t, model.SourceExtracted, req.Source)
	assert.InDelta(t, 0.92, req.Confidence, 0.0001)
	assert.Equal(t, "Imported from Acme Brokerage statement", req.Notes)

	item.Result = nil
	_, err = QuickSaveRequest(item, false)
	assert.Error(t, err)
}

func TestManualRequest(t *testing.T) {
	date := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	req := ManualRequest("brokerage-1", date, decimal.RequireFromString("-42.50"), "overdrawn", false)

	assert.Equal(t, uuid.Nil, req.ItemID)
	assert.Equal(t, model.SourceManual, req.Source)
	assert.Equal(t, 1.0, req.Confidence)
	assert.True(t, req.Amount.Decimal.Equal(decimal.RequireFromString("-42.50")))
	require.NoError(t, req.Validate())
}
