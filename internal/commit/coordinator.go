// Package commit sequences persistence of verified balance entries
// against the external balance store.
package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/reconcile"
	"github.com/ledgerflow/ledgerflow/internal/service"
)

// ErrDuplicateConflict indicates a commit was rejected because a stored
// record conflicts with the candidate and no override was supplied.
var ErrDuplicateConflict = errors.New("duplicate conflict requires explicit override")

// ConflictError carries the duplicate check that rejected a commit, so
// callers can surface the existing record and recommended action.
type ConflictError struct {
	Check model.DuplicateCheck
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDuplicateConflict, e.Check.Message)
}

func (e *ConflictError) Unwrap() error {
	return ErrDuplicateConflict
}

// RequiresConfirmation reports whether the rejection only needs the
// caller to confirm, as opposed to a hard conflicting-value block.
func (e *ConflictError) RequiresConfirmation() bool {
	return e.Check.Action == model.ActionConfirmOverride
}

// Coordinator commits batches of requests one at a time. Writes are
// strictly sequential so duplicate checks stay race-free against
// sibling items in the same batch.
type Coordinator struct {
	store      service.BalanceStore
	reconciler *reconcile.Engine
}

// NewCoordinator creates a coordinator over the given store and
// reconciliation engine.
func NewCoordinator(store service.BalanceStore, reconciler *reconcile.Engine) *Coordinator {
	return &Coordinator{
		store:      store,
		reconciler: reconciler,
	}
}

// Commit processes each request in order and reports per-item outcomes.
// One item's failure never aborts the rest, and partial failure is not
// an error: the summary is the only result.
func (c *Coordinator) Commit(ctx context.Context, requests []model.CommitRequest) model.BatchSummary {
	summary := model.BatchSummary{
		Attempted: len(requests),
		Outcomes:  make([]model.CommitOutcome, 0, len(requests)),
	}

	for _, request := range requests {
		balanceID, err := c.commitOne(ctx, request)
		outcome := model.CommitOutcome{
			ItemID:    request.ItemID,
			BalanceID: balanceID,
			Err:       err,
		}
		if err != nil {
			summary.Failed++
			slog.Warn("Commit failed",
				"item_id", request.ItemID,
				"account", request.Account,
				"error", err)
		} else {
			summary.Succeeded++
			slog.Info("Balance committed",
				"item_id", request.ItemID,
				"account", request.Account,
				"balance_id", balanceID)
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	return summary
}

// commitOne re-runs the duplicate check immediately before the write;
// store state may have changed since the item was first evaluated,
// including from earlier items in this same batch.
func (c *Coordinator) commitOne(ctx context.Context, request model.CommitRequest) (int64, error) {
	if err := request.Validate(); err != nil {
		return 0, err
	}

	check, err := c.reconciler.Check(ctx, reconcile.Candidate{
		Account: request.Account,
		Date:    request.Date,
		Amount:  request.Amount.Decimal,
	})
	if err != nil {
		return 0, fmt.Errorf("duplicate check failed: %w", err)
	}

	record := &model.BalanceRecord{
		Account:    request.Account,
		Date:       request.Date,
		Amount:     request.Amount.Decimal,
		Source:     request.Source,
		Confidence: request.Confidence,
		Notes:      request.Notes,
	}

	if check.Action != model.ActionProceed {
		if !request.Override {
			return 0, &ConflictError{Check: check}
		}
		// Explicit override replaces the prior value for the period
		// rather than adding a second record.
		if check.Existing != nil {
			record.ID = check.Existing.ID
		}
	}

	if err := c.store.SaveBalance(ctx, record); err != nil {
		return 0, fmt.Errorf("balance store rejected write: %w", err)
	}

	return record.ID, nil
}

// QuickSaveRequest builds a commit request straight from an item's
// extraction result, for items the decision gate judged auto-eligible.
func QuickSaveRequest(item model.StatementItem, override bool) (model.CommitRequest, error) {
	result := item.Result
	if result == nil {
		return model.CommitRequest{}, fmt.Errorf("item %s has no extraction result", item.ID)
	}

	notes := ""
	if result.Institution != "" {
		notes = fmt.Sprintf("Imported from %s statement", result.Institution)
	}

	request := model.CommitRequest{
		ItemID:     item.ID,
		Account:    result.MatchedAccount,
		Date:       result.PeriodEnd,
		Amount:     result.EndingBalance,
		Notes:      notes,
		Source:     model.SourceExtracted,
		Confidence: result.Confidence,
		Override:   override,
	}

	if err := request.Validate(); err != nil {
		return model.CommitRequest{}, err
	}
	return request, nil
}

// ManualRequest builds a commit request for a manual entry that
// bypasses extraction entirely. It still flows through the coordinator
// so the duplicate check is never skipped.
func ManualRequest(account string, date time.Time, amount decimal.Decimal, notes string, override bool) model.CommitRequest {
	return model.CommitRequest{
		Account:    account,
		Date:       date,
		Amount:     decimal.NewNullDecimal(amount),
		Notes:      notes,
		Source:     model.SourceManual,
		Confidence: 1.0,
		Override:   override,
	}
}
