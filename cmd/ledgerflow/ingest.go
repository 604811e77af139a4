package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ledgerflow/ledgerflow/internal/cli"
	"github.com/ledgerflow/ledgerflow/internal/commit"
	"github.com/ledgerflow/ledgerflow/internal/common"
	"github.com/ledgerflow/ledgerflow/internal/config"
	"github.com/ledgerflow/ledgerflow/internal/extract"
	"github.com/ledgerflow/ledgerflow/internal/gate"
	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/reconcile"
	"github.com/ledgerflow/ledgerflow/internal/review"
	"github.com/ledgerflow/ledgerflow/internal/tracker"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Ingest statement files and commit verified balances",
		Long: `Upload one or more statement files (PDF or image), extract their
figures, and commit the verified balances.

High-confidence extractions with a matched account and no duplicate
conflict are saved automatically. Everything else is offered for
interactive review.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().Bool("override-duplicates", false, "Replace conflicting balances already stored for the same period")
	cmd.Flags().Bool("auto-only", false, "Commit auto-eligible items and skip interactive review")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	override, _ := cmd.Flags().GetBool("override-duplicates")
	autoOnly, _ := cmd.Flags().GetBool("auto-only")

	endpoints, err := config.LoadEndpoints()
	if err != nil {
		return common.NewUserError("extraction service is not configured", err)
	}

	store, err := initStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open balance store: %w", err)
	}
	defer func() { _ = store.Close() }()

	tr := tracker.New(config.LoadLimits())

	// Intake: validation failures are per-file and never reach the network.
	for _, path := range args {
		data, readErr := os.ReadFile(path) // #nosec G304 -- user-supplied statement path
		if readErr != nil {
			slog.Error("Cannot read file", "path", path, "error", readErr)
			continue
		}

		name := filepath.Base(path)
		if prior, auditErr := store.FindUploadByFilename(ctx, name); auditErr == nil && prior != nil {
			slog.Warn("File with this name was uploaded before",
				"filename", name,
				"uploaded_at", prior.UploadedAt)
		}

		if _, enqueueErr := tr.Enqueue(name, data); enqueueErr != nil {
			slog.Error("Rejected file", "filename", name, "error", enqueueErr)
		}
	}

	items := tr.Items()
	if len(items) == 0 {
		return common.NewUserError("no valid files selected", common.ErrNoValidFiles)
	}

	// Drive extraction with a progress bar fed from tracker transitions.
	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Extracting statements..."),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)

	transitions, unsubscribe := tr.Subscribe()
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		for transition := range transitions {
			if transition.To == model.StatusCompleted || transition.To == model.StatusFailed {
				_ = bar.Add(1)
			}
		}
	}()

	tr.ProcessAll(ctx, extract.NewClient(endpoints))
	unsubscribe()
	<-watcherDone

	reconciler := reconcile.NewWithOptions(store, loadWindow(), decimal.NewFromFloat(0.01))
	coordinator := commit.NewCoordinator(store, reconciler)
	reviewer := cli.NewReviewer(cmd.InOrStdin(), out, review.NewManager(tr))

	var requests []model.CommitRequest
	for _, item := range tr.Items() {
		switch item.Status {
		case model.StatusFailed:
			fmt.Fprintf(out, "✗ %s: %s\n", item.Filename, item.FailureMessage)

		case model.StatusCompleted:
			check := duplicateCheckFor(ctx, reconciler, item)

			switch gate.Evaluate(item.Result, check, override) {
			case gate.AutoEligible:
				request, reqErr := commit.QuickSaveRequest(item, override)
				if reqErr != nil {
					fmt.Fprintf(out, "✗ %s: %v\n", item.Filename, reqErr)
					continue
				}
				requests = append(requests, request)

			case gate.Blocked:
				fmt.Fprintf(out, "⚠ %s blocked: %s\n", item.Filename, check.Message)
				fmt.Fprintln(out, "  Re-run with --override-duplicates to replace the stored value.")

			case gate.NeedsReview:
				band := gate.Band(confidenceOf(item))
				if autoOnly {
					fmt.Fprintf(out, "• %s needs review (confidence %s), skipped\n", item.Filename, band)
					continue
				}
				request, reviewErr := reviewer.ReviewItem(item)
				if reviewErr != nil {
					return fmt.Errorf("review of %s failed: %w", item.Filename, reviewErr)
				}
				if request != nil {
					request.Override = override
					requests = append(requests, *request)
				}
			}
		}
	}

	summary := coordinator.Commit(ctx, requests)

	// Reflect commit outcomes back into item state.
	for _, outcome := range summary.Outcomes {
		if outcome.ItemID == uuid.Nil {
			continue
		}
		if outcome.Err == nil {
			if markErr := tr.MarkSaved(outcome.ItemID, outcome.BalanceID); markErr != nil {
				slog.Error("Failed to mark item saved", "item_id", outcome.ItemID, "error", markErr)
			}
			continue
		}
		if item, ok := tr.Item(outcome.ItemID); ok {
			fmt.Fprintf(out, "✗ %s: %v\n", item.Filename, outcome.Err)
			if item.Status == model.StatusReviewing {
				_ = tr.CancelReview(outcome.ItemID)
			}
		}
	}

	// Audit trail for every accepted file, whatever its fate.
	for _, item := range tr.Items() {
		auditErr := store.RecordUpload(ctx, &model.UploadRecord{
			Filename:  item.Filename,
			Status:    item.Status,
			BalanceID: item.BalanceID,
		})
		if auditErr != nil {
			slog.Warn("Failed to record upload audit entry", "filename", item.Filename, "error", auditErr)
		}
	}

	fmt.Fprintf(out, "\nBatch complete: %d attempted, %d saved, %d failed\n",
		summary.Attempted, summary.Succeeded, summary.Failed)
	return nil
}

// duplicateCheckFor runs the reconciliation check when the extraction
// produced enough to identify a candidate. Items missing an account,
// period, or balance go to review on the gate's field checks instead.
func duplicateCheckFor(ctx context.Context, reconciler *reconcile.Engine, item model.StatementItem) model.DuplicateCheck {
	result := item.Result
	if result == nil || result.MatchedAccount == "" || !result.EndingBalance.Valid || result.PeriodEnd.IsZero() {
		return model.DuplicateCheck{Conflict: model.ConflictNone, Action: model.ActionProceed}
	}

	check, err := reconciler.Check(ctx, reconcile.Candidate{
		Account: result.MatchedAccount,
		Date:    result.PeriodEnd,
		Amount:  result.EndingBalance.Decimal,
	})
	if err != nil {
		slog.Warn("Duplicate check failed, routing to review",
			"item_id", item.ID,
			"error", err)
		return model.DuplicateCheck{}
	}
	return check
}

func confidenceOf(item model.StatementItem) float64 {
	if item.Result == nil {
		return 0
	}
	return item.Result.Confidence
}
