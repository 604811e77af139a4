package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ledgerflow/ledgerflow/internal/commit"
	"github.com/ledgerflow/ledgerflow/internal/common"
	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/reconcile"
)

func manualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manual <account> <date> <amount>",
		Short: "Record a balance by hand, bypassing extraction",
		Long: `Record a balance entry directly, without uploading a statement.

The entry still runs through duplicate reconciliation, so a conflicting
balance already stored for the same period blocks the save unless
--override-duplicates is set.`,
		Args: cobra.ExactArgs(3),
		RunE: runManual,
	}

	cmd.Flags().String("notes", "", "Free-text notes for the entry")
	cmd.Flags().Bool("override-duplicates", false, "Replace a conflicting balance already stored for the same period")

	return cmd
}

func runManual(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	notes, _ := cmd.Flags().GetString("notes")
	override, _ := cmd.Flags().GetBool("override-duplicates")

	account := args[0]

	date, err := time.Parse("2006-01-02", args[1])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", args[1]), err)
	}

	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("invalid amount %q", args[2]), err)
	}

	store, err := initStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open balance store: %w", err)
	}
	defer func() { _ = store.Close() }()

	reconciler := reconcile.NewWithOptions(store, loadWindow(), decimal.NewFromFloat(0.01))
	coordinator := commit.NewCoordinator(store, reconciler)

	request := commit.ManualRequest(account, date, amount, notes, override)
	summary := coordinator.Commit(ctx, []model.CommitRequest{request})

	outcome := summary.Outcomes[0]
	if outcome.Err != nil {
		var conflict *commit.ConflictError
		if errors.As(outcome.Err, &conflict) {
			fmt.Fprintf(out, "⚠ %s\n", conflict.Check.Message)
			fmt.Fprintln(out, "Re-run with --override-duplicates to replace the stored value.")
			return common.NewUserError("balance not saved", commit.ErrDuplicateConflict)
		}
		return fmt.Errorf("failed to save balance: %w", outcome.Err)
	}

	fmt.Fprintf(out, "Saved balance %s for %s on %s (id %d)\n",
		amount.StringFixed(2), account, date.Format("2006-01-02"), outcome.BalanceID)
	return nil
}
