package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances <account>",
		Short: "List stored balances for an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runBalances,
	}
}

func runBalances(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	account := args[0]

	store, err := initStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open balance store: %w", err)
	}
	defer func() { _ = store.Close() }()

	balances, err := store.ListBalances(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to list balances: %w", err)
	}

	if len(balances) == 0 {
		fmt.Fprintf(out, "No balances stored for %s\n", account)
		return nil
	}

	fmt.Fprintf(out, "Balances for %s:\n", account)
	for _, b := range balances {
		fmt.Fprintf(out, "  %s  %12s  %-9s  confidence %.2f  %s\n",
			b.Date.Format("2006-01-02"), b.Amount.StringFixed(2), b.Source, b.Confidence, b.Notes)
	}
	return nil
}
