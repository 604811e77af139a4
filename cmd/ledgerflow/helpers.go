package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/ledgerflow/ledgerflow/internal/config"
	"github.com/ledgerflow/ledgerflow/internal/reconcile"
	"github.com/ledgerflow/ledgerflow/internal/storage"
)

// initStore opens the balance store and brings its schema up to date.
func initStore(ctx context.Context) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadWindow resolves the duplicate-check period window. Calendar month
// is the default; reconcile.window_days switches to a ±N day span.
func loadWindow() reconcile.Window {
	if days := viper.GetInt("reconcile.window_days"); days > 0 {
		return reconcile.Window{Granularity: reconcile.DaySpan, Days: days}
	}
	return reconcile.DefaultWindow()
}
