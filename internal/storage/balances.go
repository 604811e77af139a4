package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/common"
	"github.com/ledgerflow/ledgerflow/internal/model"
)

// SaveBalance inserts a balance record, or replaces an existing one when
// the record carries the existing row's ID (the override path).
func (s *SQLiteStore) SaveBalance(ctx context.Context, record *model.BalanceRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBalance(record); err != nil {
		return err
	}

	if record.ID != 0 {
		result, err := s.db.ExecContext(ctx, `
			UPDATE balances
			SET account = ?, balance_date = ?, amount = ?, data_source = ?, confidence = ?, notes = ?
			WHERE id = ?
		`, record.Account, record.Date, record.Amount.String(), string(record.Source),
			record.Confidence, record.Notes, record.ID)
		if err != nil {
			return fmt.Errorf("failed to update balance %d: %w", record.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check update result: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("balance %d: %w", record.ID, common.ErrNotFound)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (account, balance_date, amount, data_source, confidence, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.Account, record.Date, record.Amount.String(), string(record.Source),
		record.Confidence, record.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert balance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get balance id: %w", err)
	}
	record.ID = id
	return nil
}

// GetBalance fetches a single balance record by ID.
func (s *SQLiteStore) GetBalance(ctx context.Context, id int64) (*model.BalanceRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, account, balance_date, amount, data_source, confidence, notes, created_at
		FROM balances WHERE id = ?
	`, id)

	record, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("balance %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListBalances returns every balance for an account, newest first.
func (s *SQLiteStore) ListBalances(ctx context.Context, account string) ([]model.BalanceRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(account, "account"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account, balance_date, amount, data_source, confidence, notes, created_at
		FROM balances WHERE account = ?
		ORDER BY balance_date DESC, id DESC
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectBalances(rows)
}

// ListBalancesInWindow returns an account's balances with dates inside
// the inclusive [from, to] window, used by duplicate reconciliation.
func (s *SQLiteStore) ListBalancesInWindow(ctx context.Context, account string, from, to time.Time) ([]model.BalanceRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(account, "account"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account, balance_date, amount, data_source, confidence, notes, created_at
		FROM balances
		WHERE account = ? AND balance_date >= ? AND balance_date <= ?
		ORDER BY balance_date DESC, id DESC
	`, account, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances in window: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectBalances(rows)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBalance(row scannable) (*model.BalanceRecord, error) {
	var record model.BalanceRecord
	var amount string
	var source string
	var notes sql.NullString

	if err := row.Scan(&record.ID, &record.Account, &record.Date, &amount,
		&source, &record.Confidence, &notes, &record.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan balance: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q for balance %d: %w", amount, record.ID, err)
	}
	record.Amount = parsed
	record.Source = model.DataSource(source)
	record.Notes = notes.String
	return &record, nil
}

func collectBalances(rows *sql.Rows) ([]model.BalanceRecord, error) {
	var balances []model.BalanceRecord
	for rows.Next() {
		record, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}
	return balances, nil
}
