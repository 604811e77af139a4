package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerflow/ledgerflow/internal/model"
)

// RecordUpload appends an entry to the statement upload audit trail.
func (s *SQLiteStore) RecordUpload(ctx context.Context, upload *model.UploadRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUpload(upload); err != nil {
		return err
	}

	var balanceID any
	if upload.BalanceID != 0 {
		balanceID = upload.BalanceID
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO statement_uploads (filename, status, balance_id)
		VALUES (?, ?, ?)
	`, upload.Filename, string(upload.Status), balanceID)
	if err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get upload id: %w", err)
	}
	upload.ID = id
	return nil
}

// FindUploadByFilename returns the most recent upload with the given
// filename, or nil if none exists. Used to warn about re-uploads.
func (s *SQLiteStore) FindUploadByFilename(ctx context.Context, filename string) (*model.UploadRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(filename, "filename"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, uploaded_at, status, COALESCE(balance_id, 0)
		FROM statement_uploads
		WHERE filename = ?
		ORDER BY uploaded_at DESC, id DESC
		LIMIT 1
	`, filename)

	var upload model.UploadRecord
	var status string
	err := row.Scan(&upload.ID, &upload.Filename, &upload.UploadedAt, &status, &upload.BalanceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload: %w", err)
	}
	upload.Status = model.ItemStatus(status)
	return &upload, nil
}
