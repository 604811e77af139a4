package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerflow/ledgerflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidBalance = errors.New("invalid balance record")
	ErrInvalidUpload  = errors.New("invalid upload record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateBalance validates a balance record before persistence.
func validateBalance(record *model.BalanceRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if strings.TrimSpace(record.Account) == "" {
		return fmt.Errorf("%w: account is required", ErrInvalidBalance)
	}
	if record.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidBalance)
	}
	if record.Confidence < 0 || record.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f out of range", ErrInvalidBalance, record.Confidence)
	}
	switch record.Source {
	case model.SourceExtracted, model.SourceManual:
	default:
		return fmt.Errorf("%w: unknown data source %q", ErrInvalidBalance, record.Source)
	}
	return nil
}

// validateUpload validates an upload audit entry.
func validateUpload(upload *model.UploadRecord) error {
	if upload == nil {
		return fmt.Errorf("%w: upload", ErrNilParameter)
	}
	if strings.TrimSpace(upload.Filename) == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidUpload)
	}
	return nil
}
