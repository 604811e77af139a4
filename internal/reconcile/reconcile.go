// Package reconcile classifies candidate balance entries against records
// already stored for the same account and statement period.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/service"
)

// Granularity selects how the statement-period window is derived from a
// balance date. The source system matched by calendar month; a day span
// is available because that policy was never documented as intentional.
type Granularity string

// Window granularities.
const (
	CalendarMonth Granularity = "CALENDAR_MONTH"
	DaySpan       Granularity = "DAY_SPAN"
)

// Window defines the period inside which two balances are considered to
// belong to the same statement.
type Window struct {
	Granularity Granularity
	Days        int // ± days, used only with DaySpan
}

// DefaultWindow matches the source system's calendar-month policy.
func DefaultWindow() Window {
	return Window{Granularity: CalendarMonth}
}

// Bounds returns the inclusive start and end of the window around date.
func (w Window) Bounds(date time.Time) (from, to time.Time) {
	switch w.Granularity {
	case DaySpan:
		return date.AddDate(0, 0, -w.Days), date.AddDate(0, 0, w.Days)
	default:
		from = time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		to = from.AddDate(0, 1, -1)
		return from, to
	}
}

// Candidate is a balance entry about to be committed.
type Candidate struct {
	Account string
	Date    time.Time
	Amount  decimal.Decimal
}

// Engine runs duplicate checks against the balance store.
type Engine struct {
	store     service.BalanceStore
	window    Window
	tolerance decimal.Decimal // relative difference treated as "same value"
}

// New creates an engine with the default calendar-month window and a 1%
// same-value tolerance.
func New(store service.BalanceStore) *Engine {
	return NewWithOptions(store, DefaultWindow(), decimal.NewFromFloat(0.01))
}

// NewWithOptions creates an engine with a custom window and tolerance.
func NewWithOptions(store service.BalanceStore, window Window, tolerance decimal.Decimal) *Engine {
	return &Engine{
		store:     store,
		window:    window,
		tolerance: tolerance,
	}
}

// Check queries the store for existing records in the candidate's
// statement period and classifies the relationship. The result is
// computed fresh on every call and never persisted.
func (e *Engine) Check(ctx context.Context, candidate Candidate) (model.DuplicateCheck, error) {
	from, to := e.window.Bounds(candidate.Date)

	existing, err := e.store.ListBalancesInWindow(ctx, candidate.Account, from, to)
	if err != nil {
		return model.DuplicateCheck{}, fmt.Errorf("failed to query existing balances: %w", err)
	}

	if len(existing) == 0 {
		return model.DuplicateCheck{
			Conflict: model.ConflictNone,
			Action:   model.ActionProceed,
			Message:  "No conflicts detected",
		}, nil
	}

	// Multiple matches are not expected; compare against the most recent
	// and surface the rest as informational context.
	sort.Slice(existing, func(i, j int) bool {
		if !existing[i].Date.Equal(existing[j].Date) {
			return existing[i].Date.After(existing[j].Date)
		}
		return existing[i].ID > existing[j].ID
	})
	basis := existing[0]
	others := existing[1:]

	if len(others) > 0 {
		slog.Warn("Multiple existing balances in statement period",
			"account", candidate.Account,
			"count", len(existing))
	}

	similarity := Similarity(basis.Amount, candidate.Amount)

	check := model.DuplicateCheck{
		IsDuplicate: true,
		Existing:    &basis,
		Context:     others,
		Similarity:  similarity,
	}

	if e.sameValue(basis.Amount, candidate.Amount) {
		check.Conflict = model.ConflictSameValue
		check.Action = model.ActionConfirmOverride
		check.Message = fmt.Sprintf("Identical balance already exists for %s (%s)",
			basis.Date.Format("2006-01-02"), basis.Amount.StringFixed(2))
		return check, nil
	}

	check.Conflict = model.ConflictValueMismatch
	check.Action = model.ActionBlock
	check.Message = fmt.Sprintf("Conflicting balance for the same period: existing %s on %s, new %s on %s",
		basis.Amount.StringFixed(2), basis.Date.Format("2006-01-02"),
		candidate.Amount.StringFixed(2), candidate.Date.Format("2006-01-02"))
	return check, nil
}

// sameValue reports whether two amounts are equal within the relative
// tolerance.
func (e *Engine) sameValue(existing, candidate decimal.Decimal) bool {
	if existing.IsZero() {
		return candidate.IsZero()
	}
	diff := existing.Sub(candidate).Abs()
	return diff.LessThanOrEqual(existing.Abs().Mul(e.tolerance))
}

// Similarity returns how close a candidate amount is to an existing one,
// as a percentage clamped to [0, 100].
func Similarity(existing, candidate decimal.Decimal) float64 {
	if existing.IsZero() {
		if candidate.IsZero() {
			return 100
		}
		return 0
	}
	diff := existing.Sub(candidate).Abs()
	ratio, _ := diff.Div(existing.Abs()).Float64()
	pct := (1 - ratio) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
