// Package cli implements the interactive terminal surfaces of ledgerflow.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/review"
)

// Reviewer walks a human through the items the decision gate routed to
// review, one session at a time.
type Reviewer struct {
	reader  *bufio.Reader
	writer  io.Writer
	manager *review.Manager
}

// NewReviewer creates a reviewer over the given streams.
func NewReviewer(r io.Reader, w io.Writer, manager *review.Manager) *Reviewer {
	return &Reviewer{
		reader:  bufio.NewReader(r),
		writer:  w,
		manager: manager,
	}
}

// ReviewItem opens a session for one item and returns the confirmed
// commit request, or nil if the reviewer skipped the item.
func (r *Reviewer) ReviewItem(item model.StatementItem) (*model.CommitRequest, error) {
	session, err := r.manager.Open(item.ID)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(r.writer, "\nReviewing %s", item.Filename)
	if item.Result != nil && item.Result.Page.TotalPages > 0 {
		fmt.Fprintf(r.writer, " (figures from page %d of %d)", item.Result.Page.Page, item.Result.Page.TotalPages)
	}
	fmt.Fprintln(r.writer)

	for {
		r.printDraft(session.Draft())
		fmt.Fprint(r.writer, "[s]ave, [e]dit, s[k]ip? ")

		choice, err := r.readLine()
		if err != nil {
			_ = session.Cancel()
			return nil, err
		}

		switch strings.ToLower(choice) {
		case "s", "save", "":
			request, err := session.Submit()
			if err != nil {
				var missing *model.MissingFieldsError
				if errors.As(err, &missing) {
					fmt.Fprintf(r.writer, "Cannot save yet, missing: %s\n", strings.Join(missing.Fields, ", "))
					continue
				}
				_ = session.Cancel()
				return nil, err
			}
			return &request, nil
		case "e", "edit":
			if err := r.editDraft(session); err != nil {
				_ = session.Cancel()
				return nil, err
			}
		case "k", "skip":
			if err := session.Cancel(); err != nil {
				return nil, err
			}
			return nil, nil
		default:
			fmt.Fprintf(r.writer, "Unrecognized choice %q\n", choice)
		}
	}
}

func (r *Reviewer) printDraft(draft model.ReviewDraft) {
	account := draft.Account
	if account == "" {
		account = "(none)"
	}
	date := "(none)"
	if !draft.Date.IsZero() {
		date = draft.Date.Format("2006-01-02")
	}
	amount := "(none)"
	if draft.Amount.Valid {
		amount = draft.Amount.Decimal.StringFixed(2)
	}

	fmt.Fprintf(r.writer, "  account: %s\n  date:    %s\n  amount:  %s\n  notes:   %s\n",
		account, date, amount, draft.Notes)
}

func (r *Reviewer) editDraft(session *review.Session) error {
	draft := session.Draft()

	if value, err := r.prompt("account", draft.Account); err != nil {
		return err
	} else if value != "" {
		session.SetAccount(value)
	}

	currentDate := ""
	if !draft.Date.IsZero() {
		currentDate = draft.Date.Format("2006-01-02")
	}
	if value, err := r.prompt("date (YYYY-MM-DD)", currentDate); err != nil {
		return err
	} else if value != "" {
		date, parseErr := time.Parse("2006-01-02", value)
		if parseErr != nil {
			fmt.Fprintf(r.writer, "Ignoring invalid date %q\n", value)
		} else {
			session.SetDate(date)
		}
	}

	currentAmount := ""
	if draft.Amount.Valid {
		currentAmount = draft.Amount.Decimal.String()
	}
	if value, err := r.prompt("amount", currentAmount); err != nil {
		return err
	} else if value != "" {
		amount, parseErr := decimal.NewFromString(value)
		if parseErr != nil {
			fmt.Fprintf(r.writer, "Ignoring invalid amount %q\n", value)
		} else {
			session.SetAmount(amount)
		}
	}

	if value, err := r.prompt("notes", draft.Notes); err != nil {
		return err
	} else if value != "" {
		session.SetNotes(value)
	}

	return nil
}

// prompt shows the current value and returns the replacement, or the
// empty string to keep it.
func (r *Reviewer) prompt(field, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(r.writer, "  %s [%s]: ", field, current)
	} else {
		fmt.Fprintf(r.writer, "  %s: ", field)
	}
	return r.readLine()
}

func (r *Reviewer) readLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
