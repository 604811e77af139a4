// Package review implements the per-item editing session used when an
// extraction needs human confirmation before commit.
package review

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/common"
	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/tracker"
)

// Manager opens and closes review sessions. Exactly one session may be
// open per item at a time.
type Manager struct {
	mu      sync.Mutex
	tracker *tracker.Tracker
	open    map[uuid.UUID]*Session
}

// NewManager creates a session manager bound to one batch's tracker.
func NewManager(t *tracker.Tracker) *Manager {
	return &Manager{
		tracker: t,
		open:    make(map[uuid.UUID]*Session),
	}
}

// Open starts a review session for a Completed item, pre-populating the
// draft from its extraction result where fields are available.
func (m *Manager) Open(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.open[id]; exists {
		return nil, fmt.Errorf("review session already open for item %s", id)
	}

	item, ok := m.tracker.Item(id)
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}

	if err := m.tracker.BeginReview(id); err != nil {
		return nil, err
	}

	session := &Session{
		manager: m,
		itemID:  id,
		draft:   draftFromResult(item),
		result:  item.Result,
	}
	m.open[id] = session
	return session, nil
}

func (m *Manager) release(id uuid.UUID) {
	m.mu.Lock()
	delete(m.open, id)
	m.mu.Unlock()
}

// draftFromResult prefills a draft: matched account if present, period
// end as balance date, ending balance as amount, and an auto-generated
// note naming the source institution.
func draftFromResult(item model.StatementItem) model.ReviewDraft {
	draft := model.ReviewDraft{}
	result := item.Result
	if result == nil {
		return draft
	}

	draft.Account = result.MatchedAccount
	draft.Date = result.PeriodEnd
	draft.Amount = result.EndingBalance
	if result.Institution != "" {
		draft.Notes = fmt.Sprintf("Imported from %s statement", result.Institution)
	}
	return draft
}

// Session holds one item's editable draft while a human confirms or
// corrects it. Edits touch only the in-memory draft.
type Session struct {
	mu      sync.Mutex
	manager *Manager
	itemID  uuid.UUID
	draft   model.ReviewDraft
	result  *model.ExtractionResult
	closed  bool
}

// ItemID returns the item under review.
func (s *Session) ItemID() uuid.UUID {
	return s.itemID
}

// Draft returns the current draft contents.
func (s *Session) Draft() model.ReviewDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetAccount updates the draft's account reference.
func (s *Session) SetAccount(account string) {
	s.mu.Lock()
	s.draft.Account = account
	s.mu.Unlock()
}

// SetDate updates the draft's balance date.
func (s *Session) SetDate(date time.Time) {
	s.mu.Lock()
	s.draft.Date = date
	s.mu.Unlock()
}

// SetAmount updates the draft's balance amount.
func (s *Session) SetAmount(amount decimal.Decimal) {
	s.mu.Lock()
	s.draft.Amount = decimal.NewNullDecimal(amount)
	s.mu.Unlock()
}

// SetNotes updates the draft's free-text notes.
func (s *Session) SetNotes(notes string) {
	s.mu.Lock()
	s.draft.Notes = notes
	s.mu.Unlock()
}

// Cancel discards the draft and returns the item to Completed-unsaved.
// Review sessions hold no external resource, so cancel always succeeds
// on an open session.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session for item %s already closed", s.itemID)
	}
	if err := s.manager.tracker.CancelReview(s.itemID); err != nil {
		return err
	}
	s.closed = true
	s.manager.release(s.itemID)
	return nil
}

// Submit validates the draft and converts it into a commit request. On
// validation failure the session stays open and the error reports every
// missing field. The item remains Reviewing until the batch commit
// coordinator records the save.
func (s *Session) Submit() (model.CommitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.CommitRequest{}, fmt.Errorf("session for item %s already closed", s.itemID)
	}

	confidence := 0.0
	if s.result != nil {
		confidence = s.result.Confidence
	}

	request := model.CommitRequest{
		ItemID:     s.itemID,
		Account:    s.draft.Account,
		Date:       s.draft.Date,
		Amount:     s.draft.Amount,
		Notes:      s.draft.Notes,
		Source:     model.SourceExtracted,
		Confidence: confidence,
	}

	if err := request.Validate(); err != nil {
		return model.CommitRequest{}, err
	}

	s.closed = true
	s.manager.release(s.itemID)
	return request, nil
}
