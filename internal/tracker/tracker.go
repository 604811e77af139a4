// Package tracker owns the per-file state machine for a batch of
// uploaded statement files.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ledgerflow/ledgerflow/internal/common"
	"github.com/ledgerflow/ledgerflow/internal/config"
	"github.com/ledgerflow/ledgerflow/internal/model"
	"github.com/ledgerflow/ledgerflow/internal/service"
)

// Transition is one observable state change of a tracked item.
type Transition struct {
	ItemID  uuid.UUID
	From    model.ItemStatus
	To      model.ItemStatus
	Message string
}

// Tracker is the single source of truth for item state within a batch.
// All transitions go through its methods; nothing sets Status directly.
type Tracker struct {
	mu       sync.RWMutex
	items    map[uuid.UUID]*model.StatementItem
	payloads map[uuid.UUID][]byte
	order    []uuid.UUID
	subs     map[int]chan Transition
	nextSub  int
	limits   config.Limits
}

// New creates a tracker for one batch.
func New(limits config.Limits) *Tracker {
	if limits.MaxInFlight <= 0 {
		limits.MaxInFlight = config.DefaultLimits().MaxInFlight
	}
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = config.DefaultLimits().MaxFileBytes
	}
	return &Tracker{
		items:    make(map[uuid.UUID]*model.StatementItem),
		payloads: make(map[uuid.UUID][]byte),
		subs:     make(map[int]chan Transition),
		limits:   limits,
	}
}

// Enqueue accepts a file into the batch. Unsupported media kinds and
// oversized files are rejected here, before any network call.
func (t *Tracker) Enqueue(filename string, data []byte) (uuid.UUID, error) {
	kind, ok := model.MediaKindForFilename(filename)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", common.ErrUnsupportedMedia, filename)
	}
	if int64(len(data)) > t.limits.MaxFileBytes {
		return uuid.Nil, fmt.Errorf("%w: %s (%d bytes)", common.ErrFileTooLarge, filename, len(data))
	}

	item := &model.StatementItem{
		ID:       uuid.New(),
		Filename: filename,
		Kind:     kind,
		Status:   model.StatusPending,
	}

	t.mu.Lock()
	t.items[item.ID] = item
	t.payloads[item.ID] = data
	t.order = append(t.order, item.ID)
	t.mu.Unlock()

	t.notify(Transition{ItemID: item.ID, To: model.StatusPending})
	return item.ID, nil
}

// Remove drops an item from the batch. Only legal while Pending; items
// mid-flight run to completion.
func (t *Tracker) Remove(id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	if item.Status != model.StatusPending {
		return fmt.Errorf("cannot remove item %s in status %s", id, item.Status)
	}

	delete(t.items, id)
	delete(t.payloads, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// BeginProcessing transitions Pending -> Processing, exactly once per item.
func (t *Tracker) BeginProcessing(id uuid.UUID) error {
	return t.transition(id, model.StatusPending, model.StatusProcessing, "")
}

// RecordResult attaches an extraction result and transitions
// Processing -> Completed.
func (t *Tracker) RecordResult(id uuid.UUID, result *model.ExtractionResult) error {
	t.mu.Lock()
	item, ok := t.items[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	if item.Status != model.StatusProcessing {
		t.mu.Unlock()
		return fmt.Errorf("item %s: illegal transition %s -> %s", id, item.Status, model.StatusCompleted)
	}
	item.Status = model.StatusCompleted
	item.Result = result
	t.mu.Unlock()

	t.notify(Transition{ItemID: id, From: model.StatusProcessing, To: model.StatusCompleted})
	return nil
}

// RecordFailure records a human-readable failure message and transitions
// Processing -> Failed. Failed is terminal; resubmission creates a new item.
func (t *Tracker) RecordFailure(id uuid.UUID, message string) error {
	t.mu.Lock()
	item, ok := t.items[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	if item.Status != model.StatusProcessing {
		t.mu.Unlock()
		return fmt.Errorf("item %s: illegal transition %s -> %s", id, item.Status, model.StatusFailed)
	}
	item.Status = model.StatusFailed
	item.FailureMessage = message
	t.mu.Unlock()

	t.notify(Transition{ItemID: id, From: model.StatusProcessing, To: model.StatusFailed, Message: message})
	return nil
}

// BeginReview transitions Completed -> Reviewing.
func (t *Tracker) BeginReview(id uuid.UUID) error {
	return t.transition(id, model.StatusCompleted, model.StatusReviewing, "")
}

// CancelReview returns a Reviewing item to Completed-unsaved.
func (t *Tracker) CancelReview(id uuid.UUID) error {
	return t.transition(id, model.StatusReviewing, model.StatusCompleted, "")
}

// MarkSaved records the assigned persistence identifier and moves the
// item to Saved, either from Reviewing (review save) or directly from
// Completed (quick save).
func (t *Tracker) MarkSaved(id uuid.UUID, balanceID int64) error {
	t.mu.Lock()
	item, ok := t.items[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	if item.Status != model.StatusCompleted && item.Status != model.StatusReviewing {
		t.mu.Unlock()
		return fmt.Errorf("item %s: illegal transition %s -> %s", id, item.Status, model.StatusSaved)
	}
	from := item.Status
	item.Status = model.StatusSaved
	item.BalanceID = balanceID
	t.mu.Unlock()

	t.notify(Transition{ItemID: id, From: from, To: model.StatusSaved})
	return nil
}

// Item returns a copy of the item with the given ID.
func (t *Tracker) Item(id uuid.UUID) (model.StatementItem, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[id]
	if !ok {
		return model.StatementItem{}, false
	}
	return *item, true
}

// Items returns copies of all items in enqueue order.
func (t *Tracker) Items() []model.StatementItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.StatementItem, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.items[id])
	}
	return out
}

// Subscribe registers an observer of item transitions. The returned
// function unsubscribes. Slow subscribers miss transitions rather than
// blocking the pipeline.
func (t *Tracker) Subscribe() (<-chan Transition, func()) {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	ch := make(chan Transition, 64)
	t.subs[id] = ch
	t.mu.Unlock()

	unsubscribe := func() {
		t.mu.Lock()
		if sub, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(sub)
		}
		t.mu.Unlock()
	}
	return ch, unsubscribe
}

func (t *Tracker) notify(tr Transition) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, ch := range t.subs {
		select {
		case ch <- tr:
		default:
			slog.Warn("Dropping transition for slow subscriber",
				"item_id", tr.ItemID,
				"to", tr.To)
		}
	}
}

func (t *Tracker) transition(id uuid.UUID, from, to model.ItemStatus, message string) error {
	t.mu.Lock()
	item, ok := t.items[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	if item.Status != from {
		t.mu.Unlock()
		return fmt.Errorf("item %s: illegal transition %s -> %s", id, item.Status, to)
	}
	item.Status = to
	t.mu.Unlock()

	t.notify(Transition{ItemID: id, From: from, To: to, Message: message})
	return nil
}

// ProcessAll drives every Pending item through the extraction client,
// one task per item with at most MaxInFlight extraction calls running
// at a time. Completion order across items is not guaranteed. Once an
// item starts Processing it runs to completion; extraction failures are
// recorded per item and never abort the batch.
func (t *Tracker) ProcessAll(ctx context.Context, extractor service.Extractor) {
	t.mu.RLock()
	pending := make([]uuid.UUID, 0, len(t.order))
	for _, id := range t.order {
		if t.items[id].Status == model.StatusPending {
			pending = append(pending, id)
		}
	}
	t.mu.RUnlock()

	sem := make(chan struct{}, t.limits.MaxInFlight)
	var wg sync.WaitGroup

	for _, id := range pending {
		select {
		case <-ctx.Done():
			// Items still Pending stay Pending; only in-flight work
			// runs to completion.
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		if err := t.BeginProcessing(id); err != nil {
			<-sem
			continue
		}

		t.mu.RLock()
		filename := t.items[id].Filename
		data := t.payloads[id]
		t.mu.RUnlock()

		wg.Add(1)
		go func(id uuid.UUID, filename string, data []byte) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := extractor.ExtractStatement(ctx, filename, data)
			if err != nil {
				slog.Error("Extraction failed",
					"item_id", id,
					"filename", filename,
					"error", err)
				if recErr := t.RecordFailure(id, err.Error()); recErr != nil {
					slog.Error("Failed to record extraction failure", "item_id", id, "error", recErr)
				}
				return
			}

			if recErr := t.RecordResult(id, result); recErr != nil {
				slog.Error("Failed to record extraction result", "item_id", id, "error", recErr)
			}
		}(id, filename, data)

		t.mu.Lock()
		delete(t.payloads, id)
		t.mu.Unlock()
	}

	wg.Wait()
}
