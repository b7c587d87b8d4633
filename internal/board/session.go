package board

import (
	"context"
	"strings"

	"github.com/appetiteclub/apt"
)

// Inline-editable cell fields.
const (
	FieldOrderNumber  = "orderNumber"
	FieldClientName   = "clientName"
	FieldDeliveryDate = "deliveryDate"
	FieldNotes        = "notes"
)

func EditableField(field string) bool {
	switch field {
	case FieldOrderNumber, FieldClientName, FieldDeliveryDate, FieldNotes:
		return true
	}
	return false
}

type editSlot struct {
	orderID string
	field   string
	scratch string
}

// Confirmation is a pending destructive-action prompt. At most one may
// be pending per session; Confirm runs the action, Dismiss drops it.
type Confirmation struct {
	Message string
	confirm func(context.Context) error
}

// EditSession is the optimistic editing state of one connected board
// client: a single edit slot keyed by (orderID, field) plus at most one
// pending confirmation. It is owned by a single connection goroutine and
// needs no locking.
//
// The session never touches the cached orders itself; a committed slot
// becomes a partial update through Actions, and the change flows back
// through the subscription loop.
type EditSession struct {
	actions *Actions
	logger  apt.Logger

	slot    *editSlot
	pending *Confirmation
}

func NewEditSession(actions *Actions, logger apt.Logger) *EditSession {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &EditSession{actions: actions, logger: logger}
}

// Begin opens the edit slot for one cell, seeding the scratch value with
// the current cell content. Any prior uncommitted scratch value is
// discarded without persisting it.
func (s *EditSession) Begin(orderID, field, currentValue string) bool {
	if !EditableField(field) {
		return false
	}
	s.slot = &editSlot{orderID: orderID, field: field, scratch: currentValue}
	return true
}

// SetScratch replaces the in-progress value of the open slot.
func (s *EditSession) SetScratch(value string) {
	if s.slot != nil {
		s.slot.scratch = value
	}
}

// Editing reports the open slot, if any.
func (s *EditSession) Editing() (orderID, field string, ok bool) {
	if s.slot == nil {
		return "", "", false
	}
	return s.slot.orderID, s.slot.field, true
}

// Commit closes the slot and sends the scratch value as a partial update
// of just that field. All fields except notes reject an empty trimmed
// value: the slot closes without saving. Notes accepts empty, which
// clears the note. A failed write is logged and otherwise swallowed; the
// slot still closes and nothing retries.
func (s *EditSession) Commit(ctx context.Context) {
	slot := s.slot
	s.slot = nil
	if slot == nil {
		return
	}

	value := strings.TrimSpace(slot.scratch)
	if value == "" && slot.field != FieldNotes {
		return
	}

	if err := s.actions.UpdateField(ctx, slot.orderID, slot.field, value); err != nil {
		s.logger.Errorf("cannot save %s for order %s: %v", slot.field, slot.orderID, err)
	}
}

// Blur behaves like confirm, not cancel: losing focus commits.
func (s *EditSession) Blur(ctx context.Context) {
	s.Commit(ctx)
}

// Cancel closes the slot and discards the scratch value without any
// backend call.
func (s *EditSession) Cancel() {
	s.slot = nil
}

// RequestConfirmation parks a destructive action behind a prompt. While
// one confirmation is pending, further requests are rejected.
func (s *EditSession) RequestConfirmation(message string, confirm func(context.Context) error) bool {
	if s.pending != nil {
		return false
	}
	s.pending = &Confirmation{Message: message, confirm: confirm}
	return true
}

// Pending returns the pending confirmation, if any.
func (s *EditSession) Pending() *Confirmation {
	return s.pending
}

// Confirm runs the pending action and clears the prompt. The error is
// returned so the caller can surface a blocking notice.
func (s *EditSession) Confirm(ctx context.Context) error {
	pending := s.pending
	s.pending = nil
	if pending == nil {
		return nil
	}
	return pending.confirm(ctx)
}

// Dismiss drops the pending confirmation without running it.
func (s *EditSession) Dismiss() {
	s.pending = nil
}
