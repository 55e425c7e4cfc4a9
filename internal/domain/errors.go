package domain

import (
	"fmt"
	"time"
)

// The scheduling core reports every rejected operation with one of the typed
// errors below so callers can tell a retryable slot conflict apart from bad
// input without string matching.

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// PastSlotError rejects booking or moving an appointment into a slot that
// has already elapsed.
type PastSlotError struct {
	Start time.Time
}

func (e *PastSlotError) Error() string {
	return fmt.Sprintf("slot starting at %s is in the past", e.Start.Format("2006-01-02 15:04"))
}

// ConflictError reports that another active appointment holds an overlapping
// interval. It is expected under concurrent booking; callers should re-query
// availability and pick another slot.
type ConflictError struct {
	Start time.Time
	End   time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s-%s is already booked",
		e.Start.Format("2006-01-02 15:04"), e.End.Format("15:04"))
}

type InvalidTransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}
