package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentScheduled   AppointmentStatus = "scheduled"
	AppointmentConfirmed   AppointmentStatus = "confirmed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
)

var appointmentStatuses = map[AppointmentStatus]bool{
	AppointmentScheduled:   true,
	AppointmentConfirmed:   true,
	AppointmentCancelled:   true,
	AppointmentRescheduled: true,
}

func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	status := AppointmentStatus(s)
	if !appointmentStatuses[status] {
		return "", NewValidationError("invalid appointment status %q", s)
	}
	return status, nil
}

// Active statuses occupy their slot; cancelled and rescheduled rows are kept
// for history but release it.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentScheduled || s == AppointmentConfirmed
}

func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCancelled || s == AppointmentRescheduled
}

// CanTransition implements the status state machine:
//
//	scheduled -> confirmed | cancelled | rescheduled
//	confirmed -> cancelled | rescheduled
//
// cancelled and rescheduled are terminal.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	if s.Terminal() {
		return false
	}
	switch to {
	case AppointmentConfirmed:
		return s == AppointmentScheduled
	case AppointmentCancelled, AppointmentRescheduled:
		return s.Active()
	default:
		return false
	}
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID        uuid.UUID         `bun:"id,pk,type:uuid"`
	ClinicID  string            `bun:"clinic_id,notnull"`
	PatientID uuid.UUID         `bun:"patient_id,notnull,type:uuid"`
	StartTime time.Time         `bun:"start_time,notnull"`
	EndTime   time.Time         `bun:"end_time,notnull"`
	Status    AppointmentStatus `bun:"status,notnull"`
	Notes     string            `bun:"notes"`
	CreatedAt time.Time         `bun:"created_at,notnull"`
	UpdatedAt time.Time         `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// Overlaps reports whether the appointment's half-open interval intersects
// [start, end).
func (a Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && a.EndTime.After(start)
}
