package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vitalcare/clinic-server/internal/domain"
)

type AppointmentRepository interface {
	Get(ctx context.Context, clinicID string, id uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, clinicID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	ListActive(ctx context.Context, clinicID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)

	// InClinicTransaction serializes the callback against all other writers
	// for the same clinic and runs it inside one storage transaction. The
	// booking conflict check and the write it protects must share a single
	// invocation.
	InClinicTransaction(ctx context.Context, clinicID string, fn func(ctx context.Context, tx ClinicTx) error) error
}

// ClinicTx is the transactional view handed to InClinicTransaction
// callbacks.
type ClinicTx interface {
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, clinicID string, id uuid.UUID) (domain.Appointment, error)
	ListActiveAppointments(ctx context.Context, clinicID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}
