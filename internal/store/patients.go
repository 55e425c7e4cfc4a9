package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitalcare/clinic-server/internal/domain"
)

// PatientDirectory is the external patient registry, consumed read-only to
// validate ids and fetch display names. It never drives scheduling logic.
type PatientDirectory interface {
	Resolve(ctx context.Context, id uuid.UUID) (domain.Patient, error)
}
