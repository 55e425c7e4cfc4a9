package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/vitalcare/clinic-server/internal/domain"
	"github.com/vitalcare/clinic-server/internal/store"
)

// PatientRepo reads the patients table. The scheduling core never writes
// patient records.
type PatientRepo struct {
	db *bun.DB
}

func NewPatientRepo(db *bun.DB) *PatientRepo {
	return &PatientRepo{db: db}
}

func (r *PatientRepo) Resolve(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	var patient domain.Patient
	err := r.db.NewSelect().
		Model(&patient).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Patient{}, store.ErrNotFound
		}
		return domain.Patient{}, err
	}
	return patient, nil
}
