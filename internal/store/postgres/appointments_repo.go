package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"github.com/vitalcare/clinic-server/internal/domain"
	"github.com/vitalcare/clinic-server/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type clinicTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) Get(ctx context.Context, clinicID string, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("clinic_id = ?", clinicID).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) List(ctx context.Context, clinicID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("clinic_id = ?", clinicID).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListActive(ctx context.Context, clinicID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("clinic_id = ?", clinicID).
		Where("status IN (?)", bun.In([]domain.AppointmentStatus{domain.AppointmentScheduled, domain.AppointmentConfirmed})).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) InClinicTransaction(ctx context.Context, clinicID string, fn func(ctx context.Context, tx store.ClinicTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockClinicCalendar(ctx, tx, clinicID); err != nil {
			return err
		}
		return fn(ctx, clinicTx{tx: tx})
	})
}

// lockClinicCalendar serializes bookings per clinic for the remainder of the
// transaction. The advisory lock pairs with the appointments_no_overlap
// exclusion constraint: the lock orders writers, the constraint backstops
// them.
func lockClinicCalendar(ctx context.Context, tx bun.Tx, clinicID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", clinicID).Exec(ctx)
	return err
}

func (r clinicTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapOverlapError(err)
	}
	appt.ID = m.ID
	appt.CreatedAt = m.CreatedAt
	appt.UpdatedAt = m.UpdatedAt
	return appt, nil
}

func (r clinicTx) GetAppointment(ctx context.Context, clinicID string, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.tx.NewSelect().
		Model(&appt).
		Where("clinic_id = ?", clinicID).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r clinicTx) ListActiveAppointments(ctx context.Context, clinicID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("clinic_id = ?", clinicID).
		Where("status IN (?)", bun.In([]domain.AppointmentStatus{domain.AppointmentScheduled, domain.AppointmentConfirmed})).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r clinicTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("start_time", "end_time", "status", "notes", "updated_at").
		Where("clinic_id = ?", appt.ClinicID).
		Where("id = ?", appt.ID).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapOverlapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func mapOverlapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
		return store.ErrConflict
	}
	return err
}
