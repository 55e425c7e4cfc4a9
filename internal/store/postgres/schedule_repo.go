package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/vitalcare/clinic-server/internal/domain"
	"github.com/vitalcare/clinic-server/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) Config(ctx context.Context, clinicID string) (domain.ScheduleConfig, error) {
	var weekRows []domain.WeekdayPolicy
	err := r.db.NewSelect().
		Model(&weekRows).
		Where("clinic_id = ?", clinicID).
		OrderExpr("weekday ASC").
		Scan(ctx)
	if err != nil {
		return domain.ScheduleConfig{}, err
	}

	cfg := domain.ScheduleConfig{
		ClinicID:   clinicID,
		Week:       domain.DefaultWeek(clinicID),
		Exceptions: make(map[string]domain.ScheduleException),
	}
	for _, p := range weekRows {
		if p.Weekday >= time.Sunday && p.Weekday <= time.Saturday {
			cfg.Week[p.Weekday] = p
		}
	}

	var exRows []domain.ScheduleException
	err = r.db.NewSelect().
		Model(&exRows).
		Where("clinic_id = ?", clinicID).
		OrderExpr("date ASC").
		Scan(ctx)
	if err != nil {
		return domain.ScheduleConfig{}, err
	}
	for _, ex := range exRows {
		cfg.Exceptions[domain.DateKey(ex.Date)] = ex
	}

	return cfg, nil
}

func (r *ScheduleRepo) SaveWeekdayPolicy(ctx context.Context, policy domain.WeekdayPolicy) (domain.WeekdayPolicy, error) {
	policy.UpdatedAt = time.Now().UTC()
	_, err := r.db.NewInsert().
		Model(&policy).
		On("CONFLICT (clinic_id, weekday) DO UPDATE").
		Set("is_open = EXCLUDED.is_open").
		Set("open_at = EXCLUDED.open_at").
		Set("close_at = EXCLUDED.close_at").
		Set("has_break = EXCLUDED.has_break").
		Set("break_start = EXCLUDED.break_start").
		Set("break_end = EXCLUDED.break_end").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.WeekdayPolicy{}, err
	}
	return policy, nil
}

func (r *ScheduleRepo) SaveWeek(ctx context.Context, clinicID string, week [7]domain.WeekdayPolicy) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()
		for _, policy := range week {
			policy.ClinicID = clinicID
			policy.UpdatedAt = now
			_, err := tx.NewInsert().
				Model(&policy).
				On("CONFLICT (clinic_id, weekday) DO UPDATE").
				Set("is_open = EXCLUDED.is_open").
				Set("open_at = EXCLUDED.open_at").
				Set("close_at = EXCLUDED.close_at").
				Set("has_break = EXCLUDED.has_break").
				Set("break_start = EXCLUDED.break_start").
				Set("break_end = EXCLUDED.break_end").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ScheduleRepo) UpsertException(ctx context.Context, ex domain.ScheduleException) (domain.ScheduleException, error) {
	m := ex
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (clinic_id, date) DO UPDATE").
		Set("is_open = EXCLUDED.is_open").
		Set("open_at = EXCLUDED.open_at").
		Set("close_at = EXCLUDED.close_at").
		Set("has_break = EXCLUDED.has_break").
		Set("break_start = EXCLUDED.break_start").
		Set("break_end = EXCLUDED.break_end").
		Set("reason = EXCLUDED.reason").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.ScheduleException{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) DeleteException(ctx context.Context, clinicID string, date time.Time) error {
	res, err := r.db.NewDelete().
		Model((*domain.ScheduleException)(nil)).
		Where("clinic_id = ?", clinicID).
		Where("date = ?", date.Format(domain.DateFormat)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
