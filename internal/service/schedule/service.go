package schedule

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/vitalcare/clinic-server/internal/domain"
	"github.com/vitalcare/clinic-server/internal/store"
)

// Service manages the clinic's availability policy: the weekly defaults and
// the per-date exceptions. Writes are low-frequency administrator actions;
// each mutation validates and persists a complete consistent row, so readers
// only ever observe committed snapshots.
type Service struct {
	repo     store.ScheduleRepository
	clinicID string
}

func NewService(repo store.ScheduleRepository, clinicID string) *Service {
	return &Service{repo: repo, clinicID: clinicID}
}

func (s *Service) Config(ctx context.Context) (domain.ScheduleConfig, error) {
	return s.repo.Config(ctx, s.clinicID)
}

func (s *Service) Week(ctx context.Context) ([7]domain.WeekdayPolicy, error) {
	cfg, err := s.repo.Config(ctx, s.clinicID)
	if err != nil {
		return [7]domain.WeekdayPolicy{}, err
	}
	return cfg.Week, nil
}

func (s *Service) SetWeekdayPolicy(ctx context.Context, policy domain.WeekdayPolicy) (domain.WeekdayPolicy, error) {
	policy.ClinicID = s.clinicID
	if err := policy.Validate(); err != nil {
		return domain.WeekdayPolicy{}, err
	}
	return s.repo.SaveWeekdayPolicy(ctx, policy)
}

// CopyPolicyToAllDays replicates one weekday's policy across the whole week,
// keeping each row's own weekday key.
func (s *Service) CopyPolicyToAllDays(ctx context.Context, source time.Weekday) ([7]domain.WeekdayPolicy, error) {
	if source < time.Sunday || source > time.Saturday {
		return [7]domain.WeekdayPolicy{}, domain.NewValidationError("invalid weekday %d", source)
	}

	cfg, err := s.repo.Config(ctx, s.clinicID)
	if err != nil {
		return [7]domain.WeekdayPolicy{}, err
	}

	src := cfg.Week[source]
	var week [7]domain.WeekdayPolicy
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		p := src
		p.ClinicID = s.clinicID
		p.Weekday = wd
		week[wd] = p
	}
	if err := s.repo.SaveWeek(ctx, s.clinicID, week); err != nil {
		return [7]domain.WeekdayPolicy{}, err
	}
	return week, nil
}

func (s *Service) Exceptions(ctx context.Context) ([]domain.ScheduleException, error) {
	cfg, err := s.repo.Config(ctx, s.clinicID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScheduleException, 0, len(cfg.Exceptions))
	for _, ex := range cfg.Exceptions {
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// UpsertException adds or fully replaces the override for one date.
func (s *Service) UpsertException(ctx context.Context, ex domain.ScheduleException) (domain.ScheduleException, error) {
	ex.ClinicID = s.clinicID
	if err := ex.Validate(); err != nil {
		return domain.ScheduleException{}, err
	}
	return s.repo.UpsertException(ctx, ex)
}

func (s *Service) RemoveException(ctx context.Context, date time.Time) error {
	if date.IsZero() {
		return domain.NewValidationError("exception date is required")
	}
	err := s.repo.DeleteException(ctx, s.clinicID, date)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.NotFoundError{Resource: "schedule exception", ID: domain.DateKey(date)}
	}
	return err
}
