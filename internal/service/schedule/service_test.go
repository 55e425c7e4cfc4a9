package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vitalcare/clinic-server/internal/domain"
	"github.com/vitalcare/clinic-server/internal/store"
)

type memScheduleRepo struct {
	week       [7]domain.WeekdayPolicy
	exceptions map[string]domain.ScheduleException
}

func newMemScheduleRepo(clinicID string) *memScheduleRepo {
	return &memScheduleRepo{
		week:       domain.DefaultWeek(clinicID),
		exceptions: make(map[string]domain.ScheduleException),
	}
}

func (r *memScheduleRepo) Config(ctx context.Context, clinicID string) (domain.ScheduleConfig, error) {
	exceptions := make(map[string]domain.ScheduleException, len(r.exceptions))
	for k, v := range r.exceptions {
		exceptions[k] = v
	}
	return domain.ScheduleConfig{ClinicID: clinicID, Week: r.week, Exceptions: exceptions}, nil
}

func (r *memScheduleRepo) SaveWeekdayPolicy(ctx context.Context, policy domain.WeekdayPolicy) (domain.WeekdayPolicy, error) {
	r.week[policy.Weekday] = policy
	return policy, nil
}

func (r *memScheduleRepo) SaveWeek(ctx context.Context, clinicID string, week [7]domain.WeekdayPolicy) error {
	r.week = week
	return nil
}

func (r *memScheduleRepo) UpsertException(ctx context.Context, ex domain.ScheduleException) (domain.ScheduleException, error) {
	r.exceptions[domain.DateKey(ex.Date)] = ex
	return ex, nil
}

func (r *memScheduleRepo) DeleteException(ctx context.Context, clinicID string, date time.Time) error {
	key := domain.DateKey(date)
	if _, ok := r.exceptions[key]; !ok {
		return store.ErrNotFound
	}
	delete(r.exceptions, key)
	return nil
}

func TestSetWeekdayPolicy(t *testing.T) {
	repo := newMemScheduleRepo("main")
	svc := NewService(repo, "main")
	ctx := context.Background()

	saved, err := svc.SetWeekdayPolicy(ctx, domain.WeekdayPolicy{
		Weekday: time.Saturday,
		IsOpen:  true,
		OpenAt:  domain.NewTimeOfDay(9, 0),
		CloseAt: domain.NewTimeOfDay(13, 0),
	})
	if err != nil {
		t.Fatalf("SetWeekdayPolicy error: %v", err)
	}
	if saved.ClinicID != "main" {
		t.Fatalf("ClinicID = %q, want main", saved.ClinicID)
	}

	week, err := svc.Week(ctx)
	if err != nil {
		t.Fatalf("Week error: %v", err)
	}
	if !week[time.Saturday].IsOpen {
		t.Fatalf("saturday not open after save")
	}

	// Invalid window is rejected before persisting.
	_, err = svc.SetWeekdayPolicy(ctx, domain.WeekdayPolicy{
		Weekday: time.Monday,
		IsOpen:  true,
		OpenAt:  domain.NewTimeOfDay(17, 0),
		CloseAt: domain.NewTimeOfDay(8, 0),
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	week, _ = svc.Week(ctx)
	if week[time.Monday].OpenAt != domain.NewTimeOfDay(8, 0) {
		t.Fatalf("rejected policy was persisted")
	}
}

func TestCopyPolicyToAllDays(t *testing.T) {
	repo := newMemScheduleRepo("main")
	svc := NewService(repo, "main")
	ctx := context.Background()

	week, err := svc.CopyPolicyToAllDays(ctx, time.Monday)
	if err != nil {
		t.Fatalf("CopyPolicyToAllDays error: %v", err)
	}

	src := week[time.Monday]
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		p := week[wd]
		if p.Weekday != wd {
			t.Fatalf("week[%v].Weekday = %v, copy must keep each row's key", wd, p.Weekday)
		}
		if p.IsOpen != src.IsOpen || p.OpenAt != src.OpenAt || p.CloseAt != src.CloseAt {
			t.Fatalf("week[%v] window differs from source", wd)
		}
	}
	// Sunday, closed by default, now carries Monday's hours.
	if !week[time.Sunday].IsOpen {
		t.Fatalf("sunday should be open after copying monday")
	}

	if _, err := svc.CopyPolicyToAllDays(ctx, time.Weekday(9)); err == nil {
		t.Fatalf("expected error for invalid source weekday")
	}
}

func TestExceptions(t *testing.T) {
	repo := newMemScheduleRepo("main")
	svc := NewService(repo, "main")
	ctx := context.Background()

	later := domain.ScheduleException{
		Date:   time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC),
		IsOpen: false,
		Reason: "Independence Day",
	}
	earlier := domain.ScheduleException{
		Date:    time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		IsOpen:  true,
		OpenAt:  domain.NewTimeOfDay(9, 0),
		CloseAt: domain.NewTimeOfDay(12, 0),
	}

	if _, err := svc.UpsertException(ctx, later); err != nil {
		t.Fatalf("UpsertException error: %v", err)
	}
	saved, err := svc.UpsertException(ctx, earlier)
	if err != nil {
		t.Fatalf("UpsertException error: %v", err)
	}
	if saved.ClinicID != "main" {
		t.Fatalf("ClinicID = %q, want main", saved.ClinicID)
	}

	list, err := svc.Exceptions(ctx)
	if err != nil {
		t.Fatalf("Exceptions error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if !list[0].Date.Before(list[1].Date) {
		t.Fatalf("exceptions not sorted by date")
	}

	// A second upsert for the same date replaces, not duplicates.
	earlier.Reason = "meia jornada"
	if _, err := svc.UpsertException(ctx, earlier); err != nil {
		t.Fatalf("UpsertException error: %v", err)
	}
	list, _ = svc.Exceptions(ctx)
	if len(list) != 2 {
		t.Fatalf("len(list) after replace = %d, want 2", len(list))
	}
	if list[0].Reason != "meia jornada" {
		t.Fatalf("Reason = %q, want replaced", list[0].Reason)
	}
}

func TestUpsertException_Validation(t *testing.T) {
	svc := NewService(newMemScheduleRepo("main"), "main")

	_, err := svc.UpsertException(context.Background(), domain.ScheduleException{
		Date:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		IsOpen:  true,
		OpenAt:  domain.NewTimeOfDay(14, 0),
		CloseAt: domain.NewTimeOfDay(9, 0),
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}

func TestRemoveException(t *testing.T) {
	repo := newMemScheduleRepo("main")
	svc := NewService(repo, "main")
	ctx := context.Background()

	date := time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC)
	if _, err := svc.UpsertException(ctx, domain.ScheduleException{Date: date, IsOpen: false}); err != nil {
		t.Fatalf("UpsertException error: %v", err)
	}

	if err := svc.RemoveException(ctx, date); err != nil {
		t.Fatalf("RemoveException error: %v", err)
	}

	err := svc.RemoveException(ctx, date)
	var nferr *domain.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	if nferr.ID != domain.DateKey(date) {
		t.Fatalf("ID = %q, want %q", nferr.ID, domain.DateKey(date))
	}
}
