package store

import (
	"context"
	"time"

	"github.com/vitalcare/clinic-server/internal/domain"
)

type ScheduleRepository interface {
	// Config loads the clinic's current policy snapshot: the seven weekday
	// rows plus every exception.
	Config(ctx context.Context, clinicID string) (domain.ScheduleConfig, error)

	SaveWeekdayPolicy(ctx context.Context, policy domain.WeekdayPolicy) (domain.WeekdayPolicy, error)
	SaveWeek(ctx context.Context, clinicID string, week [7]domain.WeekdayPolicy) error
	UpsertException(ctx context.Context, ex domain.ScheduleException) (domain.ScheduleException, error)
	DeleteException(ctx context.Context, clinicID string, date time.Time) error
}
