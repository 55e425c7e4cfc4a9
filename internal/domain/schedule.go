package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const DateFormat = "2006-01-02"

// DayHours is the resolved operating window for one calendar date, after the
// exception-or-weekday lookup has been applied.
type DayHours struct {
	Open       bool      `json:"open"`
	OpenAt     TimeOfDay `json:"open_at"`
	CloseAt    TimeOfDay `json:"close_at"`
	HasBreak   bool      `json:"has_break"`
	BreakStart TimeOfDay `json:"break_start"`
	BreakEnd   TimeOfDay `json:"break_end"`
	Reason     string    `json:"reason,omitempty"`
}

// Validate enforces the operating-window invariants: close after open, and
// any break strictly inside the open window.
func (h DayHours) Validate() error {
	if !h.Open {
		return nil
	}
	if !h.OpenAt.Valid() || !h.CloseAt.Valid() {
		return NewValidationError("open and close times must be within one day")
	}
	if h.CloseAt <= h.OpenAt {
		return NewValidationError("close time %s must be after open time %s", h.CloseAt, h.OpenAt)
	}
	if !h.HasBreak {
		return nil
	}
	if h.BreakEnd <= h.BreakStart {
		return NewValidationError("break end %s must be after break start %s", h.BreakEnd, h.BreakStart)
	}
	if h.BreakStart < h.OpenAt || h.BreakEnd > h.CloseAt {
		return NewValidationError("break %s-%s must fall within operating hours %s-%s",
			h.BreakStart, h.BreakEnd, h.OpenAt, h.CloseAt)
	}
	return nil
}

// WeekdayPolicy is the default operating window for one weekday.
type WeekdayPolicy struct {
	bun.BaseModel `bun:"table:schedule_week"`

	ClinicID   string       `bun:"clinic_id,pk"`
	Weekday    time.Weekday `bun:"weekday,pk"`
	IsOpen     bool         `bun:"is_open,notnull"`
	OpenAt     TimeOfDay    `bun:"open_at,notnull"`
	CloseAt    TimeOfDay    `bun:"close_at,notnull"`
	HasBreak   bool         `bun:"has_break,notnull"`
	BreakStart TimeOfDay    `bun:"break_start,notnull"`
	BreakEnd   TimeOfDay    `bun:"break_end,notnull"`
	UpdatedAt  time.Time    `bun:"updated_at,notnull"`
}

func (p WeekdayPolicy) Hours() DayHours {
	return DayHours{
		Open:       p.IsOpen,
		OpenAt:     p.OpenAt,
		CloseAt:    p.CloseAt,
		HasBreak:   p.IsOpen && p.HasBreak,
		BreakStart: p.BreakStart,
		BreakEnd:   p.BreakEnd,
	}
}

func (p WeekdayPolicy) Validate() error {
	if p.Weekday < time.Sunday || p.Weekday > time.Saturday {
		return NewValidationError("invalid weekday %d", p.Weekday)
	}
	return p.Hours().Validate()
}

// ScheduleException overrides the weekday default for a single calendar
// date. The override is total: when present, none of the weekday policy's
// fields apply to that date.
type ScheduleException struct {
	bun.BaseModel `bun:"table:schedule_exceptions"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	ClinicID   string    `bun:"clinic_id,notnull"`
	Date       time.Time `bun:"date,notnull"`
	IsOpen     bool      `bun:"is_open,notnull"`
	OpenAt     TimeOfDay `bun:"open_at,notnull"`
	CloseAt    TimeOfDay `bun:"close_at,notnull"`
	HasBreak   bool      `bun:"has_break,notnull"`
	BreakStart TimeOfDay `bun:"break_start,notnull"`
	BreakEnd   TimeOfDay `bun:"break_end,notnull"`
	Reason     string    `bun:"reason"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

func (e *ScheduleException) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}

func (e ScheduleException) Hours() DayHours {
	return DayHours{
		Open:       e.IsOpen,
		OpenAt:     e.OpenAt,
		CloseAt:    e.CloseAt,
		HasBreak:   e.IsOpen && e.HasBreak,
		BreakStart: e.BreakStart,
		BreakEnd:   e.BreakEnd,
		Reason:     e.Reason,
	}
}

func (e ScheduleException) Validate() error {
	if e.Date.IsZero() {
		return NewValidationError("exception date is required")
	}
	return e.Hours().Validate()
}

// DateKey normalizes a timestamp to its calendar-date lookup key.
func DateKey(date time.Time) string {
	return date.Format(DateFormat)
}

// ScheduleConfig is a snapshot of a clinic's availability policy: seven
// weekday defaults plus date-keyed exceptions. It is a plain value; mutation
// goes through the schedule service, which persists a new snapshot.
type ScheduleConfig struct {
	ClinicID   string
	Week       [7]WeekdayPolicy
	Exceptions map[string]ScheduleException
}

// HoursForDate resolves the operating window for a date: an exception for
// the exact date wins, otherwise the weekday default applies.
func (c ScheduleConfig) HoursForDate(date time.Time) DayHours {
	if ex, ok := c.Exceptions[DateKey(date)]; ok {
		return ex.Hours()
	}
	return c.Week[date.Weekday()].Hours()
}

// DefaultWeek returns the bootstrap policy: Monday through Friday
// 08:00-17:00 with a 12:00-13:00 break, weekends closed.
func DefaultWeek(clinicID string) [7]WeekdayPolicy {
	var week [7]WeekdayPolicy
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		p := WeekdayPolicy{
			ClinicID:   clinicID,
			Weekday:    wd,
			IsOpen:     wd != time.Sunday && wd != time.Saturday,
			OpenAt:     NewTimeOfDay(8, 0),
			CloseAt:    NewTimeOfDay(17, 0),
			HasBreak:   true,
			BreakStart: NewTimeOfDay(12, 0),
			BreakEnd:   NewTimeOfDay(13, 0),
		}
		week[wd] = p
	}
	return week
}
