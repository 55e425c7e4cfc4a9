package availability

import (
	"context"
	"time"

	"github.com/vitalcare/clinic-server/internal/domain"
	"github.com/vitalcare/clinic-server/internal/store"
)

// MaxRangeDays caps a single availability query. Wider horizons should be
// paged by the caller.
const MaxRangeDays = 92

type Clock interface {
	Now() time.Time
}

// Service is the availability read path: candidate slots from the schedule
// policy, minus booked intervals, minus elapsed slots. Results are advisory;
// the booking write path re-checks at commit time.
type Service struct {
	schedule    store.ScheduleRepository
	appts       store.AppointmentRepository
	clock       Clock
	clinicID    string
	location    *time.Location
	slotMinutes int
}

func NewService(schedule store.ScheduleRepository, appts store.AppointmentRepository, clock Clock, clinicID string, location *time.Location, slotMinutes int) *Service {
	return &Service{
		schedule:    schedule,
		appts:       appts,
		clock:       clock,
		clinicID:    clinicID,
		location:    location,
		slotMinutes: slotMinutes,
	}
}

type OpenSlotsInput struct {
	From        time.Time
	To          time.Time
	SlotMinutes int
}

// DayAvailability is one date of the response: the open slots still
// bookable, plus the closed reason when an exception shut the date.
type DayAvailability struct {
	Date   time.Time
	Open   bool
	Reason string
	Slots  []domain.Slot
}

func (s *Service) OpenSlots(ctx context.Context, in OpenSlotsInput) ([]DayAvailability, error) {
	slotMinutes := in.SlotMinutes
	if slotMinutes == 0 {
		slotMinutes = s.slotMinutes
	}
	if slotMinutes < 5 || slotMinutes > 8*60 {
		return nil, domain.NewValidationError("slot granularity must be between 5 and 480 minutes")
	}

	from := dateOnly(in.From, s.location)
	to := dateOnly(in.To, s.location)
	if to.Before(from) {
		return nil, domain.NewValidationError("to date must not be before from date")
	}
	if int(to.Sub(from)/(24*time.Hour)) >= MaxRangeDays {
		return nil, domain.NewValidationError("date range must not exceed %d days", MaxRangeDays)
	}

	cfg, err := s.schedule.Config(ctx, s.clinicID)
	if err != nil {
		return nil, err
	}

	days := domain.GenerateSlots(cfg, from, to, slotMinutes)

	// One fetch covers the whole range; a slot is open only when no active
	// appointment overlaps it.
	booked, err := s.appts.ListActive(ctx, s.clinicID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	// Read the clock once so every past/future judgment in this call agrees.
	now := s.clock.Now().In(s.location)

	out := make([]DayAvailability, 0, len(days))
	for _, day := range days {
		avail := DayAvailability{
			Date:   day.Date,
			Open:   day.Hours.Open,
			Reason: day.Hours.Reason,
			Slots:  filterOpen(day.Slots, booked, now),
		}
		out = append(out, avail)
	}
	return out, nil
}

func filterOpen(candidates []domain.Slot, booked []domain.Appointment, now time.Time) []domain.Slot {
	open := make([]domain.Slot, 0, len(candidates))
	for _, slot := range candidates {
		if slot.Start.Before(now) {
			continue
		}
		if overlapsAny(slot, booked) {
			continue
		}
		open = append(open, slot)
	}
	return open
}

func overlapsAny(slot domain.Slot, booked []domain.Appointment) bool {
	for _, appt := range booked {
		if appt.Overlaps(slot.Start, slot.End) {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
