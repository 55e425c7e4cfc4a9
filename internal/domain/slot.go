package domain

import "time"

// Slot is a fixed-duration candidate appointment interval. Slots are derived
// on demand from the schedule policy and never persisted.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the slot's half-open interval intersects
// [start, end) at all.
func (s Slot) Overlaps(start, end time.Time) bool {
	return s.Start.Before(end) && s.End.After(start)
}

// DaySlots is the generated slot list for one calendar date. Closed dates
// appear with an empty slot list so callers see the whole requested range.
type DaySlots struct {
	Date  time.Time
	Hours DayHours
	Slots []Slot
}

// GenerateSlots walks each date in [from, to] (calendar dates in the
// clinic's location) and emits the candidate slots permitted by the schedule
// policy, ascending by date then start time.
//
// Per date: closed means zero slots. Otherwise slots step from the open time
// in slotMinutes increments; a slot is emitted only when its entire interval
// fits before closing, and dropped when it intersects the break window even
// partially.
//
// The walk is a pure function of its inputs and is safe for concurrent use.
func GenerateSlots(cfg ScheduleConfig, from, to time.Time, slotMinutes int) []DaySlots {
	if slotMinutes <= 0 {
		return nil
	}

	out := make([]DaySlots, 0, 8)
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		hours := cfg.HoursForDate(date)
		day := DaySlots{Date: date, Hours: hours}
		if hours.Open {
			day.Slots = slotsForDay(date, hours, slotMinutes)
		}
		out = append(out, day)
	}
	return out
}

func slotsForDay(date time.Time, hours DayHours, slotMinutes int) []Slot {
	slots := make([]Slot, 0, int(hours.CloseAt-hours.OpenAt)/slotMinutes)
	for start := hours.OpenAt; start.Add(slotMinutes) <= hours.CloseAt; start = start.Add(slotMinutes) {
		end := start.Add(slotMinutes)
		if hours.HasBreak && start < hours.BreakEnd && end > hours.BreakStart {
			continue
		}
		slots = append(slots, Slot{Start: start.At(date), End: end.At(date)})
	}
	return slots
}
