package domain

import (
	"testing"
	"time"
)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	return loc
}

func TestGenerateSlots_DefaultMonday(t *testing.T) {
	loc := saoPaulo(t)
	cfg := ScheduleConfig{ClinicID: "main", Week: DefaultWeek("main")}

	// 2026-06-01 is a Monday: 08:00-17:00, break 12:00-13:00, 60-minute slots.
	monday := time.Date(2026, 6, 1, 0, 0, 0, 0, loc)
	days := GenerateSlots(cfg, monday, monday, 60)
	if len(days) != 1 {
		t.Fatalf("len(days) = %d, want 1", len(days))
	}

	slots := days[0].Slots
	wantStarts := []TimeOfDay{
		NewTimeOfDay(8, 0), NewTimeOfDay(9, 0), NewTimeOfDay(10, 0), NewTimeOfDay(11, 0),
		NewTimeOfDay(13, 0), NewTimeOfDay(14, 0), NewTimeOfDay(15, 0), NewTimeOfDay(16, 0),
	}
	if len(slots) != len(wantStarts) {
		t.Fatalf("len(slots) = %d, want %d", len(slots), len(wantStarts))
	}
	for i, want := range wantStarts {
		if !slots[i].Start.Equal(want.At(monday)) {
			t.Fatalf("slots[%d].Start = %v, want %v", i, slots[i].Start, want.At(monday))
		}
		if !slots[i].End.Equal(slots[i].Start.Add(time.Hour)) {
			t.Fatalf("slots[%d].End = %v, want one hour after start", i, slots[i].End)
		}
	}
}

func TestGenerateSlots_ClosedDayEmitsEmptyList(t *testing.T) {
	loc := saoPaulo(t)
	cfg := ScheduleConfig{ClinicID: "main", Week: DefaultWeek("main")}

	// 2026-06-07 is a Sunday.
	sunday := time.Date(2026, 6, 7, 0, 0, 0, 0, loc)
	days := GenerateSlots(cfg, sunday, sunday, 60)
	if len(days) != 1 {
		t.Fatalf("len(days) = %d, want 1", len(days))
	}
	if days[0].Hours.Open {
		t.Fatalf("sunday should be closed")
	}
	if len(days[0].Slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0", len(days[0].Slots))
	}
}

func TestGenerateSlots_BreakPartialOverlapExcluded(t *testing.T) {
	loc := saoPaulo(t)
	week := DefaultWeek("main")
	// Shift the break so 90-minute slots straddle it on both edges.
	week[time.Monday].BreakStart = NewTimeOfDay(12, 30)
	week[time.Monday].BreakEnd = NewTimeOfDay(13, 30)
	cfg := ScheduleConfig{ClinicID: "main", Week: week}

	monday := time.Date(2026, 6, 1, 0, 0, 0, 0, loc)
	days := GenerateSlots(cfg, monday, monday, 90)

	// 08:00-17:00 in 90-minute steps: 08:00, 09:30, 11:00, 12:30, 14:00, 15:30.
	// 11:00-12:30 touches the break start boundary only, so it stays; the
	// 12:30-14:00 slot intersects the break and goes.
	wantStarts := []TimeOfDay{
		NewTimeOfDay(8, 0), NewTimeOfDay(9, 30), NewTimeOfDay(11, 0),
		NewTimeOfDay(14, 0), NewTimeOfDay(15, 30),
	}
	slots := days[0].Slots
	if len(slots) != len(wantStarts) {
		t.Fatalf("len(slots) = %d, want %d", len(slots), len(wantStarts))
	}
	for i, want := range wantStarts {
		if !slots[i].Start.Equal(want.At(monday)) {
			t.Fatalf("slots[%d].Start = %v, want %v", i, slots[i].Start, want.At(monday))
		}
	}
}

func TestGenerateSlots_DropsTrailingPartialSlot(t *testing.T) {
	loc := saoPaulo(t)
	week := DefaultWeek("main")
	week[time.Monday] = WeekdayPolicy{
		ClinicID: "main",
		Weekday:  time.Monday,
		IsOpen:   true,
		OpenAt:   NewTimeOfDay(9, 0),
		CloseAt:  NewTimeOfDay(10, 30),
	}
	cfg := ScheduleConfig{ClinicID: "main", Week: week}

	monday := time.Date(2026, 6, 1, 0, 0, 0, 0, loc)
	days := GenerateSlots(cfg, monday, monday, 60)

	// Only 09:00-10:00 fits entirely; 10:00-11:00 would run past closing.
	if len(days[0].Slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(days[0].Slots))
	}
	if !days[0].Slots[0].Start.Equal(NewTimeOfDay(9, 0).At(monday)) {
		t.Fatalf("slot start = %v, want 09:00", days[0].Slots[0].Start)
	}
}

func TestGenerateSlots_RangeOrderAndDeterminism(t *testing.T) {
	loc := saoPaulo(t)
	cfg := ScheduleConfig{ClinicID: "main", Week: DefaultWeek("main")}

	from := time.Date(2026, 6, 1, 0, 0, 0, 0, loc)
	to := time.Date(2026, 6, 7, 0, 0, 0, 0, loc)

	first := GenerateSlots(cfg, from, to, 60)
	if len(first) != 7 {
		t.Fatalf("len(days) = %d, want 7", len(first))
	}
	for i := 1; i < len(first); i++ {
		if !first[i-1].Date.Before(first[i].Date) {
			t.Fatalf("days not ascending: %v then %v", first[i-1].Date, first[i].Date)
		}
	}
	for _, day := range first {
		for i := 1; i < len(day.Slots); i++ {
			if !day.Slots[i-1].Start.Before(day.Slots[i].Start) {
				t.Fatalf("slots not ascending on %v", day.Date)
			}
		}
	}

	second := GenerateSlots(cfg, from, to, 60)
	if len(second) != len(first) {
		t.Fatalf("regenerated day count differs: %d vs %d", len(second), len(first))
	}
	for i := range first {
		if len(first[i].Slots) != len(second[i].Slots) {
			t.Fatalf("day %d slot count differs on regeneration", i)
		}
		for j := range first[i].Slots {
			if !first[i].Slots[j].Start.Equal(second[i].Slots[j].Start) {
				t.Fatalf("day %d slot %d differs on regeneration", i, j)
			}
		}
	}
}

func TestGenerateSlots_InvalidGranularity(t *testing.T) {
	cfg := ScheduleConfig{ClinicID: "main", Week: DefaultWeek("main")}
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := GenerateSlots(cfg, day, day, 0); got != nil {
		t.Fatalf("GenerateSlots with zero granularity = %v, want nil", got)
	}
}

func TestSlotOverlaps(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	slot := Slot{Start: base, End: base.Add(time.Hour)}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"identical", base, base.Add(time.Hour), true},
		{"contained", base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"overlaps start", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"overlaps end", base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"adjacent before", base.Add(-time.Hour), base, false},
		{"adjacent after", base.Add(time.Hour), base.Add(2 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := slot.Overlaps(tt.start, tt.end); got != tt.want {
				t.Fatalf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}
