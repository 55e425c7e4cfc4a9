package rest

import (
	"fmt"
	"time"

	"github.com/vitalcare/clinic-server/internal/domain"
)

// All wire values are local wall-clock in the clinic's fixed timezone; no
// UTC conversion happens at this boundary.
const (
	dateFormat     = "2006-01-02"
	timeFormat     = "15:04"
	dateTimeFormat = "2006-01-02 15:04:05"
)

var dateTimeFormats = []string{dateTimeFormat, "2006-01-02 15:04", time.RFC3339}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	for _, format := range dateTimeFormats {
		if t, err := time.ParseInLocation(format, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q, want YYYY-MM-DD HH:MM:SS", s)
}

type slotDTO struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type dayAvailabilityDTO struct {
	Date   string    `json:"date"`
	Open   bool      `json:"open"`
	Reason string    `json:"reason,omitempty"`
	Slots  []slotDTO `json:"slots"`
}

func toSlotDTOs(slots []domain.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotDTO{
			StartTime: slot.Start.Format(timeFormat),
			EndTime:   slot.End.Format(timeFormat),
		})
	}
	return out
}

type appointmentDTO struct {
	ID            string `json:"id"`
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name,omitempty"`
	StartDateTime string `json:"start_datetime"`
	EndDateTime   string `json:"end_datetime"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
}

func toAppointmentDTO(appt domain.Appointment, patientName string, loc *time.Location) appointmentDTO {
	return appointmentDTO{
		ID:            appt.ID.String(),
		PatientID:     appt.PatientID.String(),
		PatientName:   patientName,
		StartDateTime: appt.StartTime.In(loc).Format(dateTimeFormat),
		EndDateTime:   appt.EndTime.In(loc).Format(dateTimeFormat),
		Status:        string(appt.Status),
		Notes:         appt.Notes,
	}
}

type weekdayPolicyDTO struct {
	Weekday    int              `json:"weekday"`
	IsOpen     bool             `json:"is_open"`
	OpenAt     domain.TimeOfDay `json:"open_at"`
	CloseAt    domain.TimeOfDay `json:"close_at"`
	HasBreak   bool             `json:"has_break"`
	BreakStart domain.TimeOfDay `json:"break_start"`
	BreakEnd   domain.TimeOfDay `json:"break_end"`
}

func toWeekdayPolicyDTO(p domain.WeekdayPolicy) weekdayPolicyDTO {
	return weekdayPolicyDTO{
		Weekday:    int(p.Weekday),
		IsOpen:     p.IsOpen,
		OpenAt:     p.OpenAt,
		CloseAt:    p.CloseAt,
		HasBreak:   p.HasBreak,
		BreakStart: p.BreakStart,
		BreakEnd:   p.BreakEnd,
	}
}

type exceptionDTO struct {
	Date       string           `json:"date"`
	IsOpen     bool             `json:"is_open"`
	OpenAt     domain.TimeOfDay `json:"open_at"`
	CloseAt    domain.TimeOfDay `json:"close_at"`
	HasBreak   bool             `json:"has_break"`
	BreakStart domain.TimeOfDay `json:"break_start"`
	BreakEnd   domain.TimeOfDay `json:"break_end"`
	Reason     string           `json:"reason,omitempty"`
}

func toExceptionDTO(ex domain.ScheduleException) exceptionDTO {
	return exceptionDTO{
		Date:       domain.DateKey(ex.Date),
		IsOpen:     ex.IsOpen,
		OpenAt:     ex.OpenAt,
		CloseAt:    ex.CloseAt,
		HasBreak:   ex.HasBreak,
		BreakStart: ex.BreakStart,
		BreakEnd:   ex.BreakEnd,
		Reason:     ex.Reason,
	}
}
