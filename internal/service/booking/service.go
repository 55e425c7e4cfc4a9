package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitalcare/clinic-server/internal/domain"
	"github.com/vitalcare/clinic-server/internal/store"
)

const maxNotesLen = 2000

type Clock interface {
	Now() time.Time
}

// Service is the booking write path. Every mutation runs inside the
// clinic-serialized transaction, where the availability signal the caller
// acted on is re-checked authoritatively: between querying open slots and
// submitting, another booking may have claimed the interval, and that race
// is resolved here as ConflictError rather than prevented upstream.
type Service struct {
	repo        store.AppointmentRepository
	schedule    store.ScheduleRepository
	patients    store.PatientDirectory
	clock       Clock
	clinicID    string
	location    *time.Location
	slotMinutes int
}

func NewService(repo store.AppointmentRepository, schedule store.ScheduleRepository, patients store.PatientDirectory, clock Clock, clinicID string, location *time.Location, slotMinutes int) *Service {
	return &Service{
		repo:        repo,
		schedule:    schedule,
		patients:    patients,
		clock:       clock,
		clinicID:    clinicID,
		location:    location,
		slotMinutes: slotMinutes,
	}
}

type CreateInput struct {
	PatientID uuid.UUID
	Start     time.Time
	// End is optional; when the caller supplies it, it must equal Start plus
	// the fixed granularity. Variable-length appointments do not exist.
	End   *time.Time
	Notes string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	if in.PatientID == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("patient_id is required")
	}
	notes := strings.TrimSpace(in.Notes)
	if len(notes) > maxNotesLen {
		return domain.Appointment{}, domain.NewValidationError("notes too long")
	}

	if _, err := s.patients.Resolve(ctx, in.PatientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, &domain.NotFoundError{Resource: "patient", ID: in.PatientID.String()}
		}
		return domain.Appointment{}, err
	}

	start, end, err := s.slotBounds(in.Start)
	if err != nil {
		return domain.Appointment{}, err
	}
	if in.End != nil && !in.End.In(s.location).Equal(end) {
		return domain.Appointment{}, domain.NewValidationError("end time must be start plus %d minutes", s.slotMinutes)
	}

	now := s.clock.Now().In(s.location)
	if start.Before(now) {
		return domain.Appointment{}, &domain.PastSlotError{Start: start}
	}
	if err := s.checkWithinHours(ctx, start); err != nil {
		return domain.Appointment{}, err
	}

	var created domain.Appointment
	err = s.repo.InClinicTransaction(ctx, s.clinicID, func(ctx context.Context, tx store.ClinicTx) error {
		if err := s.checkNoOverlap(ctx, tx, start, end, uuid.Nil); err != nil {
			return err
		}
		appt, err := tx.CreateAppointment(ctx, domain.Appointment{
			ClinicID:  s.clinicID,
			PatientID: in.PatientID,
			StartTime: start,
			EndTime:   end,
			Status:    domain.AppointmentScheduled,
			Notes:     notes,
		})
		if err != nil {
			return mapConflict(err, start, end)
		}
		created = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return created, nil
}

type UpdateInput struct {
	ID     uuid.UUID
	Start  *time.Time
	Notes  *string
	Status *domain.AppointmentStatus
}

// Update applies a partial edit. Time changes re-run the full booking checks
// against the new interval, excluding the record's own prior interval from
// the conflict scan. Status changes go through the transition table.
func (s *Service) Update(ctx context.Context, in UpdateInput) (domain.Appointment, error) {
	if in.ID == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("appointment id is required")
	}
	if in.Start == nil && in.Notes == nil && in.Status == nil {
		return domain.Appointment{}, domain.NewValidationError("no fields to update")
	}
	if in.Notes != nil && len(*in.Notes) > maxNotesLen {
		return domain.Appointment{}, domain.NewValidationError("notes too long")
	}

	now := s.clock.Now().In(s.location)

	var updated domain.Appointment
	err := s.repo.InClinicTransaction(ctx, s.clinicID, func(ctx context.Context, tx store.ClinicTx) error {
		appt, err := tx.GetAppointment(ctx, s.clinicID, in.ID)
		if err != nil {
			return mapNotFound(err, in.ID)
		}

		if in.Status != nil && *in.Status != appt.Status {
			if !appt.Status.CanTransition(*in.Status) {
				return &domain.InvalidTransitionError{From: appt.Status, To: *in.Status}
			}
			appt.Status = *in.Status
		}

		if in.Start != nil {
			if !appt.Status.Active() {
				return domain.NewValidationError("cannot re-time a %s appointment", appt.Status)
			}
			start, end, err := s.slotBounds(*in.Start)
			if err != nil {
				return err
			}
			if start.Before(now) {
				return &domain.PastSlotError{Start: start}
			}
			if err := s.checkWithinHours(ctx, start); err != nil {
				return err
			}
			if err := s.checkNoOverlap(ctx, tx, start, end, appt.ID); err != nil {
				return err
			}
			appt.StartTime = start
			appt.EndTime = end
		}

		if in.Notes != nil {
			appt.Notes = strings.TrimSpace(*in.Notes)
		}

		updated, err = tx.UpdateAppointment(ctx, appt)
		if err != nil {
			return mapConflict(err, appt.StartTime, appt.EndTime)
		}
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return updated, nil
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.AppointmentConfirmed)
}

// Cancel releases the appointment's slot. Cancelling an already cancelled
// appointment is a no-op, not an error.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("appointment id is required")
	}

	var out domain.Appointment
	err := s.repo.InClinicTransaction(ctx, s.clinicID, func(ctx context.Context, tx store.ClinicTx) error {
		appt, err := tx.GetAppointment(ctx, s.clinicID, id)
		if err != nil {
			return mapNotFound(err, id)
		}
		if appt.Status == domain.AppointmentCancelled {
			out = appt
			return nil
		}
		if !appt.Status.CanTransition(domain.AppointmentCancelled) {
			return &domain.InvalidTransitionError{From: appt.Status, To: domain.AppointmentCancelled}
		}
		appt.Status = domain.AppointmentCancelled
		out, err = tx.UpdateAppointment(ctx, appt)
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// Reschedule moves a booking to a new slot: the original record is marked
// rescheduled (terminal) and a fresh scheduled appointment takes the new
// interval, both inside one clinic transaction.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("appointment id is required")
	}

	start, end, err := s.slotBounds(newStart)
	if err != nil {
		return domain.Appointment{}, err
	}

	now := s.clock.Now().In(s.location)
	if start.Before(now) {
		return domain.Appointment{}, &domain.PastSlotError{Start: start}
	}
	if err := s.checkWithinHours(ctx, start); err != nil {
		return domain.Appointment{}, err
	}

	var replacement domain.Appointment
	err = s.repo.InClinicTransaction(ctx, s.clinicID, func(ctx context.Context, tx store.ClinicTx) error {
		appt, err := tx.GetAppointment(ctx, s.clinicID, id)
		if err != nil {
			return mapNotFound(err, id)
		}
		if !appt.Status.CanTransition(domain.AppointmentRescheduled) {
			return &domain.InvalidTransitionError{From: appt.Status, To: domain.AppointmentRescheduled}
		}
		if err := s.checkNoOverlap(ctx, tx, start, end, appt.ID); err != nil {
			return err
		}

		// Release the old interval before inserting the replacement so the
		// overlap constraint never sees both rows active.
		appt.Status = domain.AppointmentRescheduled
		if _, err := tx.UpdateAppointment(ctx, appt); err != nil {
			return err
		}

		replacement, err = tx.CreateAppointment(ctx, domain.Appointment{
			ClinicID:  s.clinicID,
			PatientID: appt.PatientID,
			StartTime: start,
			EndTime:   end,
			Status:    domain.AppointmentScheduled,
			Notes:     appt.Notes,
		})
		if err != nil {
			return mapConflict(err, start, end)
		}
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return replacement, nil
}

// AppointmentView is a listing row decorated with the patient's display
// name from the directory.
type AppointmentView struct {
	domain.Appointment
	PatientName string
}

func (s *Service) List(ctx context.Context, from, to time.Time) ([]AppointmentView, error) {
	windowStart := dateOnly(from, s.location)
	windowEnd := dateOnly(to, s.location).AddDate(0, 0, 1)
	if !windowEnd.After(windowStart) {
		return nil, domain.NewValidationError("to date must not be before from date")
	}

	appts, err := s.repo.List(ctx, s.clinicID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(appts))
	out := make([]AppointmentView, 0, len(appts))
	for _, appt := range appts {
		name, ok := names[appt.PatientID]
		if !ok {
			patient, err := s.patients.Resolve(ctx, appt.PatientID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			name = patient.FullName
			names[appt.PatientID] = name
		}
		out = append(out, AppointmentView{Appointment: appt, PatientName: name})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (AppointmentView, error) {
	appt, err := s.repo.Get(ctx, s.clinicID, id)
	if err != nil {
		return AppointmentView{}, mapNotFound(err, id)
	}
	patient, err := s.patients.Resolve(ctx, appt.PatientID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return AppointmentView{}, err
	}
	return AppointmentView{Appointment: appt, PatientName: patient.FullName}, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("appointment id is required")
	}

	var out domain.Appointment
	err := s.repo.InClinicTransaction(ctx, s.clinicID, func(ctx context.Context, tx store.ClinicTx) error {
		appt, err := tx.GetAppointment(ctx, s.clinicID, id)
		if err != nil {
			return mapNotFound(err, id)
		}
		if !appt.Status.CanTransition(to) {
			return &domain.InvalidTransitionError{From: appt.Status, To: to}
		}
		appt.Status = to
		out, err = tx.UpdateAppointment(ctx, appt)
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// slotBounds normalizes a requested start into the clinic zone and derives
// the end from the fixed granularity. Appointments are always exactly one
// slot long.
func (s *Service) slotBounds(start time.Time) (time.Time, time.Time, error) {
	if start.IsZero() {
		return time.Time{}, time.Time{}, domain.NewValidationError("start time is required")
	}
	local := start.In(s.location)
	if local.Second() != 0 || local.Nanosecond() != 0 {
		local = local.Truncate(time.Minute)
	}
	return local, local.Add(time.Duration(s.slotMinutes) * time.Minute), nil
}

// checkWithinHours verifies the requested interval is one of the slots the
// current schedule policy generates for that date. This holds even when the
// caller bypassed the availability query.
func (s *Service) checkWithinHours(ctx context.Context, start time.Time) error {
	cfg, err := s.schedule.Config(ctx, s.clinicID)
	if err != nil {
		return err
	}
	date := dateOnly(start, s.location)
	days := domain.GenerateSlots(cfg, date, date, s.slotMinutes)
	for _, day := range days {
		for _, slot := range day.Slots {
			if slot.Start.Equal(start) {
				return nil
			}
		}
	}
	return domain.NewValidationError("slot %s is outside operating hours", start.Format("2006-01-02 15:04"))
}

func (s *Service) checkNoOverlap(ctx context.Context, tx store.ClinicTx, start, end time.Time, excludeID uuid.UUID) error {
	active, err := tx.ListActiveAppointments(ctx, s.clinicID, start, end)
	if err != nil {
		return err
	}
	for _, other := range active {
		if other.ID == excludeID {
			continue
		}
		if other.Overlaps(start, end) {
			return &domain.ConflictError{Start: start, End: end}
		}
	}
	return nil
}

func mapConflict(err error, start, end time.Time) error {
	if errors.Is(err, store.ErrConflict) {
		return &domain.ConflictError{Start: start, End: end}
	}
	return err
}

func mapNotFound(err error, id uuid.UUID) error {
	if errors.Is(err, store.ErrNotFound) {
		return &domain.NotFoundError{Resource: "appointment", ID: id.String()}
	}
	return err
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
