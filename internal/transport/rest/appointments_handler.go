package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-server/internal/domain"
	"github.com/vitalcare/clinic-server/internal/service/booking"
)

type bookingService interface {
	Create(ctx context.Context, in booking.CreateInput) (domain.Appointment, error)
	Update(ctx context.Context, in booking.UpdateInput) (domain.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (booking.AppointmentView, error)
	List(ctx context.Context, from, to time.Time) ([]booking.AppointmentView, error)
}

type AppointmentsHandler struct {
	svc      bookingService
	log      zerolog.Logger
	location *time.Location
}

func NewAppointmentsHandler(svc bookingService, log zerolog.Logger, location *time.Location) *AppointmentsHandler {
	return &AppointmentsHandler{
		svc:      svc,
		log:      log.With().Str("component", "rest.appointments").Logger(),
		location: location,
	}
}

func (h *AppointmentsHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.List)
	api.GET("/appointments/:id", h.Get)
	api.POST("/appointments", h.Create)
	api.PATCH("/appointments/:id", h.Update)
	api.POST("/appointments/:id/confirm", h.Confirm)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.POST("/appointments/:id/reschedule", h.Reschedule)
}

type createAppointmentRequest struct {
	PatientID     string `json:"patient_id"`
	StartDateTime string `json:"start_datetime"`
	EndDateTime   string `json:"end_datetime"`
	Notes         string `json:"notes"`
}

func (h *AppointmentsHandler) Create(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return badRequest(c, "invalid patient_id")
	}
	start, err := parseDateTime(req.StartDateTime, h.location)
	if err != nil {
		return badRequest(c, err.Error())
	}

	in := booking.CreateInput{PatientID: patientID, Start: start, Notes: req.Notes}
	if req.EndDateTime != "" {
		end, err := parseDateTime(req.EndDateTime, h.location)
		if err != nil {
			return badRequest(c, err.Error())
		}
		in.End = &end
	}

	appt, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		h.logBookingError(err, "create", patientID.String(), start)
		return respondError(c, err)
	}

	h.log.Info().Str("appointment_id", appt.ID.String()).Time("start", appt.StartTime).Msg("appointment created")
	return c.JSON(http.StatusCreated, toAppointmentDTO(appt, "", h.location))
}

type updateAppointmentRequest struct {
	StartDateTime *string `json:"start_datetime"`
	Notes         *string `json:"notes"`
	Status        *string `json:"status"`
}

func (h *AppointmentsHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req updateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	in := booking.UpdateInput{ID: id, Notes: req.Notes}
	if req.StartDateTime != nil {
		start, err := parseDateTime(*req.StartDateTime, h.location)
		if err != nil {
			return badRequest(c, err.Error())
		}
		in.Start = &start
	}
	if req.Status != nil {
		status, err := domain.ParseAppointmentStatus(*req.Status)
		if err != nil {
			return respondError(c, err)
		}
		in.Status = &status
	}

	appt, err := h.svc.Update(c.Request().Context(), in)
	if err != nil {
		h.logBookingError(err, "update", id.String(), time.Time{})
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAppointmentDTO(appt, "", h.location))
}

func (h *AppointmentsHandler) Confirm(c echo.Context) error {
	return h.applyTransition(c, "confirm", h.svc.Confirm)
}

func (h *AppointmentsHandler) Cancel(c echo.Context) error {
	return h.applyTransition(c, "cancel", h.svc.Cancel)
}

type rescheduleRequest struct {
	StartDateTime string `json:"start_datetime"`
}

func (h *AppointmentsHandler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	start, err := parseDateTime(req.StartDateTime, h.location)
	if err != nil {
		return badRequest(c, err.Error())
	}

	appt, err := h.svc.Reschedule(c.Request().Context(), id, start)
	if err != nil {
		h.logBookingError(err, "reschedule", id.String(), start)
		return respondError(c, err)
	}

	h.log.Info().Str("appointment_id", appt.ID.String()).Str("replaced_id", id.String()).Msg("appointment rescheduled")
	return c.JSON(http.StatusCreated, toAppointmentDTO(appt, "", h.location))
}

func (h *AppointmentsHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	view, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAppointmentDTO(view.Appointment, view.PatientName, h.location))
}

func (h *AppointmentsHandler) List(c echo.Context) error {
	from, err := parseDate(c.QueryParam("from"), h.location)
	if err != nil {
		return badRequest(c, err.Error())
	}
	to, err := parseDate(c.QueryParam("to"), h.location)
	if err != nil {
		return badRequest(c, err.Error())
	}

	views, err := h.svc.List(c.Request().Context(), from, to)
	if err != nil {
		return respondError(c, err)
	}

	out := make([]appointmentDTO, 0, len(views))
	for _, view := range views {
		out = append(out, toAppointmentDTO(view.Appointment, view.PatientName, h.location))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AppointmentsHandler) applyTransition(c echo.Context, op string, fn func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	appt, err := fn(c.Request().Context(), id)
	if err != nil {
		h.log.Info().Err(err).Str("op", op).Str("appointment_id", id.String()).Msg("transition rejected")
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAppointmentDTO(appt, "", h.location))
}

func (h *AppointmentsHandler) logBookingError(err error, op, subject string, start time.Time) {
	// Conflicts are routine under concurrent booking; keep them at info.
	event := h.log.Warn()
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		event = h.log.Info()
	}
	event.Err(err).Str("op", op).Str("subject", subject).Time("start", start).Msg("booking request rejected")
}
