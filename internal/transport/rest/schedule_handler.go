package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-server/internal/domain"
)

type scheduleService interface {
	Week(ctx context.Context) ([7]domain.WeekdayPolicy, error)
	SetWeekdayPolicy(ctx context.Context, policy domain.WeekdayPolicy) (domain.WeekdayPolicy, error)
	CopyPolicyToAllDays(ctx context.Context, source time.Weekday) ([7]domain.WeekdayPolicy, error)
	Exceptions(ctx context.Context) ([]domain.ScheduleException, error)
	UpsertException(ctx context.Context, ex domain.ScheduleException) (domain.ScheduleException, error)
	RemoveException(ctx context.Context, date time.Time) error
}

type ScheduleHandler struct {
	svc      scheduleService
	log      zerolog.Logger
	location *time.Location
}

func NewScheduleHandler(svc scheduleService, log zerolog.Logger, location *time.Location) *ScheduleHandler {
	return &ScheduleHandler{
		svc:      svc,
		log:      log.With().Str("component", "rest.schedule").Logger(),
		location: location,
	}
}

func (h *ScheduleHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/schedule/week", h.Week)
	api.PUT("/schedule/week", h.SetWeekdayPolicy)
	api.PUT("/schedule/week/copy", h.CopyPolicyToAllDays)
	api.GET("/schedule/exceptions", h.Exceptions)
	api.PUT("/schedule/exceptions", h.UpsertException)
	api.DELETE("/schedule/exceptions/:date", h.RemoveException)
}

func (h *ScheduleHandler) Week(c echo.Context) error {
	week, err := h.svc.Week(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]weekdayPolicyDTO, 0, len(week))
	for _, policy := range week {
		out = append(out, toWeekdayPolicyDTO(policy))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) SetWeekdayPolicy(c echo.Context) error {
	var req weekdayPolicyDTO
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	policy, err := h.svc.SetWeekdayPolicy(c.Request().Context(), domain.WeekdayPolicy{
		Weekday:    time.Weekday(req.Weekday),
		IsOpen:     req.IsOpen,
		OpenAt:     req.OpenAt,
		CloseAt:    req.CloseAt,
		HasBreak:   req.HasBreak,
		BreakStart: req.BreakStart,
		BreakEnd:   req.BreakEnd,
	})
	if err != nil {
		h.log.Warn().Err(err).Int("weekday", req.Weekday).Msg("weekday policy rejected")
		return respondError(c, err)
	}

	h.log.Info().Int("weekday", req.Weekday).Msg("weekday policy updated")
	return c.JSON(http.StatusOK, toWeekdayPolicyDTO(policy))
}

type copyPolicyRequest struct {
	SourceWeekday int `json:"source_weekday"`
}

func (h *ScheduleHandler) CopyPolicyToAllDays(c echo.Context) error {
	var req copyPolicyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	week, err := h.svc.CopyPolicyToAllDays(c.Request().Context(), time.Weekday(req.SourceWeekday))
	if err != nil {
		return respondError(c, err)
	}

	h.log.Info().Int("source_weekday", req.SourceWeekday).Msg("weekday policy copied to all days")
	out := make([]weekdayPolicyDTO, 0, len(week))
	for _, policy := range week {
		out = append(out, toWeekdayPolicyDTO(policy))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) Exceptions(c echo.Context) error {
	exceptions, err := h.svc.Exceptions(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]exceptionDTO, 0, len(exceptions))
	for _, ex := range exceptions {
		out = append(out, toExceptionDTO(ex))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) UpsertException(c echo.Context) error {
	var req exceptionDTO
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	date, err := parseDate(req.Date, h.location)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ex, err := h.svc.UpsertException(c.Request().Context(), domain.ScheduleException{
		Date:       date,
		IsOpen:     req.IsOpen,
		OpenAt:     req.OpenAt,
		CloseAt:    req.CloseAt,
		HasBreak:   req.HasBreak,
		BreakStart: req.BreakStart,
		BreakEnd:   req.BreakEnd,
		Reason:     req.Reason,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("date", req.Date).Msg("schedule exception rejected")
		return respondError(c, err)
	}

	h.log.Info().Str("date", req.Date).Bool("open", req.IsOpen).Msg("schedule exception saved")
	return c.JSON(http.StatusOK, toExceptionDTO(ex))
}

func (h *ScheduleHandler) RemoveException(c echo.Context) error {
	date, err := parseDate(c.Param("date"), h.location)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.svc.RemoveException(c.Request().Context(), date); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
