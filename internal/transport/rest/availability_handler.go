package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-server/internal/service/availability"
)

type availabilityService interface {
	OpenSlots(ctx context.Context, in availability.OpenSlotsInput) ([]availability.DayAvailability, error)
}

type AvailabilityHandler struct {
	svc      availabilityService
	log      zerolog.Logger
	location *time.Location
}

func NewAvailabilityHandler(svc availabilityService, log zerolog.Logger, location *time.Location) *AvailabilityHandler {
	return &AvailabilityHandler{
		svc:      svc,
		log:      log.With().Str("component", "rest.availability").Logger(),
		location: location,
	}
}

func (h *AvailabilityHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/availability", h.OpenSlots)
}

func (h *AvailabilityHandler) OpenSlots(c echo.Context) error {
	from, err := parseDate(c.QueryParam("from"), h.location)
	if err != nil {
		return badRequest(c, err.Error())
	}
	to, err := parseDate(c.QueryParam("to"), h.location)
	if err != nil {
		return badRequest(c, err.Error())
	}

	slotMinutes := 0
	if raw := c.QueryParam("slot_minutes"); raw != "" {
		slotMinutes, err = strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "invalid slot_minutes")
		}
	}

	days, err := h.svc.OpenSlots(c.Request().Context(), availability.OpenSlotsInput{
		From:        from,
		To:          to,
		SlotMinutes: slotMinutes,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("from", c.QueryParam("from")).Str("to", c.QueryParam("to")).Msg("availability query failed")
		return respondError(c, err)
	}

	out := make([]dayAvailabilityDTO, 0, len(days))
	for _, day := range days {
		out = append(out, dayAvailabilityDTO{
			Date:   day.Date.Format(dateFormat),
			Open:   day.Open,
			Reason: day.Reason,
			Slots:  toSlotDTOs(day.Slots),
		})
	}
	return c.JSON(http.StatusOK, out)
}
