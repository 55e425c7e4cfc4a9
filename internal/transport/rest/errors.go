package rest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitalcare/clinic-server/internal/domain"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps the core error taxonomy onto HTTP statuses with a stable
// machine-readable code. Conflicts get their own code: they are expected
// under concurrent booking and callers handle them by re-querying
// availability, not by fixing the request.
func respondError(c echo.Context, err error) error {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		pastSlotErr   *domain.PastSlotError
		conflictErr   *domain.ConflictError
		transitionErr *domain.InvalidTransitionError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: errorBody{Code: "validation_error", Message: validationErr.Error()}})
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, errorResponse{Error: errorBody{Code: "not_found", Message: notFoundErr.Error()}})
	case errors.As(err, &pastSlotErr):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: errorBody{Code: "past_slot", Message: pastSlotErr.Error()}})
	case errors.As(err, &conflictErr):
		return c.JSON(http.StatusConflict, errorResponse{Error: errorBody{Code: "conflict", Message: conflictErr.Error()}})
	case errors.As(err, &transitionErr):
		return c.JSON(http.StatusConflict, errorResponse{Error: errorBody{Code: "invalid_transition", Message: transitionErr.Error()}})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: errorBody{Code: "internal", Message: "internal server error"}})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: errorBody{Code: "bad_request", Message: msg}})
}
