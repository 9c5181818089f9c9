package http

import (
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"reservations/internal/entities"
)

const (
	HintJoinWaitlist = "join_waitlist"
	HintBookDirectly = "book_directly"
	HintRetryable    = "retryable"
)

type ErrorResponse struct {
	Error string             `json:"error"`
	Kind  entities.ErrorKind `json:"kind"`
	Hint  string             `json:"hint,omitempty"`
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, entities.ErrInvalidArgument):
		return http.StatusBadRequest, ""
	case errors.Is(err, entities.ErrCapacityExceeded):
		return http.StatusConflict, HintJoinWaitlist
	case errors.Is(err, entities.ErrOfferExpired):
		return http.StatusGone, HintJoinWaitlist
	case errors.Is(err, entities.ErrSeatsAvailable):
		return http.StatusConflict, HintBookDirectly
	case errors.Is(err, entities.ErrHoldExpired):
		return http.StatusGone, ""
	case errors.Is(err, entities.ErrRefundPending):
		return http.StatusAccepted, HintRetryable
	}

	switch entities.KindOf(err) {
	case entities.KindState:
		return http.StatusConflict, ""
	case entities.KindPolicy:
		return http.StatusUnprocessableEntity, ""
	case entities.KindUpstream:
		return http.StatusBadGateway, HintRetryable
	default:
		return http.StatusInternalServerError, ""
	}
}

// errorHandler renders domain errors; anything else goes to fallback.
func errorHandler(fallback echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) || c.Response().Committed {
			fallback(err, c)
			return
		}

		status, hint := statusOf(err)
		kind := entities.KindOf(err)

		message := err.Error()
		if status == http.StatusInternalServerError {
			message = http.StatusText(status)
		}

		if jsonErr := c.JSON(status, ErrorResponse{Error: message, Kind: kind, Hint: hint}); jsonErr != nil {
			log.FromContext(c.Request().Context()).WithError(jsonErr).Error("Failed to write error response")
		}
	}
}
