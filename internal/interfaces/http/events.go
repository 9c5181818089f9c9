package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"reservations/internal/application/usecases/catalog"
	"reservations/internal/entities"
)

type CreateEventRequest struct {
	Title      string    `json:"title" validate:"required"`
	TotalSeats int       `json:"total_seats" validate:"gte=0"`
	UnitPrice  int64     `json:"unit_price" validate:"gte=0"`
	Currency   string    `json:"currency" validate:"omitempty,len=3"`
	StartsAt   time.Time `json:"starts_at" validate:"required"`

	AllowCancellation         bool  `json:"allow_cancellation"`
	CancellationDeadlineHours int   `json:"cancellation_deadline_hours" validate:"gte=0"`
	CancellationFeeFlat       int64 `json:"cancellation_fee_flat" validate:"gte=0"`
}

type EventResponse struct {
	entities.Event
	RemainingSeats int  `json:"remaining_seats"`
	SoldOut        bool `json:"sold_out"`
}

func newEventResponse(event entities.Event) EventResponse {
	return EventResponse{
		Event:          event,
		RemainingSeats: event.Remaining(),
		SoldOut:        event.IsSoldOut(),
	}
}

func (s *Server) CreateEventHandler(c echo.Context) error {
	var request CreateEventRequest
	if err := bindAndValidate(c, &request); err != nil {
		return err
	}

	event, err := s.catalog.CreateEvent(c.Request().Context(), catalog.CreateEventRequest{
		Title:                     request.Title,
		TotalSeats:                request.TotalSeats,
		UnitPrice:                 request.UnitPrice,
		Currency:                  request.Currency,
		StartsAt:                  request.StartsAt,
		AllowCancellation:         request.AllowCancellation,
		CancellationDeadlineHours: request.CancellationDeadlineHours,
		CancellationFeeFlat:       request.CancellationFeeFlat,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, newEventResponse(event))
}

func (s *Server) GetEventHandler(c echo.Context) error {
	eventID, err := uuidParam(c, "event_id")
	if err != nil {
		return err
	}

	event, err := s.catalog.GetEvent(c.Request().Context(), eventID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newEventResponse(event))
}
