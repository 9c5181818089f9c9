package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"reservations/internal/application/usecases/booking"
	"reservations/internal/entities"
	"reservations/internal/idempotency"
)

type StartBookingRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
	Seats  int    `json:"seats" validate:"gte=1"`
}

type StartBookingResponse struct {
	BookingID       uuid.UUID              `json:"booking_id"`
	Status          entities.BookingStatus `json:"status"`
	Fees            entities.FeeBreakdown  `json:"fees"`
	Currency        string                 `json:"currency"`
	PaymentOrderRef string                 `json:"payment_order_ref"`
	HoldExpiresAt   time.Time              `json:"hold_expires_at"`
	RiskAction      entities.RiskAction    `json:"risk_action"`
}

func (s *Server) StartBookingHandler(c echo.Context) error {
	eventID, err := uuidParam(c, "event_id")
	if err != nil {
		return err
	}

	var request StartBookingRequest
	if err := bindAndValidate(c, &request); err != nil {
		return err
	}

	ctx := c.Request().Context()
	key, _ := idempotency.Key(ctx)

	result, err := s.bookings.Start(ctx, booking.StartRequest{
		EventID:        eventID,
		UserID:         request.UserID,
		Email:          request.Email,
		Seats:          request.Seats,
		IP:             c.RealIP(),
		UserAgent:      c.Request().UserAgent(),
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}

	b := result.Booking
	return c.JSON(status, StartBookingResponse{
		BookingID:       b.ID,
		Status:          b.Status,
		Fees:            b.Fees,
		Currency:        b.Currency,
		PaymentOrderRef: b.PaymentOrderRef,
		HoldExpiresAt:   b.HoldExpiresAt,
		RiskAction:      result.Risk.Action,
	})
}

func (s *Server) GetBookingHandler(c echo.Context) error {
	bookingID, err := uuidParam(c, "booking_id")
	if err != nil {
		return err
	}

	b, err := s.bookings.GetBooking(c.Request().Context(), bookingID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, b)
}

type ConfirmBookingRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required"`
}

func (s *Server) ConfirmBookingHandler(c echo.Context) error {
	bookingID, err := uuidParam(c, "booking_id")
	if err != nil {
		return err
	}

	var request ConfirmBookingRequest
	if err := bindAndValidate(c, &request); err != nil {
		return err
	}

	b, err := s.bookings.Confirm(c.Request().Context(), bookingID, request.PaymentRef)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, b)
}

func (s *Server) CancelBookingHandler(c echo.Context) error {
	bookingID, err := uuidParam(c, "booking_id")
	if err != nil {
		return err
	}

	b, err := s.bookings.CancelPending(c.Request().Context(), bookingID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, b)
}

type RefundBookingRequest struct {
	Reason string `json:"reason"`
}

type RefundBookingResponse struct {
	booking.CancellationResult
	Error string `json:"error,omitempty"`
}

// RefundBookingHandler answers with the refund even when the provider
// failed, so the caller can tell a failed refund from a pending one.
func (s *Server) RefundBookingHandler(c echo.Context) error {
	bookingID, err := uuidParam(c, "booking_id")
	if err != nil {
		return err
	}

	var request RefundBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	result, err := s.bookings.RequestCancellation(c.Request().Context(), bookingID, request.Reason)
	if err == nil {
		return c.JSON(http.StatusOK, RefundBookingResponse{CancellationResult: result})
	}

	if result.Refund.ID == uuid.Nil {
		return err
	}

	status, _ := statusOf(err)

	return c.JSON(status, RefundBookingResponse{
		CancellationResult: result,
		Error:              err.Error(),
	})
}
