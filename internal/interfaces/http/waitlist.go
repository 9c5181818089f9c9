package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"reservations/internal/application/usecases/waitlist"
)

type JoinWaitlistRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"omitempty,e164"`
	UserID string `json:"user_id"`
}

func (s *Server) JoinWaitlistHandler(c echo.Context) error {
	eventID, err := uuidParam(c, "event_id")
	if err != nil {
		return err
	}

	var request JoinWaitlistRequest
	if err := bindAndValidate(c, &request); err != nil {
		return err
	}

	entry, err := s.waitlist.Join(c.Request().Context(), waitlist.JoinRequest{
		EventID: eventID,
		Email:   request.Email,
		Phone:   request.Phone,
		UserID:  request.UserID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entry)
}

func (s *Server) WaitlistStatusHandler(c echo.Context) error {
	eventID, err := uuidParam(c, "event_id")
	if err != nil {
		return err
	}

	email := c.QueryParam("email")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	status, err := s.waitlist.Status(c.Request().Context(), eventID, email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, status)
}

func (s *Server) ClaimOfferHandler(c echo.Context) error {
	offerID, err := uuidParam(c, "offer_id")
	if err != nil {
		return err
	}

	result, err := s.waitlist.Claim(c.Request().Context(), offerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

type SweepResponse struct {
	Count int `json:"count"`
}

func (s *Server) SweepHoldsHandler(c echo.Context) error {
	return sweep(c, s.bookings.SweepExpiredHolds)
}

func (s *Server) SweepOffersHandler(c echo.Context) error {
	return sweep(c, s.waitlist.SweepExpiredOffers)
}

func (s *Server) ReconcileRefundsHandler(c echo.Context) error {
	return sweep(c, s.bookings.ReconcileRefunds)
}

func sweep(c echo.Context, fn func(ctx context.Context) (int, error)) error {
	n, err := fn(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SweepResponse{Count: n})
}
