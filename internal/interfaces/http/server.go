package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reservations/internal/application/usecases/booking"
	"reservations/internal/application/usecases/catalog"
	"reservations/internal/application/usecases/waitlist"
	"reservations/internal/idempotency"
)

type Server struct {
	e    *echo.Echo
	addr string

	catalog  *catalog.Usecase
	bookings *booking.Usecase
	waitlist *waitlist.Usecase
}

type requestValidator struct {
	validate *validator.Validate
}

func (v requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewServer(
	e *echo.Echo,
	addr string,
	catalogUsecase *catalog.Usecase,
	bookingsUsecase *booking.Usecase,
	waitlistUsecase *waitlist.Usecase,
	routerIsRunning func() bool,
) *Server {
	srv := &Server{
		e:        e,
		addr:     addr,
		catalog:  catalogUsecase,
		bookings: bookingsUsecase,
		waitlist: waitlistUsecase,
	}

	e.Validator = requestValidator{validate: validator.New()}
	e.HTTPErrorHandler = errorHandler(e.DefaultHTTPErrorHandler)

	// logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log.FromContext(c.Request().Context()).
				WithField("path", c.Request().URL.Path).
				Info("Handling a request")

			err := next(c)

			if err != nil {
				log.FromContext(c.Request().Context()).
					WithField("error", err).
					Error("Request handling error")
			}

			return err
		}
	})
	e.Use(idempotencyKeyMiddleware)

	e.POST("/events", srv.CreateEventHandler)
	e.GET("/events/:event_id", srv.GetEventHandler)

	e.POST("/events/:event_id/bookings", srv.StartBookingHandler)
	e.GET("/bookings/:booking_id", srv.GetBookingHandler)
	e.PUT("/bookings/:booking_id/confirm", srv.ConfirmBookingHandler)
	e.PUT("/bookings/:booking_id/cancel", srv.CancelBookingHandler)
	e.POST("/bookings/:booking_id/refund", srv.RefundBookingHandler)

	e.POST("/events/:event_id/waitlist", srv.JoinWaitlistHandler)
	e.GET("/events/:event_id/waitlist", srv.WaitlistStatusHandler)
	e.PUT("/waitlist-offers/:offer_id/claim", srv.ClaimOfferHandler)

	e.POST("/admin/sweeps/holds", srv.SweepHoldsHandler)
	e.POST("/admin/sweeps/offers", srv.SweepOffersHandler)
	e.POST("/admin/sweeps/refunds", srv.ReconcileRefundsHandler)

	e.GET("/health", func(c echo.Context) error {
		if !routerIsRunning() {
			return c.String(http.StatusServiceUnavailable, "router is not running")
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return srv
}

func idempotencyKeyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(idempotency.Header)
		if key != "" {
			ctx := idempotency.WithKey(c.Request().Context(), key)
			c.SetRequest(c.Request().WithContext(ctx))
		}
		return next(c)
	}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start() error {
	err := s.e.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
