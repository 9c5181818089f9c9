package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"reservations/internal/domain/pricing"
	"reservations/internal/entities"
	"reservations/internal/observability"
)

type StartRequest struct {
	EventID   uuid.UUID
	UserID    string
	Email     string
	Seats     int
	IP        string
	UserAgent string

	// IdempotencyKey is optional and scoped to UserID. A repeated key
	// returns the original hold.
	IdempotencyKey string
}

type StartResult struct {
	Booking  entities.Booking
	Risk     entities.RiskDecision
	Replayed bool
}

func (u *Usecase) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	if req.Seats < 1 {
		return StartResult{}, fmt.Errorf("seats %d: %w", req.Seats, entities.ErrInvalidArgument)
	}

	if req.IdempotencyKey != "" {
		existing, err := u.replayed(ctx, req)
		if err == nil {
			return StartResult{Booking: existing, Replayed: true}, nil
		}
		if !errors.Is(err, entities.ErrNotFound) {
			return StartResult{}, fmt.Errorf("get booking by idempotency key: %w", err)
		}
	}

	decision, err := u.evaluateRisk(ctx, entities.AttemptContext{
		UserID:    req.UserID,
		EventID:   req.EventID.String(),
		Seats:     req.Seats,
		IP:        req.IP,
		UserAgent: req.UserAgent,
	})
	if err != nil {
		return StartResult{}, fmt.Errorf("evaluate risk: %w", err)
	}
	if decision.Action == entities.RiskActionReject {
		return StartResult{Risk: decision}, fmt.Errorf("user %s: %w", req.UserID, entities.ErrFraudRejected)
	}

	now := u.config.Now()
	booking := entities.Booking{
		ID:             uuid.New(),
		EventID:        req.EventID,
		UserID:         req.UserID,
		Email:          req.Email,
		Seats:          req.Seats,
		Status:         entities.BookingStatusPending,
		PaymentStatus:  entities.PaymentStatusPending,
		RiskAction:     decision.Action,
		RiskScore:      decision.Score,
		RiskTags:       decision.Tags,
		IdempotencyKey: req.IdempotencyKey,
		HoldExpiresAt:  now.Add(u.config.HoldTTL),
		CreatedAt:      now,
	}

	err = u.tx.Do(ctx, func(ctx context.Context) error {
		reserved, err := u.ledger.Reserve(ctx, req.EventID, req.Seats)
		if err != nil {
			return fmt.Errorf("reserve seats: %w", err)
		}
		if !reserved.OK {
			return fmt.Errorf(
				"requested %d seats, %d left: %w",
				req.Seats, reserved.Event.Remaining(), entities.ErrCapacityExceeded,
			)
		}

		fees, err := pricing.Calculate(reserved.Event.UnitPrice, req.Seats, u.config.Schedule)
		if err != nil {
			return fmt.Errorf("calculate price: %w", err)
		}
		booking.UnitPrice = reserved.Event.UnitPrice
		booking.Currency = reserved.Event.Currency
		booking.Fees = fees

		if err := u.bookings.AddBooking(ctx, booking); err != nil {
			return fmt.Errorf("add booking: %w", err)
		}

		err = u.publisher.Publish(ctx, entities.BookingHeld_v1{
			Header:        entities.NewEventHeader(),
			BookingID:     booking.ID.String(),
			EventID:       booking.EventID.String(),
			UserID:        booking.UserID,
			Seats:         booking.Seats,
			FinalAmount:   booking.Fees.FinalAmount,
			Currency:      booking.Currency,
			HoldExpiresAt: booking.HoldExpiresAt,
		})
		if err != nil {
			return fmt.Errorf("publish booking held: %w", err)
		}

		if decision.Action == entities.RiskActionReview {
			err = u.publisher.Publish(ctx, entities.RiskReviewRequested_v1{
				Header:    entities.NewEventHeader(),
				BookingID: booking.ID.String(),
				EventID:   booking.EventID.String(),
				UserID:    booking.UserID,
				Score:     decision.Score,
				Tags:      decision.Tags,
			})
			if err != nil {
				return fmt.Errorf("publish risk review requested: %w", err)
			}
		}

		return nil
	})
	if err != nil && req.IdempotencyKey != "" && errors.Is(err, entities.ErrAlreadyExists) {
		// a concurrent request with the same key got there first
		existing, getErr := u.replayed(ctx, req)
		if getErr == nil {
			return StartResult{Booking: existing, Replayed: true}, nil
		}
		if errors.Is(getErr, entities.ErrInvalidArgument) {
			return StartResult{Risk: decision}, getErr
		}
	}
	if err != nil {
		return StartResult{Risk: decision}, err
	}

	observability.SeatsReserved.Add(float64(booking.Seats))

	orderCtx, cancel := context.WithTimeout(ctx, u.config.PaymentTimeout)
	orderRef, err := u.payments.CreateOrder(orderCtx, entities.PaymentOrderRequest{
		BookingID: booking.ID,
		Amount:    booking.Fees.FinalAmount,
		Currency:  booking.Currency,
	})
	cancel()
	if err != nil {
		_, cancelErr := u.cancelHold(ctx, booking.ID, entities.CancelReasonPaymentFailed, requirePending)
		if cancelErr != nil {
			log.FromContext(ctx).WithError(cancelErr).WithField("booking_id", booking.ID).
				Error("Failed to release hold after payment order failure")
		}
		return StartResult{Risk: decision}, fmt.Errorf("create payment order: %w: %w", entities.ErrPaymentFailed, err)
	}

	booking, err = u.bookings.UpdateBookingByID(ctx, booking.ID, func(b entities.Booking) (entities.Booking, error) {
		b.PaymentOrderRef = orderRef
		return b, nil
	})
	if err != nil {
		return StartResult{Risk: decision}, fmt.Errorf("save payment order ref: %w", err)
	}

	log.FromContext(ctx).WithField("booking_id", booking.ID).WithField("seats", booking.Seats).Info("Seats held")

	return StartResult{Booking: booking, Risk: decision}, nil
}

// replayed returns the booking an earlier request of the same user created
// with req's idempotency key. Reusing a key for a different booking is
// rejected.
func (u *Usecase) replayed(ctx context.Context, req StartRequest) (entities.Booking, error) {
	existing, err := u.bookings.GetBookingByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		return entities.Booking{}, err
	}
	if existing.EventID != req.EventID || existing.Seats != req.Seats {
		return entities.Booking{}, fmt.Errorf(
			"idempotency key %s was used for booking %s: %w", req.IdempotencyKey, existing.ID, entities.ErrInvalidArgument,
		)
	}

	return existing, nil
}
