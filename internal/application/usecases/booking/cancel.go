package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"reservations/internal/entities"
	"reservations/internal/observability"
)

// errNothingToDo aborts an update whose precondition no longer holds
// because another writer already moved the row on.
var errNothingToDo = errors.New("nothing to do")

type holdCheck func(b entities.Booking, u *Usecase) error

func requirePending(b entities.Booking, _ *Usecase) error {
	if b.Status != entities.BookingStatusPending {
		return fmt.Errorf("booking is %s: %w", b.Status, entities.ErrInvalidState)
	}
	return nil
}

func requireExpiredHold(b entities.Booking, u *Usecase) error {
	if !b.HoldExpired(u.config.Now()) {
		return errNothingToDo
	}
	return nil
}

// CancelPending cancels a booking before payment and gives its seats back.
func (u *Usecase) CancelPending(ctx context.Context, id uuid.UUID) (entities.Booking, error) {
	b, err := u.cancelHold(ctx, id, entities.CancelReasonUserCancelled, requirePending)
	if err != nil {
		return entities.Booking{}, fmt.Errorf("cancel pending booking %s: %w", id, err)
	}

	return b, nil
}

// expireHold is shared by the sweep and the lazy check on confirm, so both
// paths end in the same state and only the first one releases seats.
func (u *Usecase) expireHold(ctx context.Context, id uuid.UUID) (entities.Booking, error) {
	b, err := u.cancelHold(ctx, id, entities.CancelReasonHoldExpired, requireExpiredHold)
	if err != nil {
		return entities.Booking{}, err
	}

	observability.HoldsExpired.Inc()
	log.FromContext(ctx).WithField("booking_id", id).Info("Hold expired")

	return b, nil
}

func (u *Usecase) cancelHold(ctx context.Context, id uuid.UUID, reason string, check holdCheck) (entities.Booking, error) {
	var cancelled entities.Booking

	err := u.tx.Do(ctx, func(ctx context.Context) error {
		b, err := u.bookings.UpdateBookingByID(ctx, id, func(b entities.Booking) (entities.Booking, error) {
			if err := check(b, u); err != nil {
				return b, err
			}

			now := u.config.Now()
			b.Status = entities.BookingStatusCancelled
			b.PaymentStatus = entities.PaymentStatusFailed
			b.CancelReason = reason
			b.CancelledAt = &now
			return b, nil
		})
		if err != nil {
			return err
		}

		if _, err := u.ledger.Release(ctx, b.EventID, b.Seats); err != nil {
			return fmt.Errorf("release seats: %w", err)
		}

		if err := u.publishCancellation(ctx, b); err != nil {
			return err
		}

		cancelled = b
		return nil
	})
	if err != nil {
		return entities.Booking{}, err
	}

	observability.SeatsReleased.WithLabelValues(reason).Add(float64(cancelled.Seats))

	return cancelled, nil
}

func (u *Usecase) publishCancellation(ctx context.Context, b entities.Booking) error {
	err := u.publisher.Publish(ctx, entities.BookingCancelled_v1{
		Header:    entities.NewEventHeaderWithIdempotencyKey("booking-cancelled-" + b.ID.String()),
		BookingID: b.ID.String(),
		EventID:   b.EventID.String(),
		Seats:     b.Seats,
		Reason:    b.CancelReason,
	})
	if err != nil {
		return fmt.Errorf("publish booking cancelled: %w", err)
	}

	err = u.publisher.Publish(ctx, entities.SeatsReleased_v1{
		Header:    entities.NewEventHeaderWithIdempotencyKey("seats-released-" + b.ID.String()),
		EventID:   b.EventID.String(),
		BookingID: b.ID.String(),
		Quantity:  b.Seats,
		Reason:    b.CancelReason,
	})
	if err != nil {
		return fmt.Errorf("publish seats released: %w", err)
	}

	return nil
}
