package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"reservations/internal/entities"
)

var (
	errAlreadyConfirmed = errors.New("booking already confirmed")
	errHoldLapsed       = errors.New("hold lapsed")
)

// Confirm marks a held booking as paid. Calling it again for a confirmed
// booking returns the stored booking unchanged. Seats were committed when
// the hold was created, so confirmation never touches the ledger.
func (u *Usecase) Confirm(ctx context.Context, id uuid.UUID, paymentRef string) (entities.Booking, error) {
	var current entities.Booking

	err := u.tx.Do(ctx, func(ctx context.Context) error {
		now := u.config.Now()

		updated, err := u.bookings.UpdateBookingByID(ctx, id, func(b entities.Booking) (entities.Booking, error) {
			current = b

			switch {
			case b.IsConfirmed():
				return b, errAlreadyConfirmed
			case b.Status == entities.BookingStatusCancelled && b.CancelReason == entities.CancelReasonHoldExpired:
				// the sweep got there first
				return b, fmt.Errorf("hold expired at %s: %w", b.HoldExpiresAt.Format(time.RFC3339), entities.ErrHoldExpired)
			case b.Status != entities.BookingStatusPending:
				return b, fmt.Errorf("booking is %s: %w", b.Status, entities.ErrInvalidState)
			case b.HoldExpired(now):
				return b, errHoldLapsed
			}

			b.Status = entities.BookingStatusConfirmed
			b.PaymentStatus = entities.PaymentStatusCompleted
			b.PaymentRef = paymentRef
			b.ConfirmedAt = &now

			token, err := u.tickets.Issue(b)
			if err != nil {
				return b, fmt.Errorf("issue ticket: %w", err)
			}
			b.TicketToken = token

			return b, nil
		})
		if err != nil {
			return err
		}
		current = updated

		err = u.publisher.Publish(ctx, entities.BookingConfirmed_v1{
			Header:      entities.NewEventHeaderWithIdempotencyKey("booking-confirmed-" + updated.ID.String()),
			BookingID:   updated.ID.String(),
			EventID:     updated.EventID.String(),
			UserID:      updated.UserID,
			Email:       updated.Email,
			Seats:       updated.Seats,
			FinalAmount: updated.Fees.FinalAmount,
			Currency:    updated.Currency,
			ConfirmedAt: *updated.ConfirmedAt,
		})
		if err != nil {
			return fmt.Errorf("publish booking confirmed: %w", err)
		}

		return nil
	})

	switch {
	case errors.Is(err, errAlreadyConfirmed):
		return current, nil
	case errors.Is(err, errHoldLapsed):
		if _, expireErr := u.expireHold(ctx, id); expireErr != nil && !errors.Is(expireErr, errNothingToDo) {
			return entities.Booking{}, fmt.Errorf("expire hold: %w", expireErr)
		}
		return entities.Booking{}, fmt.Errorf("booking %s: %w", id, entities.ErrHoldExpired)
	case err != nil:
		return entities.Booking{}, fmt.Errorf("confirm booking %s: %w", id, err)
	}

	log.FromContext(ctx).WithField("booking_id", id).Info("Booking confirmed")

	return current, nil
}
