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

type CancellationResult struct {
	Refund    entities.Refund         `json:"refund"`
	Breakdown pricing.RefundBreakdown `json:"breakdown"`
	Retryable bool                    `json:"retryable"`
}

// RequestCancellation cancels a paid booking and refunds it according to
// the event's cancellation policy. The booking only becomes CANCELLED
// after the provider accepted the refund; a provider failure leaves it
// CONFIRMED with a FAILED refund that can be requested again.
func (u *Usecase) RequestCancellation(ctx context.Context, bookingID uuid.UUID, reason string) (CancellationResult, error) {
	var (
		refund entities.Refund
		quote  pricing.RefundQuote
	)

	err := u.tx.Do(ctx, func(ctx context.Context) error {
		b, err := u.bookings.GetBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if !b.IsConfirmed() {
			return fmt.Errorf("booking is %s/%s: %w", b.Status, b.PaymentStatus, entities.ErrInvalidState)
		}

		event, err := u.ledger.GetEvent(ctx, b.EventID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		now := u.config.Now()
		quote = pricing.Refund(pricing.RefundInput{
			BaseTicketPrice:     b.UnitPrice,
			Quantity:            b.Seats,
			CancellationFeeFlat: event.CancellationFeeFlat,
			Now:                 now,
			EventStart:          event.StartsAt,
			DeadlineHours:       event.CancellationDeadlineHours,
			AllowCancellation:   event.AllowCancellation,
		})
		if !quote.CanCancel {
			return fmt.Errorf("%s: %w", quote.Reason, entities.ErrNotCancellable)
		}

		refund = entities.Refund{
			ID:         uuid.New(),
			BookingID:  b.ID,
			EventID:    b.EventID,
			Seats:      b.Seats,
			Amount:     quote.RefundableAmount,
			FlatFee:    quote.Breakdown.FlatFee,
			Currency:   b.Currency,
			PaymentRef: b.PaymentRef,
			Reason:     reason,
			Status:     entities.RefundStatusApproved,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := u.refunds.AddRefund(ctx, refund); err != nil {
			return fmt.Errorf("add refund: %w", err)
		}

		return nil
	})
	if err != nil {
		return CancellationResult{}, fmt.Errorf("request cancellation of %s: %w", bookingID, err)
	}

	refund, err = u.startRefund(ctx, refund.ID)
	if err != nil {
		return CancellationResult{Refund: refund, Breakdown: quote.Breakdown, Retryable: true}, err
	}

	refund, err = u.executeRefund(ctx, refund)
	result := CancellationResult{
		Refund:    refund,
		Breakdown: quote.Breakdown,
		Retryable: entities.IsRetryable(err),
	}

	return result, err
}

// ReconcileRefunds re-sends refunds that have been waiting on the provider
// for too long. The refund id doubles as the provider's deduplication id,
// so a refund the provider already executed is not paid out twice.
func (u *Usecase) ReconcileRefunds(ctx context.Context) (int, error) {
	stale, err := u.refunds.ListStaleRefunds(ctx, u.config.Now().Add(-u.config.RefundReconcileAfter), u.config.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale refunds: %w", err)
	}

	settled := 0
	for _, r := range stale {
		logger := log.FromContext(ctx).WithField("refund_id", r.ID)

		if r.Status == entities.RefundStatusApproved {
			r, err = u.startRefund(ctx, r.ID)
			if err != nil {
				logger.WithError(err).Error("Failed to start refund")
				continue
			}
		}

		r, err = u.executeRefund(ctx, r)
		if r.Status.IsTerminal() {
			settled++
		}
		if err != nil {
			logger.WithError(err).Warn("Refund not settled")
		}
	}

	return settled, nil
}

func (u *Usecase) startRefund(ctx context.Context, id uuid.UUID) (entities.Refund, error) {
	r, err := u.refunds.UpdateRefundByID(ctx, id, func(r entities.Refund) (entities.Refund, error) {
		if r.Status != entities.RefundStatusApproved {
			return r, fmt.Errorf("refund is %s: %w", r.Status, entities.ErrInvalidState)
		}
		r.Status = entities.RefundStatusProcessing
		r.UpdatedAt = u.config.Now()
		return r, nil
	})
	if err != nil {
		return entities.Refund{}, fmt.Errorf("mark refund processing: %w", err)
	}

	return r, nil
}

func (u *Usecase) executeRefund(ctx context.Context, refund entities.Refund) (entities.Refund, error) {
	if refund.Amount > 0 {
		callCtx, cancel := context.WithTimeout(ctx, u.config.PaymentTimeout)
		err := u.payments.Refund(callCtx, entities.RefundRequest{
			RefundID:   refund.ID,
			PaymentRef: refund.PaymentRef,
			Amount:     refund.Amount,
			Currency:   refund.Currency,
			Reason:     refund.Reason,
		})
		cancel()

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.FromContext(ctx).WithError(err).WithField("refund_id", refund.ID).
				Warn("Refund outcome unknown, leaving it for reconciliation")
			return refund, fmt.Errorf("refund %s: %w", refund.ID, entities.ErrRefundPending)
		}
		if err != nil {
			failed, markErr := u.failRefund(ctx, refund.ID, err.Error())
			if markErr != nil {
				return refund, fmt.Errorf("mark refund %s failed: %w", refund.ID, markErr)
			}
			return failed, fmt.Errorf("refund %s: %w: %w", refund.ID, entities.ErrPaymentFailed, err)
		}
	}

	return u.completeRefund(ctx, refund.ID)
}

// completeRefund settles the refund and cancels the booking in one unit.
// The refund must still be PROCESSING, so only one of the request path
// and reconciliation releases the seats.
func (u *Usecase) completeRefund(ctx context.Context, id uuid.UUID) (entities.Refund, error) {
	var completed entities.Refund

	err := u.tx.Do(ctx, func(ctx context.Context) error {
		now := u.config.Now()

		r, err := u.refunds.UpdateRefundByID(ctx, id, func(r entities.Refund) (entities.Refund, error) {
			if r.Status != entities.RefundStatusProcessing {
				return r, errNothingToDo
			}
			r.Status = entities.RefundStatusSucceeded
			r.UpdatedAt = now
			return r, nil
		})
		if err != nil {
			return err
		}

		b, err := u.bookings.UpdateBookingByID(ctx, r.BookingID, func(b entities.Booking) (entities.Booking, error) {
			if !b.IsConfirmed() {
				return b, fmt.Errorf("booking is %s/%s: %w", b.Status, b.PaymentStatus, entities.ErrInvalidState)
			}
			b.Status = entities.BookingStatusCancelled
			b.PaymentStatus = entities.PaymentStatusRefunded
			b.CancelReason = entities.CancelReasonRefundCompleted
			b.CancelledAt = &now
			return b, nil
		})
		if err != nil {
			return fmt.Errorf("cancel refunded booking: %w", err)
		}

		if _, err := u.ledger.Release(ctx, b.EventID, b.Seats); err != nil {
			return fmt.Errorf("release seats: %w", err)
		}

		err = u.publisher.Publish(ctx, entities.RefundProcessed_v1{
			Header:    entities.NewEventHeaderWithIdempotencyKey("refund-processed-" + r.ID.String()),
			RefundID:  r.ID.String(),
			BookingID: r.BookingID.String(),
			Amount:    r.Amount,
			Currency:  r.Currency,
			Status:    r.Status,
		})
		if err != nil {
			return fmt.Errorf("publish refund processed: %w", err)
		}

		if err := u.publishCancellation(ctx, b); err != nil {
			return err
		}

		completed = r
		return nil
	})
	if errors.Is(err, errNothingToDo) {
		return u.refunds.GetRefund(ctx, id)
	}
	if err != nil {
		return entities.Refund{}, fmt.Errorf("complete refund %s: %w", id, err)
	}

	observability.Refunds.WithLabelValues(string(entities.RefundStatusSucceeded)).Inc()
	observability.SeatsReleased.WithLabelValues(entities.CancelReasonRefundCompleted).Add(float64(completed.Seats))
	log.FromContext(ctx).WithField("refund_id", id).Info("Refund completed")

	return completed, nil
}

func (u *Usecase) failRefund(ctx context.Context, id uuid.UUID, reason string) (entities.Refund, error) {
	var failed entities.Refund

	err := u.tx.Do(ctx, func(ctx context.Context) error {
		r, err := u.refunds.UpdateRefundByID(ctx, id, func(r entities.Refund) (entities.Refund, error) {
			if r.Status != entities.RefundStatusProcessing {
				return r, errNothingToDo
			}
			r.Status = entities.RefundStatusFailed
			r.FailureReason = reason
			r.UpdatedAt = u.config.Now()
			return r, nil
		})
		if err != nil {
			return err
		}

		err = u.publisher.Publish(ctx, entities.RefundProcessed_v1{
			Header:        entities.NewEventHeaderWithIdempotencyKey("refund-processed-" + r.ID.String()),
			RefundID:      r.ID.String(),
			BookingID:     r.BookingID.String(),
			Amount:        r.Amount,
			Currency:      r.Currency,
			Status:        r.Status,
			FailureReason: r.FailureReason,
		})
		if err != nil {
			return fmt.Errorf("publish refund processed: %w", err)
		}

		failed = r
		return nil
	})
	if errors.Is(err, errNothingToDo) {
		return u.refunds.GetRefund(ctx, id)
	}
	if err != nil {
		return entities.Refund{}, err
	}

	observability.Refunds.WithLabelValues(string(entities.RefundStatusFailed)).Inc()

	return failed, nil
}
