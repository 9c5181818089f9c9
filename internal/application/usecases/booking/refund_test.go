package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/entities"
)

func TestRequestCancellation_refunds_and_releases(t *testing.T) {
	f := newFixture(t, 10)
	f.allowRisk()
	f.acceptOrders()

	b := f.confirmed(t, 2)

	f.payments.EXPECT().
		Refund(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req entities.RefundRequest) error {
			assert.Equal(t, int64(1950), req.Amount)
			assert.Equal(t, "pay_"+b.ID.String(), req.PaymentRef)
			return nil
		})

	res, err := f.usecase.RequestCancellation(context.Background(), b.ID, "cannot attend")
	require.NoError(t, err)
	assert.Equal(t, entities.RefundStatusSucceeded, res.Refund.Status)
	assert.Equal(t, int64(1950), res.Refund.Amount)
	assert.Equal(t, int64(50), res.Breakdown.FlatFee)
	assert.False(t, res.Retryable)

	got, err := f.usecase.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusCancelled, got.Status)
	assert.Equal(t, entities.PaymentStatusRefunded, got.PaymentStatus)
	assert.Equal(t, 0, f.bookedSeats(t))

	released := published[entities.SeatsReleased_v1](f.publisher)
	require.Len(t, released, 1)
	assert.Equal(t, 2, released[0].Quantity)
	assert.Len(t, published[entities.RefundProcessed_v1](f.publisher), 1)

	_, err = f.usecase.RequestCancellation(context.Background(), b.ID, "again")
	assert.ErrorIs(t, err, entities.ErrInvalidState)
}

func TestRequestCancellation_provider_failure_keeps_booking(t *testing.T) {
	f := newFixture(t, 10)
	f.allowRisk()
	f.acceptOrders()

	b := f.confirmed(t, 2)

	f.payments.EXPECT().
		Refund(gomock.Any(), gomock.Any()).
		Return(errors.New("insufficient balance"))

	res, err := f.usecase.RequestCancellation(context.Background(), b.ID, "cannot attend")
	assert.ErrorIs(t, err, entities.ErrPaymentFailed)
	assert.True(t, res.Retryable)
	assert.Equal(t, entities.RefundStatusFailed, res.Refund.Status)

	got, err := f.usecase.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusConfirmed, got.Status)
	assert.Equal(t, 2, f.bookedSeats(t))
	assert.Empty(t, published[entities.SeatsReleased_v1](f.publisher))

	// a failed refund does not block a new attempt
	f.payments.EXPECT().Refund(gomock.Any(), gomock.Any()).Return(nil)

	retry, err := f.usecase.RequestCancellation(context.Background(), b.ID, "cannot attend")
	require.NoError(t, err)
	assert.NotEqual(t, res.Refund.ID, retry.Refund.ID)
	assert.Equal(t, 0, f.bookedSeats(t))

	refunds, err := f.store.RefundsForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, refunds, 2)
}

func TestRequestCancellation_timeout_is_reconciled(t *testing.T) {
	f := newFixture(t, 10)
	f.allowRisk()
	f.acceptOrders()

	b := f.confirmed(t, 1)

	var refundIDs []string
	f.payments.EXPECT().
		Refund(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req entities.RefundRequest) error {
			refundIDs = append(refundIDs, req.RefundID.String())
			<-ctx.Done()
			return ctx.Err()
		})

	res, err := f.usecase.RequestCancellation(context.Background(), b.ID, "cannot attend")
	assert.ErrorIs(t, err, entities.ErrRefundPending)
	assert.True(t, res.Retryable)
	assert.Equal(t, entities.RefundStatusProcessing, res.Refund.Status)

	_, err = f.usecase.RequestCancellation(context.Background(), b.ID, "cannot attend")
	assert.ErrorIs(t, err, entities.ErrRefundAlreadyExists)

	settled, err := f.usecase.ReconcileRefunds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, settled, "refund is not stale yet")

	f.clock.Advance(6 * time.Minute)
	f.payments.EXPECT().
		Refund(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req entities.RefundRequest) error {
			refundIDs = append(refundIDs, req.RefundID.String())
			return nil
		})

	settled, err = f.usecase.ReconcileRefunds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	require.Len(t, refundIDs, 2)
	assert.Equal(t, refundIDs[0], refundIDs[1], "retries reuse the deduplication id")

	got, err := f.usecase.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusRefunded, got.PaymentStatus)
	assert.Equal(t, 0, f.bookedSeats(t))
}

func TestRequestCancellation_after_deadline(t *testing.T) {
	f := newFixture(t, 10)
	f.allowRisk()
	f.acceptOrders()

	b := f.confirmed(t, 1)
	f.clock.Advance(60 * time.Hour)

	_, err := f.usecase.RequestCancellation(context.Background(), b.ID, "too late")
	assert.ErrorIs(t, err, entities.ErrNotCancellable)
	assert.Equal(t, entities.KindPolicy, entities.KindOf(err))

	refunds, err := f.store.RefundsForBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, refunds)
	assert.Equal(t, 1, f.bookedSeats(t))
}

func TestRequestCancellation_pending_booking(t *testing.T) {
	f := newFixture(t, 10)
	f.allowRisk()
	f.acceptOrders()

	b := f.start(t, 1)

	_, err := f.usecase.RequestCancellation(context.Background(), b.ID, "changed mind")
	assert.ErrorIs(t, err, entities.ErrInvalidState)
}
