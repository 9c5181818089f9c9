package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/application/usecases/waitlist"
	"reservations/internal/entities"
	"reservations/internal/interfaces/message/events"
	"reservations/internal/interfaces/message/events/mocks"
	"reservations/internal/repository/memory"
)

type handlerMocks struct {
	spreadsheets *mocks.MockSpreadsheetsService
	receipts     *mocks.MockReceiptsService
	offers       *mocks.MockOfferIssuer
	handler      *events.Handler
}

func newHandler(t *testing.T) handlerMocks {
	ctrl := gomock.NewController(t)
	m := handlerMocks{
		spreadsheets: mocks.NewMockSpreadsheetsService(ctrl),
		receipts:     mocks.NewMockReceiptsService(ctrl),
		offers:       mocks.NewMockOfferIssuer(ctrl),
	}
	m.handler = events.NewHandler(m.spreadsheets, m.receipts, m.offers)
	return m
}

func TestIssueWaitlistOffersHandler(t *testing.T) {
	m := newHandler(t)
	ctx := context.Background()
	eventID := uuid.New()

	m.offers.EXPECT().
		IssueOffers(gomock.Any(), eventID, 2, "seats-released-b1").
		Return([]entities.WaitlistOffer{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

	err := m.handler.IssueWaitlistOffersHandler().Handle(ctx, &entities.SeatsReleased_v1{
		Header:   entities.NewEventHeaderWithIdempotencyKey("seats-released-b1"),
		EventID:  eventID.String(),
		Quantity: 2,
		Reason:   entities.CancelReasonRefundCompleted,
	})
	require.NoError(t, err)
}

func TestIssueWaitlistOffersHandler_errors(t *testing.T) {
	m := newHandler(t)
	ctx := context.Background()

	err := m.handler.IssueWaitlistOffersHandler().Handle(ctx, &entities.SeatsReleased_v1{
		EventID:  "not-a-uuid",
		Quantity: 1,
	})
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)
	assert.True(t, events.IsPoisonous(err))

	err = m.handler.IssueWaitlistOffersHandler().Handle(ctx, &entities.SeatsReleased_v1{
		EventID:  uuid.NewString(),
		Quantity: 1,
	})
	assert.ErrorIs(t, err, entities.ErrInvalidArgument, "nothing to deduplicate the release on")

	upstream := errors.New("db down")
	m.offers.EXPECT().IssueOffers(gomock.Any(), gomock.Any(), 1, "seats-released-b2").Return(nil, upstream)

	err = m.handler.IssueWaitlistOffersHandler().Handle(ctx, &entities.SeatsReleased_v1{
		EventID:   uuid.NewString(),
		BookingID: "b2",
		Quantity:  1,
	})
	assert.ErrorIs(t, err, upstream)
	assert.False(t, events.IsPoisonous(err))
}

func TestIssueWaitlistOffersHandler_redelivery(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := memory.NewStore()
	outbox := store.Outbox(nopPublisher{})

	event := entities.Event{ID: uuid.New(), TotalSeats: 10, BookedSeats: 10}
	require.NoError(t, store.AddEvent(ctx, event))

	waitlists := waitlist.NewUsecase(store, store, store, outbox, waitlist.Config{})
	for i := 0; i < 5; i++ {
		_, err := waitlists.Join(ctx, waitlist.JoinRequest{EventID: event.ID, Email: uuid.NewString() + "@example.com"})
		require.NoError(t, err)
	}

	handler := events.NewHandler(mocks.NewMockSpreadsheetsService(ctrl), mocks.NewMockReceiptsService(ctrl), waitlists)
	released := &entities.SeatsReleased_v1{
		Header:    entities.NewEventHeaderWithIdempotencyKey("seats-released-b1"),
		EventID:   event.ID.String(),
		BookingID: "b1",
		Quantity:  2,
		Reason:    entities.CancelReasonUserCancelled,
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, handler.IssueWaitlistOffersHandler().Handle(ctx, released))
	}

	assert.Len(t, store.OffersForEvent(ctx, event.ID), 2)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, any) error { return nil }

func TestIssueReceiptHandler(t *testing.T) {
	m := newHandler(t)

	m.receipts.EXPECT().
		IssueReceipt(gomock.Any(), entities.IssueReceiptRequest{
			BookingID:      "booking-1",
			Amount:         105310,
			Currency:       "INR",
			IdempotencyKey: "booking-confirmed-booking-1",
		}).
		Return(&entities.IssueReceiptResponse{ReceiptNumber: "R-1", IssuedAt: time.Now()}, nil)

	err := m.handler.IssueReceiptHandler().Handle(context.Background(), &entities.BookingConfirmed_v1{
		Header:      entities.NewEventHeaderWithIdempotencyKey("booking-confirmed-booking-1"),
		BookingID:   "booking-1",
		FinalAmount: 105310,
		Currency:    "INR",
	})
	require.NoError(t, err)
}

func TestConfirmedBookingsTrackerHandler(t *testing.T) {
	m := newHandler(t)
	confirmedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	m.spreadsheets.EXPECT().
		AppendRow(gomock.Any(), entities.AppendToTrackerRequest{
			SpreadsheetName: events.SheetBookingsConfirmed,
			Rows: []string{
				"booking-1", "event-1", "user-1", "user@example.com", "2", "105310", "INR", "2026-05-01T12:00:00Z",
			},
		}).
		Return(nil)

	err := m.handler.ConfirmedBookingsTrackerHandler().Handle(context.Background(), &entities.BookingConfirmed_v1{
		BookingID:   "booking-1",
		EventID:     "event-1",
		UserID:      "user-1",
		Email:       "user@example.com",
		Seats:       2,
		FinalAmount: 105310,
		Currency:    "INR",
		ConfirmedAt: confirmedAt,
	})
	require.NoError(t, err)
}

func TestWaitlistOffersTrackerHandler(t *testing.T) {
	m := newHandler(t)
	expiresAt := time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)

	m.spreadsheets.EXPECT().
		AppendRow(gomock.Any(), entities.AppendToTrackerRequest{
			SpreadsheetName: events.SheetWaitlistOffers,
			Rows:            []string{"offer-1", "event-1", "fan@example.com", "+100", "1", "2026-05-01T12:30:00Z"},
		}).
		Return(nil)

	err := m.handler.WaitlistOffersTrackerHandler().Handle(context.Background(), &entities.WaitlistOfferIssued_v1{
		OfferID:   "offer-1",
		EventID:   "event-1",
		Email:     "fan@example.com",
		Phone:     "+100",
		Quantity:  1,
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
}

func TestHandlers_names_are_unique(t *testing.T) {
	m := newHandler(t)

	names := map[string]bool{}
	for _, h := range m.handler.Handlers() {
		assert.False(t, names[h.HandlerName()], h.HandlerName())
		names[h.HandlerName()] = true
	}
	assert.Len(t, names, 6)
}
