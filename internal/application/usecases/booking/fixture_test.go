package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"reservations/internal/application/usecases/booking"
	"reservations/internal/application/usecases/booking/mocks"
	"reservations/internal/entities"
	"reservations/internal/repository/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func published[T any](p *recordingPublisher) []T {
	p.mu.Lock()
	defer p.mu.Unlock()

	var found []T
	for _, e := range p.events {
		if typed, ok := e.(T); ok {
			found = append(found, typed)
		}
	}
	return found
}

type fakeTickets struct{}

func (fakeTickets) Issue(b entities.Booking) (string, error) {
	return "ticket-" + b.ID.String(), nil
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	risk      *mocks.MockRiskEvaluator
	payments  *mocks.MockPaymentsProvider
	clock     *clock
	usecase   *booking.Usecase
	event     entities.Event
}

func newFixture(t *testing.T, totalSeats int) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := memory.NewStore()
	publisher := &recordingPublisher{}
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	config := booking.DefaultConfig()
	config.Now = clk.Now
	config.RiskTimeout = 50 * time.Millisecond
	config.RiskRetryInterval = time.Millisecond
	config.PaymentTimeout = 100 * time.Millisecond

	f := &fixture{
		store:     store,
		publisher: publisher,
		risk:      mocks.NewMockRiskEvaluator(ctrl),
		payments:  mocks.NewMockPaymentsProvider(ctrl),
		clock:     clk,
	}
	f.usecase = booking.NewUsecase(
		store,
		store,
		store,
		store,
		store.Outbox(publisher),
		f.risk,
		f.payments,
		fakeTickets{},
		config,
	)

	f.event = entities.Event{
		ID:                        uuid.New(),
		Title:                     "Concert",
		TotalSeats:                totalSeats,
		UnitPrice:                 1000,
		Currency:                  "INR",
		StartsAt:                  clk.now.Add(72 * time.Hour),
		AllowCancellation:         true,
		CancellationDeadlineHours: 24,
		CancellationFeeFlat:       50,
	}
	require.NoError(t, store.AddEvent(context.Background(), f.event))

	return f
}

func (f *fixture) allowRisk() {
	f.risk.EXPECT().
		Evaluate(gomock.Any(), gomock.Any()).
		Return(entities.RiskDecision{Action: entities.RiskActionAllow, Score: 5}, nil).
		AnyTimes()
}

func (f *fixture) acceptOrders() {
	f.payments.EXPECT().
		CreateOrder(gomock.Any(), gomock.Any()).
		Return("order_test", nil).
		AnyTimes()
}

func (f *fixture) start(t *testing.T, seats int) entities.Booking {
	t.Helper()

	res, err := f.usecase.Start(context.Background(), booking.StartRequest{
		EventID: f.event.ID,
		UserID:  uuid.NewString(),
		Email:   "user@example.com",
		Seats:   seats,
	})
	require.NoError(t, err)
	return res.Booking
}

func (f *fixture) confirmed(t *testing.T, seats int) entities.Booking {
	t.Helper()

	b := f.start(t, seats)
	b, err := f.usecase.Confirm(context.Background(), b.ID, "pay_"+b.ID.String())
	require.NoError(t, err)
	return b
}

func (f *fixture) bookedSeats(t *testing.T) int {
	t.Helper()

	event, err := f.store.GetEvent(context.Background(), f.event.ID)
	require.NoError(t, err)
	return event.BookedSeats
}
