package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/entities"
	"reservations/internal/repository/memory"
)

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

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func addEvent(t *testing.T, s *memory.Store, totalSeats int) entities.Event {
	t.Helper()

	event := entities.Event{ID: uuid.New(), TotalSeats: totalSeats, UnitPrice: 1000}
	require.NoError(t, s.AddEvent(context.Background(), event))
	return event
}

func TestStore_Reserve_respects_capacity(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	event := addEvent(t, s, 3)

	res, err := s.Reserve(ctx, event.ID, 2)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.Event.BookedSeats)

	res, err = s.Reserve(ctx, event.ID, 2)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 1, res.Event.Remaining())

	_, err = s.Reserve(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestStore_Reserve_concurrent(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	event := addEvent(t, s, 50)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for i := 0; i < 100; i++ {
		qty := i%3 + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Reserve(ctx, event.ID, qty)
			if err != nil || !res.OK {
				return
			}
			mu.Lock()
			reserved += qty
			mu.Unlock()
		}()
	}
	wg.Wait()

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, reserved, got.BookedSeats)
	assert.LessOrEqual(t, got.BookedSeats, got.TotalSeats)
}

func TestStore_Release_more_than_booked(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	event := addEvent(t, s, 5)

	_, err := s.Reserve(ctx, event.ID, 2)
	require.NoError(t, err)

	_, err = s.Release(ctx, event.ID, 3)
	assert.ErrorIs(t, err, entities.ErrLedgerInvariant)

	got, err := s.Release(ctx, event.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BookedSeats)
}

func TestStore_Do_rolls_back(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	event := addEvent(t, s, 5)
	pub := &recordingPublisher{}
	outbox := s.Outbox(pub)

	errBoom := errors.New("boom")
	err := s.Do(ctx, func(ctx context.Context) error {
		_, err := s.Reserve(ctx, event.ID, 4)
		require.NoError(t, err)
		require.NoError(t, outbox.Publish(ctx, "reserved"))
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BookedSeats)
	assert.Equal(t, 0, pub.count(), "events of a rolled back unit must not be published")
}

func TestStore_Do_publishes_after_commit(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	event := addEvent(t, s, 5)
	pub := &recordingPublisher{}
	outbox := s.Outbox(pub)

	err := s.Do(ctx, func(ctx context.Context) error {
		if _, err := s.Reserve(ctx, event.ID, 1); err != nil {
			return err
		}
		if err := outbox.Publish(ctx, "reserved"); err != nil {
			return err
		}
		assert.Equal(t, 0, pub.count())

		// nested units join the outer one
		return s.Do(ctx, func(ctx context.Context) error {
			_, err := s.Reserve(ctx, event.ID, 1)
			return err
		})
	})
	require.NoError(t, err)

	assert.Equal(t, 1, pub.count())
	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.BookedSeats)
}

func TestStore_waitlist_uniqueness(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	eventID := uuid.New()

	entry := entities.WaitlistEntry{ID: uuid.New(), EventID: eventID, Email: "a@example.com", Status: entities.WaitlistStatusActive}
	require.NoError(t, s.AddEntry(ctx, entry))

	dup := entry
	dup.ID = uuid.New()
	assert.ErrorIs(t, s.AddEntry(ctx, dup), entities.ErrAlreadyExists)

	offer := entities.WaitlistOffer{ID: uuid.New(), EventID: eventID, EntryID: entry.ID, Quantity: 1, Status: entities.OfferStatusPending}
	require.NoError(t, s.AddOffer(ctx, offer))

	second := offer
	second.ID = uuid.New()
	assert.ErrorIs(t, s.AddOffer(ctx, second), entities.ErrAlreadyExists)
}

func TestStore_AddRefund_one_open_per_booking(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	bookingID := uuid.New()

	first := entities.Refund{ID: uuid.New(), BookingID: bookingID, Status: entities.RefundStatusProcessing}
	require.NoError(t, s.AddRefund(ctx, first))

	err := s.AddRefund(ctx, entities.Refund{ID: uuid.New(), BookingID: bookingID, Status: entities.RefundStatusApproved})
	assert.ErrorIs(t, err, entities.ErrRefundAlreadyExists)

	_, err = s.UpdateRefundByID(ctx, first.ID, func(r entities.Refund) (entities.Refund, error) {
		r.Status = entities.RefundStatusFailed
		return r, nil
	})
	require.NoError(t, err)

	assert.NoError(t, s.AddRefund(ctx, entities.Refund{ID: uuid.New(), BookingID: bookingID, Status: entities.RefundStatusApproved}))
}
