package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"reservations/internal/entities"
	"reservations/internal/repository"
)

var (
	db        *sqlx.DB
	dbErr     error
	getDbOnce sync.Once
)

// getDb connects to POSTGRES_URL, or starts a container when
// TESTCONTAINERS=true. Without either the integration tests are skipped.
func getDb(t *testing.T) *sqlx.DB {
	t.Helper()

	url := os.Getenv("POSTGRES_URL")
	if url == "" && os.Getenv("TESTCONTAINERS") != "true" {
		t.Skip("POSTGRES_URL is not set")
	}

	getDbOnce.Do(func() {
		if url == "" {
			url, dbErr = startPostgresContainer()
			if dbErr != nil {
				return
			}
		}

		db, dbErr = sqlx.Open("postgres", url)
		if dbErr != nil {
			return
		}
		dbErr = repository.InitializeDBSchema(db)
	})
	require.NoError(t, dbErr)

	return db
}

func startPostgresContainer() (string, error) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "user",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "db",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("postgres://user:password@%s:%s/db?sslmode=disable", host, port.Port()), nil
}

type repos struct {
	tx       *repository.Transactor
	events   *repository.EventsRepository
	bookings *repository.BookingsRepository
	refunds  *repository.RefundsRepository
	waitlist *repository.WaitlistRepository
	datalake *repository.DatalakeRepository
}

func newRepos(t *testing.T) repos {
	db := getDb(t)
	tx := repository.NewTransactor(db)
	getter := trmsqlx.DefaultCtxGetter

	return repos{
		tx:       tx,
		events:   repository.NewEventsRepository(db, getter),
		bookings: repository.NewBookingsRepository(db, getter, tx),
		refunds:  repository.NewRefundsRepository(db, getter, tx),
		waitlist: repository.NewWaitlistRepository(db, getter, tx),
		datalake: repository.NewDatalakeRepository(db),
	}
}

func addEvent(t *testing.T, r repos, seats int) entities.Event {
	t.Helper()

	event := entities.Event{
		ID:                        uuid.New(),
		Title:                     "Concert",
		TotalSeats:                seats,
		UnitPrice:                 50000,
		Currency:                  "INR",
		StartsAt:                  time.Now().UTC().Add(72 * time.Hour).Truncate(time.Microsecond),
		AllowCancellation:         true,
		CancellationDeadlineHours: 24,
		CancellationFeeFlat:       50,
		CreatedAt:                 time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, r.events.AddEvent(context.Background(), event))

	return event
}

func newBooking(event entities.Event, seats int, key string) entities.Booking {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return entities.Booking{
		ID:             uuid.New(),
		EventID:        event.ID,
		UserID:         "user-1",
		Email:          "user@example.com",
		Seats:          seats,
		UnitPrice:      event.UnitPrice,
		Currency:       event.Currency,
		Status:         entities.BookingStatusPending,
		PaymentStatus:  entities.PaymentStatusPending,
		RiskAction:     entities.RiskActionAllow,
		IdempotencyKey: key,
		HoldExpiresAt:  now.Add(15 * time.Minute),
		CreatedAt:      now,
	}
}

func TestEventsRepository_reserve_never_oversells(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	event := addEvent(t, r, 10)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.events.Reserve(ctx, event.ID, 1)
			assert.NoError(t, err)
			if res.OK {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)

	got, err := r.events.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.BookedSeats)
	assert.True(t, got.IsSoldOut())
}

func TestEventsRepository_release(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	event := addEvent(t, r, 5)

	res, err := r.events.Reserve(ctx, event.ID, 3)
	require.NoError(t, err)
	require.True(t, res.OK)

	got, err := r.events.Release(ctx, event.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, got.BookedSeats)

	_, err = r.events.Release(ctx, event.ID, 2)
	assert.ErrorIs(t, err, entities.ErrLedgerInvariant)

	_, err = r.events.GetEvent(ctx, uuid.New())
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestBookingsRepository(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	event := addEvent(t, r, 5)

	key := uuid.NewString()
	b := newBooking(event, 2, key)
	b.RiskTags = []string{"velocity"}
	b.Fees = entities.FeeBreakdown{Subtotal: 100000, ConvenienceFee: 2500, PlatformFee: 2000, GST: 810, FinalAmount: 105310}
	require.NoError(t, r.bookings.AddBooking(ctx, b))

	dup := newBooking(event, 1, key)
	assert.ErrorIs(t, r.bookings.AddBooking(ctx, dup), entities.ErrAlreadyExists)

	// keys belong to the user
	otherUser := newBooking(event, 1, key)
	otherUser.UserID = "user-2"
	require.NoError(t, r.bookings.AddBooking(ctx, otherUser))

	// bookings without a key do not collide
	require.NoError(t, r.bookings.AddBooking(ctx, newBooking(event, 1, "")))
	require.NoError(t, r.bookings.AddBooking(ctx, newBooking(event, 1, "")))

	got, err := r.bookings.GetBookingByIdempotencyKey(ctx, "user-2", key)
	require.NoError(t, err)
	assert.Equal(t, otherUser.ID, got.ID)

	_, err = r.bookings.GetBookingByIdempotencyKey(ctx, "user-3", key)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	got, err = r.bookings.GetBookingByIdempotencyKey(ctx, "user-1", key)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, b.Fees, got.Fees)
	assert.Equal(t, []string{"velocity"}, got.RiskTags)

	now := time.Now().UTC().Truncate(time.Microsecond)
	updated, err := r.bookings.UpdateBookingByID(ctx, b.ID, func(b entities.Booking) (entities.Booking, error) {
		b.Status = entities.BookingStatusConfirmed
		b.PaymentStatus = entities.PaymentStatusCompleted
		b.PaymentRef = "pay_1"
		b.ConfirmedAt = &now
		return b, nil
	})
	require.NoError(t, err)
	assert.True(t, updated.IsConfirmed())

	got, err = r.bookings.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", got.PaymentRef)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, now.Equal(*got.ConfirmedAt))

	_, err = r.bookings.UpdateBookingByID(ctx, b.ID, func(b entities.Booking) (entities.Booking, error) {
		return b, entities.ErrInvalidState
	})
	assert.ErrorIs(t, err, entities.ErrInvalidState)

	_, err = r.bookings.GetBooking(ctx, uuid.New())
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestBookingsRepository_ListExpiredHolds(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	event := addEvent(t, r, 5)

	expired := newBooking(event, 1, "")
	expired.HoldExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, r.bookings.AddBooking(ctx, expired))

	fresh := newBooking(event, 1, "")
	require.NoError(t, r.bookings.AddBooking(ctx, fresh))

	holds, err := r.bookings.ListExpiredHolds(ctx, time.Now().UTC(), 1000)
	require.NoError(t, err)

	var ids []uuid.UUID
	for _, h := range holds {
		ids = append(ids, h.ID)
	}
	assert.Contains(t, ids, expired.ID)
	assert.NotContains(t, ids, fresh.ID)
}

func TestRefundsRepository(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	event := addEvent(t, r, 5)

	b := newBooking(event, 2, "")
	require.NoError(t, r.bookings.AddBooking(ctx, b))

	old := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	refund := entities.Refund{
		ID:         uuid.New(),
		BookingID:  b.ID,
		EventID:    event.ID,
		Seats:      2,
		Amount:     1950,
		FlatFee:    50,
		Currency:   "INR",
		PaymentRef: "pay_1",
		Status:     entities.RefundStatusProcessing,
		CreatedAt:  old,
		UpdatedAt:  old,
	}
	require.NoError(t, r.refunds.AddRefund(ctx, refund))

	second := refund
	second.ID = uuid.New()
	assert.ErrorIs(t, r.refunds.AddRefund(ctx, second), entities.ErrRefundAlreadyExists)

	stale, err := r.refunds.ListStaleRefunds(ctx, time.Now().UTC().Add(-time.Minute), 1000)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, s := range stale {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, refund.ID)

	failed, err := r.refunds.UpdateRefundByID(ctx, refund.ID, func(r entities.Refund) (entities.Refund, error) {
		r.Status = entities.RefundStatusFailed
		r.FailureReason = "declined"
		r.UpdatedAt = time.Now().UTC()
		return r, nil
	})
	require.NoError(t, err)
	assert.Equal(t, entities.RefundStatusFailed, failed.Status)

	// a failed refund can be requested again
	require.NoError(t, r.refunds.AddRefund(ctx, second))

	got, err := r.refunds.GetRefund(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, "declined", got.FailureReason)
	assert.Equal(t, "pay_1", got.PaymentRef)
}

func TestWaitlistRepository_queue(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	event := addEvent(t, r, 1)

	base := time.Now().UTC().Truncate(time.Microsecond)
	var entries []entities.WaitlistEntry
	for i := 0; i < 3; i++ {
		e := entities.WaitlistEntry{
			ID:        uuid.New(),
			EventID:   event.ID,
			Email:     fmt.Sprintf("fan%d@example.com", i),
			Status:    entities.WaitlistStatusActive,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, r.waitlist.AddEntry(ctx, e))
		entries = append(entries, e)
	}

	dup := entries[0]
	dup.ID = uuid.New()
	assert.ErrorIs(t, r.waitlist.AddEntry(ctx, dup), entities.ErrAlreadyExists)

	next, err := r.waitlist.NextActiveEntry(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, entries[0].ID, next.ID)

	// a locked head is skipped by a concurrent issuer
	err = r.tx.Do(ctx, func(txCtx context.Context) error {
		head, err := r.waitlist.NextActiveEntry(txCtx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, entries[0].ID, head.ID)

		other, err := r.waitlist.NextActiveEntry(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, entries[1].ID, other.ID)
		return nil
	})
	require.NoError(t, err)

	found, err := r.waitlist.FindOpenEntry(ctx, event.ID, entries[2].Email)
	require.NoError(t, err)
	assert.Equal(t, entries[2].ID, found.ID)
}

func TestWaitlistRepository_offers(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	event := addEvent(t, r, 1)

	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := entities.WaitlistEntry{
		ID:        uuid.New(),
		EventID:   event.ID,
		Email:     "fan@example.com",
		Status:    entities.WaitlistStatusActive,
		CreatedAt: now,
	}
	require.NoError(t, r.waitlist.AddEntry(ctx, entry))

	_, err := r.waitlist.UpdateEntryByID(ctx, entry.ID, func(e entities.WaitlistEntry) (entities.WaitlistEntry, error) {
		e.Status = entities.WaitlistStatusInvited
		e.InvitedAt = &now
		return e, nil
	})
	require.NoError(t, err)

	offer := entities.WaitlistOffer{
		ID:        uuid.New(),
		EventID:   event.ID,
		EntryID:   entry.ID,
		Quantity:  1,
		Status:    entities.OfferStatusPending,
		ExpiresAt: now.Add(-time.Second),
		CreatedAt: now.Add(-time.Minute),
	}
	require.NoError(t, r.waitlist.AddOffer(ctx, offer))

	second := offer
	second.ID = uuid.New()
	assert.ErrorIs(t, r.waitlist.AddOffer(ctx, second), entities.ErrAlreadyExists)

	pending, err := r.waitlist.FindPendingOffer(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, offer.ID, pending.ID)

	expired, err := r.waitlist.ListExpiredOffers(ctx, now, 1000)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, o := range expired {
		ids = append(ids, o.ID)
	}
	assert.Contains(t, ids, offer.ID)

	got, err := r.waitlist.UpdateOfferByID(ctx, offer.ID, func(o entities.WaitlistOffer) (entities.WaitlistOffer, error) {
		o.Status = entities.OfferStatusExpired
		o.ExpiredAt = &now
		return o, nil
	})
	require.NoError(t, err)
	assert.Equal(t, entities.OfferStatusExpired, got.Status)

	_, err = r.waitlist.FindPendingOffer(ctx, entry.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestWaitlistRepository_TakeReleaseSlot(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	event := addEvent(t, r, 1)
	releaseKey := "seats-released-" + uuid.NewString()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.tx.Do(ctx, func(ctx context.Context) error {
				ok, err := r.waitlist.TakeReleaseSlot(ctx, releaseKey, event.ID, 2)
				if err != nil || !ok {
					return err
				}
				mu.Lock()
				taken++
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, taken)

	// a rolled back slot can be taken again
	other := "seats-released-" + uuid.NewString()
	rollback := errors.New("rollback")
	err := r.tx.Do(ctx, func(ctx context.Context) error {
		ok, err := r.waitlist.TakeReleaseSlot(ctx, other, event.ID, 1)
		require.NoError(t, err)
		require.True(t, ok)
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	ok, err := r.waitlist.TakeReleaseSlot(ctx, other, event.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDatalakeRepository(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	event := entities.DatalakeEvent{
		Id:          uuid.New(),
		PublishedAt: time.Now().UTC().Truncate(time.Microsecond),
		EventName:   "BookingHeld_v1",
		Payload:     []byte(`{"booking_id":"1"}`),
	}
	require.NoError(t, r.datalake.SaveEvent(ctx, event))
	// redelivery is ignored
	require.NoError(t, r.datalake.SaveEvent(ctx, event))

	events, err := r.datalake.ListEvents(ctx)
	require.NoError(t, err)

	count := 0
	for _, e := range events {
		if e.Id == event.Id {
			count++
			assert.JSONEq(t, string(event.Payload), string(e.Payload))
		}
	}
	assert.Equal(t, 1, count)
}
