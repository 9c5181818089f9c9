package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"reservations/internal/entities"
)

// Store keeps all state behind one mutex. Do holds the mutex for the whole
// callback and restores a snapshot when it fails, which gives the same
// all-or-nothing behaviour as a database transaction.
type Store struct {
	mu sync.Mutex

	events   map[uuid.UUID]entities.Event
	bookings map[uuid.UUID]entities.Booking
	refunds  map[uuid.UUID]entities.Refund
	entries  map[uuid.UUID]entities.WaitlistEntry
	offers   map[uuid.UUID]entities.WaitlistOffer
	releases map[string]release
}

func NewStore() *Store {
	return &Store{
		events:   map[uuid.UUID]entities.Event{},
		bookings: map[uuid.UUID]entities.Booking{},
		refunds:  map[uuid.UUID]entities.Refund{},
		entries:  map[uuid.UUID]entities.WaitlistEntry{},
		offers:   map[uuid.UUID]entities.WaitlistOffer{},
		releases: map[string]release{},
	}
}

type txKey struct {
	store *Store
}

type tx struct {
	committed   bool
	afterCommit []func()
}

type snapshot struct {
	events   map[uuid.UUID]entities.Event
	bookings map[uuid.UUID]entities.Booking
	refunds  map[uuid.UUID]entities.Refund
	entries  map[uuid.UUID]entities.WaitlistEntry
	offers   map[uuid.UUID]entities.WaitlistOffer
	releases map[string]release
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := s.txFrom(ctx); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	snap := snapshot{
		events:   maps.Clone(s.events),
		bookings: maps.Clone(s.bookings),
		refunds:  maps.Clone(s.refunds),
		entries:  maps.Clone(s.entries),
		offers:   maps.Clone(s.offers),
		releases: maps.Clone(s.releases),
	}

	t := &tx{}
	err := fn(context.WithValue(ctx, txKey{store: s}, t))
	if err != nil {
		s.events = snap.events
		s.bookings = snap.bookings
		s.refunds = snap.refunds
		s.entries = snap.entries
		s.offers = snap.offers
		s.releases = snap.releases
		s.mu.Unlock()
		return err
	}
	t.committed = true
	s.mu.Unlock()

	for _, f := range t.afterCommit {
		f()
	}

	return nil
}

func (s *Store) txFrom(ctx context.Context) (*tx, bool) {
	t, ok := ctx.Value(txKey{store: s}).(*tx)
	if !ok || t.committed {
		return nil, false
	}
	return t, true
}

// lock takes the mutex unless ctx already runs inside Do.
func (s *Store) lock(ctx context.Context) func() {
	if _, ok := s.txFrom(ctx); ok {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}
