package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"reservations/internal/entities"
)

func (s *Store) AddBooking(ctx context.Context, booking entities.Booking) error {
	defer s.lock(ctx)()

	if _, ok := s.bookings[booking.ID]; ok {
		return fmt.Errorf("booking %s: %w", booking.ID, entities.ErrAlreadyExists)
	}
	if booking.IdempotencyKey != "" {
		for _, b := range s.bookings {
			if b.UserID == booking.UserID && b.IdempotencyKey == booking.IdempotencyKey {
				return fmt.Errorf("booking with idempotency key %s: %w", booking.IdempotencyKey, entities.ErrAlreadyExists)
			}
		}
	}

	s.bookings[booking.ID] = booking
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (entities.Booking, error) {
	defer s.lock(ctx)()

	b, ok := s.bookings[id]
	if !ok {
		return entities.Booking{}, fmt.Errorf("booking %s: %w", id, entities.ErrNotFound)
	}
	return b, nil
}

func (s *Store) GetBookingByIdempotencyKey(ctx context.Context, userID, key string) (entities.Booking, error) {
	defer s.lock(ctx)()

	for _, b := range s.bookings {
		if b.UserID == userID && b.IdempotencyKey == key {
			return b, nil
		}
	}
	return entities.Booking{}, fmt.Errorf("booking with idempotency key %s: %w", key, entities.ErrNotFound)
}

func (s *Store) UpdateBookingByID(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(booking entities.Booking) (entities.Booking, error),
) (entities.Booking, error) {
	defer s.lock(ctx)()

	b, ok := s.bookings[id]
	if !ok {
		return entities.Booking{}, fmt.Errorf("booking %s: %w", id, entities.ErrNotFound)
	}

	updated, err := updateFn(b)
	if err != nil {
		return entities.Booking{}, err
	}

	s.bookings[id] = updated
	return updated, nil
}

func (s *Store) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]entities.Booking, error) {
	defer s.lock(ctx)()

	var expired []entities.Booking
	for _, b := range s.bookings {
		if b.HoldExpired(now) {
			expired = append(expired, b)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].HoldExpiresAt.Before(expired[j].HoldExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	return expired, nil
}
