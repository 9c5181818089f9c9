package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"reservations/internal/entities"
)

func (s *Store) AddEvent(ctx context.Context, event entities.Event) error {
	defer s.lock(ctx)()

	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("event %s: %w", event.ID, entities.ErrAlreadyExists)
	}
	s.events[event.ID] = event
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (entities.Event, error) {
	defer s.lock(ctx)()

	event, ok := s.events[id]
	if !ok {
		return entities.Event{}, fmt.Errorf("event %s: %w", id, entities.ErrNotFound)
	}
	return event, nil
}

func (s *Store) Reserve(ctx context.Context, id uuid.UUID, qty int) (entities.ReserveResult, error) {
	if qty < 1 {
		return entities.ReserveResult{}, fmt.Errorf("reserve %d seats: %w", qty, entities.ErrInvalidArgument)
	}

	defer s.lock(ctx)()

	event, ok := s.events[id]
	if !ok {
		return entities.ReserveResult{}, fmt.Errorf("event %s: %w", id, entities.ErrNotFound)
	}
	if event.BookedSeats+qty > event.TotalSeats {
		return entities.ReserveResult{OK: false, Event: event}, nil
	}

	event.BookedSeats += qty
	s.events[id] = event

	return entities.ReserveResult{OK: true, Event: event}, nil
}

func (s *Store) Release(ctx context.Context, id uuid.UUID, qty int) (entities.Event, error) {
	if qty < 1 {
		return entities.Event{}, fmt.Errorf("release %d seats: %w", qty, entities.ErrInvalidArgument)
	}

	defer s.lock(ctx)()

	event, ok := s.events[id]
	if !ok {
		return entities.Event{}, fmt.Errorf("event %s: %w", id, entities.ErrNotFound)
	}
	if qty > event.BookedSeats {
		return entities.Event{}, fmt.Errorf(
			"release %d seats of event %s with %d booked: %w",
			qty, id, event.BookedSeats, entities.ErrLedgerInvariant,
		)
	}

	event.BookedSeats -= qty
	s.events[id] = event

	return event, nil
}
