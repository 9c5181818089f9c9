package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"reservations/internal/entities"
)

func (s *Store) AddRefund(ctx context.Context, refund entities.Refund) error {
	defer s.lock(ctx)()

	for _, r := range s.refunds {
		if r.BookingID == refund.BookingID && !r.Status.IsTerminal() {
			return fmt.Errorf("booking %s has refund %s: %w", refund.BookingID, r.ID, entities.ErrRefundAlreadyExists)
		}
	}

	s.refunds[refund.ID] = refund
	return nil
}

func (s *Store) GetRefund(ctx context.Context, id uuid.UUID) (entities.Refund, error) {
	defer s.lock(ctx)()

	r, ok := s.refunds[id]
	if !ok {
		return entities.Refund{}, fmt.Errorf("refund %s: %w", id, entities.ErrNotFound)
	}
	return r, nil
}

func (s *Store) UpdateRefundByID(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(refund entities.Refund) (entities.Refund, error),
) (entities.Refund, error) {
	defer s.lock(ctx)()

	r, ok := s.refunds[id]
	if !ok {
		return entities.Refund{}, fmt.Errorf("refund %s: %w", id, entities.ErrNotFound)
	}

	updated, err := updateFn(r)
	if err != nil {
		return entities.Refund{}, err
	}

	s.refunds[id] = updated
	return updated, nil
}

// ListStaleRefunds returns APPROVED and PROCESSING refunds not touched since updatedBefore.
func (s *Store) ListStaleRefunds(ctx context.Context, updatedBefore time.Time, limit int) ([]entities.Refund, error) {
	defer s.lock(ctx)()

	var stale []entities.Refund
	for _, r := range s.refunds {
		if r.Status.IsTerminal() || r.Status == entities.RefundStatusPending {
			continue
		}
		if r.UpdatedAt.Before(updatedBefore) {
			stale = append(stale, r)
		}
	}

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}

	return stale, nil
}

// RefundsForBooking is used by tests and the HTTP booking view.
func (s *Store) RefundsForBooking(ctx context.Context, bookingID uuid.UUID) ([]entities.Refund, error) {
	defer s.lock(ctx)()

	var refunds []entities.Refund
	for _, r := range s.refunds {
		if r.BookingID == bookingID {
			refunds = append(refunds, r)
		}
	}

	sort.Slice(refunds, func(i, j int) bool {
		return refunds[i].CreatedAt.Before(refunds[j].CreatedAt)
	})

	return refunds, nil
}
