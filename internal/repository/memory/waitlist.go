package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"reservations/internal/entities"
)

func (s *Store) AddEntry(ctx context.Context, entry entities.WaitlistEntry) error {
	defer s.lock(ctx)()

	for _, e := range s.entries {
		if e.EventID == entry.EventID && e.Email == entry.Email && e.Status.IsOpen() {
			return fmt.Errorf("open waitlist entry for %s: %w", entry.Email, entities.ErrAlreadyExists)
		}
	}

	s.entries[entry.ID] = entry
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (entities.WaitlistEntry, error) {
	defer s.lock(ctx)()

	e, ok := s.entries[id]
	if !ok {
		return entities.WaitlistEntry{}, fmt.Errorf("waitlist entry %s: %w", id, entities.ErrNotFound)
	}
	return e, nil
}

func (s *Store) FindOpenEntry(ctx context.Context, eventID uuid.UUID, email string) (entities.WaitlistEntry, error) {
	defer s.lock(ctx)()

	for _, e := range s.entries {
		if e.EventID == eventID && e.Email == email && e.Status.IsOpen() {
			return e, nil
		}
	}
	return entities.WaitlistEntry{}, fmt.Errorf("open waitlist entry for %s: %w", email, entities.ErrNotFound)
}

func (s *Store) FindLatestEntry(ctx context.Context, eventID uuid.UUID, email string) (entities.WaitlistEntry, error) {
	defer s.lock(ctx)()

	var (
		latest entities.WaitlistEntry
		found  bool
	)
	for _, e := range s.entries {
		if e.EventID != eventID || e.Email != email {
			continue
		}
		if !found || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
			found = true
		}
	}
	if !found {
		return entities.WaitlistEntry{}, fmt.Errorf("waitlist entry for %s: %w", email, entities.ErrNotFound)
	}
	return latest, nil
}

func (s *Store) NextActiveEntry(ctx context.Context, eventID uuid.UUID) (entities.WaitlistEntry, error) {
	defer s.lock(ctx)()

	var active []entities.WaitlistEntry
	for _, e := range s.entries {
		if e.EventID == eventID && e.Status == entities.WaitlistStatusActive {
			active = append(active, e)
		}
	}
	if len(active) == 0 {
		return entities.WaitlistEntry{}, fmt.Errorf("active waitlist entry for event %s: %w", eventID, entities.ErrNotFound)
	}

	sort.Slice(active, func(i, j int) bool {
		return entryBefore(active[i], active[j])
	})

	return active[0], nil
}

// entryBefore orders entries by join time, then by id.
func entryBefore(a, b entities.WaitlistEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func (s *Store) UpdateEntryByID(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(entry entities.WaitlistEntry) (entities.WaitlistEntry, error),
) (entities.WaitlistEntry, error) {
	defer s.lock(ctx)()

	e, ok := s.entries[id]
	if !ok {
		return entities.WaitlistEntry{}, fmt.Errorf("waitlist entry %s: %w", id, entities.ErrNotFound)
	}

	updated, err := updateFn(e)
	if err != nil {
		return entities.WaitlistEntry{}, err
	}

	s.entries[id] = updated
	return updated, nil
}

func (s *Store) AddOffer(ctx context.Context, offer entities.WaitlistOffer) error {
	defer s.lock(ctx)()

	for _, o := range s.offers {
		if o.EntryID == offer.EntryID && o.Status == entities.OfferStatusPending {
			return fmt.Errorf("pending offer for entry %s: %w", offer.EntryID, entities.ErrAlreadyExists)
		}
	}

	s.offers[offer.ID] = offer
	return nil
}

func (s *Store) GetOffer(ctx context.Context, id uuid.UUID) (entities.WaitlistOffer, error) {
	defer s.lock(ctx)()

	o, ok := s.offers[id]
	if !ok {
		return entities.WaitlistOffer{}, fmt.Errorf("waitlist offer %s: %w", id, entities.ErrNotFound)
	}
	return o, nil
}

func (s *Store) FindPendingOffer(ctx context.Context, entryID uuid.UUID) (entities.WaitlistOffer, error) {
	defer s.lock(ctx)()

	for _, o := range s.offers {
		if o.EntryID == entryID && o.Status == entities.OfferStatusPending {
			return o, nil
		}
	}
	return entities.WaitlistOffer{}, fmt.Errorf("pending offer for entry %s: %w", entryID, entities.ErrNotFound)
}

func (s *Store) UpdateOfferByID(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(offer entities.WaitlistOffer) (entities.WaitlistOffer, error),
) (entities.WaitlistOffer, error) {
	defer s.lock(ctx)()

	o, ok := s.offers[id]
	if !ok {
		return entities.WaitlistOffer{}, fmt.Errorf("waitlist offer %s: %w", id, entities.ErrNotFound)
	}

	updated, err := updateFn(o)
	if err != nil {
		return entities.WaitlistOffer{}, err
	}

	s.offers[id] = updated
	return updated, nil
}

func (s *Store) ListExpiredOffers(ctx context.Context, now time.Time, limit int) ([]entities.WaitlistOffer, error) {
	defer s.lock(ctx)()

	var expired []entities.WaitlistOffer
	for _, o := range s.offers {
		if o.Expired(now) {
			expired = append(expired, o)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	return expired, nil
}

type release struct {
	quantity int
	issued   int
}

func (s *Store) TakeReleaseSlot(ctx context.Context, releaseKey string, eventID uuid.UUID, quantity int) (bool, error) {
	defer s.lock(ctx)()

	r, ok := s.releases[releaseKey]
	if !ok {
		r = release{quantity: quantity}
	}
	if r.issued >= r.quantity {
		return false, nil
	}

	r.issued++
	s.releases[releaseKey] = r
	return true, nil
}

// OffersForEvent is used by tests to check that one offer exists per entry.
func (s *Store) OffersForEvent(ctx context.Context, eventID uuid.UUID) []entities.WaitlistOffer {
	defer s.lock(ctx)()

	var offers []entities.WaitlistOffer
	for _, o := range s.offers {
		if o.EventID == eventID {
			offers = append(offers, o)
		}
	}
	return offers
}
