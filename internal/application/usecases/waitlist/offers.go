package waitlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"reservations/internal/entities"
	"reservations/internal/observability"
)

var (
	errNothingToDo  = errors.New("nothing to do")
	errOfferLapsed  = errors.New("offer lapsed")
	errReleaseSpent = errors.New("release already offered")
)

// IssueOffers invites up to quantity ACTIVE entries in the order they
// joined, one seat each. Every invitation commits on its own, so a failure
// leaves the invitations issued before it intact.
//
// releaseKey identifies the seats being handed out. Offers already issued
// under the same key count against quantity, so a redelivered or retried
// release never invites more entries than seats were freed.
func (u *Usecase) IssueOffers(ctx context.Context, eventID uuid.UUID, quantity int, releaseKey string) ([]entities.WaitlistOffer, error) {
	if releaseKey == "" {
		return nil, fmt.Errorf("release key is required: %w", entities.ErrInvalidArgument)
	}

	var issued []entities.WaitlistOffer

	for i := 0; i < quantity; i++ {
		offer, err := u.issueNextOffer(ctx, eventID, quantity, releaseKey)
		if errors.Is(err, entities.ErrNotFound) || errors.Is(err, errReleaseSpent) {
			break
		}
		if err != nil {
			return issued, fmt.Errorf("issue offer %d of %d: %w", i+1, quantity, err)
		}
		issued = append(issued, offer)
	}

	if len(issued) > 0 {
		log.FromContext(ctx).WithField("event_id", eventID).WithField("offers", len(issued)).Info("Waitlist offers issued")
	}

	return issued, nil
}

func (u *Usecase) issueNextOffer(ctx context.Context, eventID uuid.UUID, quantity int, releaseKey string) (entities.WaitlistOffer, error) {
	var offer entities.WaitlistOffer

	err := u.tx.Do(ctx, func(ctx context.Context) error {
		ok, err := u.repo.TakeReleaseSlot(ctx, releaseKey, eventID, quantity)
		if err != nil {
			return fmt.Errorf("take release slot: %w", err)
		}
		if !ok {
			return errReleaseSpent
		}

		next, err := u.repo.NextActiveEntry(ctx, eventID)
		if err != nil {
			return err
		}

		now := u.config.Now()
		entry, err := u.repo.UpdateEntryByID(ctx, next.ID, func(e entities.WaitlistEntry) (entities.WaitlistEntry, error) {
			if e.Status != entities.WaitlistStatusActive {
				return e, fmt.Errorf("entry is %s: %w", e.Status, entities.ErrInvalidState)
			}
			e.Status = entities.WaitlistStatusInvited
			e.InvitedAt = &now
			return e, nil
		})
		if err != nil {
			return fmt.Errorf("invite entry: %w", err)
		}

		offer = entities.WaitlistOffer{
			ID:        uuid.New(),
			EventID:   eventID,
			EntryID:   entry.ID,
			Quantity:  1,
			Status:    entities.OfferStatusPending,
			ExpiresAt: now.Add(u.config.OfferTTL),
			CreatedAt: now,
		}
		if err := u.repo.AddOffer(ctx, offer); err != nil {
			return fmt.Errorf("add offer: %w", err)
		}

		return u.publisher.Publish(ctx, entities.WaitlistOfferIssued_v1{
			Header:    entities.NewEventHeaderWithIdempotencyKey("offer-issued-" + offer.ID.String()),
			OfferID:   offer.ID.String(),
			EntryID:   entry.ID.String(),
			EventID:   eventID.String(),
			Email:     entry.Email,
			Phone:     entry.Phone,
			Quantity:  offer.Quantity,
			ExpiresAt: offer.ExpiresAt,
		})
	})
	if err != nil {
		return entities.WaitlistOffer{}, err
	}

	observability.OffersIssued.Inc()

	return offer, nil
}

type ClaimResult struct {
	OfferID  uuid.UUID `json:"offer_id"`
	EntryID  uuid.UUID `json:"entry_id"`
	EventID  uuid.UUID `json:"event_id"`
	Quantity int       `json:"quantity"`
}

// Claim consumes a PENDING offer. It grants the right to start a booking
// for Quantity seats; the seats themselves are only taken by that booking.
func (u *Usecase) Claim(ctx context.Context, offerID uuid.UUID) (ClaimResult, error) {
	var result ClaimResult

	err := u.tx.Do(ctx, func(ctx context.Context) error {
		now := u.config.Now()

		offer, err := u.repo.UpdateOfferByID(ctx, offerID, func(o entities.WaitlistOffer) (entities.WaitlistOffer, error) {
			if o.Status != entities.OfferStatusPending {
				return o, fmt.Errorf("offer is %s: %w", o.Status, entities.ErrOfferUnavailable)
			}
			if o.Expired(now) {
				return o, errOfferLapsed
			}
			o.Status = entities.OfferStatusClaimed
			o.ClaimedAt = &now
			return o, nil
		})
		if err != nil {
			return err
		}

		_, err = u.repo.UpdateEntryByID(ctx, offer.EntryID, func(e entities.WaitlistEntry) (entities.WaitlistEntry, error) {
			if e.Status != entities.WaitlistStatusInvited {
				return e, fmt.Errorf("entry is %s: %w", e.Status, entities.ErrInvalidState)
			}
			e.Status = entities.WaitlistStatusClaimed
			e.ClaimedAt = &now
			return e, nil
		})
		if err != nil {
			return fmt.Errorf("claim entry: %w", err)
		}

		result = ClaimResult{
			OfferID:  offer.ID,
			EntryID:  offer.EntryID,
			EventID:  offer.EventID,
			Quantity: offer.Quantity,
		}

		return u.publisher.Publish(ctx, entities.WaitlistOfferClaimed_v1{
			Header:   entities.NewEventHeaderWithIdempotencyKey("offer-claimed-" + offer.ID.String()),
			OfferID:  offer.ID.String(),
			EntryID:  offer.EntryID.String(),
			EventID:  offer.EventID.String(),
			Quantity: offer.Quantity,
		})
	})
	if errors.Is(err, errOfferLapsed) {
		if expireErr := u.expireOffer(ctx, offerID); expireErr != nil && !errors.Is(expireErr, errNothingToDo) {
			return ClaimResult{}, fmt.Errorf("expire offer: %w", expireErr)
		}
		return ClaimResult{}, fmt.Errorf("offer %s: %w", offerID, entities.ErrOfferExpired)
	}
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim offer %s: %w", offerID, err)
	}

	observability.OffersClaimed.Inc()

	return result, nil
}

// SweepExpiredOffers expires PENDING offers past their deadline and puts
// their entries back in the queue.
func (u *Usecase) SweepExpiredOffers(ctx context.Context) (int, error) {
	expired, err := u.repo.ListExpiredOffers(ctx, u.config.Now(), u.config.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired offers: %w", err)
	}

	count := 0
	for _, o := range expired {
		err := u.expireOffer(ctx, o.ID)
		if errors.Is(err, errNothingToDo) {
			continue
		}
		if err != nil {
			log.FromContext(ctx).WithError(err).WithField("offer_id", o.ID).Error("Failed to expire offer")
			continue
		}
		count++
	}

	return count, nil
}

// expireOffer is the single transition used by both the sweep and claim.
// The offer must still be PENDING, so a concurrent claim wins or loses as a whole.
func (u *Usecase) expireOffer(ctx context.Context, offerID uuid.UUID) error {
	err := u.tx.Do(ctx, func(ctx context.Context) error {
		now := u.config.Now()

		offer, err := u.repo.UpdateOfferByID(ctx, offerID, func(o entities.WaitlistOffer) (entities.WaitlistOffer, error) {
			if !o.Expired(now) {
				return o, errNothingToDo
			}
			o.Status = entities.OfferStatusExpired
			o.ExpiredAt = &now
			return o, nil
		})
		if err != nil {
			return err
		}

		// the entry keeps its createdAt, so it goes back to its old place in the queue
		_, err = u.repo.UpdateEntryByID(ctx, offer.EntryID, func(e entities.WaitlistEntry) (entities.WaitlistEntry, error) {
			if e.Status != entities.WaitlistStatusInvited {
				return e, fmt.Errorf("entry is %s: %w", e.Status, entities.ErrInvalidState)
			}
			e.Status = entities.WaitlistStatusActive
			e.InvitedAt = nil
			return e, nil
		})
		if err != nil {
			return fmt.Errorf("requeue entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	observability.OffersExpired.Inc()

	return nil
}
