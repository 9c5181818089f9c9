package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"

	"reservations/internal/entities"
)

// IssueWaitlistOffersHandler hands seats given back by a cancellation, an
// expired hold or a refund to the head of the event's waitlist.
func (h *Handler) IssueWaitlistOffersHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"issue_waitlist_offers_handler",
		func(ctx context.Context, payload *entities.SeatsReleased_v1) error {
			eventID, err := uuid.Parse(payload.EventID)
			if err != nil {
				return fmt.Errorf("event id %q: %w: %w", payload.EventID, entities.ErrInvalidArgument, err)
			}

			releaseKey := payload.Header.IdempotencyKey
			if releaseKey == "" && payload.BookingID != "" {
				releaseKey = "seats-released-" + payload.BookingID
			}
			if releaseKey == "" {
				return fmt.Errorf("seats released without idempotency key: %w", entities.ErrInvalidArgument)
			}

			offers, err := h.offers.IssueOffers(ctx, eventID, payload.Quantity, releaseKey)
			if err != nil {
				return fmt.Errorf("failed to issue waitlist offers: %w", err)
			}

			log.FromContext(ctx).
				WithField("event_id", payload.EventID).
				WithField("released", payload.Quantity).
				WithField("offers", len(offers)).
				Info("Waitlist offers issued for released seats")

			return nil
		},
	)
}
