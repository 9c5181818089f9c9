package events

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"reservations/internal/entities"
)

// WaitlistOffersTrackerHandler hands issued offers to the notification team.
func (h *Handler) WaitlistOffersTrackerHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"waitlist_offers_tracker_handler",
		func(ctx context.Context, payload *entities.WaitlistOfferIssued_v1) error {
			return h.spreadsheetsClient.AppendRow(
				ctx,
				entities.AppendToTrackerRequest{
					SpreadsheetName: SheetWaitlistOffers,
					Rows: []string{
						payload.OfferID,
						payload.EventID,
						payload.Email,
						payload.Phone,
						strconv.Itoa(payload.Quantity),
						payload.ExpiresAt.Format(time.RFC3339),
					},
				})
		},
	)
}

func (h *Handler) RiskReviewTrackerHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"risk_review_tracker_handler",
		func(ctx context.Context, payload *entities.RiskReviewRequested_v1) error {
			return h.spreadsheetsClient.AppendRow(
				ctx,
				entities.AppendToTrackerRequest{
					SpreadsheetName: SheetRiskReview,
					Rows: []string{
						payload.BookingID,
						payload.EventID,
						payload.UserID,
						strconv.Itoa(payload.Score),
						strings.Join(payload.Tags, ","),
					},
				})
		},
	)
}

func (h *Handler) RefundsTrackerHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"refunds_tracker_handler",
		func(ctx context.Context, payload *entities.RefundProcessed_v1) error {
			return h.spreadsheetsClient.AppendRow(
				ctx,
				entities.AppendToTrackerRequest{
					SpreadsheetName: SheetRefunds,
					Rows: []string{
						payload.RefundID,
						payload.BookingID,
						strconv.FormatInt(payload.Amount, 10),
						payload.Currency,
						string(payload.Status),
						payload.FailureReason,
					},
				})
		},
	)
}
