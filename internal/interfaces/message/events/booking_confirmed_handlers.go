package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"reservations/internal/entities"
)

func (h *Handler) IssueReceiptHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"issue_receipt_handler",
		func(ctx context.Context, payload *entities.BookingConfirmed_v1) error {
			log.FromContext(ctx).Info("Issuing receipt for booking ", payload.BookingID)

			resp, err := h.receiptsClient.IssueReceipt(
				ctx,
				entities.IssueReceiptRequest{
					IdempotencyKey: payload.Header.IdempotencyKey,
					BookingID:      payload.BookingID,
					Amount:         payload.FinalAmount,
					Currency:       payload.Currency,
				})
			if err != nil {
				return fmt.Errorf("failed to issue receipt: %w", err)
			}

			log.FromContext(ctx).
				WithField("receipt_number", resp.ReceiptNumber).
				Info("Receipt issued")

			return nil
		},
	)
}

// ConfirmedBookingsTrackerHandler feeds the loyalty programme.
func (h *Handler) ConfirmedBookingsTrackerHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"confirmed_bookings_tracker_handler",
		func(ctx context.Context, payload *entities.BookingConfirmed_v1) error {
			return h.spreadsheetsClient.AppendRow(
				ctx,
				entities.AppendToTrackerRequest{
					SpreadsheetName: SheetBookingsConfirmed,
					Rows: []string{
						payload.BookingID,
						payload.EventID,
						payload.UserID,
						payload.Email,
						strconv.Itoa(payload.Seats),
						strconv.FormatInt(payload.FinalAmount, 10),
						payload.Currency,
						payload.ConfirmedAt.Format(time.RFC3339),
					},
				})
		},
	)
}
