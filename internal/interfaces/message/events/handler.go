package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"

	"reservations/internal/entities"
)

//go:generate mockgen -destination=mocks/spreadsheets_service_mock.go -package=mocks . SpreadsheetsService
type SpreadsheetsService interface {
	AppendRow(ctx context.Context, req entities.AppendToTrackerRequest) error
}

//go:generate mockgen -destination=mocks/receipts_service_mock.go -package=mocks . ReceiptsService
type ReceiptsService interface {
	IssueReceipt(ctx context.Context, request entities.IssueReceiptRequest) (*entities.IssueReceiptResponse, error)
}

//go:generate mockgen -destination=mocks/offer_issuer_mock.go -package=mocks . OfferIssuer
type OfferIssuer interface {
	IssueOffers(ctx context.Context, eventID uuid.UUID, quantity int, releaseKey string) ([]entities.WaitlistOffer, error)
}

type EventRepository interface {
	SaveEvent(ctx context.Context, event entities.DatalakeEvent) error
}

const (
	SheetBookingsConfirmed = "bookings-confirmed"
	SheetWaitlistOffers    = "waitlist-offers"
	SheetRiskReview        = "risk-review"
	SheetRefunds           = "refunds"
)

type Handler struct {
	spreadsheetsClient SpreadsheetsService
	receiptsClient     ReceiptsService
	offers             OfferIssuer
}

func NewHandler(
	spreadsheetsClient SpreadsheetsService,
	receiptsClient ReceiptsService,
	offers OfferIssuer,
) *Handler {
	return &Handler{
		spreadsheetsClient: spreadsheetsClient,
		receiptsClient:     receiptsClient,
		offers:             offers,
	}
}

// Handlers lists every event handler of the service.
func (h *Handler) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.IssueWaitlistOffersHandler(),
		h.IssueReceiptHandler(),
		h.ConfirmedBookingsTrackerHandler(),
		h.WaitlistOffersTrackerHandler(),
		h.RiskReviewTrackerHandler(),
		h.RefundsTrackerHandler(),
	}
}
