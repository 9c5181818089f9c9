package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/receipts"

	"reservations/internal/entities"
)

type ReceiptsClient struct {
	clients *clients.Clients
}

func NewReceiptsClient(clients *clients.Clients) ReceiptsClient {
	return ReceiptsClient{
		clients: clients,
	}
}

func (c ReceiptsClient) IssueReceipt(ctx context.Context, request entities.IssueReceiptRequest) (*entities.IssueReceiptResponse, error) {
	body := receipts.PutReceiptsJSONRequestBody{
		IdempotencyKey: &request.IdempotencyKey,
		TicketId:       request.BookingID,
		Price: receipts.Money{
			MoneyAmount:   formatMinor(request.Amount),
			MoneyCurrency: request.Currency,
		},
	}

	receiptsResp, err := c.clients.Receipts.PutReceiptsWithResponse(ctx, body)
	if err != nil {
		return nil, err
	}
	if receiptsResp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %v", receiptsResp.StatusCode())
	}

	return &entities.IssueReceiptResponse{
		ReceiptNumber: receiptsResp.JSON200.Number,
		IssuedAt:      receiptsResp.JSON200.IssuedAt,
	}, nil
}
