package entities

import "github.com/google/uuid"

type PaymentOrderRequest struct {
	BookingID uuid.UUID
	Amount    int64
	Currency  string
}

type RefundRequest struct {
	RefundID   uuid.UUID
	PaymentRef string
	Amount     int64
	Currency   string
	Reason     string
}
