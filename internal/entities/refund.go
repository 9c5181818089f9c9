package entities

import (
	"time"

	"github.com/google/uuid"
)

type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "PENDING"
	RefundStatusApproved   RefundStatus = "APPROVED"
	RefundStatusProcessing RefundStatus = "PROCESSING"
	RefundStatusSucceeded  RefundStatus = "SUCCEEDED"
	RefundStatusFailed     RefundStatus = "FAILED"
)

func (s RefundStatus) IsTerminal() bool {
	return s == RefundStatusSucceeded || s == RefundStatusFailed
}

type Refund struct {
	ID            uuid.UUID    `json:"id"`
	BookingID     uuid.UUID    `json:"booking_id"`
	EventID       uuid.UUID    `json:"event_id"`
	Seats         int          `json:"seats"`
	Amount        int64        `json:"amount"`
	FlatFee       int64        `json:"flat_fee"`
	Currency      string       `json:"currency"`
	PaymentRef    string       `json:"-"`
	Reason        string       `json:"reason,omitempty"`
	Status        RefundStatus `json:"status"`
	FailureReason string       `json:"failure_reason,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
