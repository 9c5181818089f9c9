package entities

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

const (
	CancelReasonHoldExpired     = "hold_expired"
	CancelReasonUserCancelled   = "user_cancelled"
	CancelReasonPaymentFailed   = "payment_order_failed"
	CancelReasonRefundCompleted = "refund_completed"
)

// FeeBreakdown is in minor currency units.
type FeeBreakdown struct {
	Subtotal       int64 `json:"subtotal"`
	ConvenienceFee int64 `json:"convenience_fee"`
	PlatformFee    int64 `json:"platform_fee"`
	GST            int64 `json:"gst"`
	FinalAmount    int64 `json:"final_amount"`
}

type Booking struct {
	ID        uuid.UUID    `json:"id"`
	EventID   uuid.UUID    `json:"event_id"`
	UserID    string       `json:"user_id"`
	Email     string       `json:"email"`
	Seats     int          `json:"seats"`
	UnitPrice int64        `json:"unit_price"`
	Currency  string       `json:"currency"`
	Fees      FeeBreakdown `json:"fees"`

	Status          BookingStatus `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentOrderRef string        `json:"payment_order_ref,omitempty"`
	PaymentRef      string        `json:"payment_ref,omitempty"`
	TicketToken     string        `json:"ticket_token,omitempty"`

	RiskAction RiskAction `json:"risk_action"`
	RiskScore  int        `json:"risk_score"`
	RiskTags   []string   `json:"risk_tags,omitempty"`

	IdempotencyKey string `json:"-"`
	CancelReason   string `json:"cancel_reason,omitempty"`

	HoldExpiresAt time.Time  `json:"hold_expires_at"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// HoldsSeats reports whether the booking's seats are counted in the ledger.
func (b Booking) HoldsSeats() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

func (b Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingStatusPending && now.After(b.HoldExpiresAt)
}

func (b Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed && b.PaymentStatus == PaymentStatusCompleted
}
