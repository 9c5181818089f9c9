package entities

import (
	"time"
)

type DomainEvent interface {
	IsInternal() bool
}

type BookingHeld_v1 struct {
	Header EventHeader `json:"header"`

	BookingID     string    `json:"booking_id"`
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	Seats         int       `json:"seats"`
	FinalAmount   int64     `json:"final_amount"`
	Currency      string    `json:"currency"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
}

func (e BookingHeld_v1) IsInternal() bool {
	return false
}

type BookingConfirmed_v1 struct {
	Header EventHeader `json:"header"`

	BookingID   string    `json:"booking_id"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Seats       int       `json:"seats"`
	FinalAmount int64     `json:"final_amount"`
	Currency    string    `json:"currency"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (e BookingConfirmed_v1) IsInternal() bool {
	return false
}

type BookingCancelled_v1 struct {
	Header EventHeader `json:"header"`

	BookingID string `json:"booking_id"`
	EventID   string `json:"event_id"`
	Seats     int    `json:"seats"`
	Reason    string `json:"reason"`
}

func (e BookingCancelled_v1) IsInternal() bool {
	return false
}

// SeatsReleased_v1 is published in the same transaction that gave the
// seats back to the ledger.
type SeatsReleased_v1 struct {
	Header EventHeader `json:"header"`

	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

func (e SeatsReleased_v1) IsInternal() bool {
	return false
}

type RefundProcessed_v1 struct {
	Header EventHeader `json:"header"`

	RefundID      string       `json:"refund_id"`
	BookingID     string       `json:"booking_id"`
	Amount        int64        `json:"amount"`
	Currency      string       `json:"currency"`
	Status        RefundStatus `json:"status"`
	FailureReason string       `json:"failure_reason,omitempty"`
}

func (e RefundProcessed_v1) IsInternal() bool {
	return false
}

type WaitlistOfferIssued_v1 struct {
	Header EventHeader `json:"header"`

	OfferID   string    `json:"offer_id"`
	EntryID   string    `json:"entry_id"`
	EventID   string    `json:"event_id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e WaitlistOfferIssued_v1) IsInternal() bool {
	return false
}

type WaitlistOfferClaimed_v1 struct {
	Header EventHeader `json:"header"`

	OfferID  string `json:"offer_id"`
	EntryID  string `json:"entry_id"`
	EventID  string `json:"event_id"`
	Quantity int    `json:"quantity"`
}

func (e WaitlistOfferClaimed_v1) IsInternal() bool {
	return false
}

// RiskReviewRequested_v1 feeds the manual review queue.
type RiskReviewRequested_v1 struct {
	Header EventHeader `json:"header"`

	BookingID string   `json:"booking_id"`
	EventID   string   `json:"event_id"`
	UserID    string   `json:"user_id"`
	Score     int      `json:"score"`
	Tags      []string `json:"tags"`
}

func (e RiskReviewRequested_v1) IsInternal() bool {
	return false
}
