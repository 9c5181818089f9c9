package entities

import (
	"time"

	"github.com/google/uuid"
)

type WaitlistStatus string

const (
	WaitlistStatusActive  WaitlistStatus = "ACTIVE"
	WaitlistStatusInvited WaitlistStatus = "INVITED"
	WaitlistStatusClaimed WaitlistStatus = "CLAIMED"
)

// IsOpen reports whether the entry still takes part in the queue.
func (s WaitlistStatus) IsOpen() bool {
	return s == WaitlistStatusActive || s == WaitlistStatusInvited
}

type WaitlistEntry struct {
	ID        uuid.UUID      `json:"id"`
	EventID   uuid.UUID      `json:"event_id"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Status    WaitlistStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	InvitedAt *time.Time     `json:"invited_at,omitempty"`
	ClaimedAt *time.Time     `json:"claimed_at,omitempty"`
}

type OfferStatus string

const (
	OfferStatusPending OfferStatus = "PENDING"
	OfferStatusClaimed OfferStatus = "CLAIMED"
	OfferStatusExpired OfferStatus = "EXPIRED"
)

type WaitlistOffer struct {
	ID        uuid.UUID   `json:"id"`
	EventID   uuid.UUID   `json:"event_id"`
	EntryID   uuid.UUID   `json:"entry_id"`
	Quantity  int         `json:"quantity"`
	Status    OfferStatus `json:"status"`
	ExpiresAt time.Time   `json:"expires_at"`
	CreatedAt time.Time   `json:"created_at"`
	ClaimedAt *time.Time  `json:"claimed_at,omitempty"`
	ExpiredAt *time.Time  `json:"expired_at,omitempty"`
}

// Expired reports whether a PENDING offer is past its deadline. The
// deadline itself is still claimable.
func (o WaitlistOffer) Expired(now time.Time) bool {
	return o.Status == OfferStatusPending && now.After(o.ExpiresAt)
}
