package entities

import (
	"time"

	"github.com/google/uuid"
)

// Event is a bookable event. BookedSeats is the seat ledger: it is only
// changed through SeatLedger.Reserve and SeatLedger.Release.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	TotalSeats  int       `json:"total_seats"`
	BookedSeats int       `json:"booked_seats"`
	UnitPrice   int64     `json:"unit_price"`
	Currency    string    `json:"currency"`
	StartsAt    time.Time `json:"starts_at"`

	AllowCancellation         bool  `json:"allow_cancellation"`
	CancellationDeadlineHours int   `json:"cancellation_deadline_hours"`
	CancellationFeeFlat       int64 `json:"cancellation_fee_flat"`

	CreatedAt time.Time `json:"created_at"`
}

func (e Event) Remaining() int {
	return e.TotalSeats - e.BookedSeats
}

func (e Event) IsSoldOut() bool {
	return e.Remaining() <= 0
}

// ReserveResult is returned by the ledger instead of an error when the
// event simply has no room left.
type ReserveResult struct {
	OK    bool
	Event Event
}
