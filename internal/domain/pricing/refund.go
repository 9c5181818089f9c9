package pricing

import (
	"time"
)

type RefundInput struct {
	BaseTicketPrice     int64
	Quantity            int
	CancellationFeeFlat int64
	Now                 time.Time
	EventStart          time.Time
	DeadlineHours       int
	AllowCancellation   bool
}

type RefundBreakdown struct {
	FlatFee int64 `json:"flat_fee"`
}

type RefundQuote struct {
	CanCancel        bool            `json:"can_cancel"`
	Reason           string          `json:"reason,omitempty"`
	RefundableAmount int64           `json:"refundable_amount"`
	Breakdown        RefundBreakdown `json:"breakdown"`
}

const (
	ReasonCancellationDisabled = "cancellation_disabled"
	ReasonDeadlinePassed       = "deadline_passed"
)

// Refund applies the event's cancellation policy. Fees and tax charged on
// top of the ticket price are not refunded.
func Refund(in RefundInput) RefundQuote {
	if !in.AllowCancellation {
		return RefundQuote{Reason: ReasonCancellationDisabled}
	}

	cutoff := in.EventStart.Add(-time.Duration(in.DeadlineHours) * time.Hour)
	if in.Now.After(cutoff) {
		return RefundQuote{Reason: ReasonDeadlinePassed}
	}

	amount := in.BaseTicketPrice*int64(in.Quantity) - in.CancellationFeeFlat
	if amount < 0 {
		amount = 0
	}

	return RefundQuote{
		CanCancel:        true,
		RefundableAmount: amount,
		Breakdown:        RefundBreakdown{FlatFee: in.CancellationFeeFlat},
	}
}
