package entities

import (
	"errors"
)

var (
	ErrCapacityExceeded = errors.New("not enough seats left")

	ErrInvalidState     = errors.New("invalid state transition")
	ErrHoldExpired      = errors.New("booking hold expired")
	ErrOfferExpired     = errors.New("waitlist offer expired")
	ErrOfferUnavailable = errors.New("waitlist offer is no longer available")
	ErrSeatsAvailable   = errors.New("event still has seats available")
	ErrNotFound         = errors.New("not found")

	ErrInvalidArgument     = errors.New("invalid argument")
	ErrFraudRejected       = errors.New("booking attempt rejected by risk gate")
	ErrNotCancellable      = errors.New("booking is not cancellable")
	ErrRefundAlreadyExists = errors.New("refund already in progress for booking")
	ErrAlreadyExists       = errors.New("already exists")

	ErrRiskGateUnavailable = errors.New("risk gate unavailable")
	ErrPaymentFailed       = errors.New("payment provider call failed")
	ErrRefundPending       = errors.New("refund outcome pending")

	ErrLedgerInvariant = errors.New("seat ledger invariant violated")
)

// ErrorKind groups errors by how a caller should react to them.
type ErrorKind string

const (
	KindCapacity  ErrorKind = "capacity"
	KindState     ErrorKind = "state"
	KindPolicy    ErrorKind = "policy"
	KindUpstream  ErrorKind = "upstream"
	KindInvariant ErrorKind = "invariant"
	KindUnknown   ErrorKind = "unknown"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrCapacityExceeded, KindCapacity},
	{ErrInvalidState, KindState},
	{ErrHoldExpired, KindState},
	{ErrOfferExpired, KindState},
	{ErrOfferUnavailable, KindState},
	{ErrSeatsAvailable, KindState},
	{ErrNotFound, KindState},
	{ErrAlreadyExists, KindState},
	{ErrInvalidArgument, KindPolicy},
	{ErrFraudRejected, KindPolicy},
	{ErrNotCancellable, KindPolicy},
	{ErrRefundAlreadyExists, KindPolicy},
	{ErrRiskGateUnavailable, KindUpstream},
	{ErrPaymentFailed, KindUpstream},
	{ErrRefundPending, KindUpstream},
	{ErrLedgerInvariant, KindInvariant},
}

func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// IsRetryable reports whether the same request may succeed later without
// any change on the caller side.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUpstream
}
