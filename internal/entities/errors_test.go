package entities_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"reservations/internal/entities"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		Name string
		Err  error
		Kind entities.ErrorKind
	}{
		{Name: "nil", Err: nil, Kind: ""},
		{Name: "capacity", Err: entities.ErrCapacityExceeded, Kind: entities.KindCapacity},
		{Name: "wrapped state", Err: fmt.Errorf("confirm booking: %w", entities.ErrHoldExpired), Kind: entities.KindState},
		{Name: "policy", Err: entities.ErrNotCancellable, Kind: entities.KindPolicy},
		{Name: "seats available", Err: fmt.Errorf("join: %w", entities.ErrSeatsAvailable), Kind: entities.KindState},
		{Name: "upstream", Err: fmt.Errorf("refund: %w", entities.ErrRefundPending), Kind: entities.KindUpstream},
		{Name: "invariant", Err: entities.ErrLedgerInvariant, Kind: entities.KindInvariant},
		{Name: "unknown", Err: fmt.Errorf("boom"), Kind: entities.KindUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Kind, entities.KindOf(tc.Err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, entities.IsRetryable(fmt.Errorf("x: %w", entities.ErrPaymentFailed)))
	assert.False(t, entities.IsRetryable(entities.ErrCapacityExceeded))
}
