package pricing

import (
	"fmt"

	"reservations/internal/entities"
)

// Schedule holds fee rates in basis points (1/100 of a percent) and flat
// amounts in minor currency units.
type Schedule struct {
	GatewayBps     int64
	MaintenanceBps int64
	PlatformFlat   int64
	TaxBps         int64
}

func DefaultSchedule() Schedule {
	return Schedule{
		GatewayBps:     200,
		MaintenanceBps: 50,
		PlatformFlat:   1000,
		TaxBps:         1800,
	}
}

// Calculate computes the charge for quantity tickets at unitPrice.
// Every percentage component is rounded half-up on its own, so the
// final amount is always the exact sum of the reported parts.
func Calculate(unitPrice int64, quantity int, s Schedule) (entities.FeeBreakdown, error) {
	if unitPrice < 0 {
		return entities.FeeBreakdown{}, fmt.Errorf("unit price %d: %w", unitPrice, entities.ErrInvalidArgument)
	}
	if quantity < 1 {
		return entities.FeeBreakdown{}, fmt.Errorf("quantity %d: %w", quantity, entities.ErrInvalidArgument)
	}

	subtotal := unitPrice * int64(quantity)
	convenience := applyBps(subtotal, s.GatewayBps) + applyBps(subtotal, s.MaintenanceBps)
	platform := s.PlatformFlat * int64(quantity)
	gst := applyBps(convenience+platform, s.TaxBps)

	return entities.FeeBreakdown{
		Subtotal:       subtotal,
		ConvenienceFee: convenience,
		PlatformFee:    platform,
		GST:            gst,
		FinalAmount:    subtotal + convenience + platform + gst,
	}, nil
}

// applyBps returns amount*bps/10000 rounded half-up. Inputs are non-negative.
func applyBps(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
