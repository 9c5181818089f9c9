package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// SweepExpiredHolds cancels PENDING bookings past their hold deadline and
// returns how many of them released seats. A booking that was confirmed or
// cancelled in the meantime is skipped.
func (u *Usecase) SweepExpiredHolds(ctx context.Context) (int, error) {
	expired, err := u.bookings.ListExpiredHolds(ctx, u.config.Now(), u.config.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired holds: %w", err)
	}

	released := 0
	for _, b := range expired {
		if _, err := u.expireHold(ctx, b.ID); err != nil {
			if errors.Is(err, errNothingToDo) {
				continue
			}
			log.FromContext(ctx).WithError(err).WithField("booking_id", b.ID).Error("Failed to expire hold")
			continue
		}
		released++
	}

	return released, nil
}
