package memory

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Outbox defers publishing until the surrounding Do commits, so consumers
// never see an event for state that was rolled back.
type Outbox struct {
	store *Store
	next  Publisher
}

func (s *Store) Outbox(next Publisher) *Outbox {
	return &Outbox{store: s, next: next}
}

func (o *Outbox) Publish(ctx context.Context, event any) error {
	t, ok := o.store.txFrom(ctx)
	if !ok {
		return o.next.Publish(ctx, event)
	}

	t.afterCommit = append(t.afterCommit, func() {
		if err := o.next.Publish(ctx, event); err != nil {
			log.FromContext(ctx).WithError(err).Error("Failed to publish event after commit")
		}
	})
	return nil
}
