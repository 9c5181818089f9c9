package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"

	"reservations/internal/interfaces/message/events"
)

// EventPublisher publishes domain events into the outbox of the
// transaction in ctx. Outside of a transaction the event is written on its
// own.
type EventPublisher struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
	logger watermill.LoggerAdapter
}

func NewEventPublisher(db *sqlx.DB, getter *trmsqlx.CtxGetter, logger watermill.LoggerAdapter) *EventPublisher {
	return &EventPublisher{
		db:     db,
		getter: getter,
		logger: logger,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event any) error {
	publisher, err := NewPublisher(p.getter.DefaultTrOrDB(ctx, p.db), p.logger)
	if err != nil {
		return err
	}

	eb, err := events.NewEventBus(publisher, p.logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	if err := eb.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish %T: %w", event, err)
	}

	return nil
}
