package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"reservations/internal/entities"
)

const (
	// EventsTopic receives every external event. The router stores it in the
	// data lake and splits it into per-event topics.
	EventsTopic = "events"

	internalTopicPrefix = "internal-events.svc-reservations."
	externalTopicPrefix = "events."
)

func NewEventBus(
	pub message.Publisher,
	logger watermill.LoggerAdapter,
) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(
		pub,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				event, ok := params.Event.(entities.DomainEvent)
				if !ok {
					return "", fmt.Errorf("invalid event type: %T doesn't implement entities.DomainEvent", params.Event)
				}

				if event.IsInternal() {
					return internalTopicPrefix + params.EventName, nil
				}
				return EventsTopic, nil
			},
			Marshaler: marshaler,
			Logger:    logger,
		},
	)
}
