package message

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"

	"reservations/internal/entities"
	"reservations/internal/interfaces/message/events"
)

type RouterDeps struct {
	Logger watermill.LoggerAdapter

	// EventsSubscribers read the shared events topic, one subscriber per
	// handler. Publisher writes the per-event topics and the poison queue.
	EventsSubscribers events.SubscriberFactory
	Publisher         message.Publisher

	EventHandler         *events.Handler
	EventProcessorConfig cqrs.EventProcessorConfig

	// EventsRepo is optional. Without it events are not kept.
	EventsRepo events.EventRepository
}

func NewRouter(deps RouterDeps) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, deps.Logger)
	if err != nil {
		return nil, err
	}

	if err := initMiddlewares(deps.Logger, router, deps.Publisher); err != nil {
		return nil, err
	}

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, deps.EventProcessorConfig)
	if err != nil {
		return nil, err
	}

	if err := eventProcessor.AddHandlers(deps.EventHandler.Handlers()...); err != nil {
		return nil, err
	}

	marshaler := events.Marshaler()

	splitterSubscriber, err := deps.EventsSubscribers("events_splitter")
	if err != nil {
		return nil, fmt.Errorf("failed to create events splitter subscriber: %w", err)
	}

	router.AddNoPublisherHandler(
		"events_splitter",
		events.EventsTopic,
		splitterSubscriber,
		func(msg *message.Message) error {
			eventName := marshaler.NameFromMessage(msg)
			if eventName == "" {
				return fmt.Errorf("cannot get event name from message")
			}

			return deps.Publisher.Publish("events."+eventName, msg)
		},
	)

	if deps.EventsRepo != nil {
		saverSubscriber, err := deps.EventsSubscribers("events_saver")
		if err != nil {
			return nil, fmt.Errorf("failed to create events saver subscriber: %w", err)
		}

		router.AddNoPublisherHandler(
			"events_saver",
			events.EventsTopic,
			saverSubscriber,
			func(msg *message.Message) error {
				type Event struct {
					Header entities.EventHeader `json:"header"`
				}

				var event Event
				err := marshaler.Unmarshal(msg, &event)
				if err != nil {
					return fmt.Errorf("%w: %w", events.ErrJsonUnmarshal, err)
				}

				eventName := marshaler.NameFromMessage(msg)
				if eventName == "" {
					return fmt.Errorf("cannot get event name from message")
				}

				id, err := uuid.Parse(event.Header.Id)
				if err != nil {
					return fmt.Errorf("failed to parse event id: %w: %w", events.ErrJsonUnmarshal, err)
				}

				err = deps.EventsRepo.SaveEvent(
					msg.Context(),
					entities.DatalakeEvent{
						Id:          id,
						PublishedAt: event.Header.PublishedAt,
						EventName:   eventName,
						Payload:     msg.Payload,
					},
				)
				if err != nil {
					return fmt.Errorf("failed to save event %s: %w", eventName, err)
				}

				return nil
			},
		)
	}

	return router, nil
}

func initMiddlewares(watermillLogger watermill.LoggerAdapter, router *message.Router, pub message.Publisher) error {
	poisonQueue, err := middleware.PoisonQueueWithFilter(pub, events.PoisonQueueTopic, events.IsPoisonous)
	if err != nil {
		return fmt.Errorf("failed to create poison queue: %w", err)
	}

	router.AddMiddleware(events.TracingMiddleware)
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(events.CorrelationIDMiddleware)
	router.AddMiddleware(events.LoggingMiddleware)

	router.AddMiddleware(middleware.Retry{
		MaxRetries:      10,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          watermillLogger,
	}.Middleware)

	// inside the retry, so poisonous messages are not retried
	router.AddMiddleware(poisonQueue)

	// skip marshalling errors before retrying
	router.AddMiddleware(events.SkipMarshallingErrorsMiddleware)
	router.AddMiddleware(events.MetricsMiddleware)

	return nil
}
