package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"reservations/internal/entities"
)

var marshaler = cqrs.JSONMarshaler{
	GenerateName: cqrs.StructName,
}

func Marshaler() cqrs.CommandEventMarshaler {
	return marshaler
}

// SubscriberFactory returns the subscriber a handler consumes from.
type SubscriberFactory func(handlerName string) (message.Subscriber, error)

// RedisSubscribers gives every handler its own consumer group, so each
// handler sees every event once.
func RedisSubscribers(redisClient *redis.Client, logger watermill.LoggerAdapter) SubscriberFactory {
	return func(handlerName string) (message.Subscriber, error) {
		return redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        redisClient,
			ConsumerGroup: "svc-reservations." + handlerName,
		}, logger)
	}
}

// SharedSubscriber is used with in-process pub/subs that fan out to every
// subscription on their own.
func SharedSubscriber(sub message.Subscriber) SubscriberFactory {
	return func(string) (message.Subscriber, error) {
		return sub, nil
	}
}

func NewEventProcessorConfig(
	subscribers SubscriberFactory,
	watermillLogger watermill.LoggerAdapter,
) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			handlerEvent := params.EventHandler.NewEvent()
			event, ok := handlerEvent.(entities.DomainEvent)
			if !ok {
				return "", fmt.Errorf("invalid event type: %T doesn't implement entities.DomainEvent", handlerEvent)
			}

			if event.IsInternal() {
				return internalTopicPrefix + params.EventName, nil
			}
			return externalTopicPrefix + params.EventName, nil
		},
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return subscribers(params.HandlerName)
		},
		Marshaler: marshaler,
		Logger:    watermillLogger,
	}
}
