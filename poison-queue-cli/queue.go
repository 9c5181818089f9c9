package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/redis/go-redis/v9"
)

// PoisonQueueTopic must match the topic the service's router moves
// unprocessable messages to.
const PoisonQueueTopic = "PoisonQueue"

type Message struct {
	ID      string
	Topic   string
	Handler string
	Reason  string
}

func newMessage(msg *message.Message) Message {
	return Message{
		ID:      msg.UUID,
		Topic:   msg.Metadata.Get(middleware.PoisonedTopicKey),
		Handler: msg.Metadata.Get(middleware.PoisonedHandlerKey),
		Reason:  msg.Metadata.Get(middleware.ReasonForPoisonedKey),
	}
}

type Queue struct {
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     watermill.LoggerAdapter
	timeout    time.Duration
}

func NewQueue(redisAddr string, timeout time.Duration) (*Queue, error) {
	logger := watermill.NewStdLogger(false, false)
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        rdb,
		ConsumerGroup: "poison-queue-cli",
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	return &Queue{
		subscriber: sub,
		publisher:  pub,
		logger:     logger,
		timeout:    timeout,
	}, nil
}

func (q *Queue) Preview(ctx context.Context) ([]Message, error) {
	res := make([]Message, 0)

	_, err := q.walk(ctx, func(msg *message.Message) action {
		res = append(res, newMessage(msg))
		return keep
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.takeOne(ctx, id, drop)
}

// Requeue sends the message back to the topic it was poisoned on, so the
// service handles it again.
func (q *Queue) Requeue(ctx context.Context, id string) error {
	return q.takeOne(ctx, id, requeue)
}

func (q *Queue) takeOne(ctx context.Context, id string, act action) error {
	p, err := q.walk(ctx, func(msg *message.Message) action {
		if msg.UUID == id {
			return act
		}
		return keep
	})
	if err != nil {
		return err
	}
	if p.taken == 0 {
		return fmt.Errorf("message %s not found", id)
	}

	return nil
}

func (q *Queue) walk(ctx context.Context, visit func(msg *message.Message) action) (*pass, error) {
	router, err := message.NewRouter(message.RouterConfig{}, q.logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	p := newPass(visit, q.publisher, cancel)

	router.AddHandler(
		"poison_queue_cli",
		PoisonQueueTopic,
		q.subscriber,
		PoisonQueueTopic,
		q.publisher,
		p.handle,
	)

	if err := router.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	return p, nil
}
