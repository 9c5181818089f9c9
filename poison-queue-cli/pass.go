package main

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

type action int

const (
	keep action = iota
	drop
	requeue
)

var errPassDone = errors.New("done")

// pass walks the poison queue once. Kept messages are published back to
// the end of the queue, so the walk is over when the first kept message
// comes around again.
type pass struct {
	visit     func(msg *message.Message) action
	publisher message.Publisher
	stop      func()

	firstID string
	done    bool
	taken   int
}

func newPass(visit func(msg *message.Message) action, publisher message.Publisher, stop func()) *pass {
	return &pass{
		visit:     visit,
		publisher: publisher,
		stop:      stop,
	}
}

func (p *pass) handle(msg *message.Message) ([]*message.Message, error) {
	if p.done {
		p.stop()
		// nacked, so the message stays where it is
		return nil, errPassDone
	}

	if p.firstID != "" && msg.UUID == p.firstID {
		p.done = true
		return []*message.Message{msg}, nil
	}

	switch p.visit(msg) {
	case drop:
		p.taken++
		return nil, nil
	case requeue:
		if err := p.requeue(msg); err != nil {
			return nil, err
		}
		p.taken++
		return nil, nil
	}

	if p.firstID == "" {
		p.firstID = msg.UUID
	}

	return []*message.Message{msg}, nil
}

func (p *pass) requeue(msg *message.Message) error {
	topic := msg.Metadata.Get(middleware.PoisonedTopicKey)
	if topic == "" {
		return fmt.Errorf("message %s has no original topic", msg.UUID)
	}

	out := msg.Copy()
	for _, key := range []string{
		middleware.PoisonedTopicKey,
		middleware.PoisonedHandlerKey,
		middleware.PoisonedSubscriberKey,
		middleware.ReasonForPoisonedKey,
	} {
		delete(out.Metadata, key)
	}

	if err := p.publisher.Publish(topic, out); err != nil {
		return fmt.Errorf("failed to requeue message %s to %s: %w", msg.UUID, topic, err)
	}

	return nil
}
