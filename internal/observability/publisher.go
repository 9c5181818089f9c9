package observability

import (
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type PublisherWithTracing struct {
	message.Publisher
}

func (p PublisherWithTracing) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		otel.GetTextMapPropagator().
			Inject(messages[i].Context(), propagation.MapCarrier(messages[i].Metadata))
	}
	return p.Publisher.Publish(topic, messages...)
}

type PublisherWithCorrelation struct {
	message.Publisher
}

func (p PublisherWithCorrelation) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		msg.Metadata.Set("correlation_id", log.CorrelationIDFromContext(msg.Context()))
	}
	return p.Publisher.Publish(topic, messages...)
}

// DecoratePublisher carries the trace and the correlation id of the
// publishing context in the message metadata.
func DecoratePublisher(pub message.Publisher) message.Publisher {
	return PublisherWithCorrelation{Publisher: PublisherWithTracing{Publisher: pub}}
}
