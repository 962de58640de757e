package event

import (
	"context"

	"github.com/gateflow/gateflow/internal/clock"
	"github.com/gateflow/gateflow/service/messaging"
)

// Publisher writes typed events onto a queue.  When the publisher was
// obtained through a Service it additionally fans every event out to the
// service-wide untyped queue so a single listener can observe all traffic.
type Publisher[T any] struct {
	queue    messaging.Queue[Event[T]]
	anyQueue messaging.Queue[Event[any]]
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

// Publish stamps the event and writes it to the typed queue, mirroring it to
// the untyped fan-out queue when one is attached.
func (p *Publisher[T]) Publish(ctx context.Context, anEvent *Event[T]) error {
	anEvent.CreatedAt = clock.Now()
	if p.anyQueue != nil {
		_ = p.anyQueue.Publish(ctx, &Event[any]{
			Context:   anEvent.Context,
			CreatedAt: anEvent.CreatedAt,
			Metadata:  anEvent.Metadata,
			Data:      anEvent.Data,
		})
	}
	return p.queue.Publish(ctx, anEvent)
}

// Consume takes the next event off the typed queue, acknowledging it before
// returning.  A nil event with nil error means the queue had nothing to give.
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	message, err := p.queue.Consume(ctx)
	if err != nil || message == nil {
		return nil, err
	}
	if err = message.Ack(); err != nil {
		return nil, err
	}
	return message.T(), nil
}
