package event

import (
	"context"
	"fmt"
	"github.com/viant/procfork/internal/clock"
	"github.com/viant/procfork/internal/idgen"
	"github.com/viant/procfork/service/messaging"
)

// Publisher publishes events of one payload type to a queue
type Publisher[T any] struct {
	queue messaging.Queue[Event[T]]
}

// NewPublisher creates a publisher writing to queue
func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

// Publish stamps and enqueues an event
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ID == "" {
		event.ID = idgen.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = clock.Now()
	}
	return p.queue.Publish(ctx, event)
}

// Consume takes the next event and acknowledges it
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
