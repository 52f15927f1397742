package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/rehearse/internal/interview"
	amqp "github.com/rabbitmq/amqp091-go"
)

// jsonPublisher is the part of Connection the producer needs
type jsonPublisher interface {
	PublishJSON(ctx context.Context, queue string, data any, headers amqp.Table) error
}

// Producer publishes interview events. It implements interview.EventPublisher.
type Producer struct {
	conn   jsonPublisher
	logger *slog.Logger
}

// NewProducer creates a new event producer
func NewProducer(conn *Connection) *Producer {
	return newProducer(conn)
}

func newProducer(conn jsonPublisher) *Producer {
	return &Producer{conn: conn, logger: slog.Default()}
}

// Publish sends e to the queue for its type
func (p *Producer) Publish(ctx context.Context, e interview.Event) error {
	queue := QueueFor(e.Type)
	headers := amqp.Table{
		"event_type": string(e.Type),
		"session_id": e.SessionID,
	}

	if err := p.conn.PublishJSON(ctx, queue, e, headers); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", e.Type, err)
	}

	p.logger.Debug("published event",
		"event_id", e.ID,
		"type", e.Type,
		"session_id", e.SessionID,
		"queue", queue)
	return nil
}

var _ interview.EventPublisher = (*Producer)(nil)
