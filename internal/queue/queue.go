// Package queue publishes committed interview events to RabbitMQ and
// consumes them for downstream processing.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/interview"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names
const (
	TurnQueueName       = "rehearse.turns"
	EvaluationQueueName = "rehearse.evaluations"
)

// Queues lists every queue the connection declares
func Queues() []string {
	return []string{TurnQueueName, EvaluationQueueName}
}

// QueueFor routes an event type to its queue. Evaluations get their own
// queue so report generation can scale apart from turn analytics.
func QueueFor(t interview.EventType) string {
	if t == interview.EventEvaluationCompleted {
		return EvaluationQueueName
	}
	return TurnQueueName
}

// queueTTL is the message TTL per queue in milliseconds
var queueTTL = map[string]int32{
	TurnQueueName:       int32((10 * time.Minute).Milliseconds()),
	EvaluationQueueName: int32((24 * time.Hour).Milliseconds()),
}

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
	logger     *slog.Logger
}

// NewConnection dials RabbitMQ and declares the event queues
func NewConnection(url string) (*Connection, error) {
	c := &Connection{url: url, logger: slog.Default()}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareQueues(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	go c.handleReconnect(c.conn.NotifyClose(make(chan *amqp.Error, 1)))

	c.logger.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

func (c *Connection) declareQueues() error {
	for _, name := range Queues() {
		_, err := c.channel.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			amqp.Table{"x-message-ttl": queueTTL[name]},
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}
	return nil
}

// handleReconnect waits for the connection to drop and redials with
// exponential backoff capped at 30s
func (c *Connection) handleReconnect(notifyClose <-chan *amqp.Error) {
	err, ok := <-notifyClose
	if !ok || err == nil {
		return
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	c.logger.Warn("RabbitMQ connection closed, attempting to reconnect",
		"error", err,
		"reconnects", c.reconnects)

	for attempt := range 10 {
		c.reconnects++
		time.Sleep(reconnectBackoff(attempt))

		if err := c.connect(); err != nil {
			c.logger.Error("reconnection failed", "error", err, "attempt", attempt+1)
			continue
		}
		c.logger.Info("reconnected to RabbitMQ", "attempts", attempt+1)
		return
	}
	c.logger.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

func reconnectBackoff(attempt int) time.Duration {
	return min(time.Duration(1<<attempt)*time.Second, 30*time.Second)
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection and stops reconnecting
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a persistent JSON message to a queue
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any, headers amqp.Table) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// sanitizeURL hides the password for logging
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid amqp url>"
	}
	return u.Redacted()
}
