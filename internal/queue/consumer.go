package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/interview"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventHandler processes one event. An error requeues the message once.
type EventHandler func(ctx context.Context, e interview.Event) error

// Consumer consumes events from one queue with a pool of workers
type Consumer struct {
	conn       *Connection
	queue      string
	handler    EventHandler
	workers    int
	prefetch   int
	timeout    time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Queue    string
	Workers  int
	Prefetch int

	// HandlerTimeout bounds each handler call
	HandlerTimeout time.Duration
}

// DefaultConsumerConfig returns the defaults for the turn queue
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Queue:          TurnQueueName,
		Workers:        3,
		Prefetch:       1,
		HandlerTimeout: 30 * time.Second,
	}
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	def := DefaultConsumerConfig()
	if cfg.Queue == "" {
		cfg.Queue = def.Queue
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = def.HandlerTimeout
	}
	return cfg
}

// NewConsumer creates a new event consumer
func NewConsumer(conn *Connection, handler EventHandler, cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		conn:     conn,
		queue:    cfg.Queue,
		handler:  handler,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		timeout:  cfg.HandlerTimeout,
		logger:   slog.Default(),
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queue,
		"",    // consumer tag (auto-generated)
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("starting event consumer", "queue", c.queue, "workers", c.workers, "prefetch", c.prefetch)

	for i := range c.workers {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("message channel closed", "worker_id", id)
				return
			}
			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage decodes and handles one delivery. Malformed messages are
// dropped; handler failures are requeued unless already redelivered.
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	var e interview.Event
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		c.logger.Error("failed to unmarshal event", "worker_id", workerID, "error", err)
		_ = msg.Reject(false)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	if err := c.handler(hctx, e); err != nil {
		requeue := !msg.Redelivered
		c.logger.Error("event handling failed",
			"worker_id", workerID,
			"event_id", e.ID,
			"type", e.Type,
			"requeue", requeue,
			"error", err)
		_ = msg.Nack(false, requeue)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "worker_id", workerID, "event_id", e.ID, "error", err)
		return
	}
	c.logger.Debug("event handled",
		"worker_id", workerID,
		"event_id", e.ID,
		"type", e.Type,
		"duration", time.Since(start))
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	c.logger.Info("consumer stopped", "queue", c.queue)
}
