package mq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// Handler processes one decoded event
type Handler func(ctx context.Context, ev events.Event) error

// ErrDeliveriesClosed is returned by Run when the broker closes the delivery
// channel while the consumer is still wanted.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// ConsumerConfig describes the queue the notifier reads from
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Bindings []string
	Prefetch int
}

// Consumer reads events from a durable queue bound to the exchange
type Consumer struct {
	cfg  ConsumerConfig
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewConsumer dials RabbitMQ, declares the exchange and queue, and binds them
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Bindings) == 0 {
		cfg.Bindings = []string{"#"}
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(step string, err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	for _, key := range cfg.Bindings {
		if err := ch.QueueBind(q.Name, key, cfg.Exchange, false, nil); err != nil {
			return fail("bind "+key, err)
		}
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return fail("set qos", err)
	}

	cfg.Queue = q.Name
	return &Consumer{cfg: cfg, conn: conn, ch: ch}, nil
}

// Run consumes until ctx is cancelled. A delivery channel closed by the
// broker yields ErrDeliveriesClosed.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	return consume(ctx, msgs, handle)
}

func consume(ctx context.Context, msgs <-chan amqp.Delivery, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDeliveriesClosed
			}
			Process(ctx, d, handle)
		}
	}
}

// Process handles one delivery and settles it. Malformed events are
// dropped. Handler failures are requeued once and dropped on redelivery.
func Process(ctx context.Context, d amqp.Delivery, handle Handler) {
	log := logger.FromContext(ctx).With().
		Str("routingKey", d.RoutingKey).
		Str("messageId", d.MessageId).
		Logger()

	ev, err := events.Decode(d.Body)
	if err == nil {
		err = handle(ctx, ev)
	}

	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, events.ErrMalformedEvent):
		log.Warn().Err(err).Msg("Dropping malformed event")
		_ = d.Nack(false, false)
	case d.Redelivered:
		log.Error().Err(err).Msg("Event failed again after redelivery, dropping")
		_ = d.Nack(false, false)
	default:
		log.Error().Err(err).Msg("Event handling failed, requeueing")
		_ = d.Nack(false, true)
	}
}

// Close closes the channel and connection
func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
