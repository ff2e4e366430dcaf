package amqp

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/nerrad567/doorwatch/internal/infrastructure/config"
)

const (
	// delayedExchangeType is the exchange type provided by the
	// rabbitmq_delayed_message_exchange plugin. Messages published with an
	// x-delay header are held by the exchange and routed after the delay
	// elapses.
	delayedExchangeType = "x-delayed-message"

	defaultConnectTimeout = 10 * time.Second

	// receivePollInterval is how often ReceiveOne re-checks an empty queue
	// while waiting for a message.
	receivePollInterval = 200 * time.Millisecond
)

// Client wraps rabbitmq/amqp091-go with Doorwatch-specific functionality.
//
// It owns a single connection and a publish channel, declares the delayed
// exchange on connect, and lazily declares queues as they are first used.
//
// Thread Safety:
//   - Publish and receive methods are safe for concurrent use; the shared
//     channel is guarded by a mutex. Consume opens its own channel.
type Client struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
	cfg  config.AMQPConfig

	mu sync.Mutex

	// declared tracks queues already declared on this connection so repeat
	// sends skip the round trip.
	declared map[string]bool
}

// Connect establishes a connection to the RabbitMQ broker and declares the
// delayed-message exchange.
//
// Returns an error wrapping ErrConnectionFailed if the broker is
// unreachable, or ErrDeclareFailed if the delayed exchange cannot be
// declared (typically the plugin is not enabled).
func Connect(cfg config.AMQPConfig) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, vhostPath(cfg.VHost))

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Dial: amqp091.DefaultDial(defaultConnectTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: opening channel: %w", ErrConnectionFailed, err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		delayedExchangeType,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp091.Table{"x-delayed-type": "direct"},
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%w: exchange %q: %w", ErrDeclareFailed, cfg.Exchange, err)
	}

	if cfg.DeadLetterExchange != "" {
		if err := ch.ExchangeDeclare(
			cfg.DeadLetterExchange, "fanout", true, false, false, false, nil,
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("%w: dead-letter exchange %q: %w", ErrDeclareFailed, cfg.DeadLetterExchange, err)
		}
	}

	return &Client{
		conn:     conn,
		ch:       ch,
		cfg:      cfg,
		declared: make(map[string]bool),
	}, nil
}

// vhostPath renders a vhost as the path component of an AMQP URL.
// The default vhost "/" maps to an empty path.
func vhostPath(vhost string) string {
	if vhost == "" || vhost == "/" {
		return ""
	}
	return "/" + vhost
}

// ensureQueue declares queue if it has not been declared on this
// connection yet. Queues are durable, bound to the delayed exchange with
// their own name as routing key, and dead-letter to the configured
// exchange when one is set.
//
// Declaration is idempotent on the broker side, so racing callers are
// harmless.
func (c *Client) ensureQueue(queue string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureQueueLocked(queue)
}

func (c *Client) ensureQueueLocked(queue string) error {
	if c.declared[queue] {
		return nil
	}

	var args amqp091.Table
	if c.cfg.DeadLetterExchange != "" {
		args = amqp091.Table{"x-dead-letter-exchange": c.cfg.DeadLetterExchange}
	}

	if _, err := c.ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("%w: queue %q: %w", ErrDeclareFailed, queue, err)
	}
	if err := c.ch.QueueBind(queue, queue, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("%w: binding %q: %w", ErrDeclareFailed, queue, err)
	}

	c.declared[queue] = true
	return nil
}

// HealthCheck verifies the broker connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("amqp health check: %w", ctx.Err())
	default:
	}

	if c.conn == nil || c.conn.IsClosed() {
		return ErrNotConnected
	}
	return nil
}

// Close shuts down the channel and connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("closing amqp connection: %w", err)
		}
	}
	return nil
}
