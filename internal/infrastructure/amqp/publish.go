package amqp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
)

// SendScheduled publishes body to queue through the delayed exchange.
// The message becomes visible for delivery only after delay elapses.
//
// The broker holds the message in the delayed exchange; if this process
// dies before the delay elapses, the message still fires.
func (c *Client) SendScheduled(ctx context.Context, queue, messageID string, body []byte, delay time.Duration) error {
	if err := c.ensureQueue(queue); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch == nil {
		return ErrNotConnected
	}

	err := c.ch.PublishWithContext(ctx,
		c.cfg.Exchange,
		queue, // routing key, bound 1:1 to the queue
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			Headers:      amqp091.Table{"x-delay": delay.Milliseconds()},
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: scheduled publish to %q: %w", ErrPublishFailed, queue, err)
	}
	return nil
}

// SendWithTTL publishes body directly to queue with a per-message
// time-to-live. An unreceived message is dropped (or dead-lettered, when
// the queue has a dead-letter exchange) once ttl elapses.
func (c *Client) SendWithTTL(ctx context.Context, queue, messageID string, body []byte, ttl time.Duration) error {
	if err := c.ensureQueue(queue); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch == nil {
		return ErrNotConnected
	}

	err := c.ch.PublishWithContext(ctx,
		"",    // default exchange routes by queue name
		queue,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Expiration:   strconv.FormatInt(ttl.Milliseconds(), 10),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: publish to %q: %w", ErrPublishFailed, queue, err)
	}
	return nil
}
