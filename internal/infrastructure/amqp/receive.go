package amqp

import (
	"context"
	"fmt"
	"time"
)

// getFunc fetches at most one message. ok reports whether a message was
// returned; complete acknowledges it.
type getFunc func() (body []byte, complete func() error, ok bool, err error)

// receiveLoop polls get until a message arrives, the wait deadline passes,
// or the context is cancelled. The deadline is checked only after an empty
// get, so one attempt is always made even with a zero wait.
func receiveLoop(ctx context.Context, get getFunc, wait, poll time.Duration) ([]byte, func() error, error) {
	deadline := time.Now().Add(wait)
	for {
		body, complete, ok, err := get()
		if err != nil {
			return nil, nil, err
		}
		if ok {
			return body, complete, nil
		}

		if time.Now().After(deadline) {
			return nil, nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("%w: %w", ErrReceiveFailed, ctx.Err())
		case <-time.After(poll):
		}
	}
}

// ReceiveOne attempts to receive a single message from queue, polling with
// basic.get for up to wait. It returns (nil, nil, nil) when the queue stays
// empty for the whole wait.
//
// The returned complete function acknowledges the message, removing it from
// the queue. An unacknowledged message is redelivered when the channel
// closes.
func (c *Client) ReceiveOne(ctx context.Context, queue string, wait time.Duration) ([]byte, func() error, error) {
	if err := c.ensureQueue(queue); err != nil {
		return nil, nil, err
	}

	return receiveLoop(ctx, func() ([]byte, func() error, bool, error) {
		c.mu.Lock()
		if c.ch == nil {
			c.mu.Unlock()
			return nil, nil, false, ErrNotConnected
		}
		delivery, ok, err := c.ch.Get(queue, false)
		c.mu.Unlock()

		if err != nil {
			return nil, nil, false, fmt.Errorf("%w: get from %q: %w", ErrReceiveFailed, queue, err)
		}
		if !ok {
			return nil, nil, false, nil
		}

		tag := delivery.DeliveryTag
		complete := func() error {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.ch == nil {
				return ErrNotConnected
			}
			if err := c.ch.Ack(tag, false); err != nil {
				return fmt.Errorf("%w: ack on %q: %w", ErrReceiveFailed, queue, err)
			}
			return nil
		}
		return delivery.Body, complete, true, nil
	}, wait, receivePollInterval)
}

// Consume delivers messages from queue to handler until ctx is cancelled.
//
// It opens a dedicated channel with the configured prefetch so slow
// handlers do not starve the publish channel. A nil handler return
// acknowledges the message; an error rejects it without requeue, which
// routes it to the dead-letter exchange when one is configured.
func (c *Client) Consume(ctx context.Context, queue string, handler func(ctx context.Context, body []byte) error) error {
	if err := c.ensureQueue(queue); err != nil {
		return err
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("%w: consumer channel: %w", ErrReceiveFailed, err)
	}
	defer ch.Close()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("%w: setting prefetch: %w", ErrReceiveFailed, err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue,
		"",    // broker-generated consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("%w: consume from %q: %w", ErrReceiveFailed, queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, open := <-deliveries:
			if !open {
				return fmt.Errorf("%w: delivery channel closed for %q", ErrReceiveFailed, queue)
			}
			if err := handler(ctx, delivery.Body); err != nil {
				// Reject without requeue so a poison message goes to the
				// dead-letter exchange instead of looping forever.
				delivery.Nack(false, false)
				continue
			}
			delivery.Ack(false)
		}
	}
}
