// Package amqp provides the RabbitMQ messaging client for Doorwatch.
//
// It implements the scheduling.Queue interface on top of
// rabbitmq/amqp091-go:
//
//   - SendScheduled publishes through an x-delayed-message exchange
//     (rabbitmq_delayed_message_exchange plugin) so the broker, not this
//     process, owns the reminder delay.
//   - SendWithTTL publishes cancel signals with a per-message Expiration
//     so stale signals age out instead of suppressing future reminders.
//   - ReceiveOne polls with basic.get for the bounded cancel-queue check.
//   - Consume runs the long-lived event-queue consumer with manual acks
//     and dead-lettering for poison messages.
//
// All queues are declared durable and lazily on first use.
package amqp
