package amqp

import "errors"

// Domain-specific errors for AMQP operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("amqp: connection failed")

	// ErrNotConnected is returned when attempting operations on a closed client.
	ErrNotConnected = errors.New("amqp: client not connected")

	// ErrDeclareFailed is returned when an exchange or queue declaration fails.
	ErrDeclareFailed = errors.New("amqp: declare failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("amqp: publish failed")

	// ErrReceiveFailed is returned when a receive operation fails.
	ErrReceiveFailed = errors.New("amqp: receive failed")
)
