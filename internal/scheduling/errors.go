package scheduling

import "errors"

// Domain-specific errors for the scheduling components.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnauthorized is returned when the presented function key does
	// not match the configured secret. No side effects have occurred.
	ErrUnauthorized = errors.New("scheduling: invalid function key")

	// ErrValidation is returned for missing or unparseable request
	// input (empty door name, bad delay). No side effects have occurred.
	ErrValidation = errors.New("scheduling: invalid request")

	// ErrMalformedMessage is returned when a queue message body matches
	// neither the enriched nor the legacy wire shape. The invocation
	// should fail so the broker's dead-letter policy applies.
	ErrMalformedMessage = errors.New("scheduling: malformed message")

	// ErrQueueOperation is returned when a send, receive or complete
	// against the messaging backend fails. Queue-triggered callers
	// should fail loudly rather than treat this as "no cancel found".
	ErrQueueOperation = errors.New("scheduling: queue operation failed")
)
