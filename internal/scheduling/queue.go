package scheduling

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"strconv"
	"time"
)

// Queue is the messaging surface the scheduling components need.
// Implemented by the AMQP client; tests use an in-memory fake.
type Queue interface {
	// SendScheduled enqueues body on queue with a scheduled-visibility
	// delay: the message only becomes receivable after delay elapses.
	SendScheduled(ctx context.Context, queue, messageID string, body []byte, delay time.Duration) error

	// SendWithTTL enqueues body on queue with a time-to-live after which
	// the message is dropped or dead-lettered unreceived.
	SendWithTTL(ctx context.Context, queue, messageID string, body []byte, ttl time.Duration) error

	// ReceiveOne attempts to receive a single message from queue,
	// waiting up to wait for one to arrive. It returns (nil, nil, nil)
	// when no message arrived within the wait. A non-nil complete
	// removes the returned message from the queue.
	ReceiveOne(ctx context.Context, queue string, wait time.Duration) (body []byte, complete func() error, err error)
}

// Announcer is the outbound announcement capability.
type Announcer interface {
	Announce(ctx context.Context, message, device string) error
}

// Telemetry records reminder outcomes. Optional; a nil Telemetry is a
// no-op.
type Telemetry interface {
	RecordFiring(doorKey, device string, delivered bool)
	RecordSuppression(doorKey string)
}

// keyMatches compares a presented function key against the configured one
// in constant time. Hashing first avoids leaking the key length.
func keyMatches(presented, configured string) bool {
	if configured == "" {
		return false
	}
	p := sha256.Sum256([]byte(presented))
	c := sha256.Sum256([]byte(configured))
	return subtle.ConstantTimeCompare(p[:], c[:]) == 1
}

// eventMessageID builds the message identifier for a scheduled event:
// the door name plus a timestamp suffix. Attributable to the door, unique
// per call, so a deduplicating front-end rejects accidental re-sends
// while distinct reminders pass through.
func eventMessageID(doorName string, now time.Time) string {
	return doorName + "_" + strconv.FormatInt(now.UnixNano(), 10)
}

// cancelMessageID builds the message identifier for a cancel signal.
func cancelMessageID(doorName string, now time.Time) string {
	return "cancel_" + doorName + "_" + strconv.FormatInt(now.UnixNano(), 10)
}
