package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/doorwatch/internal/door"
	"github.com/nerrad567/doorwatch/internal/infrastructure/config"
	"github.com/nerrad567/doorwatch/internal/infrastructure/logging"
)

// CancelReceipt confirms a cancel signal was sent. It does not confirm a
// pending reminder existed; cancellation is fire-and-forget.
type CancelReceipt struct {
	DoorName  string
	DoorKey   string
	QueueName string
	MessageID string
}

// CancelService places cancel signals on per-door cancel queues.
type CancelService struct {
	queue       Queue
	doors       *door.Registry
	ttl         time.Duration
	functionKey string
	logger      *logging.Logger
	now         func() time.Time
}

// NewCancelService creates a CancelService.
func NewCancelService(queue Queue, doors *door.Registry, cfg config.SchedulingConfig, functionKey string, logger *logging.Logger) *CancelService {
	return &CancelService{
		queue:       queue,
		doors:       doors,
		ttl:         cfg.CancelTTL(),
		functionKey: functionKey,
		logger:      logger.With("component", "cancel"),
		now:         time.Now,
	}
}

// RequestCancel sends a CancelSignal onto the door's cancel queue with a
// short TTL. A signal is only meaningful against an imminent firing: if
// no processor invocation picks it up within the TTL it expires unused.
func (c *CancelService) RequestCancel(ctx context.Context, doorName, functionKey string) (*CancelReceipt, error) {
	if !keyMatches(functionKey, c.functionKey) {
		return nil, ErrUnauthorized
	}
	if doorName == "" {
		return nil, fmt.Errorf("%w: door name is required", ErrValidation)
	}

	key, _, _ := c.doors.Resolve(doorName)
	queueName := c.doors.CancelQueueName(doorName, EventClosed)

	signal := CancelSignal{
		DoorName:  doorName,
		DoorKey:   key,
		Action:    ActionCancel,
		EventType: EventClosed,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(signal)
	if err != nil {
		return nil, fmt.Errorf("encoding cancel signal: %w", err)
	}

	messageID := cancelMessageID(doorName, c.now())
	if err := c.queue.SendWithTTL(ctx, queueName, messageID, body, c.ttl); err != nil {
		return nil, fmt.Errorf("%w: sending cancel for %q: %w", ErrQueueOperation, doorName, err)
	}

	c.logger.Info("cancel signal sent",
		"door", doorName,
		"door_key", key,
		"queue", queueName,
		"ttl", c.ttl,
		"message_id", messageID,
	)

	return &CancelReceipt{
		DoorName:  doorName,
		DoorKey:   key,
		QueueName: queueName,
		MessageID: messageID,
	}, nil
}
