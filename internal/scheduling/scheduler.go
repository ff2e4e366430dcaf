package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/doorwatch/internal/door"
	"github.com/nerrad567/doorwatch/internal/infrastructure/config"
	"github.com/nerrad567/doorwatch/internal/infrastructure/logging"
)

// secondsPerMinute converts the resolver's minute-based delays to the
// second-based wire field.
const secondsPerMinute = 60

// ScheduleRequest carries one inbound "door opened" (or generic) event.
type ScheduleRequest struct {
	// DoorName is the human-supplied door name. Required.
	DoorName string

	// DelaySeconds overrides the door's configured delay when positive.
	// Zero or negative defers to the door table.
	DelaySeconds int

	// EventType defaults to "opened" when empty.
	EventType string

	// FunctionKey authenticates the request.
	FunctionKey string
}

// ScheduleReceipt confirms a scheduled reminder.
type ScheduleReceipt struct {
	DoorName     string
	DoorKey      string
	TargetDevice string
	Delay        time.Duration
	MessageID    string
}

// Scheduler accepts door events and places deferred reminders on the
// shared event queue.
//
// Scheduling is deliberately not idempotent: a door opened twice before
// the first reminder fires produces two independent reminder chains.
type Scheduler struct {
	queue       Queue
	doors       *door.Registry
	eventQueue  string
	functionKey string
	logger      *logging.Logger
	now         func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(queue Queue, doors *door.Registry, cfg config.SchedulingConfig, functionKey string, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		queue:       queue,
		doors:       doors,
		eventQueue:  cfg.EventQueue,
		functionKey: functionKey,
		logger:      logger.With("component", "scheduler"),
		now:         time.Now,
	}
}

// Schedule validates the request, resolves the door, and enqueues a
// ScheduledEvent with scheduled-visibility delay.
//
// Validation failures (ErrUnauthorized, ErrValidation) occur before any
// queue operation; a request that fails validation has no side effects.
func (s *Scheduler) Schedule(ctx context.Context, req ScheduleRequest) (*ScheduleReceipt, error) {
	if !keyMatches(req.FunctionKey, s.functionKey) {
		return nil, ErrUnauthorized
	}
	if req.DoorName == "" {
		return nil, fmt.Errorf("%w: door name is required", ErrValidation)
	}
	if req.DelaySeconds > maxDelaySeconds {
		return nil, fmt.Errorf("%w: delay %d exceeds the %d second ceiling", ErrValidation, req.DelaySeconds, maxDelaySeconds)
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = EventOpened
	}

	delaySeconds := req.DelaySeconds
	if delaySeconds <= 0 {
		delaySeconds = s.doors.DelayMinutes(req.DoorName, eventType) * secondsPerMinute
	}
	delay := time.Duration(delaySeconds) * time.Second

	// The announcement reads in minutes; a sub-minute delay still says 1.
	durationMinutes := delaySeconds / secondsPerMinute
	if durationMinutes < 1 {
		durationMinutes = 1
	}

	key, _, _ := s.doors.Resolve(req.DoorName)
	event := ScheduledEvent{
		DoorName:        req.DoorName,
		DoorKey:         key,
		DelaySeconds:    strconv.Itoa(delaySeconds),
		TargetDevice:    s.doors.TargetDevice(req.DoorName, eventType),
		AnnounceMessage: s.doors.AnnounceMessage(req.DoorName, eventType, durationMinutes),
		EventType:       eventType,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding scheduled event: %w", err)
	}

	messageID := eventMessageID(req.DoorName, s.now())
	if err := s.queue.SendScheduled(ctx, s.eventQueue, messageID, body, delay); err != nil {
		return nil, fmt.Errorf("%w: scheduling event for %q: %w", ErrQueueOperation, req.DoorName, err)
	}

	s.logger.Info("reminder scheduled",
		"door", req.DoorName,
		"door_key", key,
		"delay_seconds", delaySeconds,
		"device", event.TargetDevice,
		"message_id", messageID,
	)

	return &ScheduleReceipt{
		DoorName:     req.DoorName,
		DoorKey:      key,
		TargetDevice: event.TargetDevice,
		Delay:        delay,
		MessageID:    messageID,
	}, nil
}
