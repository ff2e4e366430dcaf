package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/doorwatch/internal/infrastructure/config"
	"github.com/nerrad567/doorwatch/internal/infrastructure/logging"
	"github.com/nerrad567/doorwatch/internal/infrastructure/mqtt"
	"github.com/nerrad567/doorwatch/internal/scheduling"
)

// Subscriber is the MQTT surface the bridge needs. Implemented by
// mqtt.Client; tests use a fake.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Bridge translates door-sensor state messages into schedule and cancel
// requests.
//
// Sensors publish to {prefix}/door/{name}/state with either a bare state
// string ("open" / "closed") or a JSON object carrying a "state" field.
// An open state schedules a reminder with the door's configured delay; a
// closed state sends the cancel signal.
type Bridge struct {
	scheduler   *scheduling.Scheduler
	cancel      *scheduling.CancelService
	functionKey string
	topicPrefix string
	qos         byte
	logger      *logging.Logger
}

// statePayload is the JSON form of a sensor state message.
type statePayload struct {
	State string `json:"state"`
}

// New creates a Bridge. It does not subscribe until Start is called.
func New(scheduler *scheduling.Scheduler, cancel *scheduling.CancelService, cfg config.MQTTConfig, functionKey string, logger *logging.Logger) *Bridge {
	return &Bridge{
		scheduler:   scheduler,
		cancel:      cancel,
		functionKey: functionKey,
		topicPrefix: cfg.TopicPrefix,
		qos:         byte(cfg.QoS),
		logger:      logger.With("component", "bridge"),
	}
}

// Start subscribes to the door state wildcard topic.
func (b *Bridge) Start(sub Subscriber) error {
	topic := mqtt.AllDoorStates(b.topicPrefix)
	if err := sub.Subscribe(topic, b.qos, b.handleMessage); err != nil {
		return fmt.Errorf("subscribing to %q: %w", topic, err)
	}
	b.logger.Info("door sensor bridge started", "topic", topic)
	return nil
}

// handleMessage processes one sensor state message.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	doorName := mqtt.DoorNameFromTopic(topic)
	if doorName == "" {
		return fmt.Errorf("topic %q does not match the door state scheme", topic)
	}

	state, err := parseState(payload)
	if err != nil {
		return fmt.Errorf("door %q: %w", doorName, err)
	}

	// Handlers run on paho's goroutines with no request context to
	// inherit.
	ctx := context.Background()

	switch state {
	case "open", "opened", "on", "true", "1":
		receipt, err := b.scheduler.Schedule(ctx, scheduling.ScheduleRequest{
			DoorName:    doorName,
			EventType:   scheduling.EventOpened,
			FunctionKey: b.functionKey,
		})
		if err != nil {
			return fmt.Errorf("scheduling for %q: %w", doorName, err)
		}
		b.logger.Info("sensor open scheduled reminder",
			"door", doorName,
			"delay", receipt.Delay,
		)
	case "closed", "close", "off", "false", "0":
		if _, err := b.cancel.RequestCancel(ctx, doorName, b.functionKey); err != nil {
			return fmt.Errorf("cancelling for %q: %w", doorName, err)
		}
		b.logger.Info("sensor closed sent cancel", "door", doorName)
	default:
		return fmt.Errorf("door %q: unknown state %q", doorName, state)
	}

	return nil
}

// parseState extracts the door state from a sensor payload. Accepts a JSON
// object with a "state" field or a bare state string.
func parseState(payload []byte) (string, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return "", fmt.Errorf("empty state payload")
	}

	if strings.HasPrefix(trimmed, "{") {
		var p statePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", fmt.Errorf("parsing state payload: %w", err)
		}
		if p.State == "" {
			return "", fmt.Errorf("state payload has no state field")
		}
		return strings.ToLower(p.State), nil
	}

	return strings.ToLower(strings.Trim(trimmed, `"`)), nil
}
