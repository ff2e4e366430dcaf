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

// Processor implements the cancel-or-fire state machine. It is invoked
// once per ScheduledEvent becoming visible on the event queue:
//
//  1. Parse the body (enriched shape, then legacy).
//  2. Resolve the door's cancel queue.
//  3. Bounded receive on the cancel queue: a matched cancel signal is
//     consumed and the reminder chain terminates.
//  4. Otherwise fire the announcement and enqueue the next link of the
//     chain with the same door identity and delay.
//
// Nothing serialises two chains for the same door: two "door opened"
// events produce two chains that compete for the same cancel queue, and
// one cancel signal suppresses only one of them. Known design constraint.
type Processor struct {
	queue      Queue
	doors      *door.Registry
	announcer  Announcer
	telemetry  Telemetry
	eventQueue string
	cancelWait time.Duration
	maxRepeats int
	logger     *logging.Logger
	now        func() time.Time
}

// NewProcessor creates a Processor. telemetry may be nil.
func NewProcessor(queue Queue, doors *door.Registry, announcer Announcer, telemetry Telemetry, cfg config.SchedulingConfig, logger *logging.Logger) *Processor {
	return &Processor{
		queue:      queue,
		doors:      doors,
		announcer:  announcer,
		telemetry:  telemetry,
		eventQueue: cfg.EventQueue,
		cancelWait: cfg.CancelWait(),
		maxRepeats: cfg.MaxRepeats,
		logger:     logger.With("component", "processor"),
		now:        time.Now,
	}
}

// Process handles one visible ScheduledEvent. A returned error means the
// invocation failed and the message should be retried or dead-lettered
// by the broker; a nil return means the event was fully handled
// (suppressed, or fired and rescheduled).
func (p *Processor) Process(ctx context.Context, body []byte) error {
	parsed, err := ParseScheduledEvent(body)
	if err != nil {
		// Log the raw payload so the dead-lettered message can be
		// diagnosed without broker tooling.
		p.logger.Error("unparseable event message",
			"payload", string(body),
			"error", err,
		)
		return err
	}

	event := parsed.Event
	cancelQueue := p.cancelQueueFor(parsed)

	log := p.logger.With(
		"door", event.DoorName,
		"door_key", event.DoorKey,
		"cancel_queue", cancelQueue,
		"repeat", event.Repeat,
	)

	cancelBody, complete, err := p.queue.ReceiveOne(ctx, cancelQueue, p.cancelWait)
	if err != nil {
		// A backend failure must not be treated as "no cancel found":
		// that risks announcing a door that was already closed. Fail
		// the invocation so the broker redelivers.
		return fmt.Errorf("%w: checking cancel queue %q: %w", ErrQueueOperation, cancelQueue, err)
	}

	if cancelBody != nil {
		if err := complete(); err != nil {
			return fmt.Errorf("%w: completing cancel on %q: %w", ErrQueueOperation, cancelQueue, err)
		}

		var signal CancelSignal
		if err := json.Unmarshal(cancelBody, &signal); err != nil {
			// The signal's presence is what matters; its body is
			// only used for logging.
			log.Warn("cancel signal body unreadable", "error", err)
		}
		log.Info("reminder suppressed by cancel signal", "cancelled_at", signal.Timestamp)
		if p.telemetry != nil {
			p.telemetry.RecordSuppression(event.DoorKey)
		}
		return nil
	}

	p.fire(ctx, log, event)

	return p.reschedule(ctx, log, parsed)
}

// cancelQueueFor resolves the cancel queue for a parsed event. Legacy
// messages address the queue by literal event name; enriched messages go
// through the door table.
func (p *Processor) cancelQueueFor(parsed *ParsedEvent) string {
	if parsed.Legacy {
		return parsed.Event.DoorName
	}
	return p.doors.CancelQueueName(parsed.Event.DoorName, parsed.Event.EventType)
}

// fire delivers the announcement. A delivery failure is logged and does
// not abort rescheduling: the reminder cadence continues even if one
// announcement was lost.
func (p *Processor) fire(ctx context.Context, log *logging.Logger, event ScheduledEvent) {
	message := event.AnnounceMessage
	device := event.TargetDevice
	if message == "" {
		message = p.doors.AnnounceMessage(event.DoorName, event.EventType, p.doors.DelayMinutes(event.DoorName, event.EventType))
	}
	if device == "" {
		device = p.doors.TargetDevice(event.DoorName, event.EventType)
	}

	err := p.announcer.Announce(ctx, message, device)
	if err != nil {
		log.Error("announcement delivery failed",
			"device", device,
			"error", err,
		)
	} else {
		log.Info("announcement delivered", "device", device)
	}
	if p.telemetry != nil {
		p.telemetry.RecordFiring(event.DoorKey, device, err == nil)
	}
}

// reschedule enqueues the next link of the reminder chain, unless the
// configured repeat bound has been reached.
//
// A legacy event reschedules in the legacy wire shape: its cancel queue
// is addressed by literal event name, and switching shape mid-chain
// would move the chain to a different queue than the one the legacy
// cancel producers signal on.
func (p *Processor) reschedule(ctx context.Context, log *logging.Logger, parsed *ParsedEvent) error {
	event := parsed.Event
	next := event
	next.Repeat = event.Repeat + 1

	if p.maxRepeats > 0 && next.Repeat >= p.maxRepeats {
		log.Warn("reminder chain reached repeat bound, stopping",
			"max_repeats", p.maxRepeats,
		)
		return nil
	}

	delay, err := event.Delay()
	if err != nil {
		delay = time.Duration(p.doors.DelayMinutes(event.DoorName, event.EventType)) * time.Minute
		log.Warn("event carries no usable delay, using door default",
			"delay", delay,
			"error", err,
		)
	}

	var payload any = next
	if parsed.Legacy {
		payload = legacyEvent{
			EventName:      event.DoorName,
			AnnounceFlowID: event.TargetDevice,
			TimeDealay:     event.DelaySeconds,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding rescheduled event: %w", err)
	}

	messageID := eventMessageID(event.DoorName, p.now())
	if err := p.queue.SendScheduled(ctx, p.eventQueue, messageID, body, delay); err != nil {
		return fmt.Errorf("%w: rescheduling reminder for %q: %w", ErrQueueOperation, event.DoorName, err)
	}

	log.Info("reminder rescheduled",
		"delay", delay,
		"message_id", messageID,
	)
	return nil
}
