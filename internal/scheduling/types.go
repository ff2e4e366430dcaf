package scheduling

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Event types carried on the wire.
const (
	EventOpened = "opened"
	EventClosed = "closed"
)

// ActionCancel is the action field of a cancel signal.
const ActionCancel = "cancel"

// maxDelaySeconds caps reminder delays at 24 hours. Anything longer is a
// caller mistake, and huge values would overflow the Duration conversion.
const maxDelaySeconds = 24 * 60 * 60

// ScheduledEvent is the enriched wire shape for a pending deferred
// reminder. Field names are part of the wire contract (PascalCase JSON,
// numbers carried as strings by the original producers).
type ScheduledEvent struct {
	DoorName        string `json:"DoorName"`
	DoorKey         string `json:"DoorKey"`
	DelaySeconds    string `json:"DelaySeconds"`
	TargetDevice    string `json:"TargetDevice"`
	AnnounceMessage string `json:"AnnounceMessage"`
	EventType       string `json:"EventType"`

	// Repeat counts how many times this chain has fired. Additive field:
	// absent on legacy messages, which start at zero.
	Repeat int `json:"Repeat,omitempty"`
}

// Delay parses the DelaySeconds field. Returns an error for missing,
// unparseable or non-positive values; callers fall back to the door's
// configured delay.
func (e *ScheduledEvent) Delay() (time.Duration, error) {
	secs, err := strconv.Atoi(e.DelaySeconds)
	if err != nil {
		return 0, fmt.Errorf("parsing DelaySeconds %q: %w", e.DelaySeconds, err)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("DelaySeconds %d is not positive", secs)
	}
	if secs > maxDelaySeconds {
		return 0, fmt.Errorf("DelaySeconds %d exceeds the %d second ceiling", secs, maxDelaySeconds)
	}
	return time.Duration(secs) * time.Second, nil
}

// legacyEvent is the pre-enrichment wire shape still produced by old
// routine integrations. The TimeDealay spelling is wrong but it is the
// spelling on the wire; keep it.
type legacyEvent struct {
	EventName      string `json:"EventName"`
	AnnounceFlowID string `json:"AnnounceFlowId"`
	TimeDealay     string `json:"TimeDealay"`
}

// ParsedEvent is the result of parsing a queue message body: the event in
// enriched form, plus whether it arrived in the legacy shape.
type ParsedEvent struct {
	Event ScheduledEvent

	// Legacy is true when the message arrived in the minimal legacy
	// shape. Legacy events address their cancel queue by the literal
	// event name rather than through the door table.
	Legacy bool
}

// ParseScheduledEvent parses a queue message body, attempting the
// enriched shape first and falling back to the legacy shape. A body that
// matches neither returns ErrMalformedMessage.
func ParseScheduledEvent(body []byte) (*ParsedEvent, error) {
	var enriched ScheduledEvent
	if err := json.Unmarshal(body, &enriched); err == nil && enriched.DoorName != "" {
		if enriched.EventType == "" {
			enriched.EventType = EventOpened
		}
		return &ParsedEvent{Event: enriched}, nil
	}

	var legacy legacyEvent
	if err := json.Unmarshal(body, &legacy); err == nil && legacy.EventName != "" {
		return &ParsedEvent{
			Event: ScheduledEvent{
				DoorName:     legacy.EventName,
				TargetDevice: legacy.AnnounceFlowID,
				DelaySeconds: legacy.TimeDealay,
				EventType:    EventOpened,
			},
			Legacy: true,
		}, nil
	}

	return nil, fmt.Errorf("%w: body matches neither wire shape", ErrMalformedMessage)
}

// CancelSignal is the wire shape placed on a door's cancel queue to
// suppress an imminent reminder.
type CancelSignal struct {
	DoorName  string `json:"DoorName"`
	DoorKey   string `json:"DoorKey"`
	Action    string `json:"Action"`
	EventType string `json:"EventType"`

	// Timestamp is ISO-8601 UTC.
	Timestamp string `json:"Timestamp"`
}
