package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func enrichedBody(t *testing.T, event ScheduledEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

func testEvent() ScheduledEvent {
	return ScheduledEvent{
		DoorName:        "front_door",
		DoorKey:         "front_door",
		DelaySeconds:    "300",
		TargetDevice:    "all",
		AnnounceMessage: "The front door has been left open for 5 minutes.",
		EventType:       EventOpened,
	}
}

func newTestProcessor(t *testing.T, q *fakeQueue, a *fakeAnnouncer, maxRepeats int) *Processor {
	t.Helper()
	cfg := testSchedulingConfig()
	cfg.MaxRepeats = maxRepeats
	p := NewProcessor(q, testDoors(t), a, nil, cfg, testLogger())
	p.now = tickingClock(time.Unix(1700000000, 0))
	return p
}

func TestProcess_CancelSuppressesFire(t *testing.T) {
	q := newFakeQueue()
	a := &fakeAnnouncer{}
	p := newTestProcessor(t, q, a, 0)

	signal, _ := json.Marshal(CancelSignal{DoorName: "front_door", Action: ActionCancel})
	if err := q.SendWithTTL(context.Background(), "front_door_cancel", "cancel_front_door_1", signal, time.Minute); err != nil {
		t.Fatalf("seeding cancel queue: %v", err)
	}

	if err := p.Process(context.Background(), enrichedBody(t, testEvent())); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if a.callCount() != 0 {
		t.Errorf("announcements = %d, want 0 (suppressed)", a.callCount())
	}
	if len(q.scheduled) != 0 {
		t.Errorf("reschedules = %d, want 0 (chain terminated)", len(q.scheduled))
	}
	if q.liveCount("front_door_cancel") != 0 {
		t.Errorf("cancel signal not completed, %d still live", q.liveCount("front_door_cancel"))
	}
}

func TestProcess_NoCancelFiresAndReschedules(t *testing.T) {
	q := newFakeQueue()
	a := &fakeAnnouncer{}
	p := newTestProcessor(t, q, a, 0)

	event := testEvent()
	if err := p.Process(context.Background(), enrichedBody(t, event)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if a.callCount() != 1 {
		t.Fatalf("announcements = %d, want 1", a.callCount())
	}
	if a.calls[0].Message != event.AnnounceMessage {
		t.Errorf("announced %q, want %q", a.calls[0].Message, event.AnnounceMessage)
	}
	if a.calls[0].Device != "all" {
		t.Errorf("device = %q, want all", a.calls[0].Device)
	}

	if len(q.scheduled) != 1 {
		t.Fatalf("reschedules = %d, want exactly 1", len(q.scheduled))
	}
	if q.scheduled[0].Queue != "door-events" {
		t.Errorf("reschedule queue = %q, want door-events", q.scheduled[0].Queue)
	}
	if q.scheduled[0].Delay != 300*time.Second {
		t.Errorf("reschedule delay = %v, want same 300s", q.scheduled[0].Delay)
	}

	var next ScheduledEvent
	if err := json.Unmarshal(q.scheduled[0].Body, &next); err != nil {
		t.Fatalf("rescheduled body unparseable: %v", err)
	}
	if next.DoorName != event.DoorName || next.DelaySeconds != event.DelaySeconds {
		t.Errorf("rescheduled identity changed: %+v", next)
	}
	if next.Repeat != 1 {
		t.Errorf("Repeat = %d, want 1", next.Repeat)
	}
	if !strings.HasPrefix(q.scheduled[0].MessageID, "front_door_") {
		t.Errorf("message ID %q not attributable to door", q.scheduled[0].MessageID)
	}
}

func TestProcess_ExpiredCancelDoesNotSuppress(t *testing.T) {
	q := newFakeQueue()
	clock := time.Unix(1700000000, 0)
	q.now = func() time.Time { return clock }

	a := &fakeAnnouncer{}
	p := newTestProcessor(t, q, a, 0)

	signal, _ := json.Marshal(CancelSignal{DoorName: "front_door", Action: ActionCancel})
	if err := q.SendWithTTL(context.Background(), "front_door_cancel", "cancel_front_door_1", signal, time.Minute); err != nil {
		t.Fatalf("seeding cancel queue: %v", err)
	}

	// The signal outlives its TTL before the reminder becomes visible.
	clock = clock.Add(2 * time.Minute)

	if err := p.Process(context.Background(), enrichedBody(t, testEvent())); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if a.callCount() != 1 {
		t.Errorf("announcements = %d, want 1 (expired cancel ignored)", a.callCount())
	}
	if len(q.scheduled) != 1 {
		t.Errorf("reschedules = %d, want 1", len(q.scheduled))
	}
}

func TestProcess_BackendErrorFailsLoudly(t *testing.T) {
	q := newFakeQueue()
	q.receiveErr = errors.New("broker unavailable")
	a := &fakeAnnouncer{}
	p := newTestProcessor(t, q, a, 0)

	err := p.Process(context.Background(), enrichedBody(t, testEvent()))
	if !errors.Is(err, ErrQueueOperation) {
		t.Fatalf("Process() error = %v, want ErrQueueOperation", err)
	}
	if a.callCount() != 0 {
		t.Errorf("announcements = %d, want 0 (must not fire on backend error)", a.callCount())
	}
	if len(q.scheduled) != 0 {
		t.Errorf("reschedules = %d, want 0", len(q.scheduled))
	}
}

func TestProcess_MalformedMessage(t *testing.T) {
	q := newFakeQueue()
	a := &fakeAnnouncer{}
	p := newTestProcessor(t, q, a, 0)

	err := p.Process(context.Background(), []byte(`{"Unrelated": true}`))
	if !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("Process() error = %v, want ErrMalformedMessage", err)
	}
	if a.callCount() != 0 || len(q.scheduled) != 0 {
		t.Error("malformed message must have no side effects")
	}
}

func TestProcess_LegacyShape(t *testing.T) {
	q := newFakeQueue()
	a := &fakeAnnouncer{}
	p := newTestProcessor(t, q, a, 0)

	// Legacy messages address the cancel queue by literal event name,
	// not through the door table.
	signal, _ := json.Marshal(CancelSignal{DoorName: "front_door", Action: ActionCancel})
	if err := q.SendWithTTL(context.Background(), "front_door", "cancel_front_door_1", signal, time.Minute); err != nil {
		t.Fatalf("seeding cancel queue: %v", err)
	}

	body := []byte(`{"EventName": "front_door", "AnnounceFlowId": "all", "TimeDealay": "120"}`)
	if err := p.Process(context.Background(), body); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if a.callCount() != 0 {
		t.Errorf("announcements = %d, want 0 (legacy cancel matched)", a.callCount())
	}
}

func TestProcess_LegacyReschedulesInLegacyShape(t *testing.T) {
	q := newFakeQueue()
	a := &fakeAnnouncer{}
	p := newTestProcessor(t, q, a, 0)

	body := []byte(`{"EventName": "side_gate", "AnnounceFlowId": "downstairs", "TimeDealay": "120"}`)
	if err := p.Process(context.Background(), body); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(q.scheduled) != 1 {
		t.Fatalf("reschedules = %d, want 1", len(q.scheduled))
	}
	var next map[string]string
	if err := json.Unmarshal(q.scheduled[0].Body, &next); err != nil {
		t.Fatalf("rescheduled body unparseable: %v", err)
	}
	if next["TimeDealay"] != "120" {
		t.Errorf("rescheduled body = %s, want legacy shape with TimeDealay", q.scheduled[0].Body)
	}
	if next["EventName"] != "side_gate" {
		t.Errorf("EventName = %q, want side_gate", next["EventName"])
	}
}

func TestProcess_AnnounceFailureStillReschedules(t *testing.T) {
	q := newFakeQueue()
	a := &fakeAnnouncer{err: errors.New("announce endpoint down")}
	p := newTestProcessor(t, q, a, 0)

	if err := p.Process(context.Background(), enrichedBody(t, testEvent())); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(q.scheduled) != 1 {
		t.Errorf("reschedules = %d, want 1 (cadence continues past delivery failure)", len(q.scheduled))
	}
}

func TestProcess_RepeatBoundStopsChain(t *testing.T) {
	q := newFakeQueue()
	a := &fakeAnnouncer{}
	p := newTestProcessor(t, q, a, 2)

	event := testEvent()
	event.Repeat = 1
	if err := p.Process(context.Background(), enrichedBody(t, event)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if a.callCount() != 1 {
		t.Errorf("announcements = %d, want 1 (bound applies to reschedule, not firing)", a.callCount())
	}
	if len(q.scheduled) != 0 {
		t.Errorf("reschedules = %d, want 0 (bound reached)", len(q.scheduled))
	}
}

func TestProcess_UnparseableDelayFallsBackToDoorDefault(t *testing.T) {
	q := newFakeQueue()
	a := &fakeAnnouncer{}
	p := newTestProcessor(t, q, a, 0)

	event := testEvent()
	event.DelaySeconds = "soon"
	if err := p.Process(context.Background(), enrichedBody(t, event)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(q.scheduled) != 1 {
		t.Fatalf("reschedules = %d, want 1", len(q.scheduled))
	}
	if q.scheduled[0].Delay != 5*time.Minute {
		t.Errorf("reschedule delay = %v, want door default 5m", q.scheduled[0].Delay)
	}
}
