package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/doorwatch/internal/door"
	"github.com/nerrad567/doorwatch/internal/infrastructure/logging"
)

// sentMessage records one publish against the fake queue.
type sentMessage struct {
	Queue     string
	MessageID string
	Body      []byte
	Delay     time.Duration
	TTL       time.Duration
}

// pendingMsg is a message waiting on a fake cancel queue.
type pendingMsg struct {
	body      []byte
	expiresAt time.Time
	completed bool
}

// fakeQueue is an in-memory Queue with per-message TTL and an
// injectable clock, enough to exercise the cancel-or-fire protocol
// without a broker.
type fakeQueue struct {
	mu         sync.Mutex
	scheduled  []sentMessage
	ttlSent    []sentMessage
	pending    map[string][]*pendingMsg
	receiveErr error
	now        func() time.Time
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		pending: make(map[string][]*pendingMsg),
		now:     time.Now,
	}
}

func (q *fakeQueue) SendScheduled(_ context.Context, queue, messageID string, body []byte, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.scheduled = append(q.scheduled, sentMessage{Queue: queue, MessageID: messageID, Body: body, Delay: delay})
	return nil
}

func (q *fakeQueue) SendWithTTL(_ context.Context, queue, messageID string, body []byte, ttl time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ttlSent = append(q.ttlSent, sentMessage{Queue: queue, MessageID: messageID, Body: body, TTL: ttl})
	q.pending[queue] = append(q.pending[queue], &pendingMsg{
		body:      body,
		expiresAt: q.now().Add(ttl),
	})
	return nil
}

func (q *fakeQueue) ReceiveOne(_ context.Context, queue string, _ time.Duration) ([]byte, func() error, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.receiveErr != nil {
		return nil, nil, q.receiveErr
	}

	for _, m := range q.pending[queue] {
		if m.completed {
			continue
		}
		if q.now().After(m.expiresAt) {
			// Expired signals are dropped by the broker.
			continue
		}
		msg := m
		return m.body, func() error {
			q.mu.Lock()
			defer q.mu.Unlock()
			msg.completed = true
			return nil
		}, nil
	}
	return nil, nil, nil
}

// liveCount returns the number of uncompleted, unexpired messages on a
// fake cancel queue.
func (q *fakeQueue) liveCount(queue string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, m := range q.pending[queue] {
		if !m.completed && !q.now().After(m.expiresAt) {
			n++
		}
	}
	return n
}

// fakeAnnouncer records announcement calls and optionally fails them.
type fakeAnnouncer struct {
	mu    sync.Mutex
	calls []announceCall
	err   error
}

type announceCall struct {
	Message string
	Device  string
}

func (a *fakeAnnouncer) Announce(_ context.Context, message, device string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, announceCall{Message: message, Device: device})
	return a.err
}

func (a *fakeAnnouncer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

// testDoors builds the registry used across scheduling tests.
func testDoors(t *testing.T) *door.Registry {
	t.Helper()
	doors := []door.Config{
		{
			Key:              "front_door",
			CancelQueue:      "front_door_cancel",
			AnnounceTemplate: "The front door has been left open for {duration} minutes.",
			TargetDevice:     "all",
		},
		{
			Key:              "garage_door",
			CancelQueue:      "garage_door_cancel",
			AnnounceTemplate: "The garage door has been left open for {duration} minutes.",
			TargetDevice:     "all",
		},
	}
	r, err := door.NewRegistry(doors, door.Options{DefaultDevice: "all", DefaultDelayMinutes: 5})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func testLogger() *logging.Logger {
	return logging.Default()
}

// tickingClock returns a clock that advances one nanosecond per call, so
// consecutive message IDs are guaranteed distinct.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(1)
		return t
	}
}
