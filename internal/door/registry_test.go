package door

import (
	"os"
	"path/filepath"
	"testing"
)

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Info(string, ...any) {}

func TestLoad_ValidTable(t *testing.T) {
	content := `{
  "front_door": {
    "cancelQueueName": "front-cancel",
    "announceTemplate": "The front door has been left open for {duration} minutes.",
    "targetDevice": "upstairs",
    "delayMinutes": 3
  },
  "Garage Door": {
    "cancelQueueName": "garage-cancel",
    "targetDevice": "downstairs"
  }
}`
	path := filepath.Join(t.TempDir(), "doors.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write door table: %v", err)
	}

	r := Load(path, Options{DefaultDevice: "all", DefaultDelayMinutes: 5}, nopLogger{})

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	// Table keys are normalised at load.
	key, cfg, ok := r.Resolve("garage door")
	if !ok || key != "garage_door" {
		t.Fatalf("Resolve(garage door) = (%q, %v), want (garage_door, true)", key, ok)
	}
	if cfg.CancelQueue != "garage-cancel" {
		t.Errorf("CancelQueue = %q, want %q", cfg.CancelQueue, "garage-cancel")
	}

	if got := r.DelayMinutes("front_door", "opened"); got != 3 {
		t.Errorf("DelayMinutes(front_door) = %d, want per-door 3", got)
	}
	if got := r.DelayMinutes("garage_door", "opened"); got != 5 {
		t.Errorf("DelayMinutes(garage_door) = %d, want default 5", got)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	r := Load("/nonexistent/doors.json", Options{}, nopLogger{})

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 built-in defaults", r.Len())
	}
	if _, _, ok := r.Resolve("front_door"); !ok {
		t.Error("Resolve(front_door) should hit the built-in default set")
	}
	if _, _, ok := r.Resolve("garage_door"); !ok {
		t.Error("Resolve(garage_door) should hit the built-in default set")
	}
}

func TestLoad_CorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doors.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("failed to write door table: %v", err)
	}

	r := Load(path, Options{}, nopLogger{})
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2 built-in defaults", r.Len())
	}
}

func TestNewRegistry_DuplicateKey(t *testing.T) {
	doors := []Config{
		{Key: "front_door"},
		{Key: "Front Door"},
	}
	if _, err := NewRegistry(doors, Options{}); err == nil {
		t.Error("NewRegistry() expected error for duplicate key, got nil")
	}
}

func TestNewRegistry_EmptyKey(t *testing.T) {
	if _, err := NewRegistry([]Config{{Key: "  "}}, Options{}); err == nil {
		t.Error("NewRegistry() expected error for empty key, got nil")
	}
}
