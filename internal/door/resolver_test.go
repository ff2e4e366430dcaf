package door

import "testing"

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(defaults(), Options{DefaultDevice: "all", DefaultDelayMinutes: 5})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Front Door", "front_door"},
		{"  FRONT DOOR  ", "front_door"},
		{"garage_door", "garage_door"},
		{"Sliding Door Right", "sliding_door_right"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolve_ExactMatch(t *testing.T) {
	r := testRegistry(t)

	for _, name := range []string{"front_door", "Front Door", "  front door "} {
		key, cfg, ok := r.Resolve(name)
		if !ok {
			t.Errorf("Resolve(%q) ok = false, want true", name)
			continue
		}
		if key != "front_door" {
			t.Errorf("Resolve(%q) key = %q, want %q", name, key, "front_door")
		}
		if cfg.CancelQueue != "front_door_cancel" {
			t.Errorf("Resolve(%q) cancel queue = %q, want %q", name, cfg.CancelQueue, "front_door_cancel")
		}
	}
}

func TestResolve_SubstringMatch(t *testing.T) {
	r := testRegistry(t)

	// Configured key contained in the name.
	key, _, ok := r.Resolve("the front door sensor")
	if !ok || key != "front_door" {
		t.Errorf("Resolve(%q) = (%q, %v), want (front_door, true)", "the front door sensor", key, ok)
	}

	// Name contained in the configured key.
	key, _, ok = r.Resolve("garage")
	if !ok || key != "garage_door" {
		t.Errorf("Resolve(%q) = (%q, %v), want (garage_door, true)", "garage", key, ok)
	}
}

func TestResolve_Miss(t *testing.T) {
	r := testRegistry(t)

	key, cfg, ok := r.Resolve("attic hatch")
	if ok {
		t.Errorf("Resolve(%q) ok = true, want false", "attic hatch")
	}
	if cfg != nil {
		t.Errorf("Resolve(%q) cfg = %+v, want nil", "attic hatch", cfg)
	}
	if key != "attic_hatch" {
		t.Errorf("Resolve(%q) key = %q, want normalised input", "attic hatch", key)
	}
}

func TestCancelQueueName_Fallback(t *testing.T) {
	r := testRegistry(t)

	if got := r.CancelQueueName("attic_door", "closed"); got != "attic_door" {
		t.Errorf("CancelQueueName(attic_door) = %q, want %q", got, "attic_door")
	}
	if got := r.CancelQueueName("Front Door", "closed"); got != "front_door_cancel" {
		t.Errorf("CancelQueueName(Front Door) = %q, want %q", got, "front_door_cancel")
	}
}

func TestAnnounceMessage_TemplateRendering(t *testing.T) {
	r := testRegistry(t)

	got := r.AnnounceMessage("garage_door", "opened", 7)
	want := "The garage door has been left open for 7 minutes."
	if got != want {
		t.Errorf("AnnounceMessage() = %q, want %q", got, want)
	}
}

func TestAnnounceMessage_Fallback(t *testing.T) {
	r := testRegistry(t)

	got := r.AnnounceMessage("Attic Door", "opened", 5)
	want := "The attic door has been opened."
	if got != want {
		t.Errorf("AnnounceMessage() = %q, want %q", got, want)
	}
}

func TestTargetDevice(t *testing.T) {
	doors := []Config{
		{Key: "cellar_door", CancelQueue: "cellar_cancel", TargetDevice: "downstairs"},
	}
	r, err := NewRegistry(doors, Options{DefaultDevice: "all", DefaultDelayMinutes: 5})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if got := r.TargetDevice("cellar_door", "opened"); got != "downstairs" {
		t.Errorf("TargetDevice(cellar_door) = %q, want %q", got, "downstairs")
	}
	if got := r.TargetDevice("unknown_door", "opened"); got != "all" {
		t.Errorf("TargetDevice(unknown_door) = %q, want default %q", got, "all")
	}
}

func TestDelayMinutes(t *testing.T) {
	doors := []Config{
		{Key: "patio_door", DelayMinutes: 10},
		{Key: "shed_door"},
	}
	r, err := NewRegistry(doors, Options{DefaultDelayMinutes: 5})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if got := r.DelayMinutes("patio_door", "opened"); got != 10 {
		t.Errorf("DelayMinutes(patio_door) = %d, want 10", got)
	}
	if got := r.DelayMinutes("shed_door", "opened"); got != 5 {
		t.Errorf("DelayMinutes(shed_door) = %d, want default 5", got)
	}
	if got := r.DelayMinutes("no_such_door", "opened"); got != 5 {
		t.Errorf("DelayMinutes(no_such_door) = %d, want default 5", got)
	}
}
