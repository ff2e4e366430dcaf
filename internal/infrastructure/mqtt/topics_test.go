package mqtt

import "testing"

func TestDoorStateTopic(t *testing.T) {
	got := DoorStateTopic("doorwatch", "front_door")
	want := "doorwatch/door/front_door/state"
	if got != want {
		t.Errorf("DoorStateTopic() = %q, want %q", got, want)
	}
}

func TestAllDoorStates(t *testing.T) {
	got := AllDoorStates("doorwatch")
	want := "doorwatch/door/+/state"
	if got != want {
		t.Errorf("AllDoorStates() = %q, want %q", got, want)
	}
}

func TestDoorNameFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"doorwatch/door/front_door/state", "front_door"},
		{"doorwatch/door/garage_door/state", "garage_door"},
		{"doorwatch/door/front_door/command", ""},
		{"doorwatch/sensor/front_door/state", ""},
		{"doorwatch/door/state", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := DoorNameFromTopic(tt.topic); got != tt.want {
			t.Errorf("DoorNameFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}
