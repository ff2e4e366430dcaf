package mqtt

import (
	"fmt"
	"strings"
)

// Doorwatch topic scheme: {prefix}/door/{door_name}/state
//
// The door name segment is the sensor's own identifier; the bridge
// normalises it before resolving against the door table.

// DoorStateTopic returns the state topic for a single door.
//
// Example: doorwatch/door/front_door/state
func DoorStateTopic(prefix, doorName string) string {
	return fmt.Sprintf("%s/door/%s/state", prefix, doorName)
}

// AllDoorStates returns the wildcard pattern matching every door's state
// topic under prefix.
//
// Pattern: doorwatch/door/+/state
func AllDoorStates(prefix string) string {
	return fmt.Sprintf("%s/door/+/state", prefix)
}

// DoorNameFromTopic extracts the door name segment from a state topic.
// Returns "" when the topic does not match the scheme.
func DoorNameFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	// {prefix}/door/{name}/state, prefix itself must not contain "/"
	if len(parts) != 4 || parts[1] != "door" || parts[3] != "state" {
		return ""
	}
	return parts[2]
}
