package door

// Config describes one recognised door.
//
// The JSON field names match the door table document (doors.json), which
// predates this service and is shared with the routine tooling that
// provisions the cancel queues.
type Config struct {
	// Key is the canonical identifier: lowercase, trimmed, spaces
	// replaced with underscores. Populated from the table key at load.
	Key string `json:"-"`

	// CancelQueue is the queue used to signal cancellation for this door.
	CancelQueue string `json:"cancelQueueName"`

	// AnnounceTemplate is the announcement text with optional {duration},
	// {door} and {event} placeholders.
	AnnounceTemplate string `json:"announceTemplate"`

	// TargetDevice is the logical zone the announcement is directed at.
	TargetDevice string `json:"targetDevice"`

	// DelayMinutes is the reminder interval for this door. Zero means
	// "use the configured default".
	DelayMinutes int `json:"delayMinutes"`
}

// defaults returns the built-in door table used when no doors.json can be
// loaded. Two entries, mirroring the smallest real deployment.
func defaults() []Config {
	return []Config{
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
}
