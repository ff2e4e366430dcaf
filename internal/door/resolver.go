package door

import (
	"strconv"
	"strings"
)

// Normalize canonicalises a free-text door name: lowercase, trimmed,
// spaces replaced with underscores.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(n, " ", "_")
}

// Resolve maps a free-text door name to its configuration.
//
// Matching order:
//  1. Exact match on the normalised name.
//  2. Substring containment either way round ("the front door sensor"
//     matches front_door). First configured entry wins.
//
// The returned key is the normalised input regardless of whether a
// configuration was found, so callers can fall back to the legacy
// queue-per-name scheme for unknown doors.
func (r *Registry) Resolve(name string) (string, *Config, bool) {
	key := Normalize(name)
	if key == "" {
		return "", nil, false
	}

	if cfg, ok := r.byKey[key]; ok {
		return cfg.Key, cfg, true
	}

	for i := range r.ordered {
		cfg := &r.ordered[i]
		if strings.Contains(key, cfg.Key) || strings.Contains(cfg.Key, key) {
			return cfg.Key, cfg, true
		}
	}

	return key, nil, false
}

// CancelQueueName returns the queue used to signal cancellation for the
// door. Unresolved doors use their normalised name as the queue name,
// preserving the legacy queue-per-event-name scheme.
func (r *Registry) CancelQueueName(name, eventType string) string {
	key, cfg, ok := r.Resolve(name)
	if ok && cfg.CancelQueue != "" {
		return cfg.CancelQueue
	}
	return key
}

// AnnounceMessage renders the announcement text for the door.
//
// The configured template may use {duration}, {door} and {event}
// placeholders; placeholders absent from the template are simply not
// substituted. Unresolved doors get the generic fallback sentence.
func (r *Registry) AnnounceMessage(name, eventType string, durationMinutes int) string {
	_, cfg, ok := r.Resolve(name)

	template := "The {door} has been {event}."
	if ok && cfg.AnnounceTemplate != "" {
		template = cfg.AnnounceTemplate
	}

	display := strings.ReplaceAll(Normalize(name), "_", " ")
	return strings.NewReplacer(
		"{duration}", strconv.Itoa(durationMinutes),
		"{door}", display,
		"{event}", eventType,
	).Replace(template)
}

// TargetDevice returns the announcement zone for the door, falling back
// to the default device for unresolved or unconfigured doors.
func (r *Registry) TargetDevice(name, eventType string) string {
	_, cfg, ok := r.Resolve(name)
	if ok && cfg.TargetDevice != "" {
		return cfg.TargetDevice
	}
	return r.defaultZone
}

// DelayMinutes returns the reminder interval for the door. Doors without
// a configured delay use the registry default.
func (r *Registry) DelayMinutes(name, eventType string) int {
	_, cfg, ok := r.Resolve(name)
	if ok && cfg.DelayMinutes > 0 {
		return cfg.DelayMinutes
	}
	return r.defaultDelay
}
