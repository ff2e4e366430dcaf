package door

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Logger is the minimal logging surface the registry needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// Registry holds the door table plus the fallbacks applied to doors that
// have no configuration. It is built once at startup and immutable
// afterwards, so it is safe for concurrent use without locking.
type Registry struct {
	ordered      []Config
	byKey        map[string]*Config
	defaultZone  string
	defaultDelay int
}

// Options carries the fallback policy for unresolved or partially
// configured doors.
type Options struct {
	// DefaultDevice is the zone announcements target when a door has no
	// configured device.
	DefaultDevice string

	// DefaultDelayMinutes is the reminder interval for doors without a
	// configured delay.
	DefaultDelayMinutes int
}

// NewRegistry builds a Registry from an explicit door table.
//
// Keys are normalised and entries with duplicate keys are rejected. The
// slice order is preserved: substring matching stops at the first entry
// that matches, so order is the tie-break.
func NewRegistry(doors []Config, opts Options) (*Registry, error) {
	if opts.DefaultDevice == "" {
		opts.DefaultDevice = "all"
	}
	if opts.DefaultDelayMinutes <= 0 {
		opts.DefaultDelayMinutes = 5
	}

	r := &Registry{
		ordered:      make([]Config, 0, len(doors)),
		byKey:        make(map[string]*Config, len(doors)),
		defaultZone:  opts.DefaultDevice,
		defaultDelay: opts.DefaultDelayMinutes,
	}

	for _, d := range doors {
		key := Normalize(d.Key)
		if key == "" {
			return nil, fmt.Errorf("door entry with empty key")
		}
		if _, exists := r.byKey[key]; exists {
			return nil, fmt.Errorf("duplicate door key %q", key)
		}
		d.Key = key
		r.ordered = append(r.ordered, d)
		r.byKey[key] = &r.ordered[len(r.ordered)-1]
	}

	return r, nil
}

// Load reads the door table from the JSON document at path and builds a
// Registry.
//
// The document is an object keyed by door identifier:
//
//	{"front_door": {"cancelQueueName": "...", "announceTemplate": "...",
//	                "targetDevice": "all", "delayMinutes": 5}}
//
// A missing or unparsable document is never fatal: the built-in default
// table is used instead and a warning is logged. JSON objects do not
// define an order, so entries are sorted by key at load to keep the
// substring tie-break deterministic.
func Load(path string, opts Options, log Logger) *Registry {
	doors, err := readTable(path)
	if err != nil {
		if log != nil {
			log.Warn("door table unavailable, using built-in defaults",
				"path", path,
				"error", err,
			)
		}
		doors = defaults()
	} else if log != nil {
		log.Info("door table loaded", "path", path, "doors", len(doors))
	}

	r, err := NewRegistry(doors, opts)
	if err != nil {
		if log != nil {
			log.Warn("door table invalid, using built-in defaults", "error", err)
		}
		r, _ = NewRegistry(defaults(), opts)
	}
	return r
}

// readTable parses the door table document into an ordered slice.
func readTable(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading door table: %w", err)
	}

	var table map[string]Config
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing door table: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("door table is empty")
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doors := make([]Config, 0, len(keys))
	for _, k := range keys {
		d := table[k]
		d.Key = k
		doors = append(doors, d)
	}
	return doors, nil
}

// Len returns the number of configured doors.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// Keys returns the configured door keys in matching order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.ordered))
	for i, d := range r.ordered {
		keys[i] = d.Key
	}
	return keys
}
