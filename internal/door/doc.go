// Package door resolves free-text door names to their reminder
// configuration: cancel queue, announcement template, target device and
// delay.
//
// The table is loaded once at startup (doors.json, falling back to a
// built-in default set) into an immutable Registry that is injected into
// the scheduler, processor and API. Resolution never fails hard: unknown
// doors fall back to a queue named after the door itself and a generic
// announcement, so sensors for doors nobody configured still work.
package door
