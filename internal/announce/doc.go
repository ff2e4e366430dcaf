// Package announce delivers spoken announcements to the household voice
// endpoint. It is the single outbound integration of the relay: the
// cancel-or-fire processor hands it a rendered message and a target
// device, and it posts them as JSON with the shared function key.
package announce
