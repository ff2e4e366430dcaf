// Package leak monitors the household water metering service for leak
// notifications. It polls on a fixed interval and announces active leaks
// through the same voice endpoint the door reminders use. Optional;
// disabled by default.
package leak
