// Package bridge connects MQTT door sensors to the reminder scheduler.
// It is optional; deployments whose sensors call the HTTP API directly
// run without it.
package bridge
