// Package mqtt wraps paho.mqtt.golang for the optional door-sensor
// bridge. It provides connection management with automatic reconnection,
// subscription restoration, and the Doorwatch topic scheme
// ({prefix}/door/{name}/state).
package mqtt
