package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Doorwatch.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	AMQP       AMQPConfig       `yaml:"amqp"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Doors      DoorsConfig      `yaml:"doors"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Announce   AnnounceConfig   `yaml:"announce"`
	Leak       LeakConfig       `yaml:"leak"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AMQPConfig contains RabbitMQ broker connection settings.
//
// Exchange names the delayed-message exchange used for scheduled-visibility
// delivery (requires the rabbitmq_delayed_message_exchange plugin).
type AMQPConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	VHost              string `yaml:"vhost"`
	Exchange           string `yaml:"exchange"`
	DeadLetterExchange string `yaml:"dead_letter_exchange"`
	Prefetch           int    `yaml:"prefetch"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// AuthConfig contains the shared function key that authenticates inbound
// schedule and cancel requests. Callers present it either as the "code"
// query parameter or the X-Functions-Key header.
type AuthConfig struct {
	FunctionKey string `yaml:"function_key"`
}

// DoorsConfig locates the door table and supplies fallbacks for doors
// that carry no configuration of their own.
type DoorsConfig struct {
	Path                string `yaml:"path"`
	DefaultDevice       string `yaml:"default_device"`
	DefaultDelayMinutes int    `yaml:"default_delay_minutes"`
}

// SchedulingConfig contains the reminder-chain settings.
//
// MaxRepeats bounds how many times a single chain may fire before it gives
// up; 0 keeps the legacy behaviour of repeating until cancelled.
type SchedulingConfig struct {
	EventQueue        string `yaml:"event_queue"`
	CancelWaitSeconds int    `yaml:"cancel_wait_seconds"`
	CancelTTLSeconds  int    `yaml:"cancel_ttl_seconds"`
	MaxRepeats        int    `yaml:"max_repeats"`
}

// AnnounceConfig contains the outbound announcement endpoint settings.
type AnnounceConfig struct {
	URL            string `yaml:"url"`
	Key            string `yaml:"key"`
	Priority       string `yaml:"priority"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LeakConfig contains the water-leak monitor settings. The monitor polls
// the metering vendor's leak-notification endpoint and announces active
// leaks through the voice endpoint. Optional; disabled by default.
type LeakConfig struct {
	Enabled         bool   `yaml:"enabled"`
	URL             string `yaml:"url"`
	Token           string `yaml:"token"`
	DeviceID        string `yaml:"device_id"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	TargetDevice    string `yaml:"target_device"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// MQTTConfig contains MQTT broker connection settings for the door-sensor
// bridge. The bridge is optional; when disabled the relay is HTTP-only.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TelemetryConfig contains InfluxDB settings for reminder telemetry.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads, parses, and validates the configuration file at path.
//
// Defaults are applied first, then the file, then environment variable
// overrides, so a minimal config file is enough for development.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config populated with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		AMQP: AMQPConfig{
			Host:     "localhost",
			Port:     5672,
			Username: "guest",
			Password: "guest",
			VHost:    "/",
			Exchange: "doorwatch.delayed",
			Prefetch: 1,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8093,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		Doors: DoorsConfig{
			Path:                "configs/doors.json",
			DefaultDevice:       "all",
			DefaultDelayMinutes: 5,
		},
		Scheduling: SchedulingConfig{
			EventQueue:        "door-events",
			CancelWaitSeconds: 2,
			CancelTTLSeconds:  60,
			MaxRepeats:        0,
		},
		Announce: AnnounceConfig{
			Priority:       "normal",
			TimeoutSeconds: 10,
		},
		Leak: LeakConfig{
			Enabled:         false,
			IntervalMinutes: 5,
			TargetDevice:    "all",
			TimeoutSeconds:  30,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "doorwatch",
			},
			QoS:         1,
			TopicPrefix: "doorwatch",
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			BatchSize:     20,
			FlushInterval: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides for settings
// that commonly differ between deployments, secrets in particular.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOORWATCH_AMQP_HOST"); v != "" {
		cfg.AMQP.Host = v
	}
	if v := os.Getenv("DOORWATCH_AMQP_USERNAME"); v != "" {
		cfg.AMQP.Username = v
	}
	if v := os.Getenv("DOORWATCH_AMQP_PASSWORD"); v != "" {
		cfg.AMQP.Password = v
	}
	if v := os.Getenv("DOORWATCH_FUNCTION_KEY"); v != "" {
		cfg.Auth.FunctionKey = v
	}
	if v := os.Getenv("DOORWATCH_ANNOUNCE_URL"); v != "" {
		cfg.Announce.URL = v
	}
	if v := os.Getenv("DOORWATCH_ANNOUNCE_KEY"); v != "" {
		cfg.Announce.Key = v
	}
	if v := os.Getenv("DOORWATCH_LEAK_TOKEN"); v != "" {
		cfg.Leak.Token = v
	}
	if v := os.Getenv("DOORWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("DOORWATCH_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
	if v := os.Getenv("DOORWATCH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
}

// minFunctionKeyLength guards against trivially guessable shared keys.
const minFunctionKeyLength = 16

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if c.AMQP.Host == "" {
		return fmt.Errorf("amqp.host is required")
	}
	if c.AMQP.Port <= 0 || c.AMQP.Port > 65535 {
		return fmt.Errorf("amqp.port must be between 1 and 65535, got %d", c.AMQP.Port)
	}
	if c.AMQP.Exchange == "" {
		return fmt.Errorf("amqp.exchange is required")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535, got %d", c.API.Port)
	}
	if len(c.Auth.FunctionKey) < minFunctionKeyLength {
		return fmt.Errorf("auth.function_key must be at least %d characters", minFunctionKeyLength)
	}
	if c.Doors.DefaultDelayMinutes <= 0 {
		return fmt.Errorf("doors.default_delay_minutes must be positive, got %d", c.Doors.DefaultDelayMinutes)
	}
	if c.Scheduling.EventQueue == "" {
		return fmt.Errorf("scheduling.event_queue is required")
	}
	if c.Scheduling.CancelWaitSeconds <= 0 {
		return fmt.Errorf("scheduling.cancel_wait_seconds must be positive, got %d", c.Scheduling.CancelWaitSeconds)
	}
	if c.Scheduling.CancelTTLSeconds <= 0 {
		return fmt.Errorf("scheduling.cancel_ttl_seconds must be positive, got %d", c.Scheduling.CancelTTLSeconds)
	}
	if c.Scheduling.MaxRepeats < 0 {
		return fmt.Errorf("scheduling.max_repeats must not be negative, got %d", c.Scheduling.MaxRepeats)
	}
	if c.Announce.URL == "" {
		return fmt.Errorf("announce.url is required")
	}
	if c.Leak.Enabled {
		if c.Leak.URL == "" {
			return fmt.Errorf("leak.url is required when the leak monitor is enabled")
		}
		if c.Leak.DeviceID == "" {
			return fmt.Errorf("leak.device_id is required when the leak monitor is enabled")
		}
		if c.Leak.IntervalMinutes <= 0 {
			return fmt.Errorf("leak.interval_minutes must be positive, got %d", c.Leak.IntervalMinutes)
		}
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			return fmt.Errorf("mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1, or 2, got %d", c.MQTT.QoS)
		}
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			return fmt.Errorf("telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Bucket == "" {
			return fmt.Errorf("telemetry.bucket is required when telemetry is enabled")
		}
	}
	return nil
}

// CancelWait returns the bounded wait applied to cancel-queue reads.
func (c *SchedulingConfig) CancelWait() time.Duration {
	return time.Duration(c.CancelWaitSeconds) * time.Second
}

// CancelTTL returns the time-to-live applied to cancel signals.
func (c *SchedulingConfig) CancelTTL() time.Duration {
	return time.Duration(c.CancelTTLSeconds) * time.Second
}

// GetReadTimeout returns the HTTP read timeout as a Duration.
func (c *APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a Duration.
func (c *APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the HTTP idle timeout as a Duration.
func (c *APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}

// AnnounceTimeout returns the outbound announcement timeout as a Duration.
func (c *AnnounceConfig) AnnounceTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CheckInterval returns the leak-check polling interval as a Duration.
func (c *LeakConfig) CheckInterval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// CheckTimeout returns the per-check HTTP timeout as a Duration.
func (c *LeakConfig) CheckTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
