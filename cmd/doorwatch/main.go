// Doorwatch - door-left-open reminder relay
//
// Doorwatch turns door sensor events into spoken reminders. An open door
// schedules a delayed announcement on a RabbitMQ delayed exchange; a close
// event races it with a short-lived cancel signal. Reminders repeat until
// cancelled. An optional monitor polls the water meter for leak
// notifications and announces those too.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/doorwatch/internal/announce"
	"github.com/nerrad567/doorwatch/internal/api"
	"github.com/nerrad567/doorwatch/internal/bridge"
	"github.com/nerrad567/doorwatch/internal/door"
	"github.com/nerrad567/doorwatch/internal/infrastructure/amqp"
	"github.com/nerrad567/doorwatch/internal/infrastructure/config"
	"github.com/nerrad567/doorwatch/internal/infrastructure/logging"
	"github.com/nerrad567/doorwatch/internal/infrastructure/mqtt"
	"github.com/nerrad567/doorwatch/internal/leak"
	"github.com/nerrad567/doorwatch/internal/scheduling"
	"github.com/nerrad567/doorwatch/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Doorwatch", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Door table
	doors := door.Load(cfg.Doors.Path, door.Options{
		DefaultDevice:       cfg.Doors.DefaultDevice,
		DefaultDelayMinutes: cfg.Doors.DefaultDelayMinutes,
	}, log)
	log.Info("door table ready", "doors", doors.Len())

	// RabbitMQ
	queue, err := amqp.Connect(cfg.AMQP)
	if err != nil {
		return fmt.Errorf("connecting to RabbitMQ: %w", err)
	}
	defer func() {
		log.Info("closing RabbitMQ connection")
		if closeErr := queue.Close(); closeErr != nil {
			log.Error("error closing RabbitMQ", "error", closeErr)
		}
	}()
	log.Info("RabbitMQ connected",
		"broker", fmt.Sprintf("%s:%d", cfg.AMQP.Host, cfg.AMQP.Port),
		"exchange", cfg.AMQP.Exchange,
	)

	// Telemetry (optional)
	var tele scheduling.Telemetry
	if cfg.Telemetry.Enabled {
		teleClient, teleErr := telemetry.Connect(cfg.Telemetry, log)
		if teleErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", teleErr)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := teleClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		tele = teleClient
		log.Info("telemetry connected", "url", cfg.Telemetry.URL, "bucket", cfg.Telemetry.Bucket)
	} else {
		log.Info("telemetry disabled")
	}

	// Core services
	announcer := announce.New(cfg.Announce, log)
	scheduler := scheduling.NewScheduler(queue, doors, cfg.Scheduling, cfg.Auth.FunctionKey, log)
	cancelSvc := scheduling.NewCancelService(queue, doors, cfg.Scheduling, cfg.Auth.FunctionKey, log)
	processor := scheduling.NewProcessor(queue, doors, announcer, tele, cfg.Scheduling, log)

	// HTTP API
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Scheduler: scheduler,
		Cancel:    cancelSvc,
		Queue:     queue,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Water-leak monitor (optional)
	if cfg.Leak.Enabled {
		leakMonitor := leak.NewMonitor(cfg.Leak, announcer, log)
		go leakMonitor.Run(ctx)
	} else {
		log.Info("leak monitor disabled")
	}

	// MQTT door-sensor bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT, log)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()

		sensorBridge := bridge.New(scheduler, cancelSvc, cfg.MQTT, cfg.Auth.FunctionKey, log)
		if startErr := sensorBridge.Start(mqttClient); startErr != nil {
			return fmt.Errorf("starting sensor bridge: %w", startErr)
		}
		log.Info("MQTT bridge connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		)
	} else {
		log.Info("MQTT bridge disabled")
	}

	log.Info("initialisation complete, consuming door events",
		"queue", cfg.Scheduling.EventQueue,
	)

	// The consumer blocks until the context is cancelled. It owns the
	// cancel-or-fire loop; everything else runs in the background.
	if err := queue.Consume(ctx, cfg.Scheduling.EventQueue, processor.Process); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event consumer stopped: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	log.Info("Doorwatch stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DOORWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DOORWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
