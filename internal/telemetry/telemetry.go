package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/doorwatch/internal/infrastructure/config"
	"github.com/nerrad567/doorwatch/internal/infrastructure/logging"
)

var (
	// ErrDisabled is returned by Connect when telemetry is switched off.
	ErrDisabled = errors.New("telemetry: disabled in configuration")

	// ErrConnectionFailed is returned when the InfluxDB server is unreachable.
	ErrConnectionFailed = errors.New("telemetry: connection failed")
)

const (
	defaultConnectTimeout = 10 * time.Second

	millisecondsPerSecond = 1000
)

// Client records reminder outcomes to InfluxDB.
//
// Writes are non-blocking and batched; a broker outage never slows down
// the cancel-or-fire path. Implements scheduling.Telemetry.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *logging.Logger

	connected bool
	mu        sync.RWMutex
}

// Connect establishes a connection to the InfluxDB server and verifies it
// with a ping.
func Connect(cfg config.TelemetryConfig, logger *logging.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 5
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   logger.With("component", "telemetry"),
	}
	c.connected = true

	go c.handleWriteErrors(c.writeAPI.Errors())

	return c, nil
}

// handleWriteErrors logs async write errors from the WriteAPI.
func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.logger.Warn("telemetry write failed", "error", err)
	}
}

// RecordFiring records one reminder announcement, delivered or not.
func (c *Client) RecordFiring(doorKey, device string, delivered bool) {
	if !c.isConnected() {
		return
	}

	point := write.NewPoint(
		"reminder_firings",
		map[string]string{
			"door":   doorKey,
			"device": device,
		},
		map[string]interface{}{
			"delivered": delivered,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// RecordSuppression records one reminder suppressed by a cancel signal.
func (c *Client) RecordSuppression(doorKey string) {
	if !c.isConnected() {
		return
	}

	point := write.NewPoint(
		"reminder_suppressions",
		map[string]string{
			"door": doorKey,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

func (c *Client) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close flushes pending writes and shuts down the client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
