package leak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nerrad567/doorwatch/internal/infrastructure/config"
	"github.com/nerrad567/doorwatch/internal/infrastructure/logging"
	"github.com/nerrad567/doorwatch/internal/scheduling"
)

// Announcement texts. The alert repeats on every check while the leak
// stays active; a running leak is worth nagging about.
const (
	alertMessage = "Water leak detected in your home! Please check your water sensor immediately."
	errorMessage = "There was an error checking your water leak sensor. Please check the system."
)

// Monitor periodically polls the metering vendor's leak-notification
// endpoint and announces active leaks through the voice endpoint.
type Monitor struct {
	cfg       config.LeakConfig
	announcer scheduling.Announcer
	http      *http.Client
	logger    *logging.Logger
}

// record is one leak notification as the endpoint reports it.
type record struct {
	Active    bool   `json:"active"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_datetime"`
}

// leakResponse is the endpoint's envelope.
type leakResponse struct {
	Data []record `json:"data"`
}

// NewMonitor creates a Monitor. It does not poll until Run is called.
func NewMonitor(cfg config.LeakConfig, announcer scheduling.Announcer, logger *logging.Logger) *Monitor {
	return &Monitor{
		cfg:       cfg,
		announcer: announcer,
		http: &http.Client{
			Timeout: cfg.CheckTimeout(),
		},
		logger: logger.With("component", "leak"),
	}
}

// Run polls until ctx is cancelled. The first check happens immediately
// so a leak that started while the relay was down is caught on startup.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("leak monitor started",
		"device_id", m.cfg.DeviceID,
		"interval", m.cfg.CheckInterval(),
	)

	ticker := time.NewTicker(m.cfg.CheckInterval())
	defer ticker.Stop()

	for {
		m.checkOnce(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info("leak monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// checkOnce runs one leak check. A failed check announces the error text
// so the household knows monitoring is blind, matching the behaviour of a
// leak alert itself.
func (m *Monitor) checkOnce(ctx context.Context) {
	active, err := m.fetchActiveLeak(ctx)
	if err != nil {
		m.logger.Error("leak check failed", "error", err)
		if announceErr := m.announcer.Announce(ctx, errorMessage, m.cfg.TargetDevice); announceErr != nil {
			m.logger.Error("error announcement failed", "error", announceErr)
		}
		return
	}

	if active == nil {
		m.logger.Debug("no active leaks")
		return
	}

	m.logger.Warn("active leak detected",
		"type", active.Type,
		"message", active.Message,
		"created", active.CreatedAt,
	)
	if err := m.announcer.Announce(ctx, alertMessage, m.cfg.TargetDevice); err != nil {
		m.logger.Error("leak announcement failed", "error", err)
	}
}

// fetchActiveLeak queries the endpoint and returns the first active leak
// record, or nil when none is active.
func (m *Monitor) fetchActiveLeak(ctx context.Context) (*record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building leak request: %w", err)
	}
	q := req.URL.Query()
	q.Set("device_id", m.cfg.DeviceID)
	req.URL.RawQuery = q.Encode()
	if m.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.Token)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying leak endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("leak endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading leak response: %w", err)
	}

	var parsed leakResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing leak response: %w", err)
	}

	for i := range parsed.Data {
		if parsed.Data[i].Active {
			return &parsed.Data[i], nil
		}
	}
	return nil, nil
}
