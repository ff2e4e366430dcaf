package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nerrad567/doorwatch/internal/infrastructure/config"
	"github.com/nerrad567/doorwatch/internal/infrastructure/logging"
)

// ErrDeliveryFailed is returned when the announcement endpoint rejects or
// fails a request.
var ErrDeliveryFailed = errors.New("announce: delivery failed")

// Client delivers announcements to the voice endpoint over HTTP.
//
// Implements scheduling.Announcer.
type Client struct {
	url      string
	key      string
	priority string
	http     *http.Client
	logger   *logging.Logger
}

// request is the JSON body the announcement endpoint accepts.
type request struct {
	Message  string `json:"message"`
	Device   string `json:"device"`
	Priority string `json:"priority,omitempty"`
}

// New creates an announcement client from configuration.
func New(cfg config.AnnounceConfig, logger *logging.Logger) *Client {
	return &Client{
		url:      cfg.URL,
		key:      cfg.Key,
		priority: cfg.Priority,
		http: &http.Client{
			Timeout: cfg.AnnounceTimeout(),
		},
		logger: logger.With("component", "announce"),
	}
}

// Announce posts message to the voice endpoint addressed at device.
// device may be a physical speaker or a virtual group such as "all".
func (c *Client) Announce(ctx context.Context, message, device string) error {
	body, err := json.Marshal(request{
		Message:  message,
		Device:   device,
		Priority: c.priority,
	})
	if err != nil {
		return fmt.Errorf("encoding announcement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building announcement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("X-Functions-Key", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded slice of the body for the log line.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("announcement endpoint returned error",
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	return nil
}
