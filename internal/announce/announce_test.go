package announce

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/doorwatch/internal/infrastructure/config"
	"github.com/nerrad567/doorwatch/internal/infrastructure/logging"
)

func newTestClient(url string) *Client {
	return New(config.AnnounceConfig{
		URL:            url,
		Key:            "announce-key",
		Priority:       "normal",
		TimeoutSeconds: 5,
	}, logging.Default())
}

func TestAnnounce_PostsJSONWithKey(t *testing.T) {
	var got request
	var gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Functions-Key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if err := c.Announce(context.Background(), "The front door has been left open for 5 minutes.", "all"); err != nil {
		t.Fatalf("Announce() error = %v", err)
	}

	if gotKey != "announce-key" {
		t.Errorf("X-Functions-Key = %q, want announce-key", gotKey)
	}
	if got.Message != "The front door has been left open for 5 minutes." {
		t.Errorf("message = %q", got.Message)
	}
	if got.Device != "all" {
		t.Errorf("device = %q, want all", got.Device)
	}
	if got.Priority != "normal" {
		t.Errorf("priority = %q, want normal", got.Priority)
	}
}

func TestAnnounce_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "device offline", http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	err := c.Announce(context.Background(), "test", "all")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Announce() error = %v, want ErrDeliveryFailed", err)
	}
}

func TestAnnounce_EndpointUnreachable(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1/announce")
	err := c.Announce(context.Background(), "test", "all")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Announce() error = %v, want ErrDeliveryFailed", err)
	}
}
