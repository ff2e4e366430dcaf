package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nerrad567/doorwatch/internal/scheduling"
)

// functionKeyFrom extracts the shared function key from a request.
// Callers present it either as the "code" query parameter or the
// X-Functions-Key header.
func functionKeyFrom(r *http.Request) string {
	if key := r.URL.Query().Get("code"); key != "" {
		return key
	}
	return r.Header.Get("X-Functions-Key")
}

// doorNameFrom extracts the door name. "door" is the canonical parameter;
// "event" is the legacy spelling some sensor integrations still send.
func doorNameFrom(r *http.Request) string {
	if door := r.FormValue("door"); door != "" {
		return door
	}
	return r.FormValue("event")
}

// delaySecondsFrom extracts the optional delay override in seconds.
// "t" is the canonical parameter, "delay" the long-form alias. Returns 0
// when absent, an error when present but unparseable.
func delaySecondsFrom(r *http.Request) (int, error) {
	raw := r.FormValue("t")
	if raw == "" {
		raw = r.FormValue("delay")
	}
	if raw == "" {
		return 0, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("delay %q is not a whole number of seconds", raw)
	}
	return seconds, nil
}

// handleScheduleEvent accepts a door event and schedules its reminder.
func (s *Server) handleScheduleEvent(w http.ResponseWriter, r *http.Request) {
	delaySeconds, err := delaySecondsFrom(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	receipt, err := s.scheduler.Schedule(r.Context(), scheduling.ScheduleRequest{
		DoorName:     doorNameFrom(r),
		DelaySeconds: delaySeconds,
		EventType:    r.FormValue("type"),
		FunctionKey:  functionKeyFrom(r),
	})
	if err != nil {
		s.writeSchedulingError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Notification scheduled for %s in %d seconds.\n",
		receipt.DoorName, int(receipt.Delay.Seconds()))
}

// handleCancelEvent accepts a door-closed event and sends the cancel
// signal for any pending reminder.
func (s *Server) handleCancelEvent(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.cancel.RequestCancel(r.Context(), doorNameFrom(r), functionKeyFrom(r))
	if err != nil {
		s.writeSchedulingError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Cancel signal sent for %s.\n", receipt.DoorName)
}

// writeSchedulingError maps scheduling errors onto HTTP responses.
func (s *Server) writeSchedulingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrUnauthorized):
		writeUnauthorized(w, "invalid or missing function key")
	case errors.Is(err, scheduling.ErrValidation):
		writeBadRequest(w, err.Error())
	default:
		s.logger.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "request could not be processed")
	}
}
