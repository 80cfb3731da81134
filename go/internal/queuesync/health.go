package queuesync

import (
	"encoding/json"
	"net/http"
	"time"
)

// staleAfterPolls is how many poll intervals may pass without a successful
// fetch before the displayed data is marked stale.
const staleAfterPolls = 3

// Health is the passive connectivity indicator of the poller.
type Health struct {
	LastSuccess         time.Time `json:"last_success"`
	LastAttempt         time.Time `json:"last_attempt"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	Stale               bool      `json:"stale"`
}

func (h Health) recordSuccess(now time.Time) Health {
	h.LastSuccess = now
	h.LastAttempt = now
	h.ConsecutiveFailures = 0
	h.LastError = ""
	h.Stale = false
	return h
}

func (h Health) recordFailure(now time.Time, err error) Health {
	h.LastAttempt = now
	h.ConsecutiveFailures++
	if err != nil {
		h.LastError = err.Error()
	}
	return h
}

// evaluate fills Stale relative to now. Nothing is stale before the
// first attempt.
func (h Health) evaluate(now time.Time, interval time.Duration) Health {
	switch {
	case h.LastAttempt.IsZero():
		h.Stale = false
	case h.LastSuccess.IsZero():
		h.Stale = h.ConsecutiveFailures > 0
	default:
		h.Stale = now.Sub(h.LastSuccess) > staleAfterPolls*interval
	}
	return h
}

// Healthy reports whether the last poll succeeded and data is fresh.
func (h Health) Healthy() bool {
	return !h.Stale && h.ConsecutiveFailures == 0
}

// HealthHandler serves the session health as JSON.
type HealthHandler struct {
	session *Session
}

func NewHealthHandler(session *Session) *HealthHandler {
	return &HealthHandler{session: session}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state := h.session.State()
	status := state.Health

	response := map[string]interface{}{
		"healthy":              status.Healthy(),
		"loaded":               state.Loaded,
		"stale":                status.Stale,
		"last_success":         status.LastSuccess,
		"last_attempt":         status.LastAttempt,
		"consecutive_failures": status.ConsecutiveFailures,
		"last_error":           status.LastError,
	}

	w.Header().Set("Content-Type", "application/json")

	if status.Stale {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}
