package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler answers liveness probes. The response is intentionally not
// enveloped; it is consumed by infrastructure, not API clients.
type HealthHandler struct {
	started time.Time
}

// NewHealthHandler records the process start time for the uptime field.
func NewHealthHandler() HealthHandler {
	return HealthHandler{started: time.Now().UTC()}
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	started := h.started
	if started.IsZero() {
		started = time.Now().UTC()
	}

	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"uptime": time.Since(started).Truncate(time.Second).String(),
	})
}
