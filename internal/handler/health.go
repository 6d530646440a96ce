package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports backend reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports service health.
type HealthHandler struct {
	backend Pinger
}

// NewHealthHandler creates a HealthHandler. backend may be nil.
func NewHealthHandler(backend Pinger) *HealthHandler {
	return &HealthHandler{backend: backend}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.backend.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
