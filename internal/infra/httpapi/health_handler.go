package httpapi

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

// HealthHandler answers the liveness endpoint the keep-alive prober (and
// the hosting platform) polls.
type HealthHandler struct {
	check  func(ctx context.Context) error // typically db.PingContext
	logger *logrus.Logger
}

func NewHealthHandler(check func(ctx context.Context) error, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{check: check, logger: logger}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	if h.check != nil {
		if err := h.check(r.Context()); err != nil {
			h.logger.WithError(err).Warn("Health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}
