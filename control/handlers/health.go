package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/em32/mlcatalog/catalog"
)

// Health handles GET /api/health - healthcheck endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	healthStatus := "healthy"
	reason := "Server is responding"
	var phase interface{}

	if service, err := h.getService(); err != nil {
		healthStatus = "unhealthy"
		reason = "Catalog failed to load: " + err.Error()
	} else {
		status := service.GetStatus()
		phase = status["phase"]
		if status["phase"] == catalog.ServicePhaseError {
			healthStatus = "unhealthy"
			reason = "Pipeline is in error state"
		}
	}

	response := map[string]interface{}{
		"status":         healthStatus,
		"reason":         reason,
		"phase":          phase,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"timestamp":      time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	if healthStatus == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(response)
}
