package handlers

import (
	"net/http"
	"time"
)

// Validate handles POST /api/validate - runs the catalog checks and
// returns the report as JSON.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	service, err := h.getService()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": "Catalog not loaded: " + err.Error(),
		})
		return
	}

	report := service.Validate()
	h.events.Broadcast(Event{
		Timestamp: time.Now().Unix(),
		Type:      "validate",
		Status:    "completed",
		Message:   "validation finished",
	})

	code := http.StatusOK
	if report.Errors > 0 {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, report)
}
