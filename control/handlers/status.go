package handlers

import (
	"encoding/json"
	"net/http"
)

// Status handles GET /api/status - pipeline state, phase and plan stats.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	service, err := h.getService()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"state":   "idle",
			"phase":   nil,
			"message": "Catalog not loaded: " + err.Error(),
		})
		return
	}

	status := service.GetStatus()
	status["ws_clients"] = h.events.ClientCount()
	writeJSON(w, http.StatusOK, status)
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
