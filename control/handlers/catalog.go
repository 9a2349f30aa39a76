package handlers

import (
	"net/http"
)

// seasonSummary is the catalog endpoint's view of one season.
type seasonSummary struct {
	Identifier string             `json:"identifier"`
	Title      string             `json:"title"`
	Recordings []recordingSummary `json:"recordings"`
}

type recordingSummary struct {
	Title      string   `json:"title"`
	DataFolder string   `json:"data_folder"`
	YouTubeURL string   `json:"youtube_url,omitempty"`
	BPM        string   `json:"bpm"`
	Tags       []string `json:"tags"`
	Tracks     int      `json:"tracks"`
}

// Catalog handles GET /api/catalog - season and recording summary.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	service, err := h.getService()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": "Catalog not loaded: " + err.Error(),
		})
		return
	}

	seasons := service.Seasons()
	summaries := make([]seasonSummary, 0, len(seasons))
	for _, season := range seasons {
		summary := seasonSummary{
			Identifier: season.Identifier(),
			Title:      season.Title,
			Recordings: make([]recordingSummary, 0, len(season.Recordings)),
		}
		for _, rec := range season.Recordings {
			summary.Recordings = append(summary.Recordings, recordingSummary{
				Title:      rec.Title,
				DataFolder: rec.DataFolder,
				YouTubeURL: rec.YouTubeURL,
				BPM:        rec.BPMDisplay(),
				Tags:       rec.Tags,
				Tracks:     len(rec.Tracks),
			})
		}
		summaries = append(summaries, summary)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seasons": summaries,
	})
}
