package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFixtureConfig builds a one-season catalog on disk and returns the
// path of a config file pointing at it. The audio files are absent, so a
// validation run reports errors.
func writeFixtureConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	catalogDir := filepath.Join(dir, "catalog", "week3")
	if err := os.MkdirAll(catalogDir, 0755); err != nil {
		t.Fatal(err)
	}
	seasonPath := filepath.Join(dir, "catalog", "season.json")
	seasonJSON := `{"id": "season-1", "title": "Season 1", "recordings": ["week3/recording.json"]}`
	if err := os.WriteFile(seasonPath, []byte(seasonJSON), 0644); err != nil {
		t.Fatal(err)
	}
	recJSON := `{
  "title": "Week 3",
  "bpm": 118.5,
  "data_folder": "week3",
  "stereo_mix": {"flac": "mix.flac", "vorbis": "mix.ogg"},
  "tags": ["acid", "ambient"],
  "tracks": [{"id": 1, "flac": "01.flac", "vorbis": "01.ogg"}]
}`
	if err := os.WriteFile(filepath.Join(catalogDir, "recording.json"), []byte(recJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatal(err)
	}

	cfgYAML := fmt.Sprintf(`version: "1.0"
catalog:
  seasons:
    - %s
  data_dir: %s
  output_dir: %s
  plan_dir: %s
site:
  base_url: https://ipfs.io/ipns/mm.em32.net
ui:
  log_path: %s
cache:
  dir: %s
`,
		seasonPath,
		filepath.Join(dir, "data"),
		filepath.Join(dir, "out"),
		filepath.Join(dir, "plans"),
		filepath.Join(dir, "logs", "control.log"),
		filepath.Join(dir, ".cache"),
	)
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func testHandlers(t *testing.T) *Handlers {
	t.Helper()
	h, err := NewHandlers(writeFixtureConfig(t), time.Now(), "test")
	if err != nil {
		t.Fatalf("NewHandlers failed: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestHealthHealthy(t *testing.T) {
	h := testHandlers(t)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("expected version test, got %v", body["version"])
	}
}

func TestHealthCatalogLoadFailure(t *testing.T) {
	dir := t.TempDir()
	cfgYAML := fmt.Sprintf(`version: "1.0"
catalog:
  seasons:
    - %s
  data_dir: %s
  output_dir: %s
site:
  base_url: https://ipfs.io/ipns/mm.em32.net
ui:
  log_path: %s
`,
		filepath.Join(dir, "no-such-season.json"),
		dir, filepath.Join(dir, "out"),
		filepath.Join(dir, "control.log"),
	)
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0644); err != nil {
		t.Fatal(err)
	}
	h, err := NewHandlers(cfgPath, time.Now(), "test")
	if err != nil {
		t.Fatalf("NewHandlers failed: %v", err)
	}
	defer h.Close()

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "unhealthy" {
		t.Errorf("expected unhealthy, got %v", body["status"])
	}
}

func TestStatusIdle(t *testing.T) {
	h := testHandlers(t)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest("GET", "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["state"] != "idle" {
		t.Errorf("expected idle, got %v", body["state"])
	}
	if body["ws_clients"] != float64(0) {
		t.Errorf("expected 0 ws_clients, got %v", body["ws_clients"])
	}
}

func TestCatalogSummary(t *testing.T) {
	h := testHandlers(t)

	rec := httptest.NewRecorder()
	h.Catalog(rec, httptest.NewRequest("GET", "/api/catalog", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Seasons []seasonSummary `json:"seasons"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(body.Seasons) != 1 {
		t.Fatalf("expected 1 season, got %d", len(body.Seasons))
	}
	season := body.Seasons[0]
	if season.Identifier != "season-1" || season.Title != "Season 1" {
		t.Errorf("unexpected season: %+v", season)
	}
	if len(season.Recordings) != 1 {
		t.Fatalf("expected 1 recording, got %d", len(season.Recordings))
	}
	recSum := season.Recordings[0]
	if recSum.Title != "Week 3" || recSum.BPM != "118.5" || recSum.Tracks != 1 {
		t.Errorf("unexpected recording summary: %+v", recSum)
	}
}

func TestValidateReportsErrors(t *testing.T) {
	h := testHandlers(t)

	rec := httptest.NewRecorder()
	h.Validate(rec, httptest.NewRequest("POST", "/api/validate", nil))

	// The fixture references audio files that are not on disk.
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if errs, ok := body["errors"].(float64); !ok || errs == 0 {
		t.Errorf("expected a nonzero error count, got %v", body["errors"])
	}

	hist := h.Events().History()
	if len(hist) != 1 || hist[0].Type != "validate" {
		t.Fatalf("expected one validate event in history, got %+v", hist)
	}
}

func TestBroadcasterHistoryAndClients(t *testing.T) {
	b := NewEventBroadcaster()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", b.ClientCount())
	}

	for i := 0; i < 3; i++ {
		b.Broadcast(Event{Timestamp: int64(i), Type: "convert", Item: "x"})
	}
	hist := b.History()
	if len(hist) != 3 {
		t.Fatalf("expected 3 events, got %d", len(hist))
	}
	if hist[0].Timestamp != 0 || hist[2].Timestamp != 2 {
		t.Errorf("history out of order: %+v", hist)
	}

	// Mutating the copy must not touch the broadcaster's buffer.
	hist[0].Type = "mutated"
	if b.History()[0].Type != "convert" {
		t.Error("History returned a shared slice")
	}
}
