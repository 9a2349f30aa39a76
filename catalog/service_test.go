package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/em32/mlcatalog/catalog/config"
	"github.com/em32/mlcatalog/catalog/logging"
	"github.com/em32/mlcatalog/catalog/plan"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func testLogger() *logging.Logger {
	return logging.NewWriterLogger(nopWriteCloser{io.Discard}, "test")
}

// fakeTool writes a shell script standing in for an external binary.
func fakeTool(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// ffmpeg is invoked as: -hide_banner -loglevel error -n -i IN ... OUT.
const fakeFFmpeg = `#!/bin/sh
cp "$6" "${11}"
`

const fakeMediainfo = `#!/bin/sh
cat <<EOF
{"media": {"track": [
  {"@type": "General"},
  {"@type": "Audio", "Format": "Vorbis", "Channels": "2",
   "SamplingRate": "48000", "BitDepth": "16", "Duration": "1381.4"}
]}}
EOF
`

// pipelineFixture builds a one-season catalog with FLAC originals on disk
// and no transcodes yet, plus a config pointing all tools at fakes.
func pipelineFixture(t *testing.T) *config.Config {
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
  "youtube_url": "https://youtu.be/abc?t=90",
  "bpm": 118.5,
  "data_folder": "week3",
  "stereo_mix": {"flac": "mix.flac", "vorbis": "mix.ogg"},
  "tags": ["acid"],
  "tracks": [{"id": 1, "flac": "01.flac", "vorbis": "01.ogg"}]
}`
	if err := os.WriteFile(filepath.Join(catalogDir, "recording.json"), []byte(recJSON), 0644); err != nil {
		t.Fatal(err)
	}

	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(filepath.Join(dataDir, "week3"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"mix.flac", "01.flac"} {
		if err := os.WriteFile(filepath.Join(dataDir, "week3", name), []byte("flac"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.Config{
		Version: "1.0",
		Catalog: config.CatalogSettings{
			Seasons:      []string{seasonPath},
			DataDir:      dataDir,
			OutputDir:    filepath.Join(dir, "out"),
			PlanDir:      filepath.Join(dir, "plans"),
			MetadataPath: filepath.Join(dir, "metadata.json"),
		},
		Convert: config.ConvertSettings{
			Workers:    2,
			FFmpegPath: fakeTool(t, "ffmpeg", fakeFFmpeg),
		},
		Probe: config.ProbeSettings{
			MediainfoPath: fakeTool(t, "mediainfo", fakeMediainfo),
		},
		Site: config.SiteSettings{
			BaseURL:   "https://ipfs.io/ipns/mm.em32.net",
			StaticDir: filepath.Join(dir, "static"),
		},
		Cache: config.CacheSettings{
			Dir: filepath.Join(dir, ".cache"),
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fixture config invalid: %v", err)
	}
	if err := os.MkdirAll(cfg.Catalog.PlanDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(cfg.Cache.Dir, 0755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestServicePublishPipeline(t *testing.T) {
	cfg := pipelineFixture(t)
	svc := NewService(cfg, testLogger())

	if err := svc.LoadSeasons(); err != nil {
		t.Fatalf("LoadSeasons() failed: %v", err)
	}
	if got := len(svc.Seasons()); got != 1 {
		t.Fatalf("expected 1 season, got %d", got)
	}

	if err := svc.Publish(context.Background(), cid.Undef); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	svc.WaitForCompletion()

	status := svc.GetStatus()
	if status["phase"] != ServicePhaseCompleted {
		t.Fatalf("expected completed phase, got %v (error: %v)", status["phase"], status["error"])
	}

	dataDir := cfg.Catalog.DataDir
	for _, name := range []string{"mix.ogg", "01.ogg"} {
		if _, err := os.Stat(filepath.Join(dataDir, "week3", name)); err != nil {
			t.Errorf("expected transcode %s: %v", name, err)
		}
	}

	// Single season renders at the output root.
	index, err := os.ReadFile(filepath.Join(cfg.Catalog.OutputDir, "index.html"))
	if err != nil {
		t.Fatalf("season index not rendered: %v", err)
	}
	if !strings.Contains(string(index), "Season 1") {
		t.Error("season index missing title")
	}

	// The playlist carries the probed duration.
	m3u, err := os.ReadFile(filepath.Join(cfg.Catalog.OutputDir, "playlist.m3u"))
	if err != nil {
		t.Fatalf("playlist not written: %v", err)
	}
	if !strings.Contains(string(m3u), "#EXTINF:1381,") {
		t.Errorf("playlist missing probed duration:\n%s", m3u)
	}

	if _, err := os.Stat(cfg.Catalog.MetadataPath); err != nil {
		t.Errorf("metadata snapshot not written: %v", err)
	}

	progress, err := plan.LoadPlan(filepath.Join(cfg.Catalog.PlanDir, planProgressFile))
	if err != nil {
		t.Fatalf("plan progress not persisted: %v", err)
	}
	stats := progress.GetExecutionStatistics()
	if stats["completed"] != stats["total"] || stats["failed"] != 0 {
		t.Errorf("expected all items completed, got %v", stats)
	}
}

func TestServicePublishTwiceIsIncremental(t *testing.T) {
	cfg := pipelineFixture(t)
	svc := NewService(cfg, testLogger())
	if err := svc.LoadSeasons(); err != nil {
		t.Fatal(err)
	}
	if err := svc.Publish(context.Background(), cid.Undef); err != nil {
		t.Fatal(err)
	}
	svc.WaitForCompletion()

	// The persisted plan is fully completed, so a second publish resumes
	// it and runs nothing.
	svc2 := NewService(cfg, testLogger())
	if err := svc2.LoadSeasons(); err != nil {
		t.Fatal(err)
	}
	if err := svc2.Publish(context.Background(), cid.Undef); err != nil {
		t.Fatalf("second Publish() failed: %v", err)
	}
	svc2.WaitForCompletion()

	status := svc2.GetStatus()
	if status["phase"] != ServicePhaseCompleted {
		t.Errorf("expected completed phase on resume, got %v", status["phase"])
	}
}

func TestRenderSnapshotWithoutDataDir(t *testing.T) {
	cfg := pipelineFixture(t)
	svc := NewService(cfg, testLogger())
	if err := svc.LoadSeasons(); err != nil {
		t.Fatal(err)
	}
	if err := svc.Publish(context.Background(), cid.Undef); err != nil {
		t.Fatal(err)
	}
	svc.WaitForCompletion()

	// The snapshot alone must be enough: remove the audio data entirely.
	if err := os.RemoveAll(cfg.Catalog.DataDir); err != nil {
		t.Fatal(err)
	}
	cfg.Catalog.OutputDir = filepath.Join(t.TempDir(), "out2")

	if err := RenderSnapshot(cfg, cfg.Catalog.MetadataPath); err != nil {
		t.Fatalf("RenderSnapshot() failed: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(cfg.Catalog.OutputDir, "index.html"))
	if err != nil {
		t.Fatalf("season index not rendered from snapshot: %v", err)
	}
	if !strings.Contains(string(index), "Season 1") {
		t.Error("season index missing title")
	}

	// Probed durations travel inside the snapshot.
	m3u, err := os.ReadFile(filepath.Join(cfg.Catalog.OutputDir, "playlist.m3u"))
	if err != nil {
		t.Fatalf("playlist not written from snapshot: %v", err)
	}
	if !strings.Contains(string(m3u), "#EXTINF:1381,") {
		t.Errorf("playlist missing snapshot duration:\n%s", m3u)
	}
}

func TestServicePublishCancelledReachesTerminalState(t *testing.T) {
	cfg := pipelineFixture(t)
	svc := NewService(cfg, testLogger())
	if err := svc.LoadSeasons(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Publish(ctx, cid.Undef); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		svc.WaitForCompletion()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForCompletion did not return after cancellation")
	}

	status := svc.GetStatus()
	if status["phase"] != ServicePhaseError {
		t.Errorf("expected error phase after cancellation, got %v", status["phase"])
	}
	errMsg, _ := status["error"].(string)
	if !strings.Contains(errMsg, "cancelled") {
		t.Errorf("expected a cancellation message, got %q", errMsg)
	}
	if _, ok := status["completed_at"]; !ok {
		t.Error("expected completed_at to be set after cancellation")
	}
}

func TestServicePublishWithoutSeasons(t *testing.T) {
	cfg := pipelineFixture(t)
	svc := NewService(cfg, testLogger())
	if err := svc.Publish(context.Background(), cid.Undef); err == nil {
		t.Error("expected error publishing before LoadSeasons")
	}
}

func TestServiceValidateReportsMissingFiles(t *testing.T) {
	cfg := pipelineFixture(t)
	svc := NewService(cfg, testLogger())
	if err := svc.LoadSeasons(); err != nil {
		t.Fatal(err)
	}

	// The oggs have not been transcoded yet, so validation must flag them.
	report := svc.Validate()
	if report.Errors == 0 {
		t.Error("expected validation errors before transcoding")
	}
}
