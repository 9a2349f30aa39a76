package site

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/em32/mlcatalog/catalog/config"
	"github.com/em32/mlcatalog/catalog/mediainfo"
	"github.com/em32/mlcatalog/catalog/model"
)

func testSeason() *model.Season {
	bpm := 118.5
	rec := &model.Recording{
		Title:        "Modular Lockdown Week 3",
		YouTubeURL:   "https://youtu.be/abc?t=2553",
		BPM:          &bpm,
		DataFolder:   "week3",
		StereoMix:    model.StereoMix{Flac: "mix.flac", Vorbis: "week 3 mix.ogg", Info: &mediainfo.Info{Format: "Vorbis", Duration: "1381.4"}},
		RecordedDate: "2020-04-11",
		Torrent:      "week3.torrent",
		Tags:         []string{"acid", "ambient"},
		Tracks: []*model.Track{
			{ID: 1, Name: "Bassline", Flac: "01.flac", Vorbis: "01.ogg", PatchNotes: "Plaits into Ripples"},
			{ID: 2, Flac: "02.flac", Vorbis: "02.ogg"},
		},
	}
	rec2 := &model.Recording{
		Title:      "Week 4",
		DataFolder: "week4",
		StereoMix:  model.StereoMix{Flac: "mix.flac", Vorbis: "mix.ogg"},
		Tags:       []string{"ambient", "drone"},
	}
	return &model.Season{ID: "season-1", Title: "Season 1", Recordings: []*model.Recording{rec, rec2}}
}

func testRenderer(t *testing.T) (*Renderer, string) {
	t.Helper()
	outDir := t.TempDir()
	staticDir := t.TempDir()
	for _, name := range staticFiles {
		if err := os.WriteFile(filepath.Join(staticDir, name), []byte("static "+name), 0644); err != nil {
			t.Fatalf("write static failed: %v", err)
		}
	}
	cfg := &config.SiteSettings{
		BaseURL:   "https://ipfs.io/ipns/mm.em32.net",
		Artist:    "Colin Bendres",
		StaticDir: staticDir,
	}
	return NewRenderer(cfg, outDir), outDir
}

func TestRenderSeason(t *testing.T) {
	r, outDir := testRenderer(t)
	season := testSeason()

	if err := r.RenderAll([]*model.Season{season}); err != nil {
		t.Fatalf("RenderAll() failed: %v", err)
	}

	// Season index at the root for a single season.
	index, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		t.Fatalf("season index not written: %v", err)
	}
	html := string(index)
	for _, want := range []string{
		"Season 1",
		`href="week3/index.html"`,
		"118.5",
		"unmeasured",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("season index missing %q:\n%s", want, html)
		}
	}

	// Tag union is sorted and deduplicated.
	acid := strings.Index(html, ">acid<")
	ambient := strings.Index(html, ">ambient<")
	drone := strings.Index(html, ">drone<")
	if acid == -1 || ambient == -1 || drone == -1 || !(acid < ambient && ambient < drone) {
		t.Errorf("tag union not sorted in season index:\n%s", html)
	}

	// Recording index.
	recIndex, err := os.ReadFile(filepath.Join(outDir, "week3", "index.html"))
	if err != nil {
		t.Fatalf("recording index not written: %v", err)
	}
	recHTML := string(recIndex)
	for _, want := range []string{
		"Modular Lockdown Week 3",
		"Plaits into Ripples",
		"Track 2 (unnamed)",
		"https://youtu.be/abc?t=2553",
		"23m 1s",
	} {
		if !strings.Contains(recHTML, want) {
			t.Errorf("recording index missing %q:\n%s", want, recHTML)
		}
	}

	// Static files next to both indexes.
	for _, dir := range []string{outDir, filepath.Join(outDir, "week3")} {
		for _, name := range staticFiles {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Errorf("static file %s missing in %s", name, dir)
			}
		}
	}
}

func TestRenderAll_MultipleSeasons(t *testing.T) {
	r, outDir := testRenderer(t)
	s1 := testSeason()
	s2 := &model.Season{ID: "season-2", Title: "Season 2"}

	if err := r.RenderAll([]*model.Season{s1, s2}); err != nil {
		t.Fatalf("RenderAll() failed: %v", err)
	}

	for _, id := range []string{"season-1", "season-2"} {
		if _, err := os.Stat(filepath.Join(outDir, id, "index.html")); err != nil {
			t.Errorf("expected per-season index for %s: %v", id, err)
		}
	}
}

func TestWritePlaylist(t *testing.T) {
	r, outDir := testRenderer(t)
	season := testSeason()

	if err := r.WritePlaylist(season, outDir); err != nil {
		t.Fatalf("WritePlaylist() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "playlist.m3u"))
	if err != nil {
		t.Fatalf("playlist not written: %v", err)
	}
	m3u := string(data)

	if !strings.HasPrefix(m3u, "#EXTM3U\n") {
		t.Errorf("playlist missing header:\n%s", m3u)
	}
	if !strings.Contains(m3u, "#EXTINF:1381,Colin Bendres - Modular Lockdown Week 3") {
		t.Errorf("playlist missing EXTINF line:\n%s", m3u)
	}
	if !strings.Contains(m3u, "https://ipfs.io/ipns/mm.em32.net/week3/week%203%20mix.ogg") {
		t.Errorf("playlist URL not escaped:\n%s", m3u)
	}
	// Recording without probed info gets a zero duration, not a crash.
	if !strings.Contains(m3u, "#EXTINF:0,Colin Bendres - Week 4") {
		t.Errorf("playlist missing zero-duration entry:\n%s", m3u)
	}
}
