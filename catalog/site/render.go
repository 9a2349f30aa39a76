// Package site renders the static Modular Lockdown archive: one index page
// per season, one per recording, a playlist, and the static assets copied
// next to every page so the tree works as a self-contained IPFS site.
package site

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/em32/mlcatalog/catalog/config"
	"github.com/em32/mlcatalog/catalog/model"
)

// staticFiles are the assets copied next to every rendered index.
var staticFiles = []string{"style.css", "ToS.txt"}

// Renderer writes the static site for one or more seasons.
type Renderer struct {
	outputRoot string
	staticDir  string
	baseURL    string
	artist     string
}

// NewRenderer returns a renderer writing under outputRoot.
func NewRenderer(cfg *config.SiteSettings, outputRoot string) *Renderer {
	return &Renderer{
		outputRoot: outputRoot,
		staticDir:  cfg.StaticDir,
		baseURL:    cfg.BaseURL,
		artist:     cfg.Artist,
	}
}

// seasonIndexData is the season template context.
type seasonIndexData struct {
	Season *model.Season
	Tags   []string
}

// recordingIndexData is the recording template context.
type recordingIndexData struct {
	Season    *model.Season
	Recording *model.Recording
}

// RenderAll renders every season. A single season renders at the output
// root (the historical layout the IPFS root object links against); multiple
// seasons each get a subdirectory named by their identifier.
func (r *Renderer) RenderAll(seasons []*model.Season) error {
	for _, season := range seasons {
		root := r.outputRoot
		if len(seasons) > 1 {
			root = filepath.Join(r.outputRoot, season.Identifier())
		}
		if err := r.RenderSeason(season, root); err != nil {
			return err
		}
	}
	return nil
}

// RenderSeason writes the season index, every recording index, the playlist
// and static assets under seasonRoot.
func (r *Renderer) RenderSeason(season *model.Season, seasonRoot string) error {
	if err := os.MkdirAll(seasonRoot, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.writeSeasonIndex(season, seasonRoot); err != nil {
		return err
	}

	for _, rec := range season.Recordings {
		if err := r.writeRecordingIndex(season, rec, seasonRoot); err != nil {
			return err
		}
	}

	return r.WritePlaylist(season, seasonRoot)
}

func (r *Renderer) writeSeasonIndex(season *model.Season, seasonRoot string) error {
	data := seasonIndexData{
		Season: season,
		Tags:   tagUnion(season),
	}

	path := filepath.Join(seasonRoot, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create season index: %w", err)
	}
	defer f.Close()

	if err := seasonIndexTmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render season index: %w", err)
	}

	return r.copyStatic(seasonRoot)
}

func (r *Renderer) writeRecordingIndex(season *model.Season, rec *model.Recording, seasonRoot string) error {
	recDir := filepath.Join(seasonRoot, rec.DataFolder)
	if err := os.MkdirAll(recDir, 0755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}

	path := filepath.Join(recDir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create recording index: %w", err)
	}
	defer f.Close()

	data := recordingIndexData{Season: season, Recording: rec}
	if err := recordingIndexTmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render recording index: %w", err)
	}

	return r.copyStatic(recDir)
}

// tagUnion returns the sorted set of all tags across a season's recordings,
// so the rendered index is deterministic run to run.
func tagUnion(season *model.Season) []string {
	set := make(map[string]bool)
	for _, rec := range season.Recordings {
		for _, tag := range rec.Tags {
			set[tag] = true
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// copyStatic copies style.css and ToS.txt into destDir. Missing static
// files are skipped; a partially-populated static dir is a normal state
// while the site is being set up.
func (r *Renderer) copyStatic(destDir string) error {
	for _, name := range staticFiles {
		src := filepath.Join(r.staticDir, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(destDir, name)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", name, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
