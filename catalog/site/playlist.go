package site

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/em32/mlcatalog/catalog/model"
)

// WritePlaylist writes playlist.m3u under seasonRoot: one extended entry
// per recording's stereo mix, pointing at the public gateway so the
// playlist streams without a local copy of the archive.
func (r *Renderer) WritePlaylist(season *model.Season, seasonRoot string) error {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")

	for _, rec := range season.Recordings {
		seconds := 0
		if rec.StereoMix.Info != nil {
			seconds = int(math.Round(rec.StereoMix.Info.Seconds().Seconds()))
		}
		sb.WriteString(fmt.Sprintf("#EXTINF:%d,%s - %s\n", seconds, r.artist, rec.Title))
		sb.WriteString(streamURL(r.baseURL, rec) + "\n")
	}

	path := filepath.Join(seasonRoot, "playlist.m3u")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write playlist: %w", err)
	}
	return nil
}

// streamURL builds the gateway URL for a recording's ogg mix. Spaces are
// %20-escaped; gateway paths otherwise pass through verbatim.
func streamURL(baseURL string, rec *model.Recording) string {
	p := rec.DataFolder + "/" + rec.StereoMix.Vorbis
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.ReplaceAll(p, " ", "%20")
}
