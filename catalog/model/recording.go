package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/em32/mlcatalog/catalog/mediainfo"
	"github.com/em32/mlcatalog/catalog/schema"
)

// StereoMix is the full-session mixdown of a recording.
type StereoMix struct {
	Flac   string          `json:"flac"`
	Vorbis string          `json:"vorbis"`
	Info   *mediainfo.Info `json:"media_info,omitempty"`

	dataRoot string
}

// FlacOnDisk returns the absolute path of the FLAC original.
func (s *StereoMix) FlacOnDisk() string {
	return filepath.Join(s.dataRoot, s.Flac)
}

// VorbisOnDisk returns the absolute path of the Ogg Vorbis transcode.
func (s *StereoMix) VorbisOnDisk() string {
	return filepath.Join(s.dataRoot, s.Vorbis)
}

// FlacSize returns the humanized FLAC file size, "unknown" when missing.
func (s *StereoMix) FlacSize() string {
	return fileSize(s.FlacOnDisk())
}

// VorbisSize returns the humanized Ogg file size, "unknown" when missing.
func (s *StereoMix) VorbisSize() string {
	return fileSize(s.VorbisOnDisk())
}

// Recording is one captured multi-track session from a live stream.
type Recording struct {
	Title        string `json:"title"`
	YouTubeURL   string `json:"youtube_url,omitempty"`
	// BPM is nil while the community has not measured the tempo yet.
	BPM          *float64  `json:"bpm,omitempty"`
	DataFolder   string    `json:"data_folder"`
	StereoMix    StereoMix `json:"stereo_mix"`
	RecordedDate string    `json:"recorded_date"`
	Torrent      string    `json:"torrent"`
	Tags         []string  `json:"tags"`
	Tracks       []*Track  `json:"tracks"`

	dataRoot string
}

// DataRoot returns the absolute directory holding this recording's files.
func (r *Recording) DataRoot() string {
	return r.dataRoot
}

// TorrentOnDisk returns the absolute path of the recording's torrent file.
func (r *Recording) TorrentOnDisk() string {
	return filepath.Join(r.dataRoot, r.Torrent)
}

// SetDataRoot re-resolves on-disk paths under dataDir. Called after loading,
// and again when a metadata snapshot is re-attached to a data directory.
func (r *Recording) SetDataRoot(dataDir string) {
	r.dataRoot = filepath.Join(dataDir, r.DataFolder)
	r.StereoMix.dataRoot = r.dataRoot
	for _, tr := range r.Tracks {
		tr.dataRoot = r.dataRoot
	}
}

// BPMDisplay renders the tempo for the site, "unmeasured" while absent.
func (r *Recording) BPMDisplay() string {
	if r.BPM == nil {
		return "unmeasured"
	}
	return strconv.FormatFloat(*r.BPM, 'f', -1, 64)
}

// LoadRecording loads a recording from its JSON file. The file is
// schema-validated first when it references a local schema.
func LoadRecording(jsonPath, dataDir string) (*Recording, error) {
	data, err := schema.ValidateFile(jsonPath)
	if err != nil {
		return nil, err
	}

	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode recording file %s: %w", jsonPath, err)
	}

	rec.SetDataRoot(dataDir)
	return &rec, nil
}

// ParseYouTubeTimestamp parses the start offset of a (possibly timestamped)
// YouTube link. It returns 0 when the link has no t parameter. An error
// means the URL is not a YouTube link at all.
func ParseYouTubeTimestamp(raw string) (time.Duration, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid URL: %w", err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "youtu.be":
	default:
		return 0, fmt.Errorf("not a YouTube URL: %s", raw)
	}

	t := u.Query().Get("t")
	if t == "" {
		return 0, nil
	}

	// Bare digits mean seconds; otherwise YouTube's 1h2m3s notation.
	if secs, err := strconv.Atoi(strings.TrimSuffix(t, "s")); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(t)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", t, err)
	}
	return d, nil
}
