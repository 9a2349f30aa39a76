package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/em32/mlcatalog/catalog/mediainfo"
)

// Track is one audio channel within a recording, corresponding to one synth
// voice or instrument. Name and PatchNotes stay empty until a community
// member fills them in.
type Track struct {
	ID         int             `json:"id"`
	Name       string          `json:"name,omitempty"`
	Flac       string          `json:"flac"`
	Vorbis     string          `json:"vorbis"`
	PatchNotes string          `json:"patch_notes,omitempty"`
	Info       *mediainfo.Info `json:"media_info,omitempty"`

	dataRoot string
}

// FlacOnDisk returns the absolute path of the track's FLAC stem.
func (t *Track) FlacOnDisk() string {
	return filepath.Join(t.dataRoot, t.Flac)
}

// VorbisOnDisk returns the absolute path of the track's Ogg Vorbis stem.
func (t *Track) VorbisOnDisk() string {
	return filepath.Join(t.dataRoot, t.Vorbis)
}

// DisplayName returns the community-given name, or a numbered placeholder
// while the track is still unnamed.
func (t *Track) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("Track %d (unnamed)", t.ID)
}

// FlacSize returns the humanized FLAC file size, "unknown" when missing.
func (t *Track) FlacSize() string {
	return fileSize(t.FlacOnDisk())
}

// VorbisSize returns the humanized Ogg file size, "unknown" when missing.
func (t *Track) VorbisSize() string {
	return fileSize(t.VorbisOnDisk())
}

func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "unknown"
	}
	return humanize.Bytes(uint64(fi.Size()))
}
