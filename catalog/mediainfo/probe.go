// Package mediainfo shells out to the mediainfo tool to read technical
// facts (format, channels, sample rate, bit depth, duration) about the
// catalog's audio files.
package mediainfo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// ProbeError represents a media probing error.
type ProbeError struct {
	Message  string
	Original error
}

func (e *ProbeError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Media probe error: %s: %v", e.Message, e.Original)
	}
	return fmt.Sprintf("Media probe error: %s", e.Message)
}

func (e *ProbeError) Unwrap() error {
	return e.Original
}

// mediainfoOutput mirrors the parts of `mediainfo --Output=JSON` we need.
type mediainfoOutput struct {
	Media struct {
		Track []mediainfoTrack `json:"track"`
	} `json:"media"`
}

type mediainfoTrack struct {
	Type         string `json:"@type"`
	Format       string `json:"Format"`
	Channels     string `json:"Channels"`
	SamplingRate string `json:"SamplingRate"`
	BitDepth     string `json:"BitDepth"`
	Duration     string `json:"Duration"`
}

// Prober runs the mediainfo binary.
type Prober struct {
	binary string
}

// NewProber returns a prober using the given mediainfo binary name or path.
func NewProber(binary string) *Prober {
	if binary == "" {
		binary = "mediainfo"
	}
	return &Prober{binary: binary}
}

// Probe returns the audio track info for the file at path.
func (p *Prober) Probe(ctx context.Context, path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ProbeError{Message: fmt.Sprintf("path %s does not exist", path), Original: err}
	}

	cmd := exec.CommandContext(ctx, p.binary, "--Output=JSON", path)
	output, err := cmd.Output()
	if err != nil {
		return nil, &ProbeError{Message: fmt.Sprintf("mediainfo failed for %s", path), Original: err}
	}

	return ParseOutput(output)
}

// ParseOutput extracts the audio track from raw mediainfo JSON output.
// mediainfo reports one track object per stream plus a General entry; only
// the "@type": "Audio" entry carries the fields we keep.
func ParseOutput(output []byte) (*Info, error) {
	var parsed mediainfoOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, &ProbeError{Message: "failed to parse mediainfo output", Original: err}
	}

	for _, tr := range parsed.Media.Track {
		if tr.Type != "Audio" {
			continue
		}
		return &Info{
			Format:       tr.Format,
			Channels:     tr.Channels,
			SamplingRate: tr.SamplingRate,
			BitDepth:     tr.BitDepth,
			Duration:     tr.Duration,
		}, nil
	}

	return nil, &ProbeError{Message: "no audio track in mediainfo output"}
}
