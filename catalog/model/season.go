// Package model holds the catalog data model: seasons, recordings and
// tracks, as maintained by the Modular Lockdown community in JSON files.
package model

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/em32/mlcatalog/catalog/schema"
)

// seasonFile is the raw season.json shape. Recordings are relative paths to
// recording JSON files, resolved against the season file's directory.
type seasonFile struct {
	Schema     string   `json:"$schema,omitempty"`
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title"`
	Recordings []string `json:"recordings"`
}

// Season is a loaded season: the top-level grouping of recordings.
type Season struct {
	ID         string       `json:"id,omitempty"`
	Title      string       `json:"title"`
	Recordings []*Recording `json:"recordings"`
}

// Identifier returns the season's unique identifier: the explicit id when
// set, otherwise a slug of the title. Uniqueness across the catalog is
// enforced by the validator.
func (s *Season) Identifier() string {
	if s.ID != "" {
		return s.ID
	}
	return Slugify(s.Title)
}

// Slugify lowercases s and collapses everything that is not a letter or
// digit into single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// LoadSeason loads a season from its JSON file, schema-validating the season
// file and every referenced recording file. On-disk audio paths resolve
// under dataDir.
func LoadSeason(jsonPath, dataDir string) (*Season, error) {
	data, err := schema.ValidateFile(jsonPath)
	if err != nil {
		return nil, err
	}

	var sf seasonFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to decode season file %s: %w", jsonPath, err)
	}

	jsonRoot := filepath.Dir(jsonPath)
	season := &Season{
		ID:         sf.ID,
		Title:      sf.Title,
		Recordings: make([]*Recording, 0, len(sf.Recordings)),
	}

	for _, recPath := range sf.Recordings {
		rec, err := LoadRecording(filepath.Join(jsonRoot, recPath), dataDir)
		if err != nil {
			return nil, err
		}
		season.Recordings = append(season.Recordings, rec)
	}

	return season, nil
}
