package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is a frozen copy of the loaded catalog, including probed media
// info. It lets rendering run again later without access to the data
// directory.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Seasons     []*Season `json:"seasons"`
}

// SaveSnapshot writes the snapshot JSON to path, creating parent
// directories as needed.
func SaveSnapshot(path string, seasons []*Season) error {
	snap := Snapshot{
		GeneratedAt: time.Now().UTC(),
		Seasons:     seasons,
	}

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadSnapshot reads a snapshot back. On-disk paths stay unresolved until
// SetDataRoot is called on the recordings; size lookups report "unknown"
// until then, which is the expected behavior when rendering from metadata
// alone.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode metadata snapshot: %w", err)
	}
	return &snap, nil
}
