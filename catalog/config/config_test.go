package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func validConfigYAML() string {
	return `version: "1.0"
catalog:
  seasons:
    - "catalog/season1/season.json"
  data_dir: "/data"
  output_dir: "/srv/site"
convert:
  workers: 2
site:
  base_url: "https://ipfs.io/ipns/mm.em32.net"
`
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfigYAML()))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", cfg.Version)
	}
	if len(cfg.Catalog.Seasons) != 1 {
		t.Fatalf("Expected 1 season, got %d", len(cfg.Catalog.Seasons))
	}
	if cfg.Convert.Workers != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.Convert.Workers)
	}

	// Defaults
	if cfg.Convert.FFmpegPath != "ffmpeg" {
		t.Errorf("Expected default ffmpeg path, got %q", cfg.Convert.FFmpegPath)
	}
	if cfg.Convert.Quality == nil || *cfg.Convert.Quality != 6 {
		t.Errorf("Expected default quality 6, got %v", cfg.Convert.Quality)
	}
	if cfg.IPFS.Binary != "ipfs" {
		t.Errorf("Expected default ipfs binary, got %q", cfg.IPFS.Binary)
	}
	if len(cfg.IPFS.Patchable) != 3 {
		t.Errorf("Expected 3 default patchable names, got %v", cfg.IPFS.Patchable)
	}
	if cfg.Cache.TTLSeconds != 86400 {
		t.Errorf("Expected default cache TTL 86400, got %d", cfg.Cache.TTLSeconds)
	}
	if cfg.UI.LogPath == "" {
		t.Error("Expected default log path to be set")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("LoadConfig() should fail with non-existent file")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("Expected ConfigError, got %T", err)
	}
}

func TestLoadConfig_BadVersion(t *testing.T) {
	yaml := `version: "0.9"
catalog:
  seasons: ["s.json"]
  data_dir: "/data"
  output_dir: "/out"
site:
  base_url: "https://ipfs.io"
`
	_, err := LoadConfig(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("LoadConfig() should reject unknown version")
	}
}

func TestLoadConfig_NoSeasons(t *testing.T) {
	yaml := `version: "1.0"
catalog:
  data_dir: "/data"
  output_dir: "/out"
site:
  base_url: "https://ipfs.io"
`
	_, err := LoadConfig(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("LoadConfig() should require at least one season")
	}
}

func TestLoadConfig_InvalidWorkers(t *testing.T) {
	yaml := `version: "1.0"
catalog:
  seasons: ["s.json"]
  data_dir: "/data"
  output_dir: "/out"
convert:
  workers: 40
site:
  base_url: "https://ipfs.io"
`
	_, err := LoadConfig(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("LoadConfig() should reject workers > 16")
	}
}

func TestLoadConfig_ExplicitLowQuality(t *testing.T) {
	// 0 and -1 are valid ffmpeg qualities and must not be replaced by the
	// default.
	for _, quality := range []int{0, -1} {
		yaml := fmt.Sprintf(`version: "1.0"
catalog:
  seasons: ["s.json"]
  data_dir: "/data"
  output_dir: "/out"
convert:
  quality: %d
site:
  base_url: "https://ipfs.io"
`, quality)
		cfg, err := LoadConfig(writeConfig(t, yaml))
		if err != nil {
			t.Fatalf("LoadConfig() failed for quality %d: %v", quality, err)
		}
		if cfg.Convert.Quality == nil || *cfg.Convert.Quality != quality {
			t.Errorf("Expected quality %d, got %v", quality, cfg.Convert.Quality)
		}
	}
}

func TestLoadConfig_BadBaseURL(t *testing.T) {
	yaml := `version: "1.0"
catalog:
  seasons: ["s.json"]
  data_dir: "/data"
  output_dir: "/out"
site:
  base_url: "ipns/mm.em32.net"
`
	_, err := LoadConfig(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("LoadConfig() should reject non-http base_url")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDataDir, "/mnt/lockdown")
	t.Setenv(EnvLogPath, "/tmp/mlcatalog.log")

	cfg, err := LoadConfig(writeConfig(t, validConfigYAML()))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Catalog.DataDir != "/mnt/lockdown" {
		t.Errorf("Expected env data dir override, got %q", cfg.Catalog.DataDir)
	}
	if cfg.UI.LogPath != "/tmp/mlcatalog.log" {
		t.Errorf("Expected env log path override, got %q", cfg.UI.LogPath)
	}
}
