package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variable overrides, applied after the YAML file is parsed.
const (
	EnvDataDir   = "MLCATALOG_DATA_DIR"
	EnvOutputDir = "MLCATALOG_OUTPUT_DIR"
	EnvLogPath   = "MLCATALOG_LOG_PATH"
)

// LoadConfig loads and validates configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Configuration file not found: %s", path),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Error reading configuration file: %v", err),
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Error parsing YAML file: %v", err),
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployment environments relocate directories without
// editing the shared config file. Environment values win over YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.Catalog.DataDir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		cfg.Catalog.OutputDir = v
	}
	if v := os.Getenv(EnvLogPath); v != "" {
		cfg.UI.LogPath = v
	}
}
