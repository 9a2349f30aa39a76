package config

import (
	"fmt"
	"strings"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// CatalogSettings holds the season files and directory layout.
type CatalogSettings struct {
	// Season JSON files, each the root of one season's recording tree.
	Seasons []string `yaml:"seasons"`

	// Directory containing the audio data referenced by the recordings.
	DataDir string `yaml:"data_dir"`

	// Directory the rendered site is written to.
	OutputDir string `yaml:"output_dir"`

	// Directory plan progress files are written to.
	PlanDir string `yaml:"plan_dir"`

	// Path the season metadata snapshot is written to after a render.
	// Empty disables the snapshot.
	MetadataPath string `yaml:"metadata_path"`
}

// ConvertSettings holds FLAC to Ogg Vorbis transcode settings.
type ConvertSettings struct {
	Workers    int    `yaml:"workers"`
	FFmpegPath string `yaml:"ffmpeg_path"`
	// Vorbis VBR quality, -1 to 10. Nil means the default; 0 and -1 are
	// valid settings in their own right.
	Quality *int `yaml:"quality"`
}

// SetDefaults sets default values for ConvertSettings.
func (c *ConvertSettings) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.Quality == nil {
		quality := 6
		c.Quality = &quality
	}
}

// Validate validates ConvertSettings.
func (c *ConvertSettings) Validate() error {
	if c.Workers < 1 || c.Workers > 16 {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid convert workers: %d. Must be between 1 and 16", c.Workers),
		}
	}
	if c.Quality != nil && (*c.Quality < -1 || *c.Quality > 10) {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid vorbis quality: %d. Must be between -1 and 10", *c.Quality),
		}
	}
	return nil
}

// SiteSettings holds static site generation settings.
type SiteSettings struct {
	// Base gateway URL used in playlist entries, e.g.
	// https://ipfs.io/ipns/mm.em32.net
	BaseURL string `yaml:"base_url"`

	// Artist name for playlist EXTINF lines.
	Artist string `yaml:"artist"`

	// Directory holding style.css and ToS.txt.
	StaticDir string `yaml:"static_dir"`
}

// SetDefaults sets default values for SiteSettings.
func (s *SiteSettings) SetDefaults() {
	if s.StaticDir == "" {
		s.StaticDir = "static"
	}
	if s.Artist == "" {
		s.Artist = "Colin Bendres"
	}
}

// Validate validates SiteSettings.
func (s *SiteSettings) Validate() error {
	if s.BaseURL == "" {
		return &ConfigError{Message: "site.base_url is required"}
	}
	if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid site.base_url: %s. Must be an http(s) URL", s.BaseURL),
		}
	}
	return nil
}

// IPFSSettings holds IPFS publishing settings.
type IPFSSettings struct {
	Binary string `yaml:"binary"`

	// Public gateways hit by the prime command.
	Gateways []string `yaml:"gateways"`

	// File names eligible for root object patching.
	Patchable []string `yaml:"patchable"`

	// Per-gateway request timeout in seconds for priming.
	PrimeTimeout int `yaml:"prime_timeout"`
}

// SetDefaults sets default values for IPFSSettings.
func (i *IPFSSettings) SetDefaults() {
	if i.Binary == "" {
		i.Binary = "ipfs"
	}
	if len(i.Gateways) == 0 {
		i.Gateways = []string{
			"https://ipfs.io",
			"https://dweb.link",
			"https://cloudflare-ipfs.com",
		}
	}
	if len(i.Patchable) == 0 {
		i.Patchable = []string{"ToS.txt", "index.html", "style.css"}
	}
	if i.PrimeTimeout == 0 {
		i.PrimeTimeout = 60
	}
}

// ProbeSettings holds media probing settings.
type ProbeSettings struct {
	MediainfoPath string `yaml:"mediainfo_path"`
}

// SetDefaults sets default values for ProbeSettings.
func (p *ProbeSettings) SetDefaults() {
	if p.MediainfoPath == "" {
		p.MediainfoPath = "mediainfo"
	}
}

// CacheSettings holds media probe cache settings.
type CacheSettings struct {
	Dir        string `yaml:"dir"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// SetDefaults sets default values for CacheSettings.
func (c *CacheSettings) SetDefaults() {
	if c.Dir == "" {
		c.Dir = ".cache"
	}
	if c.TTLSeconds == 0 {
		c.TTLSeconds = 86400
	}
}

// UISettings holds log settings for the CLI and control server.
type UISettings struct {
	LogPath string `yaml:"log_path"`
}

// SetDefaults sets default values for UISettings.
func (u *UISettings) SetDefaults() {
	if u.LogPath == "" {
		u.LogPath = "logs/mlcatalog.log"
	}
}

// Config is the main configuration model.
type Config struct {
	Version string          `yaml:"version"`
	Catalog CatalogSettings `yaml:"catalog"`
	Convert ConvertSettings `yaml:"convert"`
	Probe   ProbeSettings   `yaml:"probe"`
	Site    SiteSettings    `yaml:"site"`
	IPFS    IPFSSettings    `yaml:"ipfs"`
	Cache   CacheSettings   `yaml:"cache"`
	UI      UISettings      `yaml:"ui"`
}

// Validate sets defaults and validates the configuration.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid version: %s. Expected 1.0", c.Version),
		}
	}

	if len(c.Catalog.Seasons) == 0 {
		return &ConfigError{Message: "catalog.seasons must list at least one season file"}
	}
	if c.Catalog.DataDir == "" {
		return &ConfigError{Message: "catalog.data_dir is required"}
	}
	if c.Catalog.OutputDir == "" {
		return &ConfigError{Message: "catalog.output_dir is required"}
	}
	if c.Catalog.PlanDir == "" {
		c.Catalog.PlanDir = "plans"
	}

	c.Convert.SetDefaults()
	if err := c.Convert.Validate(); err != nil {
		return err
	}

	c.Site.SetDefaults()
	if err := c.Site.Validate(); err != nil {
		return err
	}

	c.Probe.SetDefaults()
	c.IPFS.SetDefaults()
	c.Cache.SetDefaults()
	c.UI.SetDefaults()

	return nil
}
