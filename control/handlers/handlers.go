// Package handlers implements the control server's HTTP API: health and
// status probes, the catalog summary, on-demand validation, and a WebSocket
// event stream for publish progress.
package handlers

import (
	"fmt"
	"sync"
	"time"

	"github.com/em32/mlcatalog/catalog"
	"github.com/em32/mlcatalog/catalog/config"
	"github.com/em32/mlcatalog/catalog/logging"
)

// Handlers holds all HTTP handlers for the control server.
type Handlers struct {
	configPath string
	startTime  time.Time
	version    string

	cfg    *config.Config
	logger *logging.Logger
	events *EventBroadcaster

	// Catalog service, loaded on first use so the server comes up even
	// when the catalog is mid-edit.
	service     *catalog.Service
	serviceErr  error
	serviceInit sync.Once
}

// NewHandlers creates a handlers instance. The config must load; the
// catalog itself is loaded lazily.
func NewHandlers(configPath string, startTime time.Time, version string) (*Handlers, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.UI.LogPath, "control")
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Handlers{
		configPath: configPath,
		startTime:  startTime,
		version:    version,
		cfg:        cfg,
		logger:     logger,
		events:     NewEventBroadcaster(),
	}, nil
}

// Config returns the loaded configuration.
func (h *Handlers) Config() *config.Config {
	return h.cfg
}

// Events returns the broadcaster feeding /api/events.
func (h *Handlers) Events() *EventBroadcaster {
	return h.events
}

// getService returns the catalog service, loading the seasons on first use.
func (h *Handlers) getService() (*catalog.Service, error) {
	h.serviceInit.Do(func() {
		svc := catalog.NewService(h.cfg, h.logger)
		if err := svc.LoadSeasons(); err != nil {
			h.serviceErr = err
			return
		}
		svc.OnItemUpdate(h.broadcastItemUpdate)
		h.service = svc
	})
	return h.service, h.serviceErr
}

// Close releases handler resources.
func (h *Handlers) Close() error {
	return h.logger.Close()
}
