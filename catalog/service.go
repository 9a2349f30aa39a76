// Package catalog ties the library together: a Service that loads the
// season metadata, validates it, and runs the publish pipeline as a
// resumable plan.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/em32/mlcatalog/catalog/cache"
	"github.com/em32/mlcatalog/catalog/config"
	"github.com/em32/mlcatalog/catalog/convert"
	"github.com/em32/mlcatalog/catalog/ipfs"
	"github.com/em32/mlcatalog/catalog/logging"
	"github.com/em32/mlcatalog/catalog/mediainfo"
	"github.com/em32/mlcatalog/catalog/model"
	"github.com/em32/mlcatalog/catalog/plan"
	"github.com/em32/mlcatalog/catalog/site"
	"github.com/em32/mlcatalog/catalog/validate"
)

// planProgressFile is the plan persisted under the plan dir between runs.
const planProgressFile = "publish_plan_progress.json"

// ServiceState represents the state of the catalog service.
type ServiceState string

const (
	ServiceStateIdle     ServiceState = "idle"
	ServiceStateRunning  ServiceState = "running"
	ServiceStateStopping ServiceState = "stopping"
	ServiceStateError    ServiceState = "error"
)

// ServicePhase represents the current pipeline phase.
type ServicePhase string

const (
	ServicePhaseIdle       ServicePhase = "idle"
	ServicePhaseLoading    ServicePhase = "loading"
	ServicePhaseGenerating ServicePhase = "generating"
	ServicePhaseExecuting  ServicePhase = "executing"
	ServicePhaseCompleted  ServicePhase = "completed"
	ServicePhaseError      ServicePhase = "error"
)

// Service orchestrates the catalog pipeline: load, validate, convert,
// probe, render, patch.
type Service struct {
	config    *config.Config
	logger    *logging.Logger
	prober    *mediainfo.Prober
	probeCache *cache.Manager
	converter *convert.Converter
	renderer  *site.Renderer
	client    *ipfs.Client
	patcher   *ipfs.Patcher
	executor  *plan.Executor

	mu           sync.RWMutex
	state        ServiceState
	phase        ServicePhase
	seasons      []*model.Season
	currentPlan  *plan.PublishPlan
	errorMessage string
	startedAt    *time.Time
	completedAt  *time.Time
	rootCID      cid.Cid

	// cacheMu guards the probe cache, which the probe workers hit
	// concurrently.
	cacheMu sync.Mutex

	progressPercentage float64
	progressMu         sync.RWMutex

	lastPlanSave time.Time
	planSaveMu   sync.Mutex

	// onItemUpdate, when set, receives every plan item update. Used by the
	// publish TUI and the control server's event stream.
	onItemUpdate func(*plan.Item)
}

// OnItemUpdate registers a callback for plan item updates. Set it before
// calling Publish.
func (s *Service) OnItemUpdate(fn func(*plan.Item)) {
	s.onItemUpdate = fn
}

// NewService creates a catalog service from a validated configuration.
func NewService(cfg *config.Config, logger *logging.Logger) *Service {
	client := ipfs.NewClient(cfg.IPFS.Binary)

	s := &Service{
		config:     cfg,
		logger:     logger,
		prober:     mediainfo.NewProber(cfg.Probe.MediainfoPath),
		probeCache: cache.NewManager(cfg.Cache.Dir, cfg.Cache.TTLSeconds),
		converter:  convert.NewConverter(&cfg.Convert),
		renderer:   site.NewRenderer(&cfg.Site, cfg.Catalog.OutputDir),
		client:     client,
		patcher:    ipfs.NewPatcher(client, cfg.IPFS.Patchable),
	}
	s.executor = plan.NewExecutor(s.runners(), cfg.Convert.Workers)
	s.state = ServiceStateIdle
	s.phase = ServicePhaseIdle
	return s
}

// LoadSeasons loads and schema-validates every configured season file.
func (s *Service) LoadSeasons() error {
	s.mu.Lock()
	s.phase = ServicePhaseLoading
	s.mu.Unlock()

	seasons := make([]*model.Season, 0, len(s.config.Catalog.Seasons))
	for _, path := range s.config.Catalog.Seasons {
		season, err := model.LoadSeason(path, s.config.Catalog.DataDir)
		if err != nil {
			s.logger.ErrorPath("season_load_failed", path, err)
			return fmt.Errorf("failed to load season %s: %w", path, err)
		}
		s.logger.InfoPath(fmt.Sprintf("season_loaded recordings=%d", len(season.Recordings)), path)
		seasons = append(seasons, season)
	}

	s.mu.Lock()
	s.seasons = seasons
	s.phase = ServicePhaseIdle
	s.mu.Unlock()
	return nil
}

// Seasons returns the loaded seasons.
func (s *Service) Seasons() []*model.Season {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seasons
}

// Validate checks the loaded seasons and returns the report.
func (s *Service) Validate() *validate.Report {
	s.mu.RLock()
	seasons := s.seasons
	s.mu.RUnlock()

	report := validate.CheckSeasons(seasons)
	s.logger.Infof("validation_complete errors=%d", report.Errors)
	return report
}

// Render renders the site from the loaded seasons without running the full
// pipeline. Cached probe results are attached where present; files never
// probed render without duration facts.
func (s *Service) Render() error {
	s.mu.RLock()
	seasons := s.seasons
	s.mu.RUnlock()

	if len(seasons) == 0 {
		return fmt.Errorf("no seasons loaded")
	}

	if err := s.probeCache.Load(); err != nil {
		s.logger.Error("probe_cache_load_failed", err)
	}
	for _, season := range seasons {
		s.attachProbeInfo(season)
	}
	return s.renderer.RenderAll(seasons)
}

// RenderSnapshot renders the site from a metadata snapshot. The snapshot
// carries the probed media info, so no data directory is needed.
func RenderSnapshot(cfg *config.Config, snapshotPath string) error {
	snap, err := model.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	return site.NewRenderer(&cfg.Site, cfg.Catalog.OutputDir).RenderAll(snap.Seasons)
}

// Publish starts the publish pipeline. When root is a defined CID the plan
// ends with an IPFS root patch; cid.Undef publishes the local site only.
// Execution runs in the background; use WaitForCompletion or GetStatus.
func (s *Service) Publish(ctx context.Context, root cid.Cid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == ServiceStateRunning {
		return fmt.Errorf("service is already running")
	}
	if s.state == ServiceStateStopping {
		return fmt.Errorf("service is stopping, please wait")
	}
	if len(s.seasons) == 0 {
		return fmt.Errorf("no seasons loaded")
	}

	s.rootCID = root

	if err := s.probeCache.Load(); err != nil {
		s.logger.Error("probe_cache_load_failed", err)
	}

	// Resume a previous run when a progress file is present.
	var p *plan.PublishPlan
	if s.config.Catalog.PlanDir != "" {
		progressPath := filepath.Join(s.config.Catalog.PlanDir, planProgressFile)
		if existing, err := plan.LoadPlan(progressPath); err == nil {
			s.logger.InfoPath(fmt.Sprintf("plan_loaded items=%d", len(existing.Items)), progressPath)
			p = existing
		} else if !os.IsNotExist(err) {
			s.logger.ErrorPath("plan_load_failed", progressPath, err)
		}
	}

	if p == nil {
		s.phase = ServicePhaseGenerating
		p = plan.NewGenerator(root.Defined()).GeneratePlan(s.seasons)
		s.logger.Infof("plan_generated items=%d", len(p.Items))
	}

	s.state = ServiceStateRunning
	s.phase = ServicePhaseExecuting
	s.currentPlan = p
	s.errorMessage = ""
	now := time.Now()
	s.startedAt = &now
	s.completedAt = nil

	go s.execute(ctx, p)
	return nil
}

// execute runs the plan and records the outcome.
func (s *Service) execute(ctx context.Context, p *plan.PublishPlan) {
	stats, err := s.executor.Execute(ctx, p, s.progressCallback)

	s.cacheMu.Lock()
	if cerr := s.probeCache.Save(); cerr != nil {
		s.logger.Error("probe_cache_save_failed", cerr)
	}
	s.cacheMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		// Cancellation still ends in a terminal state, otherwise callers
		// waiting on completion would never wake up.
		s.state = ServiceStateError
		s.phase = ServicePhaseError
		s.errorMessage = "publish cancelled: " + ctx.Err().Error()
		s.logger.Error("plan_execution_cancelled", ctx.Err())
	} else if err != nil {
		s.state = ServiceStateError
		s.phase = ServicePhaseError
		s.errorMessage = err.Error()
		s.logger.Error("plan_execution_failed", err)
	} else {
		s.state = ServiceStateIdle
		s.phase = ServicePhaseCompleted
		s.errorMessage = ""
		s.logger.Infof("plan_execution_complete completed=%d failed=%d pending=%d total=%d",
			stats["completed"], stats["failed"], stats["pending"], stats["total"])

		if s.config.Catalog.MetadataPath != "" && stats["failed"] == 0 {
			if serr := model.SaveSnapshot(s.config.Catalog.MetadataPath, s.seasons); serr != nil {
				s.logger.ErrorPath("snapshot_save_failed", s.config.Catalog.MetadataPath, serr)
			} else {
				s.logger.InfoPath("snapshot_saved", s.config.Catalog.MetadataPath)
			}
		}
	}
	now := time.Now()
	s.completedAt = &now
	s.savePlan(p)
}

// runners builds the per-type plan item runners.
func (s *Service) runners() map[plan.ItemType]plan.Runner {
	return map[plan.ItemType]plan.Runner{
		plan.ItemTypeConvert: plan.RunnerFunc(s.runConvert),
		plan.ItemTypeProbe:   plan.RunnerFunc(s.runProbe),
		plan.ItemTypeRender:  plan.RunnerFunc(s.runRender),
		plan.ItemTypePatch:   plan.RunnerFunc(s.runPatch),
	}
}

func (s *Service) runConvert(ctx context.Context, item *plan.Item) (string, error) {
	if err := s.converter.ConvertFile(ctx, item.Path, item.OutputPath); err != nil {
		return "", err
	}
	s.logger.InfoPath("transcoded", item.OutputPath)
	return item.OutputPath, nil
}

func (s *Service) runProbe(ctx context.Context, item *plan.Item) (string, error) {
	fi, err := os.Stat(item.Path)
	if err != nil {
		return "", fmt.Errorf("file not present for probing: %w", err)
	}

	s.cacheMu.Lock()
	info, ok := s.probeCache.Get(item.Path, fi.ModTime())
	s.cacheMu.Unlock()
	if ok {
		return "cached: " + info.DurationDisplay(), nil
	}

	info, err = s.prober.Probe(ctx, item.Path)
	if err != nil {
		return "", err
	}

	s.cacheMu.Lock()
	s.probeCache.Put(item.Path, fi.ModTime(), info)
	s.cacheMu.Unlock()
	return info.DurationDisplay(), nil
}

func (s *Service) runRender(ctx context.Context, item *plan.Item) (string, error) {
	season := s.seasonByIdentifier(item.Season)
	if season == nil {
		return "", fmt.Errorf("unknown season %q", item.Season)
	}

	s.attachProbeInfo(season)

	root := s.config.Catalog.OutputDir
	if len(s.Seasons()) > 1 {
		root = filepath.Join(root, season.Identifier())
	}
	if err := s.renderer.RenderSeason(season, root); err != nil {
		return "", err
	}
	s.logger.InfoPath("season_rendered", root)
	return root, nil
}

func (s *Service) runPatch(ctx context.Context, item *plan.Item) (string, error) {
	s.mu.RLock()
	root := s.rootCID
	s.mu.RUnlock()

	if !root.Defined() {
		return "", fmt.Errorf("no root CID configured for patching")
	}

	s.patcher.OnProgress(func(name, path string, newCID cid.Cid) {
		s.logger.InfoPath(fmt.Sprintf("patched name=%s cid=%s", name, newCID), path)
	})

	newRoot, err := s.patcher.PatchRoot(ctx, root, s.config.Catalog.OutputDir)
	if err != nil {
		return "", err
	}
	return ipfs.SubdomainURL(newRoot), nil
}

// attachProbeInfo copies cached probe results onto the season's model so
// the templates and playlist see durations and formats.
func (s *Service) attachProbeInfo(season *model.Season) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	lookup := func(path string) *mediainfo.Info {
		fi, err := os.Stat(path)
		if err != nil {
			return nil
		}
		info, ok := s.probeCache.Get(path, fi.ModTime())
		if !ok {
			return nil
		}
		return info
	}

	for _, rec := range season.Recordings {
		if info := lookup(rec.StereoMix.VorbisOnDisk()); info != nil {
			rec.StereoMix.Info = info
		}
		for _, tr := range rec.Tracks {
			if info := lookup(tr.VorbisOnDisk()); info != nil {
				tr.Info = info
			}
		}
	}
}

func (s *Service) seasonByIdentifier(id string) *model.Season {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, season := range s.seasons {
		if season.Identifier() == id {
			return season
		}
	}
	return nil
}

// Stop stops the service gracefully, saving plan progress first.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ServiceStateRunning {
		return fmt.Errorf("service is not running (current state: %s)", s.state)
	}

	s.state = ServiceStateStopping
	s.savePlan(s.currentPlan)
	s.executor.RequestShutdown()

	shutdownTimeout := 30 * time.Second
	if !s.executor.WaitForShutdown(shutdownTimeout) {
		s.state = ServiceStateError
		s.errorMessage = fmt.Sprintf("shutdown timeout exceeded after %v", shutdownTimeout)
		return fmt.Errorf("shutdown timeout exceeded after %v", shutdownTimeout)
	}

	s.logger.Info("shutdown_complete")
	s.state = ServiceStateIdle
	s.phase = ServicePhaseIdle
	return nil
}

// GetStatus returns the current service status.
func (s *Service) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := map[string]interface{}{
		"state": s.state,
		"phase": s.phase,
	}

	if s.errorMessage != "" {
		status["error"] = s.errorMessage
	}
	if s.startedAt != nil {
		status["started_at"] = s.startedAt.Format(time.RFC3339)
	}
	if s.completedAt != nil {
		status["completed_at"] = s.completedAt.Format(time.RFC3339)
	}

	if s.currentPlan != nil {
		execStats := s.currentPlan.GetExecutionStatistics()
		stats := make(map[string]interface{})
		for k, v := range execStats {
			stats[k] = v
		}
		status["plan_stats"] = stats
	}

	s.progressMu.RLock()
	status["progress_percentage"] = s.progressPercentage
	s.progressMu.RUnlock()

	return status
}

// GetPlan returns the current publish plan.
func (s *Service) GetPlan() *plan.PublishPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPlan
}

// progressCallback is invoked by the executor after item updates.
func (s *Service) progressCallback(item *plan.Item) {
	s.updateProgress()
	s.savePlanThrottled()
	if s.onItemUpdate != nil {
		s.onItemUpdate(item)
	}
}

// updateProgress recomputes the completion percentage.
func (s *Service) updateProgress() {
	s.mu.RLock()
	currentPlan := s.currentPlan
	s.mu.RUnlock()

	if currentPlan == nil {
		s.progressMu.Lock()
		s.progressPercentage = 0.0
		s.progressMu.Unlock()
		return
	}

	stats := currentPlan.GetExecutionStatistics()
	percentage := 0.0
	if stats["total"] > 0 {
		percentage = float64(stats["completed"]+stats["failed"]) / float64(stats["total"]) * 100.0
	}

	s.progressMu.Lock()
	s.progressPercentage = percentage
	s.progressMu.Unlock()
}

// savePlanThrottled saves the plan at most once every 2 seconds.
func (s *Service) savePlanThrottled() {
	s.planSaveMu.Lock()
	defer s.planSaveMu.Unlock()

	now := time.Now()
	if now.Sub(s.lastPlanSave) < 2*time.Second {
		return
	}
	s.lastPlanSave = now
	s.savePlan(s.GetPlan())
}

// savePlan persists a plan under the plan dir.
func (s *Service) savePlan(p *plan.PublishPlan) {
	if s.config.Catalog.PlanDir == "" || p == nil {
		return
	}

	progressPath := filepath.Join(s.config.Catalog.PlanDir, planProgressFile)
	if err := p.Save(progressPath); err != nil {
		s.logger.ErrorPath("plan_save_failed", progressPath, err)
	}
}

// WaitForCompletion blocks until the pipeline reaches a terminal state.
func (s *Service) WaitForCompletion() {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		state := s.state
		phase := s.phase
		s.mu.RUnlock()

		if state != ServiceStateRunning && state != ServiceStateStopping {
			return
		}
		if phase == ServicePhaseCompleted || phase == ServicePhaseError {
			return
		}
	}
}
