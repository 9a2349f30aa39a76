package plan

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Runner executes a single plan item of one type. The returned detail is
// stored on the item (a probed duration, a produced file, a new root CID).
type Runner interface {
	RunItem(ctx context.Context, item *Item) (string, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, item *Item) (string, error)

// RunItem calls f.
func (f RunnerFunc) RunItem(ctx context.Context, item *Item) (string, error) {
	return f(ctx, item)
}

// Executor runs publish plans. Convert and probe items run in parallel
// across a bounded worker pool; render and patch items run sequentially
// afterward, since they consume everything the file-level items produce.
type Executor struct {
	runners    map[ItemType]Runner
	maxWorkers int

	progressCallback  func(*Item)
	shutdownRequested bool
	shutdownMu        sync.RWMutex
	executionWg       *sync.WaitGroup
	executionWgMu     sync.RWMutex
}

// NewExecutor creates an executor with the given per-type runners.
func NewExecutor(runners map[ItemType]Runner, maxWorkers int) *Executor {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return &Executor{
		runners:    runners,
		maxWorkers: maxWorkers,
	}
}

// Execute runs every pending item of the plan and returns execution
// statistics. Items whose predecessors failed are not skipped wholesale;
// only the final patch item refuses to run when earlier items failed, so a
// broken transcode never gets published into the IPFS root.
func (e *Executor) Execute(ctx context.Context, p *PublishPlan, progressCallback func(*Item)) (map[string]int, error) {
	e.progressCallback = progressCallback
	e.setShutdownRequested(false)

	wg := &sync.WaitGroup{}
	e.executionWgMu.Lock()
	e.executionWg = wg
	e.executionWgMu.Unlock()

	startTime := time.Now()

	// Parallel stages first.
	for _, itemType := range []ItemType{ItemTypeConvert, ItemTypeProbe} {
		if err := e.runParallel(ctx, p, itemType, wg); err != nil {
			return nil, err
		}
	}

	e.executionWgMu.Lock()
	e.executionWg = nil
	e.executionWgMu.Unlock()

	// Sequential tail: render, then patch.
	if !e.isShutdownRequested() {
		for _, item := range p.GetItemsByType(ItemTypeRender) {
			if item.GetStatus() != ItemStatusPending {
				continue
			}
			e.runItem(ctx, item)
		}

		stats := p.GetExecutionStatistics()
		for _, item := range p.GetItemsByType(ItemTypePatch) {
			if item.GetStatus() != ItemStatusPending {
				continue
			}
			if stats["failed"] > 0 {
				item.MarkSkipped(fmt.Sprintf("%d earlier items failed", stats["failed"]))
				e.notifyProgress(item)
				continue
			}
			e.runItem(ctx, item)
		}
	}

	elapsed := time.Since(startTime)
	stats := p.GetExecutionStatistics()

	if e.isShutdownRequested() {
		return stats, fmt.Errorf("plan execution interrupted after %v: %d completed, %d failed, %d pending",
			elapsed, stats["completed"], stats["failed"], stats["pending"])
	}

	return stats, nil
}

// runParallel runs all pending items of one type across the worker pool.
func (e *Executor) runParallel(ctx context.Context, p *PublishPlan, itemType ItemType, wg *sync.WaitGroup) error {
	sem := make(chan struct{}, e.maxWorkers)

	for _, item := range p.GetItemsByType(itemType) {
		if item.GetStatus() != ItemStatusPending {
			continue
		}

		if e.isShutdownRequested() {
			break
		}
		if err := ctx.Err(); err != nil {
			// In-flight workers must drain before the pool is abandoned.
			wg.Wait()
			return err
		}

		wg.Add(1)
		go func(item *Item) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			e.runItem(ctx, item)
		}(item)
	}

	wg.Wait()
	return nil
}

// runItem dispatches one item to its runner.
func (e *Executor) runItem(ctx context.Context, item *Item) {
	item.MarkStarted()
	e.notifyProgress(item)

	defer func() {
		e.notifyProgress(item)
	}()

	runner, ok := e.runners[item.ItemType]
	if !ok {
		item.MarkFailed(fmt.Sprintf("no runner registered for item type %q", item.ItemType))
		return
	}

	detail, err := runner.RunItem(ctx, item)
	if err != nil {
		item.MarkFailed(err.Error())
		return
	}
	item.MarkCompleted(detail)
}

// notifyProgress notifies the progress callback if set.
func (e *Executor) notifyProgress(item *Item) {
	if e.progressCallback != nil {
		e.progressCallback(item)
	}
}

// setShutdownRequested sets the shutdown requested flag.
func (e *Executor) setShutdownRequested(value bool) {
	e.shutdownMu.Lock()
	defer e.shutdownMu.Unlock()
	e.shutdownRequested = value
}

// isShutdownRequested checks whether shutdown has been requested.
func (e *Executor) isShutdownRequested() bool {
	e.shutdownMu.RLock()
	defer e.shutdownMu.RUnlock()
	return e.shutdownRequested
}

// RequestShutdown requests graceful shutdown of the executor.
func (e *Executor) RequestShutdown() {
	e.setShutdownRequested(true)
}

// WaitForShutdown waits for all active workers to finish, up to the given
// timeout. Returns true when shutdown completed in time. When no execution
// is active it returns immediately.
func (e *Executor) WaitForShutdown(timeout time.Duration) bool {
	e.executionWgMu.RLock()
	wg := e.executionWg
	e.executionWgMu.RUnlock()

	if wg == nil {
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.executionWgMu.RLock()
		wg := e.executionWg
		e.executionWgMu.RUnlock()

		if wg != nil {
			wg.Wait()
		}
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
