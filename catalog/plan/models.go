// Package plan models the publish pipeline as a persisted plan of typed
// items. A plan survives restarts: items already completed are skipped on
// the next run, so an interrupted publish picks up where it stopped.
package plan

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// ItemType represents the type of a plan item.
type ItemType string

const (
	ItemTypeProbe   ItemType = "probe"
	ItemTypeConvert ItemType = "convert"
	ItemTypeRender  ItemType = "render"
	ItemTypePatch   ItemType = "patch"
)

// ItemStatus represents the status of a plan item.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
	ItemStatusSkipped    ItemStatus = "skipped"
)

// Item represents a single step of the publish pipeline.
type Item struct {
	ItemID   string   `json:"item_id"`
	ItemType ItemType `json:"item_type"`

	// Name is a human-readable label ("Week 3 / track 1").
	Name string `json:"name"`
	// Season is the identifier of the season the item belongs to.
	Season string `json:"season,omitempty"`
	// Path is the item's input (audio file for probe/convert, season
	// root for render, output root for patch).
	Path string `json:"path,omitempty"`
	// OutputPath is what the item produces, when it produces a file.
	OutputPath string `json:"output_path,omitempty"`

	Status ItemStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	Detail string     `json:"detail,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	mu sync.RWMutex
}

// MarkStarted marks the item as started.
func (i *Item) MarkStarted() {
	i.mu.Lock()
	defer i.mu.Unlock()
	now := time.Now()
	i.Status = ItemStatusInProgress
	if i.StartedAt == nil {
		i.StartedAt = &now
	}
}

// MarkCompleted marks the item as completed, recording what it produced.
func (i *Item) MarkCompleted(detail string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	now := time.Now()
	i.Status = ItemStatusCompleted
	i.CompletedAt = &now
	if detail != "" {
		i.Detail = detail
	}
}

// MarkFailed marks the item as failed.
func (i *Item) MarkFailed(errorMsg string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Status = ItemStatusFailed
	i.Error = errorMsg
}

// MarkSkipped marks the item as skipped.
func (i *Item) MarkSkipped(detail string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Status = ItemStatusSkipped
	if detail != "" {
		i.Detail = detail
	}
}

// GetStatus returns the current status (thread-safe).
func (i *Item) GetStatus() ItemStatus {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.Status
}

// GetError returns the current error message (thread-safe).
func (i *Item) GetError() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.Error
}

// PublishPlan is a complete publish plan.
type PublishPlan struct {
	Items    []*Item                `json:"items"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewPublishPlan creates an empty plan.
func NewPublishPlan(metadata map[string]interface{}) *PublishPlan {
	return &PublishPlan{
		Items:    make([]*Item, 0),
		Metadata: metadata,
	}
}

// AddItem appends an item to the plan.
func (p *PublishPlan) AddItem(item *Item) {
	p.Items = append(p.Items, item)
}

// GetItem retrieves an item by ID.
func (p *PublishPlan) GetItem(itemID string) *Item {
	for _, item := range p.Items {
		if item.ItemID == itemID {
			return item
		}
	}
	return nil
}

// GetItemsByType returns all items of a specific type.
func (p *PublishPlan) GetItemsByType(itemType ItemType) []*Item {
	result := make([]*Item, 0)
	for _, item := range p.Items {
		if item.ItemType == itemType {
			result = append(result, item)
		}
	}
	return result
}

// GetExecutionStatistics returns status counts across all items. Skipped
// items count as done work, not pending work, so they are excluded from
// the total the same way the progress display excludes them.
func (p *PublishPlan) GetExecutionStatistics() map[string]int {
	completed := 0
	failed := 0
	pending := 0
	inProgress := 0
	total := 0

	for _, item := range p.Items {
		status := item.GetStatus()
		if status == ItemStatusSkipped {
			continue
		}
		total++
		switch status {
		case ItemStatusCompleted:
			completed++
		case ItemStatusFailed:
			failed++
		case ItemStatusPending:
			pending++
		case ItemStatusInProgress:
			inProgress++
		}
	}

	return map[string]int{
		"completed":   completed,
		"failed":      failed,
		"pending":     pending,
		"in_progress": inProgress,
		"total":       total,
	}
}

// Save writes the plan to a JSON file.
func (p *PublishPlan) Save(filePath string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// LoadPlan loads a plan from a JSON file.
func LoadPlan(filePath string) (*PublishPlan, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var p PublishPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	return &p, nil
}
