// Package cache persists media probe results between runs so repeated
// renders do not re-invoke mediainfo for unchanged files.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/em32/mlcatalog/catalog/mediainfo"
)

// ProbeCacheFile is the cache file name under the cache dir.
const ProbeCacheFile = "mediainfo_cache.json"

// ProbeEntry is one cached probe result. Entries invalidate when the file's
// mtime changes or the TTL lapses.
type ProbeEntry struct {
	Info       *mediainfo.Info `json:"info"`
	MtimeUnix  int64           `json:"mtime_unix"`
	CachedAt   string          `json:"cached_at"`
	TTLSeconds int             `json:"ttl_seconds"`
}

// Manager loads and saves the probe cache. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	cacheDir string
	ttl      int
	entries  map[string]ProbeEntry
	dirty    bool
}

// NewManager returns a probe cache manager rooted at cacheDir. Entries are
// written with the given TTL in seconds; ttl <= 0 disables expiry.
func NewManager(cacheDir string, ttl int) *Manager {
	return &Manager{
		cacheDir: cacheDir,
		ttl:      ttl,
		entries:  make(map[string]ProbeEntry),
	}
}

func isExpired(cachedAt string, ttlSeconds int) bool {
	if ttlSeconds <= 0 {
		return false
	}
	t, err := time.Parse(time.RFC3339, cachedAt)
	if err != nil {
		return true
	}
	return time.Now().After(t.Add(time.Duration(ttlSeconds) * time.Second))
}

// Load reads the cache file, dropping expired entries. A missing cache file
// yields an empty cache, not an error.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(m.cacheDir, ProbeCacheFile))
	if err != nil {
		if os.IsNotExist(err) {
			m.entries = make(map[string]ProbeEntry)
			return nil
		}
		return err
	}

	var raw map[string]ProbeEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.entries = make(map[string]ProbeEntry, len(raw))
	for k, v := range raw {
		if !isExpired(v.CachedAt, v.TTLSeconds) {
			m.entries[k] = v
		}
	}
	return nil
}

// Get returns the cached probe for path when still valid against the file's
// current mtime.
func (m *Manager) Get(path string, mtime time.Time) (*mediainfo.Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[path]
	if !ok {
		return nil, false
	}
	if entry.MtimeUnix != mtime.Unix() {
		return nil, false
	}
	if isExpired(entry.CachedAt, entry.TTLSeconds) {
		return nil, false
	}
	return entry.Info, true
}

// Put stores a probe result for path.
func (m *Manager) Put(path string, mtime time.Time, info *mediainfo.Info) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[path] = ProbeEntry{
		Info:       info,
		MtimeUnix:  mtime.Unix(),
		CachedAt:   time.Now().Format(time.RFC3339),
		TTLSeconds: m.ttl,
	}
	m.dirty = true
}

// Size returns the number of cached entries.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Save writes the cache to disk when entries changed since Load.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}
	if err := os.MkdirAll(m.cacheDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(m.cacheDir, ProbeCacheFile), data, 0644); err != nil {
		return err
	}
	m.dirty = false
	return nil
}
