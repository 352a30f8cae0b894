package outline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/llcc/org-workbench/pkg/adapters/fs"
)

const indexVersion = 1

// indexEntry records the identifiers found in one document.
type indexEntry struct {
	IDs          map[string]int `json:"ids,omitempty"` // id -> heading line
	LastModified time.Time      `json:"lastModified"`
	Size         int64          `json:"size"`
}

// index is the persistent identifier cache. Entries are keyed by absolute path.
type index struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"`

	path  string // empty keeps the index in memory only
	dirty bool
	mu    sync.RWMutex
}

func newIndex(path string) *index {
	return &index{
		Version: indexVersion,
		Entries: make(map[string]*indexEntry),
		path:    path,
	}
}

// load reads the index from disk. A missing or corrupted file leaves it empty.
func (x *index) load() error {
	if x.path == "" {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	data, err := os.ReadFile(x.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	var disk struct {
		Version int                    `json:"version"`
		Entries map[string]*indexEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &disk); err != nil || disk.Version != indexVersion {
		x.Entries = make(map[string]*indexEntry)
		x.dirty = true
		return nil
	}
	if disk.Entries == nil {
		disk.Entries = make(map[string]*indexEntry)
	}
	x.Entries = disk.Entries
	x.dirty = false
	return nil
}

// save persists the index if it changed since the last load or save.
func (x *index) save() error {
	if x.path == "" {
		return nil
	}

	x.mu.RLock()
	if !x.dirty {
		x.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(x, "", "  ")
	x.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0755); err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(x.path, data, 0644); err != nil {
		return err
	}

	x.mu.Lock()
	x.dirty = false
	x.mu.Unlock()
	return nil
}

// get returns the entry for path if it matches the file's current stat.
func (x *index) get(path string, info os.FileInfo) (*indexEntry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	entry, ok := x.Entries[path]
	if !ok {
		return nil, false
	}
	if !entry.LastModified.Equal(info.ModTime()) || entry.Size != info.Size() {
		return nil, false
	}
	return entry, true
}

func (x *index) set(path string, info os.FileInfo, ids map[string]int) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.Entries[path] = &indexEntry{
		IDs:          ids,
		LastModified: info.ModTime(),
		Size:         info.Size(),
	}
	x.dirty = true
}

func (x *index) remove(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.Entries[path]; ok {
		delete(x.Entries, path)
		x.dirty = true
	}
}

// prune drops entries whose path is not in keep.
func (x *index) prune(keep map[string]bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for path := range x.Entries {
		if !keep[path] {
			delete(x.Entries, path)
			x.dirty = true
		}
	}
}

// lookup returns the first path whose entry claims id.
func (x *index) lookup(id string) (string, int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for path, entry := range x.Entries {
		if line, ok := entry.IDs[id]; ok {
			return path, line, true
		}
	}
	return "", 0, false
}

func (x *index) len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.Entries)
}
