// Package fs stores the workbench snapshot as a single file on disk.
package fs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/llcc/org-workbench/pkg/core"
)

// DefaultLockTimeout bounds how long Save waits for another writer.
const DefaultLockTimeout = 5 * time.Second

var _ core.Repository = (*Repository)(nil)

// Repository implements core.Repository with one snapshot file.
// Every Save overwrites the whole file; there is no append or diffing.
type Repository struct {
	Path       string
	config     Config
	serializer Serializer
	formatErr  error

	mu       sync.RWMutex
	saves    int
	lastSave *time.Time
}

// Config holds the configuration for the snapshot repository.
type Config struct {
	// Path of the snapshot file. The extension selects the format.
	Path        string
	MustExist   bool
	ReadOnly    bool
	Logger      *slog.Logger
	Serializers map[string]Serializer // defaults to DefaultSerializers()
	LockTimeout time.Duration         // defaults to DefaultLockTimeout
}

// NewRepository creates a new file-backed snapshot repository.
func NewRepository(config Config) *Repository {
	if config.Serializers == nil {
		config.Serializers = DefaultSerializers()
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = DefaultLockTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	s, err := serializerFor(config.Path, config.Serializers)
	return &Repository{
		Path:       config.Path,
		config:     config,
		serializer: s,
		formatErr:  err,
	}
}

// Initialize makes sure the directory holding the snapshot exists and
// clears scratch files an interrupted Save left behind.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.formatErr != nil {
		return r.formatErr
	}

	dir := filepath.Dir(r.Path)
	if r.config.MustExist || r.config.ReadOnly {
		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			return fmt.Errorf("snapshot directory does not exist: %s", dir)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("snapshot directory is not a directory: %s", dir)
		}
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if !r.config.ReadOnly {
		if n, err := RemoveStaleTemps(dir); err != nil {
			r.config.Logger.Warn("failed to scan for leftover temp files", "dir", dir, "error", err)
		} else if n > 0 {
			r.config.Logger.Info("removed temp files left by an interrupted save", "dir", dir, "count", n)
		}
	}
	return nil
}

// Load reads the snapshot. A missing file yields core.NewSnapshot().
func (r *Repository) Load(ctx context.Context) (core.Snapshot, error) {
	if r.formatErr != nil {
		return core.Snapshot{}, r.formatErr
	}

	data, err := os.ReadFile(r.Path)
	if os.IsNotExist(err) {
		r.config.Logger.Debug("no snapshot yet, starting fresh", "path", r.Path)
		return core.NewSnapshot(), nil
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, err := r.serializer.Parse(bytes.NewReader(data))
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to parse snapshot %s: %w", r.Path, err)
	}
	return snap, nil
}

// Save serializes snap and replaces the snapshot file atomically.
//
// Workflow:
//  1. Serialize (a serialization error never touches the file).
//  2. Acquire the lock file next to the snapshot.
//  3. Write to a temp file, fsync, rename over the snapshot.
func (r *Repository) Save(ctx context.Context, snap core.Snapshot) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if r.formatErr != nil {
		return r.formatErr
	}

	data, err := r.serializer.Serialize(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	unlock, err := acquireLock(r.Path+".lock", r.config.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if err := WriteFileAtomic(r.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	r.recordSave()
	r.config.Logger.Debug("snapshot written", "path", r.Path, "bytes", len(data))
	return nil
}

func (r *Repository) recordSave() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.saves++
	r.lastSave = &now
}
