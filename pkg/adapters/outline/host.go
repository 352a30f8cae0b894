// Package outline reads cards out of Org-mode and Markdown documents on disk
// and maintains the identifiers that tie cards back to their headings.
package outline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	fsadapter "github.com/llcc/org-workbench/pkg/adapters/fs"
	"github.com/llcc/org-workbench/pkg/core"
)

// DefaultInclude lists the documents searched when resolving identifiers.
var DefaultInclude = []string{"**/*.org", "**/*.md", "**/*.markdown"}

var _ core.Host = (*Host)(nil)

// Config holds the configuration for the outline host.
type Config struct {
	// Root anchors relative paths and the include globs.
	Root string
	// Include holds doublestar patterns relative to Root.
	Include []string
	// IndexPath is where the identifier index is persisted.
	// Empty keeps it in memory.
	IndexPath string
	// ReadOnly forbids writing identifiers into documents.
	ReadOnly bool
	Logger   *slog.Logger
}

// Host implements core.Host over files below a root directory.
type Host struct {
	config Config
	index  *index

	mu       sync.Mutex
	touched  map[string]bool
	extracts int
	created  int
	watching bool
}

// New creates a host. The persisted index is loaded lazily.
func New(config Config) *Host {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if len(config.Include) == 0 {
		config.Include = DefaultInclude
	}
	if config.Root != "" {
		if abs, err := filepath.Abs(config.Root); err == nil {
			config.Root = abs
		}
	}

	h := &Host{
		config:  config,
		index:   newIndex(config.IndexPath),
		touched: make(map[string]bool),
	}
	if err := h.index.load(); err != nil {
		config.Logger.Warn("identifier index unavailable", "path", config.IndexPath, "error", err)
	}
	return h
}

// Root returns the absolute root directory.
func (h *Host) Root() string {
	return h.config.Root
}

// abs resolves path against Root.
func (h *Host) abs(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", core.ErrNotAHeading)
	}
	if !filepath.IsAbs(path) && h.config.Root != "" {
		path = filepath.Join(h.config.Root, path)
	}
	return filepath.Abs(path)
}

// open reads and parses the document at path.
func (h *Host) open(path string) (*Document, os.FileInfo, error) {
	syntax, ok := SyntaxFor(path)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported document type: %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Parse(path, syntax, data), info, nil
}

func (h *Host) touch(path string) {
	h.mu.Lock()
	h.touched[path] = true
	h.mu.Unlock()
}

// ExtractCardAt implements core.Host.
func (h *Host) ExtractCardAt(ctx context.Context, loc core.Location) (core.Card, error) {
	path, err := h.abs(loc.File)
	if err != nil {
		return core.Card{}, err
	}
	doc, info, err := h.open(path)
	if err != nil {
		return core.Card{}, err
	}
	h.touch(path)
	h.index.set(path, info, doc.IDs())

	heading, ok := doc.HeadingAt(loc.Line)
	if !ok {
		return core.Card{}, fmt.Errorf("%w: %s:%d", core.ErrNotAHeading, path, loc.Line)
	}

	h.mu.Lock()
	h.extracts++
	h.mu.Unlock()

	return core.Card{
		ID:      heading.ID,
		Title:   heading.Title,
		Content: doc.Content(heading),
		Level:   heading.Level,
		File:    path,
	}, nil
}

// GetOrCreateIdentifier implements core.Host. New identifiers are random
// UUIDs written into the heading's property drawer or id marker.
func (h *Host) GetOrCreateIdentifier(ctx context.Context, loc core.Location) (string, error) {
	path, err := h.abs(loc.File)
	if err != nil {
		return "", err
	}
	doc, info, err := h.open(path)
	if err != nil {
		return "", err
	}
	h.touch(path)

	heading, ok := doc.HeadingAt(loc.Line)
	if !ok {
		return "", fmt.Errorf("%w: %s:%d", core.ErrNotAHeading, path, loc.Line)
	}
	if heading.ID != "" {
		h.index.set(path, info, doc.IDs())
		return heading.ID, nil
	}
	if h.config.ReadOnly {
		return "", fmt.Errorf("cannot assign identifier in %s: %w", path, core.ErrReadOnly)
	}

	id := uuid.NewString()
	doc.SetID(heading.Line, id)
	if err := fsadapter.WriteFileAtomic(path, doc.Bytes(), info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("failed to write identifier: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		h.index.set(path, info, doc.IDs())
	}
	if err := h.index.save(); err != nil {
		h.config.Logger.Warn("failed to save identifier index", "error", err)
	}

	h.mu.Lock()
	h.created++
	h.mu.Unlock()

	h.config.Logger.Debug("identifier created", "file", path, "line", heading.Line, "id", id)
	return id, nil
}

// ResolveIdentifier implements core.Host.
//
// A fresh index entry answers directly. Otherwise every candidate document
// is scanned, refreshing stale entries and pruning vanished ones.
func (h *Host) ResolveIdentifier(ctx context.Context, id string) (core.Location, error) {
	if id == "" {
		return core.Location{}, fmt.Errorf("%w: empty identifier", core.ErrNoIdentifier)
	}

	if path, line, ok := h.index.lookup(id); ok {
		if info, err := os.Stat(path); err == nil {
			if _, fresh := h.index.get(path, info); fresh {
				return core.Location{File: path, Line: line}, nil
			}
		}
	}

	if err := h.Reindex(ctx); err != nil {
		return core.Location{}, err
	}
	if path, line, ok := h.index.lookup(id); ok {
		return core.Location{File: path, Line: line}, nil
	}
	return core.Location{}, fmt.Errorf("%w: no heading with id %s", core.ErrNotFound, id)
}

// Reindex refreshes the identifier index over every candidate document.
func (h *Host) Reindex(ctx context.Context) error {
	files, err := h.Documents(ctx)
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		keep[path] = true
		if _, fresh := h.index.get(path, info); fresh {
			continue
		}
		doc, info, err := h.open(path)
		if err != nil {
			h.config.Logger.Debug("skipping unreadable document", "path", path, "error", err)
			continue
		}
		h.index.set(path, info, doc.IDs())
	}
	h.index.prune(keep)

	if err := h.index.save(); err != nil {
		h.config.Logger.Warn("failed to save identifier index", "error", err)
	}
	return nil
}

// Documents lists the candidate documents: files below Root matching the
// include globs plus every file the host has touched. Hidden directories
// are skipped.
func (h *Host) Documents(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	if h.config.Root != "" {
		err := filepath.WalkDir(h.config.Root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == h.config.Root {
					return err
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if path != h.config.Root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if h.Included(path) {
				seen[path] = true
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", h.config.Root, err)
		}
	}

	h.mu.Lock()
	for path := range h.touched {
		seen[path] = true
	}
	h.mu.Unlock()

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// Included reports whether path matches an include glob or was touched.
func (h *Host) Included(path string) bool {
	if _, ok := SyntaxFor(path); !ok {
		return false
	}

	h.mu.Lock()
	touched := h.touched[path]
	h.mu.Unlock()
	if touched {
		return true
	}

	if h.config.Root == "" {
		return false
	}
	rel, err := filepath.Rel(h.config.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range h.config.Include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// Forget drops path from the index, e.g. after it was deleted.
func (h *Host) Forget(path string) {
	h.index.remove(path)
}

// Close persists the index.
func (h *Host) Close() error {
	return h.index.save()
}
