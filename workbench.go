package workbench

import (
	"log/slog"
	"time"

	"github.com/llcc/org-workbench/internal/platform"
	"github.com/llcc/org-workbench/pkg/adapters/outline"
	"github.com/llcc/org-workbench/pkg/core"
)

// --- Types ---

// Service is the card store.
type Service = core.Service

// Card is a snapshot of a heading.
type Card = core.Card

// Location addresses a line in a source document.
type Location = core.Location

// Host is the outline document host used by the default wiring.
type Host = outline.Host

// --- Configuration ---

// Option defines a functional option for configuring the workbench.
type Option = platform.Option

// WithLogger sets the logger for the service and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository injects a custom snapshot store.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithHost injects a custom outline document host.
func WithHost(host core.Host) Option {
	return platform.WithHost(host)
}

// WithRoot sets the directory holding the outline documents.
func WithRoot(dir string) Option {
	return platform.WithRoot(dir)
}

// WithInclude sets the globs searched when resolving identifiers.
func WithInclude(patterns ...string) Option {
	return platform.WithInclude(patterns...)
}

// WithIndexPath sets where the identifier index is kept.
func WithIndexPath(path string) Option {
	return platform.WithIndexPath(path)
}

// WithSystemDir sets the hidden directory name (default ".workbench").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithLockTimeout bounds how long a save waits for another writer.
func WithLockTimeout(d time.Duration) Option {
	return platform.WithLockTimeout(d)
}

// WithForceTemp forces the snapshot into a temporary directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist requires the snapshot directory to exist already.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the `go run` / `go test` sandbox.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// --- Factory ---

// New creates the card store backed by the snapshot file at path.
func New(path string, opts ...Option) (*core.Service, error) {
	return platform.New(path, opts...)
}

// Init prepares the snapshot store explicitly.
func Init(path string, opts ...Option) (core.Repository, error) {
	return platform.Init(path, opts...)
}

// NewHost creates the outline document host from the options.
func NewHost(opts ...Option) *outline.Host {
	return platform.NewHost(opts...)
}

// --- Safety & Utils ---

// ResolvePath applies the dev sandbox to a path.
func ResolvePath(userPath string, forceTemp bool) string {
	return platform.ResolvePath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindRoot looks upwards for a .workbench directory or workbench.yaml file.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// SnapshotPath is the default snapshot location for a root.
func SnapshotPath(root string) string {
	return platform.SnapshotPath(root)
}
