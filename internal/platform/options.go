package platform

import (
	"log/slog"
	"time"

	"github.com/llcc/org-workbench/pkg/core"
)

// options holds the internal configuration for the workbench service.
type options struct {
	repository core.Repository
	host       core.Host
	logger     *slog.Logger
	include    []string
	config     map[string]interface{}
}

// Option defines a functional option for configuring the workbench.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		config: make(map[string]interface{}),
	}
}

func parseOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// WithLogger sets the logger for the service and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a custom snapshot store (e.g. a mock).
// If provided, the default file repository is skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithHost injects the outline document host.
// If not provided, an outline host rooted at WithRoot is created.
func WithHost(host core.Host) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithRoot sets the directory that holds the outline documents.
func WithRoot(dir string) Option {
	return func(o *options) {
		o.config["root"] = dir
	}
}

// WithInclude sets the doublestar globs (relative to the root) searched when
// resolving identifiers.
func WithInclude(patterns ...string) Option {
	return func(o *options) {
		o.include = patterns
	}
}

// WithIndexPath sets where the identifier index is kept.
// Defaults to {root}/.workbench/index.json.
func WithIndexPath(path string) Option {
	return func(o *options) {
		o.config["index_path"] = path
	}
}

// WithSystemDir sets the hidden directory name (default ".workbench").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithLockTimeout bounds how long a save waits for another writer.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.config["lock_timeout"] = d
	}
}

// WithForceTemp forces the snapshot into a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist requires the snapshot directory to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Every store mutation fails with ErrPersistenceFailed wrapping ErrReadOnly.
// 2. No identifiers are written into documents.
// 3. The identifier index is kept in memory only.
// 4. Dev safety is bypassed (uses the real path).
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// By default (true) the snapshot and index are redirected into a temporary
// directory so a development build never touches real data.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

func (o *options) flag(key string) bool {
	v, _ := o.config[key].(bool)
	return v
}

func (o *options) text(key string) string {
	v, _ := o.config[key].(string)
	return v
}

func (o *options) systemDir() string {
	if dir := o.text("system_dir"); dir != "" {
		return dir
	}
	return DefaultSystemDir
}

// useTemp reports whether paths must be re-rooted into the dev sandbox.
func (o *options) useTemp() bool {
	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}
	bypass := o.flag("read_only") || !devSafety
	return o.flag("temp_dir") || (IsDevRun() && !bypass)
}
