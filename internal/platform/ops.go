package platform

import (
	"context"
	"path/filepath"
	"time"

	"github.com/llcc/org-workbench/pkg/adapters/fs"
	"github.com/llcc/org-workbench/pkg/adapters/outline"
	"github.com/llcc/org-workbench/pkg/core"
)

// Init prepares the snapshot store at uri (the snapshot file path) and
// returns the configured core.Repository.
func Init(uri string, opts ...Option) (core.Repository, error) {
	o := parseOptions(opts)

	if o.repository != nil {
		return o.repository, nil
	}

	repo := initFS(uri, o)
	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// initFS builds the file repository, applying dev safety to the path.
func initFS(path string, o *options) *fs.Repository {
	readOnly := o.flag("read_only")
	useTemp := o.useTemp()
	resolved := ResolvePath(path, useTemp)

	if IsDevRun() {
		switch {
		case useTemp:
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolved)
		case readOnly:
			o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
		default:
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		}
	}
	if useTemp && !IsDevRun() {
		o.logger.Warn("running in SAFE MODE (forced temp)", "original_path", path, "resolved_path", resolved)
	}

	lockTimeout, _ := o.config["lock_timeout"].(time.Duration)
	return fs.NewRepository(fs.Config{
		Path:        resolved,
		MustExist:   o.flag("must_exist"),
		ReadOnly:    readOnly,
		Logger:      o.logger.With("component", "snapshot"),
		LockTimeout: lockTimeout,
	})
}

// NewHost builds the outline host from the options. The identifier index
// lives in the system dir below the root unless WithIndexPath says otherwise.
func NewHost(opts ...Option) *outline.Host {
	return newHost(parseOptions(opts))
}

func newHost(o *options) *outline.Host {
	root := o.text("root")
	indexPath := o.text("index_path")
	if indexPath == "" && root != "" {
		indexPath = filepath.Join(root, o.systemDir(), DefaultIndexName)
	}
	if o.flag("read_only") {
		indexPath = ""
	}
	if indexPath != "" {
		indexPath = ResolvePath(indexPath, o.useTemp())
	}

	return outline.New(outline.Config{
		Root:      root,
		Include:   o.include,
		IndexPath: indexPath,
		ReadOnly:  o.flag("read_only"),
		Logger:    o.logger.With("component", "outline"),
	})
}
