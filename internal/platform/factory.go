package platform

import (
	"context"

	"github.com/llcc/org-workbench/pkg/core"
)

// New wires the snapshot store, the outline host and the card store, then
// restores the last snapshot.
//
//	svc, err := workbench.New(".workbench/workbenches.json", workbench.WithRoot("~/notes"))
//
// An unreadable snapshot is not fatal: the service starts with only the
// default workbench and the problem is logged.
func New(uri string, opts ...Option) (*core.Service, error) {
	repo, err := Init(uri, opts...)
	if err != nil {
		return nil, err
	}

	o := parseOptions(opts)
	host := o.host
	if host == nil {
		host = newHost(o)
	}

	service := core.NewService(repo, host, o.logger)
	if err := service.Load(context.Background()); err != nil {
		o.logger.Error("snapshot could not be restored; continuing with the default workbench", "error", err)
	}

	return service, nil
}
