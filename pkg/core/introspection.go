package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Current        string         `json:"current"`
	Workbenches    map[string]int `json:"workbenches"`
	Listeners      int            `json:"listeners"`
	RepositoryType string         `json:"repository_type"`
	HostType       string         `json:"host_type"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.state.Workbenches))
	for name, cards := range s.state.Workbenches {
		counts[name] = len(cards)
	}

	return ServiceState{
		Current:        s.state.Current,
		Workbenches:    counts,
		Listeners:      len(s.listeners),
		RepositoryType: componentType(s.repo, "repository"),
		HostType:       componentType(s.host, "none"),
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

func componentType(v any, fallback string) string {
	if v == nil {
		return fallback
	}
	if comp, ok := v.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return fallback
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
