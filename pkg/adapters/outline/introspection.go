package outline

import (
	"sort"

	"github.com/aretw0/introspection"
)

// HostState exposes internal state for observability.
type HostState struct {
	Root         string   `json:"root"`
	Include      []string `json:"include"`
	IndexPath    string   `json:"index_path,omitempty"`
	ReadOnly     bool     `json:"read_only"`
	IndexedFiles int      `json:"indexed_files"`
	Touched      []string `json:"touched,omitempty"`
	Extracts     int      `json:"extracts"`
	IDsCreated   int      `json:"ids_created"`
	Watching     bool     `json:"watching"`
}

// State implements introspection.Introspectable.
func (h *Host) State() any {
	h.mu.Lock()
	touched := make([]string, 0, len(h.touched))
	for path := range h.touched {
		touched = append(touched, path)
	}
	state := HostState{
		Root:       h.config.Root,
		Include:    append([]string(nil), h.config.Include...),
		IndexPath:  h.config.IndexPath,
		ReadOnly:   h.config.ReadOnly,
		Extracts:   h.extracts,
		IDsCreated: h.created,
		Watching:   h.watching,
	}
	h.mu.Unlock()

	sort.Strings(touched)
	state.Touched = touched
	state.IndexedFiles = h.index.len()
	return state
}

// ComponentType implements introspection.Component.
func (h *Host) ComponentType() string {
	return "outline-host"
}

var _ introspection.Introspectable = (*Host)(nil)
var _ introspection.Component = (*Host)(nil)
