package fs

import (
	"sort"
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path        string     `json:"path"`
	ReadOnly    bool       `json:"read_only"`
	Format      string     `json:"format,omitempty"`
	Serializers []string   `json:"serializers"`
	Saves       int        `json:"saves"`
	LastSave    *time.Time `json:"last_save,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	serializers := make([]string, 0, len(r.config.Serializers))
	for ext := range r.config.Serializers {
		serializers = append(serializers, ext)
	}
	sort.Strings(serializers)

	var format string
	switch r.serializer.(type) {
	case *JSONSerializer:
		format = "json"
	case *YAMLSerializer:
		format = "yaml"
	}

	return RepositoryState{
		Path:        r.Path,
		ReadOnly:    r.config.ReadOnly,
		Format:      format,
		Serializers: serializers,
		Saves:       r.saves,
		LastSave:    r.lastSave,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "snapshot-repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)
