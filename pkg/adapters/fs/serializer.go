package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/llcc/org-workbench/pkg/core"
	"gopkg.in/yaml.v3"
)

// Serializer defines how to read and write a snapshot in a specific file format.
// Implementations must be deterministic: the same snapshot always yields the
// same bytes, so saves can be diffed.
type Serializer interface {
	// Parse reads from r and returns a Snapshot.
	Parse(r io.Reader) (core.Snapshot, error)
	// Serialize converts the Snapshot to bytes.
	Serialize(snap core.Snapshot) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": NewJSONSerializer(),
		".yaml": NewYAMLSerializer(),
		".yml":  NewYAMLSerializer(),
	}
}

// serializerFor picks a serializer by the extension of path.
func serializerFor(path string, serializers map[string]Serializer) (Serializer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if s, ok := serializers[ext]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unsupported snapshot format %q", ext)
}

// --- JSON Serializer ---

// JSONSerializer handles reading and writing JSON snapshots.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

func (s *JSONSerializer) Parse(r io.Reader) (core.Snapshot, error) {
	var snap core.Snapshot
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("invalid json: %w", err)
	}
	return snap, nil
}

// Serialize writes indented JSON. encoding/json sorts map keys, so the
// workbenches always appear in name order.
func (s *JSONSerializer) Serialize(snap core.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- YAML Serializer ---

// YAMLSerializer handles reading and writing YAML snapshots.
type YAMLSerializer struct{}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer() *YAMLSerializer {
	return &YAMLSerializer{}
}

func (s *YAMLSerializer) Parse(r io.Reader) (core.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Snapshot{}, err
	}

	var snap core.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("invalid yaml: %w", err)
	}
	return snap, nil
}

func (s *YAMLSerializer) Serialize(snap core.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(snap); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
