package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultSystemDir holds the snapshot and the identifier index.
	DefaultSystemDir = ".workbench"
	// DefaultSnapshotName is the snapshot file inside the system dir.
	DefaultSnapshotName = "workbenches.json"
	// DefaultIndexName is the identifier index inside the system dir.
	DefaultIndexName = "index.json"
	// ConfigFileName marks a root just like the system dir does.
	ConfigFileName = "workbench.yaml"
)

// FindRoot recursively looks upwards for a workbench root indicator.
// Indicators are: a .workbench directory or a workbench.yaml file.
// If found, returns the absolute path to the root.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, DefaultSystemDir) || hasFile(dir, ConfigFileName) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("root not found")
}

// SnapshotPath is the default snapshot location for a root.
func SnapshotPath(root string) string {
	return filepath.Join(root, DefaultSystemDir, DefaultSnapshotName)
}

func hasFile(dir, name string) bool {
	path := filepath.Join(dir, name)
	_, err := os.Stat(path)
	return err == nil
}
