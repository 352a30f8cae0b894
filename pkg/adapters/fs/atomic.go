package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempFilePrefix marks the scratch files of WriteFileAtomic. A crash between
// create and rename leaves one behind; RemoveStaleTemps collects them.
const TempFilePrefix = "workbench-tmp-"

// StaleTempAge is how old a scratch file must be before it counts as left
// over from an interrupted write rather than one in progress.
const StaleTempAge = time.Minute

// WriteFileAtomic replaces filename with data so readers see either the old
// or the new content, never a torn write. The scratch file lives next to the
// target so the final rename stays on one filesystem.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", filename, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if err := writeAndSync(tmp, data); err != nil {
		return fmt.Errorf("atomic write %s: %w", filename, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("atomic write %s: chmod: %w", filename, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("atomic write %s: rename: %w", filename, err)
	}
	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// RemoveStaleTemps deletes scratch files in dir older than StaleTempAge and
// returns how many were removed. A missing dir is not an error.
func RemoveStaleTemps(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-StaleTempAge)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempFilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
