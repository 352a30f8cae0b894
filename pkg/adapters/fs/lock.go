package fs

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLockTimeout is returned when another process holds the snapshot lock
// for longer than the configured timeout.
var ErrLockTimeout = errors.New("timed out waiting for snapshot lock")

const lockPollInterval = 10 * time.Millisecond

// acquireLock creates path exclusively and returns a func that removes it.
// It polls until the lock is free or timeout elapses.
func acquireLock(path string, timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, 0666)
		if err == nil {
			f.Close()
			return func() {
				os.Remove(path)
			}, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
		time.Sleep(lockPollInterval)
	}
}
