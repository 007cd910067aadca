package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFilePermissions = 0o644

// archiveLockPath names the lock guarding writes to one archive. The CLI
// sync command and the web-triggered runner share it.
func archiveLockPath(dataDir string) string {
	return filepath.Join(dataDir, "sync.lock")
}

// acquireLock takes a non-blocking exclusive flock on path, writing the
// current PID for diagnostics. Returns a release function. Failure to
// acquire means another sync is already writing to this archive.
func acquireLock(path string) (release func(), err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("another sync is already running (could not lock %s)", path)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()

		return nil, fmt.Errorf("truncating lock file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()

		return nil, fmt.Errorf("writing lock file: %w", err)
	}

	return func() {
		os.Remove(path)
		f.Close()
	}, nil
}
