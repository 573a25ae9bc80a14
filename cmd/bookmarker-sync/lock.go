//go:build unix

package main

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/syncer"
)

// lockFile takes an exclusive, non-blocking flock on path. Another process
// holding it means a sync is already running.
func lockFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create lock directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "open lock file")
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, errors.Wrapf(syncer.ErrSyncInProgress, "lock %s", path)
	}
	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}
