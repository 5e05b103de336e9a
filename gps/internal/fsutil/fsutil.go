// Package fsutil collects the filesystem primitives the repository manager
// and its storage layer need: advisory locking (shared for reads/copies,
// exclusive for writes/fetches) and recursive directory copy, plus an atomic
// rename-into-place helper for publishing a freshly populated clone.
package fsutil

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"
)

// Lock wraps a gofrs/flock file lock scoped to a single path. The
// nested-locking order in the design notes (pending-lookups mutex ->
// repositories-map mutex -> cache-root lock -> per-clone lock) is enforced
// by callers acquiring Locks in that order, not by this type.
type Lock struct {
	fl *flock.Flock
}

// NewLock returns a Lock for the given path. The path need not exist yet;
// the lock file itself is created on first acquisition.
func NewLock(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// LockShared blocks until a shared (read) lock is held. Multiple readers may
// hold the shared lock concurrently; an exclusive holder excludes them all.
func (l *Lock) LockShared() error {
	if err := l.fl.RLock(); err != nil {
		return errors.Wrapf(err, "acquiring shared lock on %s", l.fl.Path())
	}
	return nil
}

// LockExclusive blocks until an exclusive (write) lock is held.
func (l *Lock) LockExclusive() error {
	if err := l.fl.Lock(); err != nil {
		return errors.Wrapf(err, "acquiring exclusive lock on %s", l.fl.Path())
	}
	return nil
}

// Unlock releases the lock.
func (l *Lock) Unlock() error {
	return l.fl.Unlock()
}

// WithExclusive runs fn while holding an exclusive lock on path.
func WithExclusive(path string, fn func() error) error {
	l := NewLock(path)
	if err := l.LockExclusive(); err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}

// WithShared runs fn while holding a shared lock on path.
func WithShared(path string, fn func() error) error {
	l := NewLock(path)
	if err := l.LockShared(); err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}

// CopyTree recursively copies the directory tree rooted at src to dst,
// delegating to termie/go-shutil rather than hand-rolling a walk-and-copy.
func CopyTree(src, dst string) error {
	opts := &shutil.CopyTreeOptions{
		Symlinks:               true,
		IgnoreDanglingSymlinks: true,
		CopyFunction:           shutil.Copy,
	}
	if err := shutil.CopyTree(src, dst, opts); err != nil {
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return nil
}

// RenameIntoPlace atomically publishes a scratch directory at its final
// location by renaming it, creating the destination's parent if needed. It
// is how a RepositoryHandle's bare clone directory is created: populated
// fully at a scratch path, then made visible in one filesystem operation.
func RenameIntoPlace(scratch, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent of %s", dest)
	}
	if err := os.RemoveAll(dest); err != nil {
		return errors.Wrapf(err, "clearing stale %s", dest)
	}
	if err := os.Rename(scratch, dest); err != nil {
		return errors.Wrapf(err, "renaming %s into place at %s", scratch, dest)
	}
	return nil
}

// Exists reports whether path exists (regardless of type).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
