package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrSourceLocked reports that another process is uploading the same source.
var ErrSourceLocked = errors.New("source is already being uploaded")

// SourceLock is an advisory lock on one source path.
type SourceLock struct {
	lock   *flock.Flock
	source string
}

// AcquireSourceLock takes a non-blocking lock for sourcePath under lockDir.
// The lock file name is derived from the absolute path so the same file
// reached through different relative paths maps to one lock.
func AcquireSourceLock(lockDir, sourcePath string) (*SourceLock, error) {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	name := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String() + ".lock"
	lock := flock.New(filepath.Join(lockDir, name))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire source lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceLocked, abs)
	}
	return &SourceLock{lock: lock, source: abs}, nil
}

// Source returns the absolute path guarded by the lock.
func (l *SourceLock) Source() string {
	return l.source
}

// Release unlocks the source. The lock file stays on disk; removing it would
// let a waiting process lock an orphaned inode.
func (l *SourceLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release source lock: %w", err)
	}
	return nil
}
