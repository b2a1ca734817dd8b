// Package lock provides the advisory file lock that serializes snapshot
// operations on one DataSet across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"
)

// ErrLockTimeout is returned when another process held the lock for the
// whole timeout.
var ErrLockTimeout = errors.New("timed out waiting for lock")

var errBusy = errors.New("lock held")

const (
	minBackoff = 100 * time.Millisecond
	maxBackoff = 2 * time.Second
)

// FileLock is a held exclusive flock.
type FileLock struct {
	path string
	file *os.File
}

// Acquire takes an exclusive lock on path, creating the file if needed.
// It tries once without blocking, then retries with exponential backoff
// until timeout or ctx is done.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	//nolint:gosec // G304: path comes from configuration
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = minBackoff
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0

	err = backoff.Retry(func() error {
		ok, err := tryLock(file)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errBusy
		}
		return nil
	}, backoff.WithContext(b, lockCtx))
	if err == nil {
		return newFileLock(path, file), nil
	}

	file.Close()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, errBusy) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w %s after %v", ErrLockTimeout, path, timeout)
	}
	return nil, err
}

func tryLock(file *os.File) (bool, error) {
	err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		return false, nil
	}
	return false, fmt.Errorf("flock: %w", err)
}

func newFileLock(path string, file *os.File) *FileLock {
	// The pid is informational only; the kernel lock is what counts.
	if err := file.Truncate(0); err == nil {
		file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0) //nolint:errcheck
	}
	return &FileLock{path: path, file: file}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// Unlock releases the lock. The lock file itself is left in place so that
// concurrent waiters keep locking the same inode.
func (l *FileLock) Unlock() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	return closeErr
}
