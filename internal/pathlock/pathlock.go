package pathlock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"mediavault/internal/services"
)

const defaultRetryDelay = 50 * time.Millisecond

// Locker hands out exclusive per-path locks.
type Locker struct {
	mu         sync.Mutex
	entries    map[string]*entry
	retryDelay time.Duration
}

type entry struct {
	sem  chan struct{}
	refs int
}

// Option configures a Locker.
type Option func(*Locker)

// WithRetryDelay sets how often a blocked file lock is retried.
func WithRetryDelay(delay time.Duration) Option {
	return func(l *Locker) {
		if delay > 0 {
			l.retryDelay = delay
		}
	}
}

const lockSuffix = ".lock"

// New creates a Locker.
func New(opts ...Option) *Locker {
	l := &Locker{entries: make(map[string]*entry), retryDelay: defaultRetryDelay}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Release drops a lock obtained from Lock. It is safe to call more than once.
type Release func()

// Lock blocks until path is exclusively held or ctx is done.
func (l *Locker) Lock(ctx context.Context, path string) (Release, error) {
	key, err := normalizeKey(path)
	if err != nil {
		return nil, err
	}

	e := l.acquireEntry(key)
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.releaseEntry(key, e, false)
		return nil, services.Wrap(services.ErrCanceled, "pathlock", "lock", key, ctx.Err())
	}

	if err := os.MkdirAll(filepath.Dir(key), 0o755); err != nil {
		l.releaseEntry(key, e, true)
		return nil, services.Wrap(services.ErrIO, "pathlock", "lock", "create lock directory", err)
	}
	fileLock := flock.New(LockFile(key))
	locked, err := fileLock.TryLockContext(ctx, l.retryDelay)
	if err != nil || !locked {
		l.releaseEntry(key, e, true)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, services.Wrap(services.ErrCanceled, "pathlock", "lock", key, ctxErr)
		}
		if err == nil {
			err = fmt.Errorf("lock not acquired")
		}
		return nil, services.Wrap(services.ErrIO, "pathlock", "lock", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = fileLock.Unlock()
			l.releaseEntry(key, e, true)
		})
	}, nil
}

func (l *Locker) acquireEntry(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) releaseEntry(key string, e *entry, held bool) {
	if held {
		<-e.sem
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// LockFile returns the companion file Lock uses to exclude other processes
// from path. Callers that delete path for good may remove it while holding
// the lock.
func LockFile(path string) string {
	return path + lockSuffix
}

func normalizeKey(path string) (string, error) {
	if path == "" {
		return "", services.Wrap(services.ErrValidation, "pathlock", "lock", "empty path", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "pathlock", "lock", path, err)
	}
	return abs, nil
}
