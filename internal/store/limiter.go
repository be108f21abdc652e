package store

// limiter.go bounds how many mutations reach the remote store at once.
//
// Row addresses are read from the cache before a write and the cache is
// spliced after it, so two writes in flight against the same snapshot can
// land on stale positions. The default of one slot serializes them. Waiters
// give up after maxWait with tracker.ErrTooManyWriters.

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/jobtrack/internal/tracker"
)

// DefaultMaxConcurrentWrites is the default number of parallel mutations.
const DefaultMaxConcurrentWrites = 1

// DefaultMaxWriteWait is how long a mutation waits for a slot.
const DefaultMaxWriteWait = 30 * time.Second

// WriteLimiter is a semaphore over remote mutations.
type WriteLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewWriteLimiter allows at most maxConcurrent simultaneous mutations.
func NewWriteLimiter(maxConcurrent int, maxWait time.Duration) *WriteLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentWrites
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWriteWait
	}
	return &WriteLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire takes a slot. The caller must Release it.
func (l *WriteLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-timer.C:
		return tracker.ErrTooManyWriters
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *WriteLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// ActiveCount returns the number of mutations holding a slot.
func (l *WriteLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *WriteLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no mutation is active or ctx ends. Used during
// shutdown so in-flight writes reach the remote store.
func (l *WriteLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
