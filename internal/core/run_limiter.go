package core

// run_limiter.go keeps at most one run per export path active in this
// process.
//
// Each path owns a one-slot semaphore. Scheduled ticks and API triggers use
// TryAcquire and skip when the slot is taken, so a slow run is never queued
// behind itself. WaitForDrain blocks shutdown until active runs finish.

import (
	"context"
	"sync"
	"time"
)

// RunLimiter guards export paths against overlapping runs.
type RunLimiter struct {
	mu    sync.RWMutex
	slots map[Path]chan struct{}
}

// NewRunLimiter creates a limiter with one slot for each of paths.
func NewRunLimiter(paths ...Path) *RunLimiter {
	l := &RunLimiter{slots: make(map[Path]chan struct{}, len(paths))}
	for _, p := range paths {
		l.slots[p] = make(chan struct{}, 1)
	}
	return l
}

func (l *RunLimiter) slot(p Path) chan struct{} {
	l.mu.RLock()
	s, ok := l.slots[p]
	l.mu.RUnlock()
	if ok {
		return s
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok = l.slots[p]; !ok {
		s = make(chan struct{}, 1)
		l.slots[p] = s
	}
	return s
}

// TryAcquire takes the slot of p without blocking. It reports false when a
// run of p is already active. The caller MUST call Release after a
// successful acquire.
func (l *RunLimiter) TryAcquire(p Path) bool {
	select {
	case l.slot(p) <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the slot of p.
func (l *RunLimiter) Release(p Path) {
	<-l.slot(p)
}

// Active reports whether a run of p holds its slot.
func (l *RunLimiter) Active(p Path) bool {
	return len(l.slot(p)) > 0
}

// ActiveCount returns the number of paths with an active run.
func (l *RunLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, s := range l.slots {
		n += len(s)
	}
	return n
}

// WaitForDrain blocks until no run is active or ctx is done.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
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

// Status returns the active flag of every known path.
func (l *RunLimiter) Status() map[Path]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[Path]bool, len(l.slots))
	for p, s := range l.slots {
		out[p] = len(s) > 0
	}
	return out
}
