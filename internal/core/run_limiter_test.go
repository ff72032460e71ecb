package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRunLimiter_TryAcquireRelease(t *testing.T) {
	limiter := NewRunLimiter(PathKV, PathBulk)

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("initial ActiveCount = %d, want 0", got)
	}

	if !limiter.TryAcquire(PathKV) {
		t.Fatal("first TryAcquire(kv) = false, want true")
	}
	if limiter.TryAcquire(PathKV) {
		t.Error("second TryAcquire(kv) = true, want false while active")
	}
	if !limiter.Active(PathKV) {
		t.Error("Active(kv) = false, want true")
	}

	// Paths are independent.
	if !limiter.TryAcquire(PathBulk) {
		t.Error("TryAcquire(bulk) = false while kv active, want true")
	}
	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}

	limiter.Release(PathKV)
	limiter.Release(PathBulk)

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("after Release, ActiveCount = %d, want 0", got)
	}
	if !limiter.TryAcquire(PathKV) {
		t.Error("TryAcquire(kv) after Release = false, want true")
	}
}

func TestRunLimiter_UnknownPathGetsSlot(t *testing.T) {
	limiter := NewRunLimiter()

	if !limiter.TryAcquire("custom") {
		t.Fatal("TryAcquire(custom) = false, want true")
	}
	if limiter.TryAcquire("custom") {
		t.Error("second TryAcquire(custom) = true, want false")
	}
	limiter.Release("custom")
}

func TestRunLimiter_ConcurrentTryAcquire(t *testing.T) {
	limiter := NewRunLimiter(PathKV)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.TryAcquire(PathKV) {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Errorf("acquired = %d, want exactly 1", acquired)
	}
}

func TestRunLimiter_WaitForDrain(t *testing.T) {
	limiter := NewRunLimiter(PathBulk)
	limiter.TryAcquire(PathBulk)

	go func() {
		time.Sleep(50 * time.Millisecond)
		limiter.Release(PathBulk)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := limiter.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain = %v, want nil", err)
	}
}

func TestRunLimiter_WaitForDrainTimeout(t *testing.T) {
	limiter := NewRunLimiter(PathBulk)
	limiter.TryAcquire(PathBulk)
	defer limiter.Release(PathBulk)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := limiter.WaitForDrain(ctx); err != context.DeadlineExceeded {
		t.Errorf("WaitForDrain = %v, want context.DeadlineExceeded", err)
	}
}

func TestRunLimiter_Status(t *testing.T) {
	limiter := NewRunLimiter(PathKV, PathBulk)
	limiter.TryAcquire(PathBulk)
	defer limiter.Release(PathBulk)

	status := limiter.Status()
	if status[PathKV] {
		t.Error("Status[kv] = true, want false")
	}
	if !status[PathBulk] {
		t.Error("Status[bulk] = false, want true")
	}
}
