package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSemaphoreAcquireRelease(t *testing.T) {
	sem := newDynamicSemaphore(2)
	ctx := context.Background()

	if err := sem.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := sem.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if sem.Acquired() != 2 {
		t.Errorf("Acquired() = %d, want 2", sem.Acquired())
	}

	sem.Release()
	sem.Release()
	if sem.Acquired() != 0 {
		t.Errorf("after releases: Acquired() = %d, want 0", sem.Acquired())
	}

	// Release without a matching acquire must not go negative.
	sem.Release()
	if sem.Acquired() != 0 {
		t.Errorf("Acquired() = %d, want 0", sem.Acquired())
	}
}

func TestSemaphoreBlocksAtLimit(t *testing.T) {
	sem := newDynamicSemaphore(1)
	ctx := context.Background()

	if err := sem.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		_ = sem.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	sem.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire did not unblock after Release")
	}
}

func TestSemaphoreAcquireHonorsCancellation(t *testing.T) {
	sem := newDynamicSemaphore(1)
	if err := sem.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- sem.Acquire(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Acquire error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Acquire did not return")
	}
	if sem.Acquired() != 1 {
		t.Errorf("Acquired() = %d, want 1", sem.Acquired())
	}
}

func TestSemaphoreSetLimitWakesBlockedAcquire(t *testing.T) {
	sem := newDynamicSemaphore(1)
	ctx := context.Background()

	if err := sem.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		_ = sem.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("should have blocked at limit 1")
	case <-time.After(50 * time.Millisecond):
	}

	// Raising the limit mid-wait models a config edit while a job queues.
	sem.SetLimit(2)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("did not unblock after SetLimit(2)")
	}
	if sem.Acquired() != 2 {
		t.Errorf("Acquired() = %d, want 2", sem.Acquired())
	}
}

func TestSemaphoreOccupyExceedsLimit(t *testing.T) {
	sem := newDynamicSemaphore(2)
	ctx := context.Background()

	// Restored jobs take slots unconditionally, even past the cap.
	for n := 0; n < 4; n++ {
		sem.Occupy()
	}
	if sem.Acquired() != 4 {
		t.Fatalf("Acquired() = %d, want 4", sem.Acquired())
	}

	// New admissions wait until occupancy drains below the limit.
	acquired := make(chan struct{})
	go func() {
		_ = sem.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire should block while over the limit")
	case <-time.After(50 * time.Millisecond):
	}

	sem.Release()
	sem.Release()
	select {
	case <-acquired:
		t.Fatal("Acquire should still block at 2/2")
	case <-time.After(50 * time.Millisecond):
	}

	sem.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock once occupancy dropped below the limit")
	}
	if sem.Acquired() != 2 {
		t.Errorf("Acquired() = %d, want 2", sem.Acquired())
	}
}

func TestSemaphoreConcurrentAcquireWithResizes(t *testing.T) {
	sem := newDynamicSemaphore(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var completed atomic.Int32
	var wg sync.WaitGroup

	for n := 0; n < 20; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx); err != nil {
				return
			}
			completed.Add(1)
			time.Sleep(time.Millisecond)
			sem.Release()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			sem.SetLimit(i%5 + 1)
			time.Sleep(2 * time.Millisecond)
		}
	}()

	wg.Wait()
	if completed.Load() == 0 {
		t.Error("no goroutines completed")
	}
	if sem.Acquired() != 0 {
		t.Errorf("Acquired() = %d after all releases, want 0", sem.Acquired())
	}
}
