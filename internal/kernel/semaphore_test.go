package kernel

import (
	"sync"
	"testing"
	"time"
)

func TestSemaphoreInvalidBounds(t *testing.T) {
	k := newTestKernel(t, 8)
	if _, err := NewSemaphore(k, 0, 0); err == nil {
		t.Error("expected an error for max=0")
	}
	if _, err := NewSemaphore(k, -1, 4); err == nil {
		t.Error("expected an error for negative initial")
	}
	if _, err := NewSemaphore(k, 5, 4); err == nil {
		t.Error("expected an error for initial > max")
	}
}

// TestSemaphoreAcquireDecrementsCount checks the basic counting semantics:
// each Acquire takes one unit, so draining the initial count leaves the
// semaphore empty.
func TestSemaphoreAcquireDecrementsCount(t *testing.T) {
	k := newTestKernel(t, 8)
	sem, err := NewSemaphore(k, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if sem.Empty() {
		t.Fatal("semaphore with initial=2 should not be empty yet")
	}

	done := make(chan struct{})
	_, err = k.Admit("t1", 1, func(self *TCB) {
		sem.Acquire(self)
		sem.Acquire(self)
		if !sem.Empty() {
			t.Error("semaphore should be empty after draining its initial count")
		}
		close(done)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}
	defer k.Shutdown()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

// TestSemaphoreReleaseCascadeNotify checks the deliberate cascade-notify
// behavior (spec §9): a single Release(n) call wakes up to n blocked
// waiters, not just the single highest-priority one.
func TestSemaphoreReleaseCascadeNotify(t *testing.T) {
	k := newTestKernel(t, 8)
	sem, err := NewSemaphore(k, 0, 4)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	for _, id := range []string{"w1", "w2"} {
		_, err := k.Admit(id, 2, func(self *TCB) {
			sem.Acquire(self)
			wg.Done()
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	released := make(chan struct{})
	_, err = k.Admit("releaser", 1, func(self *TCB) {
		// Give both waiters a chance to block before releasing.
		k.Sleep(self, 20)
		if err := sem.Release(self, 2); err != nil {
			t.Errorf("release: %v", err)
		}
		close(released)
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := k.Start(); err != nil {
		t.Fatal(err)
	}
	defer k.Shutdown()

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for release")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out: a single Release(2) should wake both waiters")
	}
}

func TestSemaphoreReleaseInvalidCount(t *testing.T) {
	k := newTestKernel(t, 8)
	sem, err := NewSemaphore(k, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	_, err = k.Admit("t1", 1, func(self *TCB) {
		if err := sem.Release(self, 0); err == nil {
			t.Error("expected an error releasing a non-positive count")
		}
		close(done)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}
	defer k.Shutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}
