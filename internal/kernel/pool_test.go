package kernel

import (
	"testing"
	"time"
)

func TestPoolInvalidArgs(t *testing.T) {
	k := newTestKernel(t, 8)
	if _, err := NewPool(k, 0, 4); err == nil {
		t.Fatal("expected an error for non-positive block size")
	}
	if _, err := NewPool(k, 8, 0); err == nil {
		t.Fatal("expected an error for non-positive capacity")
	}
}

// TestPoolLIFOAllocOrder checks spec §4.7: blocks are served LIFO off the
// free list — the most recently freed block is the next one Alloc returns.
func TestPoolLIFOAllocOrder(t *testing.T) {
	k := newTestKernel(t, 8)
	pool, err := NewPool(k, 8, 3)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	_, err = k.Admit("t1", 1, func(self *TCB) {
		b1 := pool.Alloc(self)
		b2 := pool.Alloc(self)
		b3 := pool.Alloc(self)
		if !pool.Full() {
			t.Error("pool should be full after allocating all blocks")
		}
		copy(b2, []byte("b2......"))
		copy(b3, []byte("b3......"))

		pool.Free(self, b2)
		pool.Free(self, b3)

		first := pool.Alloc(self)
		if string(first) != "b3......" {
			t.Errorf("want b3 (most recently freed), got %q", first)
		}
		second := pool.Alloc(self)
		if string(second) != "b2......" {
			t.Errorf("want b2, got %q", second)
		}
		_ = b1
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

// TestPoolFreeWakesBlockedAllocatorWithExactBlock checks spec §8 scenario
// S6: a blocked allocator is woken with exactly the block that was freed,
// not merely "a" free block, even when other blocks are allocated too.
func TestPoolFreeWakesBlockedAllocatorWithExactBlock(t *testing.T) {
	k := newTestKernel(t, 8)
	pool, err := NewPool(k, 8, 3)
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan string, 1)
	allDone := make(chan struct{})

	var blocker *TCB
	blocker, err = k.Admit("blocker", 2, func(self *TCB) {
		b := pool.Alloc(self)
		got <- string(b)
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = k.Admit("owner", 1, func(self *TCB) {
		b1 := pool.Alloc(self)
		b2 := pool.Alloc(self)
		b3 := pool.Alloc(self)
		copy(b1, []byte("p1......"))
		copy(b2, []byte("p2......"))
		copy(b3, []byte("p3......"))
		if !pool.Full() {
			t.Error("pool should be full")
		}
		// Give the blocker a chance to actually block on Alloc.
		k.Sleep(self, 20)
		pool.Free(self, b2)
		close(allDone)
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = blocker

	if err := k.Start(); err != nil {
		t.Fatal(err)
	}
	defer k.Shutdown()

	select {
	case <-allDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for owner")
	}

	select {
	case payload := <-got:
		if payload != "p2......" {
			t.Fatalf("want the exact freed block p2, got %q", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for blocker to be woken")
	}
}
