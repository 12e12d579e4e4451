// Intrusive min-heap of TCB pointers.
//
// A single implementation serves every heap in the kernel: the scheduler's
// runnable heap (keyed by priority), its sleeping heap (keyed by wake
// tick), and every mutex/semaphore's wait-queue (keyed by priority). No
// heap owns its TCBs; a TCB is at most in one heap at any moment (spec §3).

package kernel

import "container/heap"

// KeyFunc extracts the ordering key for a TCB; the heap keeps the minimum
// key at the root.
type KeyFunc func(*TCB) uint64

func byPriority(t *TCB) uint64 { return uint64(t.priority) }
func byDatum(t *TCB) uint64    { return uint64(t.datum) }

// PriorityHeap is a capacity-bounded binary min-heap over *TCB.
type PriorityHeap struct {
	items    []*TCB
	key      KeyFunc
	capacity int
}

// NewPriorityHeap creates a heap that holds at most capacity elements:
// Full reports true once capacity elements are stored.
func NewPriorityHeap(capacity int, key KeyFunc) *PriorityHeap {
	return &PriorityHeap{
		items:    make([]*TCB, 0, capacity),
		key:      key,
		capacity: capacity,
	}
}

// sort.Interface, required by container/heap:
func (h *PriorityHeap) Len() int { return len(h.items) }
func (h *PriorityHeap) Less(i, j int) bool {
	return h.key(h.items[i]) < h.key(h.items[j])
}
func (h *PriorityHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

// heap.Interface, required by container/heap:
func (h *PriorityHeap) Push(x any) {
	h.items = append(h.items, x.(*TCB))
}
func (h *PriorityHeap) Pop() any {
	n := len(h.items)
	t := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	return t
}

// Full reports whether the heap is at capacity (spec §4.1: length exceeds
// capacity-1).
func (h *PriorityHeap) Full() bool { return len(h.items) > h.capacity-1 }

// Empty reports whether the heap has no elements.
func (h *PriorityHeap) Empty() bool { return len(h.items) == 0 }

// Insert adds t to the heap, returning false (and dropping t) if the heap
// is already full — the "capacity reached" error kind from spec §7.
func (h *PriorityHeap) Insert(t *TCB) bool {
	if h.Full() {
		return false
	}
	heap.Push(h, t)
	return true
}

// ExtractMin removes and returns the minimum-key element, or nil if empty.
func (h *PriorityHeap) ExtractMin() *TCB {
	if h.Empty() {
		return nil
	}
	return heap.Pop(h).(*TCB)
}

// PeekMin returns, without removing, the minimum-key element, or nil if
// empty.
func (h *PriorityHeap) PeekMin() *TCB {
	if h.Empty() {
		return nil
	}
	return h.items[0]
}

// Remove deletes t from the heap by identity (linear scan + heap.Remove,
// which re-sifts both down and up from the vacated slot — the "simpler,
// correct variant" spec §4.1 requires). It is a silent no-op if t is not
// present.
func (h *PriorityHeap) Remove(t *TCB) bool {
	for i, item := range h.items {
		if item == t {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
