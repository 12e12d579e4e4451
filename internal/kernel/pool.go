// Fixed-block memory pool.
//
// Grounded on original_source/OS/memory.c for structure and allocation
// semantics: OS_InitMempool wires up OS_InitMutex(&pool->mux) and
// OS_InitSemaphore(&pool->sem, nBlocks) exactly as itc_queue.c does for
// the message queue, and spec §3 (DATA MODEL) mandates the same pair of
// fields here too — an internal mutex guarding the free list, an internal
// semaphore counting free blocks. Pool embeds both as the real
// Mutex/Semaphore types this module already builds, rather than
// reimplementing their wait/notify bookkeeping inline (spec §1 point 4 /
// §2).
//
// Unlike the original, which overlays a {data, next} header struct
// directly on the borrowed block memory to thread the free list through
// it, this keeps the free list as a separate index array (next[i] = index
// of the next free block after i, or poolFreeListEnd) alongside a single
// contiguous []byte slab — Go cannot legally alias a struct onto
// arbitrary byte-slab memory that way. The spec requires allocation
// identity to be exact and stable (S6 checks that freeing block p3, not
// p2, wakes the blocked allocator with exactly p3's address), and
// Block(i) always returning the same slice header for the same index
// preserves that.

package kernel

import (
	"fmt"
	"unsafe"
)

const poolFreeListEnd = -1

// Pool is a fixed-block memory pool of Capacity blocks of BlockSize bytes
// each, allocated from a single contiguous slab.
type Pool struct {
	k *Kernel

	blockSize int
	capacity  int
	slab      []byte

	next []int // free-list links, indexed by block number
	head int   // index of the first free block, or poolFreeListEnd

	mux        *Mutex     // guards the free list
	freeBlocks *Semaphore // counts free blocks; bounds Alloc
}

// NewPool creates a pool of capacity blocks of blockSize bytes, all
// initially free.
func NewPool(k *Kernel, blockSize, capacity int) (*Pool, error) {
	if blockSize <= 0 || capacity <= 0 {
		return nil, fmt.Errorf("pool: block_size and capacity must be positive")
	}
	freeBlocks, err := NewSemaphore(k, capacity, capacity)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		k:          k,
		blockSize:  blockSize,
		capacity:   capacity,
		slab:       make([]byte, blockSize*capacity),
		next:       make([]int, capacity),
		mux:        NewMutex(k),
		freeBlocks: freeBlocks,
	}
	for i := 0; i < capacity; i++ {
		if i == capacity-1 {
			p.next[i] = poolFreeListEnd
		} else {
			p.next[i] = i + 1
		}
	}
	p.head = 0
	return p, nil
}

// block returns the byte range for block index i.
func (p *Pool) block(i int) []byte {
	return p.slab[i*p.blockSize : (i+1)*p.blockSize]
}

// Full reports whether every block is currently allocated.
func (p *Pool) Full() bool {
	p.k.mu.Lock()
	defer p.k.mu.Unlock()
	return p.head == poolFreeListEnd
}

// Alloc blocks self until a block is free, then returns it. The returned
// slice aliases pool-owned memory; callers must Free it exactly once.
func (p *Pool) Alloc(self *TCB) []byte {
	p.freeBlocks.Acquire(self) // blocks while every block is allocated

	p.mux.Lock(self)
	i := p.head
	p.head = p.next[i]
	p.mux.Unlock(self)

	return p.block(i)
}

// Free returns a block previously obtained from Alloc to the free list,
// pushing it onto the head — the most-recently-freed block is the next
// one an Alloc call receives (spec §4.7, confirmed by S6) — then notifies
// the highest-priority blocked allocator, if any, via the free-block
// semaphore's release-side cascade notify.
func (p *Pool) Free(self *TCB, b []byte) {
	i := p.indexOf(b)

	p.mux.Lock(self)
	p.next[i] = p.head
	p.head = i
	p.mux.Unlock(self)

	p.freeBlocks.Release(self, 1)
}

// indexOf recovers a block's index from its slice header. b must be a
// slice previously returned by Alloc, unmodified in length/capacity.
func (p *Pool) indexOf(b []byte) int {
	base := uintptr(unsafe.Pointer(&p.slab[0]))
	off := uintptr(unsafe.Pointer(&b[0])) - base
	return int(off) / p.blockSize
}
