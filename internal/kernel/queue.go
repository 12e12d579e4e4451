// Destination-addressed, bounded inter-task message queue.
//
// Grounded on original_source/OS/itc_queue.c for semantics and structure:
// OS_InitITCQueue wires up OS_InitMutex(&queue->mux) and
// OS_InitSemaphore(&queue->sem, ITC_MAX_MSGS) before anything else, and
// spec §3 (DATA MODEL) mandates the same pair of fields — an internal
// mutex guarding buffer mutation, an internal semaphore whose counter
// tracks free slots. Queue embeds both as the real Mutex/Semaphore types
// this module already builds (spec §1 point 4 / §2: queue and pool are
// meant to be "layered on" mutex+semaphore, not reimplement wait/notify
// from scratch).
//
// Destination addressing itself has no equivalent in a plain counting
// semaphore, so readers still block on a dedicated items-available
// wait queue: itc_queue.c's OS_ITCReadMsg shares the same semaphore
// between writers-blocked-on-full and readers-blocked-on-empty, which
// means a notify can wake a reader whose destination doesn't match the
// message that arrived (it then silently drains a semaphore unit without
// finding anything, a latent bug in the original). Keeping the readers on
// their own wait queue and retrying past a non-matching head (see Read)
// avoids reintroducing that, which strengthens the informally-worded FIFO
// requirement in spec §4.6 — a strengthening the spec explicitly allows.

package kernel

import "fmt"

type queueMsg struct {
	dest    *TCB
	payload []byte
}

// Queue is a bounded queue of capacity slots, each message addressed to a
// specific destination task.
type Queue struct {
	k *Kernel

	capacity int
	slots    []queueMsg

	mux       *Mutex     // guards slots mutation
	freeSlots *Semaphore // counts free slots; bounds Write

	itemsAvail    checkCodeSource // bumped on Write, sampled by blocked readers
	readerWaiters *PriorityHeap
}

func NewQueue(k *Kernel, capacity int) (*Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue: capacity must be positive")
	}
	freeSlots, err := NewSemaphore(k, capacity, capacity)
	if err != nil {
		return nil, err
	}
	return &Queue{
		k:             k,
		capacity:      capacity,
		slots:         make([]queueMsg, 0, capacity),
		mux:           NewMutex(k),
		freeSlots:     freeSlots,
		readerWaiters: NewPriorityHeap(k.cfg.MaxTasks, byPriority),
	}, nil
}

// Full reports whether the queue holds capacity messages.
func (q *Queue) Full() bool {
	q.k.mu.Lock()
	defer q.k.mu.Unlock()
	return len(q.slots) >= q.capacity
}

// Empty reports whether the queue holds no messages at all (for any
// destination).
func (q *Queue) Empty() bool {
	q.k.mu.Lock()
	defer q.k.mu.Unlock()
	return len(q.slots) == 0
}

// Write blocks self until a slot is free, then enqueues payload addressed
// to dest.
func (q *Queue) Write(self *TCB, dest *TCB, payload []byte) {
	q.freeSlots.Acquire(self) // blocks while the queue is at capacity

	q.mux.Lock(self)
	q.slots = append(q.slots, queueMsg{dest: dest, payload: payload})
	q.mux.Unlock(self)

	q.k.Notify(self, q.readerWaiters, &q.itemsAvail)
}

// Read blocks self until a message addressed to self is available, then
// consumes and returns it. While the queue is nonempty but holds nothing
// for self, self yields the remainder of its dispatch and retries rather
// than blocking indefinitely, so other readers (and writers freeing
// slots) make progress.
func (q *Queue) Read(self *TCB) []byte {
	for {
		q.mux.Lock(self)
		if len(q.slots) == 0 {
			code := q.k.GetCheckCode(&q.itemsAvail)
			q.mux.Unlock(self)
			q.k.waitOn(self, q.readerWaiters, &q.itemsAvail, code)
			continue
		}
		idx := -1
		for i := range q.slots {
			if q.slots[i].dest == self {
				idx = i
				break
			}
		}
		if idx < 0 {
			q.mux.Unlock(self)
			q.k.Yield(self)
			continue
		}
		msg := q.slots[idx]
		q.slots = append(q.slots[:idx], q.slots[idx+1:]...)
		q.mux.Unlock(self)

		q.freeSlots.Release(self, 1)
		return msg.payload
	}
}
