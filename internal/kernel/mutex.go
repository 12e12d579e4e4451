// Recursive, owner-tracked mutex.
//
// Grounded on original_source/OS/mutex.c for the owner/recursion/release
// semantics (a task may lock its own mutex repeatedly and must unlock it
// the same number of times before it is actually released) and on
// vmi/internal/scheduler.go's single general-purpose-lock idiom for the
// Go-side critical section. Ownership transfers directly to the
// highest-priority waiter on Unlock (spec §4.4) rather than releasing the
// mutex to be re-contended, which is what prevents a lower-priority task
// that happens to call Lock first from jumping the queue — the classic
// priority-inversion hazard a plain "release then let everyone race"
// mutex would reintroduce.

package kernel

// Mutex is a recursive mutex whose wait queue is ordered by task priority.
type Mutex struct {
	checkCodeSource

	k *Kernel

	owner     *TCB
	recursion int

	waiters *PriorityHeap
}

func NewMutex(k *Kernel) *Mutex {
	return &Mutex{
		k:       k,
		waiters: NewPriorityHeap(k.cfg.MaxTasks, byPriority),
	}
}

// Lock acquires the mutex for self, blocking if it is held by a different
// task. Locking a mutex self already owns increments the recursion count
// (spec §4.4).
func (m *Mutex) Lock(self *TCB) {
	// first distinguishes a genuine recursive re-lock (owner == self on the
	// very first pass) from waking up already holding the mutex because
	// Unlock handed it directly to self — the latter must not bump
	// recursion a second time on top of the 1 Unlock already set.
	first := true
	for {
		m.k.mu.Lock()
		if m.owner == nil {
			m.owner = self
			m.recursion = 1
			m.k.mu.Unlock()
			return
		}
		if m.owner == self {
			if first {
				m.recursion++
			}
			m.k.mu.Unlock()
			return
		}
		code := m.k.GetCheckCode(&m.checkCodeSource)
		m.k.mu.Unlock()
		m.k.waitOn(self, m.waiters, &m.checkCodeSource, code)
		first = false
	}
}

// Unlock releases one level of self's recursive hold. Once the recursion
// count reaches zero, ownership transfers directly to the
// highest-priority waiter, if any, which becomes the new owner with
// recursion 1 — it does not need to re-contend for the lock.
//
// Per spec §4.4, releasing a mutex self does not own is a silent no-op,
// not a fault: a pre-start release (owner still nil) just resets the
// recursion counter without notifying, and a release by any other task is
// ignored outright.
func (m *Mutex) Unlock(self *TCB) {
	m.k.mu.Lock()
	if m.owner == nil {
		m.recursion = 0
		m.k.mu.Unlock()
		return
	}
	if m.owner != self {
		m.k.mu.Unlock()
		return
	}
	m.recursion--
	if m.recursion > 0 {
		m.k.mu.Unlock()
		return
	}
	m.owner = nil
	m.k.mu.Unlock()

	m.k.mu.Lock()
	m.checkCodeSource.bump()
	next := m.k.sched.OnNotify(m.waiters)
	if next != nil {
		m.owner = next
		m.recursion = 1
	}
	m.k.reschedule(self)
}

// Owner returns the current owner, or nil if unlocked. Diagnostic only.
func (m *Mutex) Owner() *TCB {
	m.k.mu.Lock()
	defer m.k.mu.Unlock()
	return m.owner
}
