// Counting semaphore.
//
// Grounded on original_source/OS/semaphore.c for full?/empty?/wait_on/
// notify_on semantics, including two deliberate carry-overs from the
// original that spec §9 flags as worth re-examining but keeps for
// fidelity, since no §8 test depends on either being "fixed":
//
//   - Acquire issues a cascade notify of its own: if the count was at its
//     ceiling (max) right before this Acquire took the first unit out of
//     it, it notifies the wait queue after decrementing (spec §4.5,
//     "after a successful acquire following an observed-empty state").
//     This is the mirror image of the over-contended case — the caller
//     that just happened to make progress wakes whoever else is waiting.
//   - Release is a cascade notify, not a single-waiter notify — if
//     Release(n) admits n more units at once, it wakes up to n waiters in
//     one call rather than one waiter per call. This is surprising the
//     first time you read it (a "release 1" call can still only wake one,
//     but a caller that releases several units atomically wakes several
//     tasks atomically too), but it is what the original does.

package kernel

import "fmt"

// Semaphore is a counting semaphore with priority-ordered waiters.
type Semaphore struct {
	checkCodeSource

	k *Kernel

	count int
	max   int

	waiters *PriorityHeap
}

// NewSemaphore creates a semaphore with the given initial count, bounded
// by max.
func NewSemaphore(k *Kernel, initial, max int) (*Semaphore, error) {
	if max <= 0 || initial < 0 || initial > max {
		return nil, fmt.Errorf("semaphore: invalid initial=%d max=%d", initial, max)
	}
	return &Semaphore{
		k:       k,
		count:   initial,
		max:     max,
		waiters: NewPriorityHeap(k.cfg.MaxTasks, byPriority),
	}, nil
}

// Full reports whether the semaphore is at its maximum count.
func (s *Semaphore) Full() bool {
	s.k.mu.Lock()
	defer s.k.mu.Unlock()
	return s.count >= s.max
}

// Empty reports whether the semaphore's count is zero.
func (s *Semaphore) Empty() bool {
	s.k.mu.Lock()
	defer s.k.mu.Unlock()
	return s.count == 0
}

// Acquire blocks self until a unit is available, then takes it.
func (s *Semaphore) Acquire(self *TCB) {
	for {
		s.k.mu.Lock()
		if s.count > 0 {
			wasAtCeiling := s.count == s.max
			s.count--
			s.k.mu.Unlock()
			if wasAtCeiling {
				s.k.Notify(self, s.waiters, &s.checkCodeSource)
			}
			return
		}
		code := s.k.GetCheckCode(&s.checkCodeSource)
		s.k.mu.Unlock()
		s.k.waitOn(self, s.waiters, &s.checkCodeSource, code)
	}
}

// Release admits n more units (capped at max) and cascades notify: it
// wakes up to n waiters in this single call, one per admitted unit, not
// just the single highest-priority one.
func (s *Semaphore) Release(self *TCB, n int) error {
	if n <= 0 {
		return fmt.Errorf("semaphore: release count must be positive")
	}

	s.k.mu.Lock()
	admitted := n
	if s.count+admitted > s.max {
		admitted = s.max - s.count
	}
	s.count += admitted
	s.checkCodeSource.bump()
	for i := 0; i < admitted && !s.waiters.Empty(); i++ {
		s.k.sched.OnNotify(s.waiters)
	}
	s.k.reschedule(self)
	return nil
}
