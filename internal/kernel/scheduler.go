// Fixed-priority, preemptive scheduler core.
//
// Architecture (generalized from the teacher's heap-backed dispatcher,
// which keeps "next task by wake time" in a single container/heap; here a
// second heap tracks sleepers separately from the runnable set):
//
//             +------------------+      +-------------------+
//             |  Runnable Heap   |      |   Sleeping Heap    |
//             | (key: priority)  | <--- |   (key: wake tick) |
//             +------------------+      +-------------------+
//                       ^
//                       | PickNext peeks the min; Admit/OnWait/OnSleep/
//                       | OnExit mutate membership.

package kernel

// Scheduler is the capability set a kernel drives a reschedule through.
// Two implementations are provided: FixedPriorityScheduler (the policy
// spec.md describes) and RoundRobinScheduler (supplemental, grounded on
// original_source/OS/simpleRoundRobin.c — see DESIGN.md).
type Scheduler interface {
	// PickNext drains ready sleepers into the runnable set and returns the
	// highest-priority TCB, or the idle TCB if none is runnable.
	PickNext(now uint32) *TCB
	// Admit records priority on t and inserts it into the runnable set. It
	// returns false if the runnable set is already at capacity.
	Admit(t *TCB, priority int) bool
	// OnExit removes t (the caller) from the runnable set.
	OnExit(t *TCB)
	// OnWait removes t from the runnable set and inserts it into queue,
	// returning false if queue was already full.
	OnWait(queue *PriorityHeap, t *TCB) bool
	// OnNotify extracts the highest-priority waiter from queue and inserts
	// it into the runnable set, returning it (nil if queue was empty).
	OnNotify(queue *PriorityHeap) *TCB
	// OnSleep removes t from the runnable set, sets its wake tick to
	// now+duration, and inserts it into the sleeping set.
	OnSleep(t *TCB, now, duration uint32)
}

// FixedPriorityScheduler is the scheduler described in spec §4.2: tie
// breaking among equal-priority tasks is whatever the heap produces and is
// explicitly not to be relied upon.
type FixedPriorityScheduler struct {
	runnable *PriorityHeap
	sleeping *PriorityHeap
	idle     *TCB
}

func NewFixedPriorityScheduler(maxTasks int, idle *TCB) *FixedPriorityScheduler {
	return &FixedPriorityScheduler{
		runnable: NewPriorityHeap(maxTasks, byPriority),
		sleeping: NewPriorityHeap(maxTasks, byDatum),
		idle:     idle,
	}
}

func (s *FixedPriorityScheduler) PickNext(now uint32) *TCB {
	for {
		top := s.sleeping.PeekMin()
		if top == nil || top.datum > now {
			break
		}
		s.sleeping.ExtractMin()
		top.datum = 0
		top.state &^= FlagSleep
		s.runnable.Insert(top)
	}
	if t := s.runnable.PeekMin(); t != nil {
		return t
	}
	return s.idle
}

func (s *FixedPriorityScheduler) Admit(t *TCB, priority int) bool {
	t.priority = priority
	return s.runnable.Insert(t)
}

func (s *FixedPriorityScheduler) OnExit(t *TCB) {
	s.runnable.Remove(t)
}

func (s *FixedPriorityScheduler) OnWait(queue *PriorityHeap, t *TCB) bool {
	s.runnable.Remove(t)
	return queue.Insert(t)
}

func (s *FixedPriorityScheduler) OnNotify(queue *PriorityHeap) *TCB {
	t := queue.ExtractMin()
	if t == nil {
		return nil
	}
	s.runnable.Insert(t)
	return t
}

func (s *FixedPriorityScheduler) OnSleep(t *TCB, now, duration uint32) {
	s.runnable.Remove(t)
	t.datum = now + duration
	t.state |= FlagSleep
	s.sleeping.Insert(t)
}
