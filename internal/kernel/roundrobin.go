// Round-robin scheduler policy (supplemental; not named by the distilled
// spec but present in the system this kernel is ported from — see
// original_source/OS/simpleRoundRobin.c). Where FixedPriorityScheduler
// leaves equal-priority tie-breaking unspecified, this policy resolves it:
// among runnable tasks of the same priority, admission order wins.

package kernel

// RoundRobinScheduler implements Scheduler with FIFO tie-breaking within a
// priority band, using the same two-heap shape as FixedPriorityScheduler
// but keying the runnable heap on (priority, seq) packed into one uint64.
type RoundRobinScheduler struct {
	runnable *PriorityHeap
	sleeping *PriorityHeap
	idle     *TCB
	nextSeq  uint64
}

// byPriorityThenSeq packs priority into the high bits and admission
// sequence into the low bits so a single key orders by priority first,
// admission order second, without a second comparator.
func byPriorityThenSeq(t *TCB) uint64 {
	return uint64(t.priority)<<32 | (t.seq & 0xffffffff)
}

func NewRoundRobinScheduler(maxTasks int, idle *TCB) *RoundRobinScheduler {
	return &RoundRobinScheduler{
		runnable: NewPriorityHeap(maxTasks, byPriorityThenSeq),
		sleeping: NewPriorityHeap(maxTasks, byDatum),
		idle:     idle,
	}
}

func (s *RoundRobinScheduler) PickNext(now uint32) *TCB {
	for {
		top := s.sleeping.PeekMin()
		if top == nil || top.datum > now {
			break
		}
		s.sleeping.ExtractMin()
		top.datum = 0
		top.state &^= FlagSleep
		top.seq = s.nextSeq
		s.nextSeq++
		s.runnable.Insert(top)
	}
	if t := s.runnable.PeekMin(); t != nil {
		return t
	}
	return s.idle
}

func (s *RoundRobinScheduler) Admit(t *TCB, priority int) bool {
	t.priority = priority
	t.seq = s.nextSeq
	s.nextSeq++
	return s.runnable.Insert(t)
}

func (s *RoundRobinScheduler) OnExit(t *TCB) {
	s.runnable.Remove(t)
}

func (s *RoundRobinScheduler) OnWait(queue *PriorityHeap, t *TCB) bool {
	s.runnable.Remove(t)
	return queue.Insert(t)
}

func (s *RoundRobinScheduler) OnNotify(queue *PriorityHeap) *TCB {
	t := queue.ExtractMin()
	if t == nil {
		return nil
	}
	t.seq = s.nextSeq
	s.nextSeq++
	s.runnable.Insert(t)
	return t
}

func (s *RoundRobinScheduler) OnSleep(t *TCB, now, duration uint32) {
	s.runnable.Remove(t)
	t.datum = now + duration
	t.state |= FlagSleep
	s.sleeping.Insert(t)
}
