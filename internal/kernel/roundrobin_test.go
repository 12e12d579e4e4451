package kernel

import "testing"

// TestRoundRobinYieldGoesToBackOfQueue checks that re-admitting a task (the
// Yield pattern: OnExit then Admit) moves it behind any other task of the
// same priority that was already runnable.
func TestRoundRobinYieldGoesToBackOfQueue(t *testing.T) {
	idle := newTCB("idle", nil)
	sched := NewRoundRobinScheduler(16, idle)

	t1 := newTCB("t1", nil)
	t2 := newTCB("t2", nil)
	sched.Admit(t1, 5)
	sched.Admit(t2, 5)

	if got := sched.PickNext(0); got != t1 {
		t.Fatalf("want t1 first, got %s", got.ID())
	}

	sched.OnExit(t1)
	sched.Admit(t1, 5)

	if got := sched.PickNext(0); got != t2 {
		t.Fatalf("after yielding, t2 should run next, got %s", got.ID())
	}
}

// TestRoundRobinNotifyGoesToBackOfQueue checks that a task woken via
// OnNotify is appended behind already-runnable same-priority tasks, not
// inserted ahead of them.
func TestRoundRobinNotifyGoesToBackOfQueue(t *testing.T) {
	idle := newTCB("idle", nil)
	sched := NewRoundRobinScheduler(16, idle)
	waitQ := NewPriorityHeap(16, byPriority)

	t1 := newTCB("t1", nil)
	t2 := newTCB("t2", nil)
	sched.Admit(t2, 5)
	sched.OnWait(waitQ, t2)
	sched.Admit(t1, 5)

	woken := sched.OnNotify(waitQ)
	if woken != t2 {
		t.Fatalf("want t2 woken, got %v", woken)
	}
	if got := sched.PickNext(0); got != t1 {
		t.Fatalf("t1 (already runnable) should still run before woken t2, got %s", got.ID())
	}
}

// TestRoundRobinSleepWakeGoesToBackOfQueue mirrors the notify case for
// sleepers: a woken sleeper joins the back of its priority band.
func TestRoundRobinSleepWakeGoesToBackOfQueue(t *testing.T) {
	idle := newTCB("idle", nil)
	sched := NewRoundRobinScheduler(16, idle)

	t1 := newTCB("t1", nil)
	t2 := newTCB("t2", nil)
	sched.Admit(t2, 5)
	sched.OnSleep(t2, 0, 10)
	sched.Admit(t1, 5)

	if got := sched.PickNext(5); got != t1 {
		t.Fatalf("t2 still asleep, want t1, got %s", got.ID())
	}
	if got := sched.PickNext(10); got != t1 {
		t.Fatalf("woken t2 should join the back of the queue behind t1, got %s", got.ID())
	}
}
