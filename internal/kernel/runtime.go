// Kernel runtime: the goroutine/gate baton driver that realizes "atomic
// context switch to the TCB the scheduler picks" without an assembly
// trampoline.
//
// Each admitted task runs in its own goroutine, parked on a buffered
// (capacity 1) "gate" channel until the kernel sends it the baton. At any
// instant at most one task goroutine is unblocked and executing kernel or
// user code; every reschedule point (Yield, Sleep, a blocking Wait, the
// exit trampoline) hands the baton to whatever the configured Scheduler's
// PickNext returns next, then — unless the caller itself just exited —
// blocks on its own gate until some later reschedule hands the baton back.
// Because only the baton holder can be running, the kernel's single
// general-purpose mutex (grounded on vmi/internal/scheduler.go's mu,
// "shared because contention is minimal") is sufficient to guard all
// shared state; there is never more than one real contender plus the tick
// goroutine, which only ever touches the tick counter.

package kernel

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var kernelLog = NewCompLogger("kernel")

// Kernel is the single-CPU RTOS kernel core: a scheduler, a tick source,
// and the baton driver that dispatches tasks onto it.
type Kernel struct {
	mu    sync.Mutex
	sched Scheduler
	tick  uint32

	current *TCB
	idle    *TCB

	cfg *KernelConfig

	tickerStop chan struct{}
	tickerDone sync.WaitGroup

	started bool
	stopped bool

	stats Stats
}

// NewKernel builds a kernel from cfg (nil selects DefaultKernelConfig).
func NewKernel(cfg *KernelConfig) (*Kernel, error) {
	if cfg == nil {
		cfg = DefaultKernelConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := SetLogger(cfg.LoggerConfig); err != nil {
		return nil, fmt.Errorf("kernel: logger config: %v", err)
	}

	idle := newTCB("idle", nil)
	idle.priority = IdlePriority

	var sched Scheduler
	switch cfg.Policy {
	case PolicyRoundRobin:
		sched = NewRoundRobinScheduler(cfg.MaxTasks, idle)
	default:
		sched = NewFixedPriorityScheduler(cfg.MaxTasks, idle)
	}

	k := &Kernel{
		sched:      sched,
		idle:       idle,
		cfg:        cfg,
		tickerStop: make(chan struct{}),
	}
	idle.fn = func(self *TCB) { k.idleLoop(self) }
	return k, nil
}

// IdlePriority is numerically above (i.e. lower-priority than) any
// priority a real task may be admitted with; priority 1 is highest per
// spec §3, so the idle task sits at the largest representable band.
const IdlePriority = 1<<31 - 1

// Start pins the kernel's driving OS thread to a single CPU (spec §5: the
// kernel models a single-CPU target), starts the tick source, and boots
// the idle task, which begins running already holding the baton. Start
// returns right after launching it; it does not block for the kernel's
// lifetime.
func (k *Kernel) Start() error {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return fmt.Errorf("kernel: already started")
	}
	k.started = true
	k.mu.Unlock()

	if k.cfg.PinCPU {
		if err := pinCurrentThread(k.cfg.CPU); err != nil {
			kernelLog.Warnf("cpu pin failed, continuing unpinned: %v", err)
		}
	}

	k.tickerDone.Add(1)
	go k.tickLoop()

	k.mu.Lock()
	k.current = k.idle
	k.mu.Unlock()
	// The idle goroutine starts already holding the baton (k.current is set
	// to idle above) rather than receiving it from its own gate — sending
	// into the gate here would leave a stray token sitting in it, which the
	// next reschedule's trailing <-self.gate would wrongly consume instead
	// of actually parking.
	go k.idle.fn(k.idle)

	kernelLog.Infof("kernel started: policy=%s max_tasks=%d tick_period=%s",
		k.cfg.Policy, k.cfg.MaxTasks, k.cfg.TickPeriod)
	return nil
}

// Shutdown stops the tick source. Task goroutines parked on their gates
// are left parked — the process is expected to exit shortly after, as on
// a real embedded target powering off is how the kernel "stops".
func (k *Kernel) Shutdown() {
	k.mu.Lock()
	if k.stopped {
		k.mu.Unlock()
		return
	}
	k.stopped = true
	k.mu.Unlock()
	close(k.tickerStop)
	k.tickerDone.Wait()
	kernelLog.Info("kernel stopped")
}

func (k *Kernel) tickLoop() {
	defer k.tickerDone.Done()
	ticker := time.NewTicker(k.cfg.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-k.tickerStop:
			return
		case <-ticker.C:
			k.mu.Lock()
			k.tick++
			k.mu.Unlock()
		}
	}
}

func pinCurrentThread(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

// ElapsedTicks returns the kernel's free-running tick counter (spec §4.8).
func (k *Kernel) ElapsedTicks() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}

// Admit creates a task running fn at the given priority and adds it to the
// runnable set. fn receives the task's own TCB, which it must pass back
// into Yield/Sleep/WaitOn/Notify. Admit returns an error if the runnable
// set is already at MaxTasks capacity (spec §7, "capacity reached").
func (k *Kernel) Admit(id string, priority int, fn func(self *TCB)) (*TCB, error) {
	t := newTCB(id, fn)

	k.mu.Lock()
	ok := k.sched.Admit(t, priority)
	if ok {
		k.stats.TasksAdmitted++
	}
	k.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("kernel: admit %s: capacity reached", id)
	}

	go func() {
		<-t.gate
		defer k.exitTrampoline(t)
		t.fn(t)
	}()

	kernelLog.Infof("admitted task %s priority=%d", id, priority)
	return t, nil
}

// exitTrampoline runs via defer in every task goroutine (cf. spec §3's
// note that a task function returning is handled by a fixed return
// address pushed onto its initial stack frame; here that return address
// is simply "the deferred call").
func (k *Kernel) exitTrampoline(self *TCB) {
	k.mu.Lock()
	self.exited = true
	k.sched.OnExit(self)
	next := k.sched.PickNext(k.tick)
	k.current = next
	k.mu.Unlock()
	kernelLog.Infof("task %s exited", self.ID())
	next.gate <- struct{}{}
}

// reschedule is the single dispatch point: it picks the next TCB to run,
// hands it the baton, and — unless self is itself the pick — parks self on
// its own gate until some later reschedule hands the baton back. An
// exiting task does not come through here (exitTrampoline dispatches
// without parking). Callers must hold k.mu; reschedule releases it.
func (k *Kernel) reschedule(self *TCB) {
	next := k.sched.PickNext(k.tick)
	if next == self {
		k.mu.Unlock()
		return
	}
	k.stats.ContextSwitches++
	k.current = next
	k.mu.Unlock()
	next.gate <- struct{}{}
	<-self.gate
}

// Yield voluntarily relinquishes the remainder of self's dispatch, letting
// any equally- or higher-priority runnable task go ahead of it, per
// spec §4.8.
func (k *Kernel) Yield(self *TCB) {
	k.mu.Lock()
	k.sched.OnExit(self)
	k.sched.Admit(self, self.priority)
	self.state |= FlagYield
	k.reschedule(self)
	self.state &^= FlagYield
}

// Sleep blocks self until at least duration ticks have elapsed.
func (k *Kernel) Sleep(self *TCB, duration uint32) {
	k.mu.Lock()
	k.sched.OnSleep(self, k.tick, duration)
	self.state |= FlagSleep
	k.reschedule(self)
	self.state &^= FlagSleep
}

// waitOn blocks self on queue unless code is already stale (a notify beat
// self to the wait — the check-code race guard, spec §4.3). It returns
// false if queue was at capacity and self could not be enqueued.
func (k *Kernel) waitOn(self *TCB, queue *PriorityHeap, src *checkCodeSource, code CheckCode) bool {
	k.mu.Lock()
	if src.stale(code) {
		k.mu.Unlock()
		return true
	}
	self.state |= FlagWait
	ok := k.sched.OnWait(queue, self)
	if !ok {
		self.state &^= FlagWait
		k.sched.Admit(self, self.priority)
		k.mu.Unlock()
		return false
	}
	k.reschedule(self)
	self.state &^= FlagWait
	return true
}

// Notify wakes the highest-priority waiter on queue, if any, and bumps
// src's check code. self is the calling task: Notify immediately
// rechecks who should run via reschedule, so a freshly-woken
// higher-priority waiter preempts self right away rather than waiting for
// self's next voluntary suspension point (spec §4.3/§4.5: a notify that
// wakes a higher-priority task must not leave the lower-priority task
// running). If nobody outranks self, reschedule is a no-op and self
// continues without ever touching its own gate. Returns the woken TCB, or
// nil if queue was empty.
func (k *Kernel) Notify(self *TCB, queue *PriorityHeap, src *checkCodeSource) *TCB {
	k.mu.Lock()
	src.bump()
	woken := k.sched.OnNotify(queue)
	k.reschedule(self)
	return woken
}

// GetCheckCode samples src's check code. Callers must do this before
// releasing whatever lock protects the condition they are about to wait
// on, then pass the sampled code to waitOn.
func (k *Kernel) GetCheckCode(src *checkCodeSource) CheckCode {
	return src.sample()
}
