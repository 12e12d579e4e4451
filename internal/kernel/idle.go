// Idle task.
//
// Runs whenever no admitted task is runnable. It never blocks — it only
// yields — because ticks are what make sleeping tasks and notify-driven
// wakeups visible to the scheduler, and the idle task's continuous Yield
// loop is what gives the kernel a voluntary suspension point to notice
// them at (spec §5 and §9's note on cooperative preemption: this port has
// no mid-instruction preemption, so a reschedule only happens where a
// task calls into the kernel). Between yields it samples host load via
// go-osstat, grounded on vmi/internal/process_internal_metrics.go's
// periodic host-stat sampling pattern, repurposed from a metrics
// generator into idle-loop diagnostics.

package kernel

import (
	"github.com/mackerelio/go-osstat/cpu"
)

var idleLog = NewCompLogger("idle")

// idleLoop is the idle task's body, installed as idle.fn by NewKernel.
func (k *Kernel) idleLoop(self *TCB) {
	idleLog.Debug("idle task started")
	var loops uint64
	for {
		loops++
		if loops%idleStatsSamplePeriod == 0 {
			if stats, err := cpu.Get(); err == nil {
				idleLog.Debugf("host cpu: user=%d system=%d idle=%d",
					stats.User, stats.System, stats.Idle)
			}
		}
		k.Yield(self)
	}
}

// idleStatsSamplePeriod throttles how often the idle task samples host
// CPU stats, which involves a /proc read and would otherwise happen on
// every single idle dispatch.
const idleStatsSamplePeriod = 1000
