// Kernel stats snapshot.
//
// Grounded on vmi/internal/scheduler_internal_metrics.go's counter-struct
// shape (before that file's Prometheus-text rendering, which has no
// equivalent need here — a kernel core has no metrics endpoint to expose,
// so this keeps only the counter bookkeeping, not the generator plumbing
// around it).

package kernel

// Stats is a snapshot of kernel-wide counters.
type Stats struct {
	// TasksAdmitted is the cumulative number of Admit calls that
	// succeeded.
	TasksAdmitted uint64
	// ContextSwitches is the cumulative number of times reschedule handed
	// the baton to a TCB other than the caller.
	ContextSwitches uint64
}

// SnapStats returns a copy of the kernel's current counters.
func (k *Kernel) SnapStats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.stats
}
