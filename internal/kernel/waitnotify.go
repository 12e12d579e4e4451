// Wait/notify engine with a check-code race guard.
//
// The original (original_source/OS/os.c) uses a load-linked/store-
// conditional style sequence: a task samples a "check code" on the
// condition it is about to wait on, then atomically re-validates it right
// before actually blocking, so a notify that lands between the sample and
// the block is not lost. Go has no LL/SC primitive, so this is lowered (as
// SPEC_FULL §4.3 directs) onto the kernel's own general-purpose mutex: the
// sample and the re-validate-then-block both happen while the caller holds
// that lock, which is exactly the atomicity LL/SC was standing in for.

package kernel

import "sync/atomic"

// CheckCode is an opaque token: a notify bumps it, a wait compares the
// token it sampled before releasing the lock against the current value.
// A mismatch means a notify already happened and the wait must not block.
type CheckCode uint64

// checkCodeSource is embedded in anything a task can wait on (mutex,
// semaphore, queue item availability) to back GetCheckCode/notify.
type checkCodeSource struct {
	code atomic.Uint64
}

// sample returns the current check code. Call this before releasing the
// kernel lock and deciding to block.
func (c *checkCodeSource) sample() CheckCode {
	return CheckCode(c.code.Load())
}

// bump advances the check code, called by every notify path while still
// holding the kernel lock.
func (c *checkCodeSource) bump() {
	c.code.Add(1)
}

// stale reports whether code no longer matches the current value, i.e.
// whether a notify raced ahead of the caller's intent to wait.
func (c *checkCodeSource) stale(code CheckCode) bool {
	return CheckCode(c.code.Load()) != code
}
