package kernel

import "testing"

func TestStateFlagHas(t *testing.T) {
	var f StateFlag
	if f.has(FlagSleep) {
		t.Fatal("zero-value flag should not report any bit set")
	}
	f |= FlagSleep
	if !f.has(FlagSleep) {
		t.Fatal("flag should report FlagSleep set")
	}
	if f.has(FlagWait) {
		t.Fatal("flag should not report FlagWait set")
	}
}

func TestNewTCBGateIsBuffered(t *testing.T) {
	tcb := newTCB("t1", nil)
	select {
	case tcb.gate <- struct{}{}:
	default:
		t.Fatal("gate channel should accept one buffered send without a receiver")
	}
}
