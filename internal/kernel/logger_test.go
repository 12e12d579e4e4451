package kernel

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/bgp59/nanokernel/internal/kernel/testkit"
)

func TestSetLoggerLevel(t *testing.T) {
	tlc := testkit.NewTestLogCollect(t, GetRootLogger(), nil)
	defer tlc.RestoreLog()

	if err := SetLogger(&LoggerConfig{Level: "warn"}); err != nil {
		t.Fatal(err)
	}
	if RootLogger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("want warn level, got %v", RootLogger.GetLevel())
	}
}

func TestSetLoggerInvalidLevel(t *testing.T) {
	tlc := testkit.NewTestLogCollect(t, GetRootLogger(), nil)
	defer tlc.RestoreLog()

	if err := SetLogger(&LoggerConfig{Level: "not-a-level"}); err == nil {
		t.Fatal("expected an error for an invalid level name")
	}
}

func TestNewCompLoggerAddsComponentField(t *testing.T) {
	entry := NewCompLogger("testcomp")
	if got := entry.Data[LOGGER_COMPONENT_FIELD_NAME]; got != "testcomp" {
		t.Fatalf("want comp=testcomp, got %v", got)
	}
}
