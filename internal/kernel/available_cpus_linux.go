// Count available CPUs based on affinity, used to validate a configured
// pin target (spec §5: the kernel models a single-CPU target, so the
// configured CPU index must name one the process can actually run on).

//go:build linux

package kernel

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// AvailableCPUCount counts CPUs in the process's current affinity mask,
// w/ a fallback on runtime.NumCPU if the mask can't be read.
func AvailableCPUCount() int {
	cpuSet := unix.CPUSet{}
	err := unix.SchedGetaffinity(os.Getpid(), &cpuSet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unix.SchedGetaffinity: %v", err)
		return runtime.NumCPU()
	}
	count := 0
	for _, cpuMask := range cpuSet {
		for cpuMask != 0 {
			count++
			cpuMask &= (cpuMask - 1)
		}
	}
	if count > runtime.NumCPU() {
		count = runtime.NumCPU()
	}
	return count
}
