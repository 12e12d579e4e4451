// Count available CPUs based on affinity

//go:build !linux

package kernel

import (
	"runtime"
)

func AvailableCPUCount() int {
	return runtime.NumCPU()
}
