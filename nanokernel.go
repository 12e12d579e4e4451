// The public face of the kernel for users of this module.

package nanokernel

import (
	"github.com/sirupsen/logrus"

	"github.com/bgp59/nanokernel/internal/kernel"
)

type (
	Kernel        = kernel.Kernel
	KernelConfig  = kernel.KernelConfig
	TCB           = kernel.TCB
	Mutex         = kernel.Mutex
	Semaphore     = kernel.Semaphore
	Queue         = kernel.Queue
	Pool          = kernel.Pool
	Stats         = kernel.Stats
	Policy        = kernel.Policy
	LoggerConfig  = kernel.LoggerConfig
	QueueConfig   = kernel.QueueConfig
	PoolConfig    = kernel.PoolConfig
)

const (
	PolicyFixedPriority = kernel.PolicyFixedPriority
	PolicyRoundRobin    = kernel.PolicyRoundRobin
)

// DefaultKernelConfig returns a KernelConfig primed with the same defaults
// NewKernel falls back to when passed nil.
func DefaultKernelConfig() *KernelConfig { return kernel.DefaultKernelConfig() }

// LoadConfig loads a KernelConfig (and a caller-supplied tasks section)
// from a YAML file.
func LoadConfig(cfgFile string, tasksConfig any) (*KernelConfig, error) {
	return kernel.LoadConfig(cfgFile, tasksConfig, nil)
}

// NewKernel builds a kernel from cfg (nil selects DefaultKernelConfig).
func NewKernel(cfg *KernelConfig) (*Kernel, error) { return kernel.NewKernel(cfg) }

// NewMutex creates a recursive, priority-ordered mutex on k.
func NewMutex(k *Kernel) *Mutex { return kernel.NewMutex(k) }

// NewSemaphore creates a counting semaphore on k.
func NewSemaphore(k *Kernel, initial, max int) (*Semaphore, error) {
	return kernel.NewSemaphore(k, initial, max)
}

// NewQueue creates a destination-addressed message queue on k.
func NewQueue(k *Kernel, capacity int) (*Queue, error) {
	return kernel.NewQueue(k, capacity)
}

// NewPool creates a fixed-block memory pool on k.
func NewPool(k *Kernel, blockSize, capacity int) (*Pool, error) {
	return kernel.NewPool(k, blockSize, capacity)
}

// NewCompLogger creates a component logger w/ comp=compName field, for use
// by code built on top of this module (mirrors the teacher's
// vmi.NewCompLogger).
func NewCompLogger(comp string) *logrus.Entry { return kernel.NewCompLogger(comp) }

// GetRootLogger returns the root logger. Needed only for tests where the
// logger output is captured (see internal/kernel/testkit/log_collector.go).
func GetRootLogger() any { return kernel.GetRootLogger() }
