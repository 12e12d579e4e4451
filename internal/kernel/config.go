// Kernel configuration.
//
// Loaded from a YAML file with the following structure:
//
//  kernel_config:
//    policy: fixed_priority
//    max_tasks: 32
//    tick_period: 10ms
//    pin_cpu: true
//    cpu: 0
//    log_config:
//      ...
//    queue_config:
//      ...
//    pool_config:
//      ...
//  tasks:
//    task1:
//      ...
//    task2:
//      ...
//
// The "kernel_config" section maps to KernelConfig, defined in this
// package. The "tasks" section is demo/caller specific (it is how
// cmd/nanokernel-demo describes the task set to admit) and is not defined
// here, mirroring the teacher's "generators" section.

package kernel

import (
	"fmt"
	"io"
	"os"
	"time"

	units "github.com/docker/go-units"
	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

const (
	KernelConfigSectionName = "kernel_config"
	TasksConfigSectionName  = "tasks"

	DefaultMaxTasks      = 32
	DefaultQueueCapacity = 16
	DefaultPoolBlockSize = "64B"
	DefaultPoolCapacity  = 16
	DefaultCPU           = 0
)

// Policy selects which Scheduler implementation a kernel uses.
type Policy string

const (
	PolicyFixedPriority Policy = "fixed_priority"
	PolicyRoundRobin    Policy = "round_robin"
)

// KernelConfig is the top-level kernel configuration.
type KernelConfig struct {
	// Scheduling policy: "fixed_priority" (spec default) or "round_robin"
	// (supplemental, FIFO tie-break within a priority band).
	Policy Policy `yaml:"policy"`

	// Maximum number of tasks the runnable heap (and every wait-queue) may
	// hold concurrently.
	MaxTasks int `yaml:"max_tasks"`

	// Duration of one scheduler tick. Zero selects a default derived from
	// the host's SC_CLK_TCK (see defaultTickPeriod).
	TickPeriod time.Duration `yaml:"tick_period"`

	// Whether to pin the kernel's driving OS thread to a single CPU,
	// reflecting the spec's single-CPU target (§5).
	PinCPU bool `yaml:"pin_cpu"`
	CPU    int  `yaml:"cpu"`

	QueueConfig  *QueueConfig  `yaml:"queue_config"`
	PoolConfig   *PoolConfig   `yaml:"pool_config"`
	LoggerConfig *LoggerConfig `yaml:"log_config"`
}

// QueueConfig configures a message queue's slot count.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// PoolConfig configures a fixed-block memory pool. BlockSize accepts
// human-readable sizes ("64B", "1KiB") via github.com/docker/go-units,
// matching how operators size buffer pools in practice.
type PoolConfig struct {
	BlockSize string `yaml:"block_size"`
	Capacity  int    `yaml:"capacity"`
}

// BlockSizeBytes parses BlockSize, defaulting to DefaultPoolBlockSize if
// unset.
func (c *PoolConfig) BlockSizeBytes() (int64, error) {
	s := c.BlockSize
	if s == "" {
		s = DefaultPoolBlockSize
	}
	return units.RAMInBytes(s)
}

func DefaultKernelConfig() *KernelConfig {
	return &KernelConfig{
		Policy:     PolicyFixedPriority,
		MaxTasks:   DefaultMaxTasks,
		TickPeriod: defaultTickPeriod(),
		PinCPU:     true,
		CPU:        DefaultCPU,
		QueueConfig: &QueueConfig{
			Capacity: DefaultQueueCapacity,
		},
		PoolConfig: &PoolConfig{
			BlockSize: DefaultPoolBlockSize,
			Capacity:  DefaultPoolCapacity,
		},
		LoggerConfig: DefaultLoggerConfig(),
	}
}

// defaultTickPeriod derives a tick period from the host's clock tick rate
// (SC_CLK_TCK), the same sysconf value the teacher uses for /proc-based
// rate math (clktck_unix.go). Falls back to 10ms if sysconf is unavailable.
func defaultTickPeriod() time.Duration {
	clktck, err := GetSysClktck()
	if err != nil || clktck <= 0 {
		return 10 * time.Millisecond
	}
	return time.Second / time.Duration(clktck)
}

func (c *KernelConfig) Validate() error {
	if c.Policy != PolicyFixedPriority && c.Policy != PolicyRoundRobin {
		return fmt.Errorf("kernel config: invalid policy %q", c.Policy)
	}
	if c.MaxTasks <= 0 {
		return fmt.Errorf("kernel config: max_tasks must be positive")
	}
	if c.TickPeriod <= 0 {
		return fmt.Errorf("kernel config: tick_period must be positive")
	}
	if c.PinCPU && (c.CPU < 0 || c.CPU >= AvailableCPUCount()) {
		return fmt.Errorf("kernel config: cpu %d out of range [0,%d)", c.CPU, AvailableCPUCount())
	}
	return nil
}

// Snapshot returns a deep copy of c, taken the way the teacher takes a
// defensive copy of per-generator config at registration time. The kernel
// does not call it: NewKernel keeps the *KernelConfig it is given, so later
// changes a caller makes to that config are visible to the kernel.
func (c *KernelConfig) Snapshot() *KernelConfig {
	return clone.Clone(c).(*KernelConfig)
}

// LoadConfig loads the configuration from the specified YAML file (or buf,
// for testing) as follows:
//   - the kernel_config section is returned as a *KernelConfig
//   - the tasks section is loaded into the provided tasksConfig, which is
//     expected to have been primed with defaults by the caller.
func LoadConfig(cfgFile string, tasksConfig any, buf []byte) (*KernelConfig, error) {
	if buf == nil {
		f, err := os.Open(cfgFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		buf, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
		}
	}

	docNode := yaml.Node{}
	if err := yaml.Unmarshal(buf, &docNode); err != nil {
		return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
	}

	kernelConfig := DefaultKernelConfig()
	if docNode.Kind == yaml.DocumentNode && len(docNode.Content) > 0 {
		rootNode := docNode.Content[0]
		if rootNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("file: %q: invalid YAML root node %q", cfgFile, rootNode.Tag)
		}
		var toCfg any
		for _, n := range rootNode.Content {
			if n.Kind == yaml.ScalarNode {
				switch n.Value {
				case KernelConfigSectionName:
					toCfg = kernelConfig
				case TasksConfigSectionName:
					toCfg = tasksConfig
				}
				continue
			}
			if n.Kind == yaml.MappingNode && toCfg != nil {
				if err := n.Decode(toCfg); err != nil {
					return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
				}
			}
			toCfg = nil
		}
	}

	if err := kernelConfig.Validate(); err != nil {
		return nil, err
	}
	return kernelConfig, nil
}
