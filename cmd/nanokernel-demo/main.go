// Demo binary: boots the kernel from a config file, admits a small fixed
// task set exercising every kernel primitive, and runs until interrupted.
//
// Flag/logging wiring grounded on vmi/internal/runner.go: a "-config" flag
// for the YAML file, github.com/bgp59/logrusx for the standard set of
// command-line logger overrides, applied after LoadConfig so command-line
// args win over the file.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bgp59/logrusx"

	"github.com/bgp59/nanokernel"
)

const defaultConfigFile = "nanokernel-config.yaml"

var (
	configFileArg = flag.String(
		"config",
		defaultConfigFile,
		"Config file path",
	)
)

func init() {
	logrusx.EnableLoggerArgs()
}

var mainLog = nanokernel.NewCompLogger("main")

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	cfg, err := nanokernel.LoadConfig(*configFileArg, nil)
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "error loading config file: %v\n", err)
		return 1
	}
	if cfg == nil {
		cfg = nanokernel.DefaultKernelConfig()
	}
	logrusx.ApplySetLoggerArgs(cfg.LoggerConfig)

	k, err := nanokernel.NewKernel(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating kernel: %v\n", err)
		return 1
	}

	mtx := nanokernel.NewMutex(k)
	sem, err := nanokernel.NewSemaphore(k, 0, 4)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating semaphore: %v\n", err)
		return 1
	}
	queue, err := nanokernel.NewQueue(k, cfg.QueueConfig.Capacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating queue: %v\n", err)
		return 1
	}
	blockSize, err := cfg.PoolConfig.BlockSizeBytes()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing pool block size: %v\n", err)
		return 1
	}
	pool, err := nanokernel.NewPool(k, int(blockSize), cfg.PoolConfig.Capacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating pool: %v\n", err)
		return 1
	}

	var consumer *nanokernel.TCB
	_, err = k.Admit("producer", 2, func(self *nanokernel.TCB) {
		for i := 0; ; i++ {
			mtx.Lock(self)
			k.Sleep(self, 5)
			mtx.Unlock(self)

			b := pool.Alloc(self)
			b[0] = byte(i)
			queue.Write(self, consumer, b)

			sem.Release(self, 1)
			mainLog.Debugf("producer tick %d", i)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error admitting producer: %v\n", err)
		return 1
	}

	consumer, err = k.Admit("consumer", 1, func(self *nanokernel.TCB) {
		for {
			sem.Acquire(self)
			b := queue.Read(self)
			pool.Free(self, b)
			mainLog.Debugf("consumer drained block %d", b[0])
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error admitting consumer: %v\n", err)
		return 1
	}

	if err := k.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error starting kernel: %v\n", err)
		return 1
	}
	mainLog.Info("kernel started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	mainLog.Info("shutting down")
	k.Shutdown()
	stats := k.SnapStats()
	mainLog.Infof("tasks_admitted=%d context_switches=%d", stats.TasksAdmitted, stats.ContextSwitches)
	return 0
}
