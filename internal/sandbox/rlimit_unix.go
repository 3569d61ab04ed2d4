//go:build linux || darwin

package sandbox

import (
	"os/exec"
	"sync"
	"syscall"

	"github.com/go-logr/logr"
)

// rlimitMu serializes rlimit-bounded executions: Go exposes rlimits as a
// process-wide syscall.Setrlimit, not a per-child one, so a sandboxed run
// that needs limits saves the current limit, tightens it for the duration
// of cmd.Run, and restores it afterward. Concurrent limited runs would
// otherwise race on the same process-wide limit, hence the mutex.
var rlimitMu sync.Mutex

// runWithLimits runs cmd under the memory/CPU limits in cfg, if any are
// configured; without limits it is a plain cmd.Run().
func runWithLimits(cmd *exec.Cmd, cfg Config, log logr.Logger) error {
	if cfg.MemoryLimitMB <= 0 && cfg.CPULimitSecs <= 0 {
		return cmd.Run()
	}

	rlimitMu.Lock()
	defer rlimitMu.Unlock()

	var restoreAS, restoreCPU *syscall.Rlimit
	if cfg.MemoryLimitMB > 0 {
		var cur syscall.Rlimit
		if err := syscall.Getrlimit(syscall.RLIMIT_AS, &cur); err == nil {
			restoreAS = &cur
			limit := syscall.Rlimit{Cur: uint64(cfg.MemoryLimitMB) * 1024 * 1024, Max: cur.Max}
			if err := syscall.Setrlimit(syscall.RLIMIT_AS, &limit); err != nil {
				log.Info("failed to apply sandbox memory limit, continuing unbounded", "error", err.Error())
				restoreAS = nil
			}
		}
	}
	if cfg.CPULimitSecs > 0 {
		var cur syscall.Rlimit
		if err := syscall.Getrlimit(syscall.RLIMIT_CPU, &cur); err == nil {
			restoreCPU = &cur
			limit := syscall.Rlimit{Cur: uint64(cfg.CPULimitSecs), Max: cur.Max}
			if err := syscall.Setrlimit(syscall.RLIMIT_CPU, &limit); err != nil {
				log.Info("failed to apply sandbox cpu limit, continuing unbounded", "error", err.Error())
				restoreCPU = nil
			}
		}
	}

	err := cmd.Run()

	if restoreAS != nil {
		_ = syscall.Setrlimit(syscall.RLIMIT_AS, restoreAS)
	}
	if restoreCPU != nil {
		_ = syscall.Setrlimit(syscall.RLIMIT_CPU, restoreCPU)
	}
	return err
}
