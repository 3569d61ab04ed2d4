//go:build !linux && !darwin

package sandbox

import (
	"os/exec"

	"github.com/go-logr/logr"
)

// runWithLimits has no rlimit support on this platform; a configured limit
// is recorded as a warning instead of silently ignored (§4.9: "unsupported
// platforms record a warning").
func runWithLimits(cmd *exec.Cmd, cfg Config, log logr.Logger) error {
	if cfg.MemoryLimitMB > 0 || cfg.CPULimitSecs > 0 {
		log.Info("sandbox memory/cpu limits are not supported on this platform, running unbounded")
	}
	return cmd.Run()
}
