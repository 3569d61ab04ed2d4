// Package sandbox implements C9: subprocess isolation for agent tool
// execution, grounded on the teacher's os/exec + CombinedOutput pattern
// (go/tools/internal/common/common.go) generalized to per-source-type
// interpreters, a path whitelist, output capping, and a wall-clock timeout.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/kagent-dev/agentmem/pkg/errs"
	"github.com/kagent-dev/agentmem/pkg/metrics"
)

// SourceType selects the interpreter used to run source code.
type SourceType string

const (
	SourceBash   SourceType = "bash"
	SourcePython SourceType = "python3"
	SourceNode   SourceType = "node"
)

var interpreters = map[SourceType][]string{
	SourceBash:   {"bash", "-c"},
	SourcePython: {"python3", "-c"},
	SourceNode:   {"node", "-e"},
}

const defaultMaxOutputBytes = 1 << 20 // 1 MiB

const defaultTimeout = 30 * time.Second

const truncationMarker = "\n...[output truncated]"

// Config controls sandbox-wide policy.
type Config struct {
	AllowedPaths []string
	// DefaultTimeout is the timeout callers should use when the tool
	// invocation they're servicing didn't specify one of its own. It is
	// never applied by Execute itself: ExecuteRequest.Timeout==0 is always
	// rejected (§8 boundary behavior), so a zero Timeout must be resolved to
	// something positive by the caller before Execute is invoked.
	DefaultTimeout time.Duration
	MaxOutputBytes int64
	MemoryLimitMB  int64 // applied where the host supports rlimits
	CPULimitSecs   int64
	AllowNetwork   bool
}

func DefaultConfig() Config {
	return Config{MaxOutputBytes: defaultMaxOutputBytes, DefaultTimeout: defaultTimeout}
}

// ExecuteRequest is one sandboxed execution request (§4.9).
type ExecuteRequest struct {
	SourceType SourceType
	SourceCode string
	Args       []string
	Timeout    time.Duration
	Env        map[string]string
	Cwd        string
	// AssertedPaths are paths the caller claims the source code will touch;
	// each must resolve under one of Config.AllowedPaths or execution is
	// refused before spawn.
	AssertedPaths []string
}

// ExecuteResult is C9's output.
type ExecuteResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	Success    bool
	ElapsedMS  int64
}

// Executor runs one sandboxed subprocess per ExecuteRequest.
type Executor struct {
	cfg        Config
	allowedAbs []string
	log        logr.Logger
	metrics    *metrics.Registry
}

func New(cfg Config, log logr.Logger, reg *metrics.Registry) (*Executor, error) {
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	if reg == nil {
		reg = metrics.Noop()
	}
	allowedAbs := make([]string, 0, len(cfg.AllowedPaths))
	for _, p := range cfg.AllowedPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errs.ValidationError(fmt.Sprintf("invalid allowed path %q", p), err)
		}
		allowedAbs = append(allowedAbs, abs)
	}
	return &Executor{cfg: cfg, allowedAbs: allowedAbs, log: log, metrics: reg}, nil
}

// DefaultTimeout is the timeout callers should substitute when the tool
// invocation they're servicing didn't request one explicitly; Execute never
// applies it implicitly.
func (e *Executor) DefaultTimeout() time.Duration {
	return e.cfg.DefaultTimeout
}

// Execute spawns an interpreter-wrapped child process per req.SourceType,
// enforcing the path whitelist, wall-clock timeout, and output cap described
// in §4.9.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	interpreter, ok := interpreters[req.SourceType]
	if !ok {
		e.metrics.SandboxExecs.WithLabelValues("rejected").Inc()
		return ExecuteResult{}, errs.ValidationError(fmt.Sprintf("unsupported source_type %q", req.SourceType), nil)
	}

	for _, p := range req.AssertedPaths {
		if err := e.checkAllowed(p); err != nil {
			e.metrics.SandboxExecs.WithLabelValues("rejected").Inc()
			return ExecuteResult{}, err
		}
	}

	if req.Timeout <= 0 {
		e.metrics.SandboxExecs.WithLabelValues("rejected").Inc()
		return ExecuteResult{}, errs.ValidationError("timeout must be greater than zero", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	args := append(append([]string{}, interpreter[1:]...), req.SourceCode)
	args = append(args, req.Args...)
	cmd := exec.CommandContext(ctx, interpreter[0], args...)
	cmd.Cancel = func() error { return cmd.Process.Kill() }
	cmd.WaitDelay = 2 * time.Second

	cmd.Env = envSlice(req.Env)

	if req.Cwd != "" {
		cmd.Dir = req.Cwd
	} else {
		tmp, err := os.MkdirTemp("", "agentmem-sandbox-*")
		if err != nil {
			return ExecuteResult{}, errs.InternalError("failed to create sandbox working directory", err)
		}
		defer os.RemoveAll(tmp)
		cmd.Dir = tmp
	}

	stdout := newCappedBuffer(e.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(e.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := runWithLimits(cmd, e.cfg, e.log)
	elapsed := time.Since(start)
	e.metrics.SandboxDuration.Observe(elapsed.Seconds())

	if ctx.Err() == context.DeadlineExceeded {
		e.metrics.SandboxExecs.WithLabelValues("timeout").Inc()
		return ExecuteResult{
			Stdout: stdout.String(), Stderr: stderr.String(),
			ExitCode: -1, Success: false, ElapsedMS: elapsed.Milliseconds(),
		}, errs.TimeoutError("sandbox execution exceeded timeout", runErr)
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			e.metrics.SandboxExecs.WithLabelValues("error").Inc()
			return ExecuteResult{}, errs.InternalError("failed to run sandboxed process", runErr)
		}
	}

	outcome := "success"
	if exitCode != 0 {
		outcome = "failure"
	}
	e.metrics.SandboxExecs.WithLabelValues(outcome).Inc()

	return ExecuteResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  exitCode,
		Success:   exitCode == 0,
		ElapsedMS: elapsed.Milliseconds(),
	}, nil
}

func (e *Executor) checkAllowed(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errs.PermissionDeniedError(fmt.Sprintf("cannot resolve asserted path %q", path), err)
	}
	for _, allowed := range e.allowedAbs {
		if abs == allowed || strings.HasPrefix(abs, allowed+string(os.PathSeparator)) {
			return nil
		}
	}
	return errs.PermissionDeniedError(fmt.Sprintf("path %q is outside the sandbox whitelist", path), nil)
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// cappedBuffer caps how much output it retains, appending a truncation
// marker once the limit is crossed rather than growing unbounded.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func newCappedBuffer(limit int64) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if c.truncated {
		return n, nil
	}
	remaining := c.limit - int64(c.buf.Len())
	if remaining <= 0 {
		c.truncated = true
		return n, nil
	}
	if int64(len(p)) > remaining {
		c.buf.Write(p[:remaining])
		c.truncated = true
		return n, nil
	}
	c.buf.Write(p)
	return n, nil
}

func (c *cappedBuffer) String() string {
	if c.truncated {
		return c.buf.String() + truncationMarker
	}
	return c.buf.String()
}
