// Package actions implements the host operations offered through the chat
// menus. Every operation returns a reply text for the operator; OS-level
// failures that the operator should see are folded into that text, anything
// else comes back as an error.
package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Exec defaults.
const (
	DefaultTimeout   = 60 * time.Second
	DefaultOutputCap = 5 * 1024 * 1024
)

// ErrTimeout is returned when a process exceeds its wall-clock budget.
var ErrTimeout = errors.New("process timed out")

// Result is the captured output of one process.
type Result struct {
	Stdout string
	Stderr string
}

// Runner executes external processes with a bounded lifetime.
type Runner interface {
	// Run starts name with args and waits for it to exit.
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// Shell runs line through the platform shell.
	Shell(ctx context.Context, line string, timeout time.Duration) (Result, error)
	// Start launches name detached and does not wait for it.
	Start(name string, args ...string) error
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	Timeout   time.Duration // per-process budget; defaults to DefaultTimeout
	OutputCap int           // bytes kept per stream; defaults to DefaultOutputCap
	ShellArgv []string      // shell prefix; defaults to sh -c or cmd /C
}

// DefaultShell returns the platform shell prefix.
func DefaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"/bin/sh", "-c"}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return r.run(ctx, r.timeout(0), name, args...)
}

// Shell implements Runner. A zero timeout uses the runner's default.
func (r *ExecRunner) Shell(ctx context.Context, line string, timeout time.Duration) (Result, error) {
	argv := r.ShellArgv
	if len(argv) == 0 {
		argv = DefaultShell()
	}
	args := append(append([]string{}, argv[1:]...), line)
	return r.run(ctx, r.timeout(timeout), argv[0], args...)
}

// Start implements Runner.
func (r *ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("actions: start %s: %w", name, err)
	}
	go cmd.Wait()
	return nil
}

func (r *ExecRunner) timeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func (r *ExecRunner) run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limit := r.OutputCap
	if limit <= 0 {
		limit = DefaultOutputCap
	}
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	killGroup(cmd)
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if ctx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("actions: %s: %w after %s", name, ErrTimeout, timeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(res.Stderr); msg != "" {
			return res, fmt.Errorf("actions: %s: %w: %s", name, err, firstLine(msg))
		}
		return res, fmt.Errorf("actions: %s: %w", name, err)
	}
	return res, nil
}

// cappedBuffer keeps the first limit bytes written and discards the rest.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.limit - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string { return c.buf.String() }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// Truncate shortens s to at most n runes, appending suffix when it cut.
func Truncate(s string, n int, suffix string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + suffix
}
