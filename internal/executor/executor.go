// Package executor runs external profiling tools (perf, strace, readelf) with
// a hard time bound and parses their text output.
package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/baikal/tracelab/internal/logging"
)

// maxCapturedBytes caps captured tool output. Summary-style tools emit a few
// KB; anything larger is a runaway workload leaking onto stderr.
const maxCapturedBytes int64 = 4 * 1024 * 1024

// RawOutput captures one external tool invocation.
type RawOutput struct {
	Output    string // combined tool output (stderr for perf/strace summaries)
	ExitCode  int
	Duration  time.Duration
	TimedOut  bool
	Truncated bool
}

// Runner executes external tools. The interface exists so collectors can be
// tested against canned output.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (*RawOutput, error)
	Available(name string) bool
}

// ToolRunner is the default Runner backed by os/exec.
type ToolRunner struct{}

func NewToolRunner() *ToolRunner {
	return &ToolRunner{}
}

// Run executes name with args, discarding the child's stdout and capturing
// its stderr, which is where perf stat and strace -c write their summaries.
// When the timeout trips the whole process group is killed and TimedOut is
// set; callers must check TimedOut before looking at Output.
func (r *ToolRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (*RawOutput, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	// exec.Command rather than CommandContext so the kill reaches the whole
	// process group: perf and strace both fork the workload underneath.
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var captured bytes.Buffer
	lw := &LimitedWriter{W: &captured, N: maxCapturedBytes}
	cmd.Stdout = io.Discard
	cmd.Stderr = lw

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()

	go func() {
		select {
		case <-ctx.Done():
			pgid := cmd.Process.Pid
			if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
				_ = cmd.Process.Kill()
			}
		case <-exited:
		}
	}()

	waitErr := <-done

	raw := &RawOutput{
		Output:    captured.String(),
		Duration:  time.Since(start),
		Truncated: lw.Truncated,
	}
	if cmd.ProcessState != nil {
		raw.ExitCode = cmd.ProcessState.ExitCode()
	}

	// Warn before the exit-status handling so failed tools still report
	// that their output was cut.
	if raw.Truncated {
		logging.GetLogger().WithField("tool", name).Warn("tool output truncated at capture limit")
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		raw.TimedOut = true
		return raw, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			// Tool ran and failed; the outcome carries the exit code.
			return raw, nil
		}
		return nil, waitErr
	}

	return raw, nil
}

// Available reports whether the tool resolves from PATH.
func (r *ToolRunner) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// LimitedWriter caps how much tool output is kept in memory. It always
// reports the full write length so the child never sees a broken pipe.
type LimitedWriter struct {
	W         *bytes.Buffer
	N         int64
	written   int64
	Truncated bool
}

func (lw *LimitedWriter) Write(p []byte) (int, error) {
	if lw.written >= lw.N {
		lw.Truncated = true
		return len(p), nil
	}
	remaining := lw.N - lw.written
	if int64(len(p)) > remaining {
		n, err := lw.W.Write(p[:remaining])
		lw.written += int64(n)
		lw.Truncated = true
		return len(p), err
	}
	n, err := lw.W.Write(p)
	lw.written += int64(n)
	return n, err
}
