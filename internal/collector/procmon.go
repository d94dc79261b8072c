package collector

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/baikal/tracelab/internal/model"
)

// pollInterval is the sleep between /proc status snapshots.
const pollInterval = 20 * time.Millisecond

// Monitor executes a workload once and observes it. The polling monitor
// samples /proc/<pid>/status while the child runs; the blocking runner is the
// degraded path for hosts without readable proc status snapshots.
type Monitor interface {
	Run(argv []string) model.WorkloadObservation
}

// SelectMonitor picks the monitor implementation once, at the start of the
// monitored execution.
func SelectMonitor() Monitor {
	if procStatusReadable() {
		return &pollingMonitor{}
	}
	return &blockingRunner{}
}

func procStatusReadable() bool {
	_, err := os.ReadFile("/proc/self/status")
	return err == nil
}

// foldProcStatus merges one /proc/<pid>/status snapshot into the sample:
// peak RSS via max, context-switch counters overwritten with the latest
// observed values.
func foldProcStatus(text string, sample *model.ProcessSample) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "VmRSS:"):
			if kb, ok := parseLeadingInt(trimmed[len("VmRSS:"):]); ok {
				if sample.MaxRSSKB == nil || kb > *sample.MaxRSSKB {
					v := kb
					sample.MaxRSSKB = &v
				}
			}
		case strings.HasPrefix(trimmed, "voluntary_ctxt_switches:"):
			if n, ok := parseLeadingInt(trimmed[len("voluntary_ctxt_switches:"):]); ok {
				v := n
				sample.VoluntarySwitches = &v
			}
		case strings.HasPrefix(trimmed, "nonvoluntary_ctxt_switches:"):
			if n, ok := parseLeadingInt(trimmed[len("nonvoluntary_ctxt_switches:"):]); ok {
				v := n
				sample.NonvoluntarySwitches = &v
			}
		}
	}
}

// parseLeadingInt parses the integer prefix of values like " 1234 kB".
func parseLeadingInt(value string) (int64, bool) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// classifyExit maps a finished exec.Cmd to an exit code and classification.
func classifyExit(cmd *exec.Cmd, waitErr error) (int, string) {
	if waitErr == nil {
		return 0, model.ExitClassCode
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return 2, model.ExitClassWaitErr
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return 128 + int(ws.Signal()), model.ExitClassSignal
		}
		if ws.Exited() {
			return ws.ExitStatus(), model.ExitClassCode
		}
		return exitErr.ExitCode(), model.ExitClassUnknown
	}
	return exitErr.ExitCode(), model.ExitClassCode
}

type pollingMonitor struct{}

// Run spawns the workload and polls /proc/<pid>/status every pollInterval
// until the child exits, with one final snapshot attempt after exit is
// detected. The exit check is non-blocking so sampling keeps pace with
// short-lived processes.
func (m *pollingMonitor) Run(argv []string) model.WorkloadObservation {
	var obs model.WorkloadObservation

	if len(argv) == 0 {
		obs.ExitCode = 2
		obs.ExitClassification = model.ExitClassArgErr
		obs.SamplerOutcome = errorOutcome("empty command", -1, "")
		return obs
	}

	start := time.Now()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		obs.ExitCode = 2
		obs.ExitClassification = model.ExitClassSpawnErr
		obs.WallTimeSec = time.Since(start).Seconds()
		obs.SamplerOutcome = errorOutcome(fmt.Sprintf("spawn failed: %v", err), -1, "")
		return obs
	}

	statusPath := fmt.Sprintf("/proc/%d/status", cmd.Process.Pid)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	sawSnapshot := false
	var waitErr error

poll:
	for {
		if text, err := os.ReadFile(statusPath); err == nil {
			foldProcStatus(string(text), &obs.Sample)
			sawSnapshot = true
		}

		select {
		case waitErr = <-done:
			break poll
		default:
		}

		time.Sleep(pollInterval)
	}

	// One last snapshot attempt; the pid is usually reaped already.
	if text, err := os.ReadFile(statusPath); err == nil {
		foldProcStatus(string(text), &obs.Sample)
		sawSnapshot = true
	}

	obs.ExitCode, obs.ExitClassification = classifyExit(cmd, waitErr)
	obs.WallTimeSec = time.Since(start).Seconds()

	if obs.ExitClassification == model.ExitClassWaitErr {
		obs.SamplerOutcome = errorOutcome(fmt.Sprintf("wait failed: %v", waitErr), -1, "")
		return obs
	}

	if sawSnapshot {
		obs.SamplerOutcome = okOutcome(0, "")
	} else {
		obs.SamplerOutcome = unavailableOutcome("unable to read /proc/<pid>/status")
	}
	return obs
}

type blockingRunner struct{}

// Run executes the workload without sampling. Used where proc status
// snapshots are not readable.
func (r *blockingRunner) Run(argv []string) model.WorkloadObservation {
	var obs model.WorkloadObservation

	if len(argv) == 0 {
		obs.ExitCode = 2
		obs.ExitClassification = model.ExitClassArgErr
		obs.SamplerOutcome = errorOutcome("empty command", -1, "")
		return obs
	}

	start := time.Now()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	err := cmd.Run()
	if err != nil && cmd.ProcessState == nil {
		obs.ExitCode = 2
		obs.ExitClassification = model.ExitClassSpawnErr
		obs.WallTimeSec = time.Since(start).Seconds()
		obs.SamplerOutcome = errorOutcome(fmt.Sprintf("spawn failed: %v", err), -1, "")
		return obs
	}

	obs.ExitCode, obs.ExitClassification = classifyExit(cmd, err)
	obs.WallTimeSec = time.Since(start).Seconds()
	obs.SamplerOutcome = unavailableOutcome("proc status sampling unavailable on this platform")
	return obs
}
