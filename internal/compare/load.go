// Package compare aggregates persisted native and qemu run artifacts into
// median-based statistics with caveats.
package compare

import (
	"fmt"
	"os"
	"strings"

	"github.com/baikal/tracelab/internal/artifact"
	"github.com/baikal/tracelab/internal/model"
	"github.com/baikal/tracelab/internal/qemu"
)

// RunSample is the subset of a run artifact the comparison needs. Samples are
// immutable once loaded.
type RunSample struct {
	Path         string
	Mode         string
	Command      string
	DurationSec  float64
	QemuArch     string // normalized; empty for native samples
	PerfStatus   string
	StraceStatus string
	ProcStatus   string
	Counters     map[string]float64
}

// hasNonOKCollector reports any collector state other than "ok".
func (s *RunSample) hasNonOKCollector() bool {
	return s.PerfStatus != model.StatusOK ||
		s.StraceStatus != model.StatusOK ||
		s.ProcStatus != model.StatusOK
}

// LoadSample reads and validates one run artifact. expectedMode of "" accepts
// either mode. Validation failures are fatal to the comparison and name the
// offending path and field.
func LoadSample(path, expectedMode string) (*RunSample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)

	kind, ok := artifact.ScanString(text, "kind")
	if !ok || kind != artifact.KindRunResult {
		return nil, fmt.Errorf("artifact %s is not a run_result JSON", path)
	}

	mode, hasMode := artifact.ScanString(text, "mode")
	command, hasCommand := artifact.ScanString(text, "command")
	duration, hasDuration := artifact.ScanNumber(text, "duration_sec")
	if !hasMode || !hasCommand || !hasDuration {
		return nil, fmt.Errorf("artifact %s missing one of required fields: mode, command, duration_sec", path)
	}

	if expectedMode != "" && mode != expectedMode {
		return nil, fmt.Errorf("artifact %s: expected mode %q but got %q", path, expectedMode, mode)
	}

	sample := &RunSample{
		Path:        path,
		Mode:        mode,
		Command:     command,
		DurationSec: duration,
		Counters:    make(map[string]float64),
	}

	sample.PerfStatus = statusOrUnknown(text, model.CollectorPerfStat)
	sample.StraceStatus = statusOrUnknown(text, model.CollectorStraceSummary)
	sample.ProcStatus = statusOrUnknown(text, model.CollectorProcStatus)

	for _, counter := range model.CounterNames {
		if v, ok := artifact.ScanNumber(text, counter); ok {
			sample.Counters[counter] = v
		}
	}

	if mode == model.ModeQemu {
		rawArch, ok := artifact.ScanQemuArch(text)
		if !ok {
			return nil, fmt.Errorf("qemu run artifact %s missing qemu.arch", path)
		}
		normalized, ok := qemu.NormalizeSelector(rawArch)
		if !ok {
			return nil, fmt.Errorf("unsupported qemu arch %q in artifact %s; supported: %s",
				rawArch, path, strings.Join(qemu.SupportedSelectors(), ", "))
		}
		sample.QemuArch = normalized
	}

	return sample, nil
}

func statusOrUnknown(text, collector string) string {
	if status, ok := artifact.ScanCollectorStatus(text, collector); ok {
		return status
	}
	return "unknown"
}
