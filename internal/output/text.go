package output

import (
	"fmt"
	"strings"

	"github.com/baikal/tracelab/internal/artifact"
	"github.com/baikal/tracelab/internal/model"
)

// FormatRun returns a human-readable run summary including the verdict.
func FormatRun(a *artifact.RunArtifact) string {
	var sb strings.Builder

	sb.WriteString("=== Diagnostic Run ===\n")
	sb.WriteString(fmt.Sprintf("Mode: %s\n", a.Mode))
	if a.Qemu != nil {
		sb.WriteString(fmt.Sprintf("QEMU arch: %s\n", a.Qemu.Arch))
	}
	sb.WriteString(fmt.Sprintf("Command: %s\n", a.Command))
	sb.WriteString(fmt.Sprintf("Duration: %.6fs\n", a.DurationSec))
	sb.WriteString(fmt.Sprintf("Exit code: %d (%s)\n", a.ExitCode, a.Fallback.ExitClassification))

	if a.Fallback.MaxRSSKB != nil {
		sb.WriteString(fmt.Sprintf("Max RSS: %d kB\n", *a.Fallback.MaxRSSKB))
	}
	if a.Fallback.VoluntarySwitches != nil || a.Fallback.NonvoluntarySwitches != nil {
		sb.WriteString(fmt.Sprintf("Context switches: voluntary=%s, nonvoluntary=%s\n",
			intOrNA(a.Fallback.VoluntarySwitches), intOrNA(a.Fallback.NonvoluntarySwitches)))
	}

	sb.WriteString(fmt.Sprintf("Collectors: perf_stat=%s, strace_summary=%s, proc_status=%s\n",
		a.Collectors.PerfStat.Status, a.Collectors.StraceSummary.Status, a.Collectors.ProcStatus.Status))

	sb.WriteString("\n")
	sb.WriteString(FormatVerdict(&a.Diagnosis))

	return sb.String()
}

// FormatVerdict renders the diagnosis with its evidence and limitations.
func FormatVerdict(v *model.Verdict) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Diagnosis: %s (confidence: %s)\n", v.Label, v.Confidence))
	sb.WriteString("Evidence:\n")
	for _, e := range v.Evidence {
		if e.Detail != "" {
			sb.WriteString(fmt.Sprintf("  %s = %s (%s)\n", e.Metric, e.Value, e.Detail))
		} else {
			sb.WriteString(fmt.Sprintf("  %s = %s\n", e.Metric, e.Value))
		}
	}
	if len(v.Limitations) > 0 {
		sb.WriteString("Limitations:\n")
		for _, l := range v.Limitations {
			sb.WriteString(fmt.Sprintf("  - %s\n", l))
		}
	}

	return sb.String()
}

func intOrNA(v *int64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}
