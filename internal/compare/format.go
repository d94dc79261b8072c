package compare

import (
	"fmt"
	"sort"
	"strings"
)

// FormatResult returns a human-readable comparison summary.
func FormatResult(r *Result) string {
	var sb strings.Builder

	sb.WriteString("=== Native vs QEMU Comparison ===\n")
	sb.WriteString(fmt.Sprintf("Command: %s\n", r.Inputs.Command))
	if len(r.Qemu.Arches) > 0 {
		sb.WriteString(fmt.Sprintf("QEMU arch: %s\n", strings.Join(r.Qemu.Arches, ", ")))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Native: %d sample(s), median %.6fs\n",
		r.Native.SampleCount, r.Native.MedianDurationSec))
	sb.WriteString(fmt.Sprintf("QEMU:   %d sample(s), median %.6fs\n\n",
		r.Qemu.SampleCount, r.Qemu.MedianDurationSec))

	sb.WriteString(fmt.Sprintf("Delta:      %+.6fs\n", r.Comparison.DeltaDurationSec))
	sb.WriteString(fmt.Sprintf("Slowdown:   %.3fx (qemu vs native)\n", r.Comparison.SlowdownFactor))
	sb.WriteString(fmt.Sprintf("Throughput: %.3fx (%+.1f%%)\n\n",
		r.Comparison.ThroughputRatio, r.Comparison.ThroughputChangePct))

	if len(r.Comparison.CounterRatios) > 0 {
		sb.WriteString("Perf counter ratios (qemu/native medians):\n")
		names := make([]string, 0, len(r.Comparison.CounterRatios))
		for name := range r.Comparison.CounterRatios {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("  %-20s %.3f\n", name, r.Comparison.CounterRatios[name]))
		}
		sb.WriteString("\n")
	}

	if len(r.Caveats) > 0 {
		sb.WriteString("Caveats:\n")
		for _, c := range r.Caveats {
			sb.WriteString(fmt.Sprintf("  - %s\n", c))
		}
	}

	return sb.String()
}
