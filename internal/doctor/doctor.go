// Package doctor probes the host for the external tools and kernel
// facilities the profiling pipeline depends on.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cilium/ebpf/btf"

	"github.com/baikal/tracelab/internal/artifact"
	"github.com/baikal/tracelab/internal/model"
	"github.com/baikal/tracelab/internal/qemu"
)

// requiredTools must be present for profiling runs to produce full
// collector coverage. optionalTools improve binary inspection and
// cross-arch replay but never fail the check.
var (
	requiredTools = []string{"perf", "strace"}
	optionalTools = []string{
		"readelf",
		"objdump",
		"llvm-objdump",
		"nm",
		"strip",
		"gdb",
		"lldb",
	}
)

// ToolStatus reports presence of one external tool.
type ToolStatus struct {
	Name     string `json:"name"`
	Present  bool   `json:"present"`
	Path     string `json:"path,omitempty"`
	Required bool   `json:"required"`
}

// TracingCapabilities summarises kernel-side profiling support.
type TracingCapabilities struct {
	PerfEventParanoid *int64 `json:"perf_event_paranoid,omitempty"`
	KernelBTF         bool   `json:"kernel_btf"`
	BTFTaskStruct     bool   `json:"btf_task_struct"`
}

// Report is the doctor_result artifact.
type Report struct {
	SchemaVersion   string              `json:"schema_version"`
	Kind            string              `json:"kind"`
	TimestampUTC    string              `json:"timestamp_utc"`
	Host            artifact.HostInfo   `json:"host"`
	Tools           []ToolStatus        `json:"tools"`
	Tracing         TracingCapabilities `json:"tracing"`
	Ready           bool                `json:"ready"`
	MissingRequired []string            `json:"missing_required"`
}

// Check probes the host. Ready is true only when every required tool is
// present; optional tools and tracing capabilities are informational.
func Check() *Report {
	report := &Report{
		SchemaVersion:   model.SchemaVersion,
		Kind:            artifact.KindDoctorResult,
		TimestampUTC:    time.Now().UTC().Format(time.RFC3339),
		Host:            artifact.DetectHost(),
		MissingRequired: []string{},
	}

	for _, name := range requiredTools {
		status := probeTool(name, true)
		report.Tools = append(report.Tools, status)
		if !status.Present {
			report.MissingRequired = append(report.MissingRequired, name)
		}
	}
	for _, name := range optionalTools {
		report.Tools = append(report.Tools, probeTool(name, false))
	}
	for _, arch := range qemu.SupportedSelectors() {
		report.Tools = append(report.Tools, probeTool(qemu.Binary(arch), false))
	}

	if runtime.GOOS == "linux" {
		report.Tracing = detectTracing()
	}

	report.Ready = len(report.MissingRequired) == 0
	return report
}

func probeTool(name string, required bool) ToolStatus {
	status := ToolStatus{Name: name, Required: required}
	if path, err := exec.LookPath(name); err == nil {
		status.Present = true
		status.Path = path
	}
	return status
}

func detectTracing() TracingCapabilities {
	var caps TracingCapabilities

	if data, err := os.ReadFile("/proc/sys/kernel/perf_event_paranoid"); err == nil {
		if v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); err == nil {
			caps.PerfEventParanoid = &v
		}
	}

	if spec, err := btf.LoadKernelSpec(); err == nil {
		caps.KernelBTF = true
		if _, err := spec.AnyTypeByName("task_struct"); err == nil {
			caps.BTFTaskStruct = true
		}
	}

	return caps
}

// FormatReport returns a human-readable doctor summary.
func FormatReport(r *Report) string {
	var sb strings.Builder

	sb.WriteString("=== Environment Check ===\n")
	sb.WriteString(fmt.Sprintf("Host: %s/%s kernel %s\n\n", r.Host.OS, r.Host.Arch, r.Host.Kernel))

	sb.WriteString("Tools:\n")
	for _, tool := range r.Tools {
		status := "✗"
		if tool.Present {
			status = "✓"
		}
		label := tool.Name
		if tool.Required {
			label += " (required)"
		}
		if tool.Path != "" {
			sb.WriteString(fmt.Sprintf("  %s %-24s %s\n", status, label, tool.Path))
		} else {
			sb.WriteString(fmt.Sprintf("  %s %s\n", status, label))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("Tracing:\n")
	if r.Tracing.PerfEventParanoid != nil {
		sb.WriteString(fmt.Sprintf("  perf_event_paranoid = %d\n", *r.Tracing.PerfEventParanoid))
	} else {
		sb.WriteString("  perf_event_paranoid unavailable\n")
	}
	for _, cap := range []struct {
		name string
		ok   bool
	}{
		{"kernel BTF", r.Tracing.KernelBTF},
		{"BTF task_struct", r.Tracing.BTFTaskStruct},
	} {
		status := "✗"
		if cap.ok {
			status = "✓"
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n", status, cap.name))
	}
	sb.WriteString("\n")

	if r.Ready {
		sb.WriteString("Ready: all required tools present.\n")
	} else {
		sb.WriteString(fmt.Sprintf("Not ready: missing required tools: %s\n",
			strings.Join(r.MissingRequired, ", ")))
	}

	return sb.String()
}
