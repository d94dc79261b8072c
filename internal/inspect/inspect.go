// Package inspect extracts lightweight ELF and ISA metadata from a binary
// using readelf, plus qemu selector hints for cross-arch replay.
package inspect

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/baikal/tracelab/internal/artifact"
	"github.com/baikal/tracelab/internal/model"
	"github.com/baikal/tracelab/internal/qemu"
)

const probeTimeout = 30 * time.Second

// Report is the inspect_result artifact.
type Report struct {
	SchemaVersion      string   `json:"schema_version"`
	Kind               string   `json:"kind"`
	TimestampUTC       string   `json:"timestamp_utc"`
	Binary             string   `json:"binary"`
	ISAArch            string   `json:"isa_arch"`
	ABI                string   `json:"abi"`
	Linkage            string   `json:"linkage"`
	Symbols            string   `json:"symbols"`
	PLTGOT             string   `json:"plt_got"`
	SupportedSelectors []string `json:"qemu_supported_selectors"`
	SelectorHints      []string `json:"qemu_selector_hints"`
	Disassembler       string   `json:"disassembler"`
	Notes              []string `json:"notes"`
}

// Inspect probes binaryPath with readelf and an available disassembler. All
// probes are best effort; failures land in Notes rather than aborting.
func Inspect(ctx context.Context, binaryPath string) (*Report, error) {
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("file not found: %s", binaryPath)
	}

	report := &Report{
		SchemaVersion:      model.SchemaVersion,
		Kind:               artifact.KindInspectResult,
		TimestampUTC:       time.Now().UTC().Format(time.RFC3339),
		Binary:             binaryPath,
		ISAArch:            "unknown",
		ABI:                "unknown",
		Linkage:            "unknown",
		Symbols:            "unknown",
		PLTGOT:             "unknown",
		SupportedSelectors: qemu.SupportedSelectors(),
		SelectorHints:      []string{},
		Notes:              []string{},
	}

	if _, err := exec.LookPath("readelf"); err == nil {
		probeELF(ctx, binaryPath, report)
	} else {
		report.Notes = append(report.Notes, "readelf missing")
	}

	probeDisassembler(ctx, binaryPath, report)

	if hints := qemu.SelectorHintsFromISA(report.ISAArch); hints != nil {
		report.SelectorHints = hints
	}
	return report, nil
}

func probeELF(ctx context.Context, binaryPath string, report *Report) {
	elfType := "unknown"

	if out, err := runProbe(ctx, "readelf", "-h", binaryPath); err == nil {
		report.ISAArch = labeledFieldOr(out, "Machine:", "unknown")
		report.ABI = labeledFieldOr(out, "OS/ABI:", "unknown")
		elfType = labeledFieldOr(out, "Type:", "unknown")
	} else {
		report.Notes = append(report.Notes, "readelf -h failed")
	}

	if out, err := runProbe(ctx, "readelf", "-l", binaryPath); err == nil {
		lower := strings.ToLower(out)
		if strings.Contains(lower, "interp") || strings.Contains(lower, "dynamic") {
			report.Linkage = "dynamic"
		} else {
			report.Linkage = "static_or_unknown"
		}
	} else {
		report.Notes = append(report.Notes, "readelf -l failed")
	}

	if out, err := runProbe(ctx, "readelf", "-s", binaryPath); err == nil {
		lower := strings.ToLower(out)
		switch {
		case strings.Contains(lower, "symbol table '.symtab'"):
			report.Symbols = "symtab_present"
		case strings.Contains(lower, "symbol table '.dynsym'"):
			report.Symbols = "dynsym_only_probably_stripped"
		default:
			report.Symbols = "no_symbols_detected"
		}
	} else {
		report.Notes = append(report.Notes, "readelf -s failed")
	}

	if out, err := runProbe(ctx, "readelf", "-S", binaryPath); err == nil {
		lower := strings.ToLower(out)
		if strings.Contains(lower, ".plt") || strings.Contains(lower, ".got") {
			report.PLTGOT = "present"
		} else {
			report.PLTGOT = "not_detected"
		}
	} else {
		report.Notes = append(report.Notes, "readelf -S failed")
	}

	if report.Linkage == "unknown" {
		typeLower := strings.ToLower(elfType)
		switch {
		case strings.Contains(typeLower, "dyn"):
			report.Linkage = "dynamic_or_pie"
		case strings.Contains(typeLower, "exec"):
			report.Linkage = "exec_unknown_linkage"
		}
	}
}

// probeDisassembler confirms a disassembler can process the binary. The
// analysis stays metadata-first; only availability is recorded.
func probeDisassembler(ctx context.Context, binaryPath string, report *Report) {
	disassembler := ""
	for _, candidate := range []string{"objdump", "llvm-objdump"} {
		if _, err := exec.LookPath(candidate); err == nil {
			disassembler = candidate
			break
		}
	}
	if disassembler == "" {
		report.Disassembler = "missing"
		report.Notes = append(report.Notes, "objdump and llvm-objdump missing")
		return
	}

	report.Disassembler = disassembler
	if _, err := runProbe(ctx, disassembler, "-d", binaryPath); err != nil {
		report.Notes = append(report.Notes, disassembler+" -d failed")
	}
}

func runProbe(ctx context.Context, name string, args ...string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(probeCtx, name, args...).CombinedOutput()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// labeledFieldOr returns the trimmed remainder of the first line containing
// label, or fallback when absent.
func labeledFieldOr(output, label, fallback string) string {
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, label)
		if idx < 0 {
			continue
		}
		value := strings.TrimSpace(line[idx+len(label):])
		if value != "" {
			return value
		}
	}
	return fallback
}

// FormatReport returns a human-readable inspection summary.
func FormatReport(r *Report) string {
	var sb strings.Builder

	sb.WriteString("=== Binary Inspection ===\n")
	sb.WriteString(fmt.Sprintf("Binary:       %s\n", r.Binary))
	sb.WriteString(fmt.Sprintf("ISA/arch:     %s\n", r.ISAArch))
	sb.WriteString(fmt.Sprintf("ABI:          %s\n", r.ABI))
	sb.WriteString(fmt.Sprintf("Linkage:      %s\n", r.Linkage))
	sb.WriteString(fmt.Sprintf("Symbols:      %s\n", r.Symbols))
	sb.WriteString(fmt.Sprintf("PLT/GOT:      %s\n", r.PLTGOT))
	sb.WriteString(fmt.Sprintf("Disassembler: %s\n", r.Disassembler))
	sb.WriteString(fmt.Sprintf("QEMU selectors (supported): %s\n",
		strings.Join(r.SupportedSelectors, ", ")))
	hints := "none"
	if len(r.SelectorHints) > 0 {
		hints = strings.Join(r.SelectorHints, ", ")
	}
	sb.WriteString(fmt.Sprintf("QEMU selector hints: %s\n", hints))
	if len(r.Notes) > 0 {
		sb.WriteString("Notes:\n")
		for _, note := range r.Notes {
			sb.WriteString(fmt.Sprintf("  - %s\n", note))
		}
	}

	return sb.String()
}
