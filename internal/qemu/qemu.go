// Package qemu maps user-facing architecture selectors to the qemu user-mode
// binaries tracelab can replay workloads under.
package qemu

import "strings"

// Canonical selectors accepted by `tracelab run --qemu <arch>`.
const (
	ArchX8664   = "x86_64"
	ArchAarch64 = "aarch64"
	ArchRiscv64 = "riscv64"
)

// SupportedSelectors lists the canonical architecture selectors.
func SupportedSelectors() []string {
	return []string{ArchX8664, ArchAarch64, ArchRiscv64}
}

// NormalizeSelector maps common aliases to canonical selector names.
// Returns false for unsupported selectors.
func NormalizeSelector(selector string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "x86_64", "amd64", "x64":
		return ArchX8664, true
	case "aarch64", "arm64":
		return ArchAarch64, true
	case "riscv64", "riscv", "rv64":
		return ArchRiscv64, true
	}
	return "", false
}

// Binary returns the qemu user-mode binary name for a canonical selector.
func Binary(arch string) string {
	return "qemu-" + arch
}

// SelectorHintsFromISA derives likely selectors from readelf machine strings
// such as "Advanced Micro Devices X86-64" or "RISC-V".
func SelectorHintsFromISA(isa string) []string {
	lower := strings.ToLower(isa)
	switch {
	case strings.Contains(lower, "x86-64") || strings.Contains(lower, "x86_64"):
		return []string{ArchX8664}
	case strings.Contains(lower, "aarch64") || strings.Contains(lower, "arm64"):
		return []string{ArchAarch64}
	case strings.Contains(lower, "risc-v") || strings.Contains(lower, "riscv"):
		return []string{ArchRiscv64}
	}
	return nil
}
