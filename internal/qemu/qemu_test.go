package qemu

import (
	"reflect"
	"testing"
)

func TestNormalizeSelector(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"x86_64", ArchX8664, true},
		{"amd64", ArchX8664, true},
		{"x64", ArchX8664, true},
		{"aarch64", ArchAarch64, true},
		{"arm64", ArchAarch64, true},
		{"riscv64", ArchRiscv64, true},
		{"riscv", ArchRiscv64, true},
		{"rv64", ArchRiscv64, true},
		{"AARCH64", ArchAarch64, true},
		{" amd64 ", ArchX8664, true},
		{"mips", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeSelector(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeSelector(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBinary(t *testing.T) {
	if got := Binary(ArchAarch64); got != "qemu-aarch64" {
		t.Errorf("Binary(aarch64) = %q", got)
	}
}

func TestSelectorHintsFromISA(t *testing.T) {
	tests := []struct {
		isa  string
		want []string
	}{
		{"Advanced Micro Devices X86-64", []string{ArchX8664}},
		{"AArch64", []string{ArchAarch64}},
		{"RISC-V", []string{ArchRiscv64}},
		{"Intel 80386", nil},
		{"unknown", nil},
	}
	for _, tt := range tests {
		if got := SelectorHintsFromISA(tt.isa); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SelectorHintsFromISA(%q) = %v, want %v", tt.isa, got, tt.want)
		}
	}
}
