package executor

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/baikal/tracelab/internal/logging"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"ls", "'ls'"},
		{"a b", "'a b'"},
		{"it's", `'it'\''s'`},
	}
	for _, tt := range tests {
		if got := ShellQuote(tt.in); got != tt.want {
			t.Errorf("ShellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinQuoted(t *testing.T) {
	got := JoinQuoted([]string{"qemu-aarch64", "./bench", "-n", "100"})
	want := "'qemu-aarch64' './bench' '-n' '100'"
	if got != want {
		t.Errorf("JoinQuoted = %q, want %q", got, want)
	}
}

func TestLimitedWriterCapsOutput(t *testing.T) {
	var buf bytes.Buffer
	lw := &LimitedWriter{W: &buf, N: 10}

	n, err := lw.Write([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	// Full length is reported even though only the cap is kept.
	if n != 16 {
		t.Errorf("n = %d, want 16", n)
	}
	if buf.String() != "0123456789" {
		t.Errorf("captured %q, want first 10 bytes", buf.String())
	}
	if !lw.Truncated {
		t.Error("Truncated = false, want true")
	}

	n, err = lw.Write([]byte("more"))
	if err != nil || n != 4 {
		t.Errorf("write past cap = (%d, %v), want (4, nil)", n, err)
	}
	if buf.Len() != 10 {
		t.Errorf("buffer grew past cap: %d bytes", buf.Len())
	}
}

func TestRunWarnsOnTruncationWhenToolFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process groups are POSIX-only")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	hook := test.NewLocal(logging.GetLogger())
	defer hook.Reset()

	r := NewToolRunner()
	raw, err := r.Run(context.Background(), 30*time.Second, "sh", "-c",
		"head -c 5000000 /dev/zero >&2; exit 3")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !raw.Truncated {
		t.Fatal("Truncated = false, want true")
	}
	if raw.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", raw.ExitCode)
	}

	// The warning must fire even though the tool exited non-zero.
	warned := false
	for _, entry := range hook.AllEntries() {
		if strings.Contains(entry.Message, "truncated") {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a truncation warning for a failed tool")
	}
}

func TestLimitedWriterUnderCap(t *testing.T) {
	var buf bytes.Buffer
	lw := &LimitedWriter{W: &buf, N: 1024}

	payload := strings.Repeat("x", 100)
	if n, err := lw.Write([]byte(payload)); err != nil || n != 100 {
		t.Fatalf("write = (%d, %v), want (100, nil)", n, err)
	}
	if lw.Truncated {
		t.Error("Truncated = true, want false")
	}
	if buf.String() != payload {
		t.Error("captured output mismatch")
	}
}
