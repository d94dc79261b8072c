package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteJSONCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "result.json")

	if err := WriteJSON(map[string]int{"a": 1}, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"a": 1`) {
		t.Errorf("content = %s", text)
	}
	// Indented output ends with a newline from the encoder.
	if !strings.HasSuffix(text, "\n") {
		t.Error("missing trailing newline")
	}
}

func TestWriteJSONNoHTMLEscaping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")

	if err := WriteJSON(map[string]string{"cmd": "a < b > c"}, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), `<`) {
		t.Error("angle brackets escaped; command strings should stay readable")
	}
}
