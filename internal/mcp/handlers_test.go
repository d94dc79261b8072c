package mcp

import (
	"reflect"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestGetArgs(t *testing.T) {
	var req mcp.CallToolRequest
	if got := getArgs(req); len(got) != 0 {
		t.Errorf("nil arguments = %v, want empty map", got)
	}

	req.Params.Arguments = map[string]interface{}{"mode": "qemu"}
	if got := getArgs(req); got["mode"] != "qemu" {
		t.Errorf("args = %v", got)
	}

	req.Params.Arguments = "not a map"
	if got := getArgs(req); len(got) != 0 {
		t.Errorf("non-map arguments = %v, want empty map", got)
	}
}

func TestStringArg(t *testing.T) {
	args := map[string]interface{}{
		"mode":  "qemu",
		"empty": "",
		"num":   42.0,
	}
	if got := stringArg(args, "mode", "native"); got != "qemu" {
		t.Errorf("mode = %q", got)
	}
	if got := stringArg(args, "missing", "native"); got != "native" {
		t.Errorf("missing = %q, want default", got)
	}
	if got := stringArg(args, "empty", "native"); got != "native" {
		t.Errorf("empty = %q, want default", got)
	}
	if got := stringArg(args, "num", "native"); got != "native" {
		t.Errorf("non-string = %q, want default", got)
	}
}

func TestSplitPaths(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a.json,b.json", []string{"a.json", "b.json"}},
		{" a.json , b.json ", []string{"a.json", "b.json"}},
		{"a.json,,b.json,", []string{"a.json", "b.json"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := splitPaths(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitPaths(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestErrResult(t *testing.T) {
	res := errResult("boom")
	if !res.IsError {
		t.Error("IsError = false")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok || tc.Text != "boom" {
		t.Errorf("content = %+v", res.Content)
	}
}

func TestNewTextResult(t *testing.T) {
	res := newTextResult("payload")
	if res.IsError {
		t.Error("IsError = true")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok || tc.Text != "payload" || tc.Type != "text" {
		t.Errorf("content = %+v", res.Content)
	}
}
