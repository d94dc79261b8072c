package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/baikal/tracelab/internal/artifact"
	"github.com/baikal/tracelab/internal/compare"
	"github.com/baikal/tracelab/internal/doctor"
	"github.com/baikal/tracelab/internal/executor"
	"github.com/baikal/tracelab/internal/model"
	"github.com/baikal/tracelab/internal/orchestrator"
)

// runWorkloadTimeout bounds the whole run: one monitored execution plus two
// collector replays.
const runWorkloadTimeout = 10 * time.Minute

const defaultCollectorTimeoutSec = 120

// handleRunWorkload executes a workload under the full collector pipeline.
func handleRunWorkload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, runWorkloadTimeout)
	defer cancel()

	args := getArgs(request)

	command := stringArg(args, "command", "")
	workload := strings.Fields(command)
	if len(workload) == 0 {
		return errResult("command is required"), nil
	}

	mode := stringArg(args, "mode", model.ModeNative)
	if mode != model.ModeNative && mode != model.ModeQemu {
		return errResult(fmt.Sprintf("unsupported mode %q", mode)), nil
	}

	timeoutSec := defaultCollectorTimeoutSec
	if v, ok := args["timeout_sec"]; ok && v != nil {
		if f, ok := v.(float64); ok && f > 0 {
			timeoutSec = int(f)
		}
	}

	opts := orchestrator.Options{
		Mode:             mode,
		QemuArch:         stringArg(args, "qemu_arch", ""),
		CollectorTimeout: time.Duration(timeoutSec) * time.Second,
	}

	art, _, err := orchestrator.Run(ctx, executor.NewToolRunner(), opts, workload)
	if err != nil {
		return errResult(fmt.Sprintf("run failed: %v", err)), nil
	}

	jsonData, err := json.Marshal(art)
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// handleReadReport summarises a persisted run artifact without a full JSON
// parse, tolerating absent fields.
func handleReadReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	path := stringArg(args, "path", "")
	if path == "" {
		return errResult("path is required"), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errResult(fmt.Sprintf("read failed: %v", err)), nil
	}
	text := string(data)

	kind, ok := artifact.ScanString(text, "kind")
	if !ok || kind != artifact.KindRunResult {
		return errResult(fmt.Sprintf("unsupported or missing kind field in %s", path)), nil
	}

	summary := map[string]interface{}{
		"source":  path,
		"mode":    scanStringOr(text, "mode", "unknown"),
		"command": scanStringOr(text, "command", "unknown"),
		"collectors": map[string]string{
			model.CollectorPerfStat:      scanStatusOr(text, model.CollectorPerfStat),
			model.CollectorStraceSummary: scanStatusOr(text, model.CollectorStraceSummary),
			model.CollectorProcStatus:    scanStatusOr(text, model.CollectorProcStatus),
		},
	}
	if v, ok := artifact.ScanNumber(text, "duration_sec"); ok {
		summary["duration_sec"] = v
	}
	if v, ok := artifact.ScanInteger(text, "exit_code"); ok {
		summary["exit_code"] = v
	}
	if label, ok := artifact.ScanString(text, "label"); ok {
		summary["diagnosis_label"] = label
	}

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// handleCompareRuns aggregates native and qemu artifacts into a comparison.
func handleCompareRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)

	nativeFiles := splitPaths(stringArg(args, "native_files", ""))
	qemuFiles := splitPaths(stringArg(args, "qemu_files", ""))
	if len(nativeFiles) == 0 || len(qemuFiles) == 0 {
		return errResult("native_files and qemu_files are required"), nil
	}

	native, err := loadSamples(nativeFiles, model.ModeNative)
	if err != nil {
		return errResult(err.Error()), nil
	}
	qemuSamples, err := loadSamples(qemuFiles, model.ModeQemu)
	if err != nil {
		return errResult(err.Error()), nil
	}

	result, err := compare.Compare(native, qemuSamples)
	if err != nil {
		return errResult(fmt.Sprintf("compare failed: %v", err)), nil
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// handleCheckEnvironment runs the doctor probes.
func handleCheckEnvironment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := doctor.Check()

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

func loadSamples(paths []string, expectedMode string) ([]*compare.RunSample, error) {
	samples := make([]*compare.RunSample, 0, len(paths))
	for _, path := range paths {
		sample, err := compare.LoadSample(path, expectedMode)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func splitPaths(value string) []string {
	var paths []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			paths = append(paths, part)
		}
	}
	return paths
}

func scanStringOr(text, field, fallback string) string {
	if v, ok := artifact.ScanString(text, field); ok {
		return v
	}
	return fallback
}

func scanStatusOr(text, collector string) string {
	if v, ok := artifact.ScanCollectorStatus(text, collector); ok {
		return v
	}
	return "unknown"
}

// getArgs safely extracts the arguments map from a CallToolRequest.
// Returns an empty map if Arguments is nil or not a map.
func getArgs(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// stringArg extracts a string argument with a default value.
func stringArg(args map[string]interface{}, key, defaultVal string) string {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return defaultVal
	}
	return s
}

// newTextResult creates a successful MCP tool result with text content.
func newTextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}

// errResult creates an MCP tool error result (IsError=true).
// This is returned as a tool-level error, not a transport-level JSON-RPC error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: msg,
			},
		},
	}
}
