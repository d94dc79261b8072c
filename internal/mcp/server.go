// Package mcp exposes profiling operations to AI agents over the Model
// Context Protocol.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server instance.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server with registered tools.
func NewServer(version string) *Server {
	s := server.NewMCPServer("tracelab", version, server.WithLogging())
	registerTools(s)
	return &Server{
		mcpServer: s,
	}
}

// Start runs the server in stdio mode (blocking).
func (s *Server) Start(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools adds all supported tools to the server.
func registerTools(s *server.MCPServer) {
	runTool := mcp.NewTool("run_workload",
		mcp.WithDescription("Execute a workload under profiling collectors (perf stat, strace -c, /proc sampling) and return the run_result JSON with a bottleneck diagnosis. Linux only for full coverage."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workload command line, whitespace-split into argv (no shell interpretation)."),
		),
		mcp.WithString("mode",
			mcp.Description("Execution mode: native or qemu."),
			mcp.DefaultString("native"),
			mcp.Enum("native", "qemu"),
		),
		mcp.WithString("qemu_arch",
			mcp.Description("Target architecture for qemu mode: x86_64, aarch64, riscv64 (aliases accepted)."),
		),
		mcp.WithNumber("timeout_sec",
			mcp.Description("Per-collector timeout in seconds (default 120)."),
		),
	)
	s.AddTool(runTool, handleRunWorkload)

	reportTool := mcp.NewTool("read_report",
		mcp.WithDescription("Read a persisted run_result JSON artifact and return its headline fields (mode, command, duration, exit code, collector statuses)."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to a run_result JSON file produced by run_workload or the run command."),
		),
	)
	s.AddTool(reportTool, handleReadReport)

	compareTool := mcp.NewTool("compare_runs",
		mcp.WithDescription("Compare persisted native and qemu run artifacts using duration medians. Returns the compare_result JSON with slowdown, throughput, per-counter ratios, and caveats."),
		mcp.WithString("native_files",
			mcp.Required(),
			mcp.Description("Comma-separated paths to native run_result JSON files."),
		),
		mcp.WithString("qemu_files",
			mcp.Required(),
			mcp.Description("Comma-separated paths to qemu run_result JSON files."),
		),
	)
	s.AddTool(compareTool, handleCompareRuns)

	doctorTool := mcp.NewTool("check_environment",
		mcp.WithDescription("Probe the host for required profiling tools (perf, strace), optional binary-analysis tools, qemu user-mode binaries, and kernel tracing capabilities."),
	)
	s.AddTool(doctorTool, handleCheckEnvironment)
}
