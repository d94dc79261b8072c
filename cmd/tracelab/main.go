// tracelab is a workload profiling and native-vs-QEMU comparison tool.
//
// Runs a workload under perf stat, strace -c, and /proc status sampling,
// diagnoses the dominant bottleneck with an ordered rule cascade, and
// compares repeated native and emulated runs by duration medians.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/baikal/tracelab/internal/artifact"
	"github.com/baikal/tracelab/internal/compare"
	"github.com/baikal/tracelab/internal/config"
	"github.com/baikal/tracelab/internal/doctor"
	"github.com/baikal/tracelab/internal/executor"
	"github.com/baikal/tracelab/internal/inspect"
	"github.com/baikal/tracelab/internal/logging"
	"github.com/baikal/tracelab/internal/model"
	"github.com/baikal/tracelab/internal/orchestrator"
	"github.com/baikal/tracelab/internal/output"
)

var (
	version = "0.1.0"
)

func main() {
	// Optional .env for things like TRACELAB_* overrides in config files.
	_ = godotenv.Load()

	// Non-zero when the run command mirrors a workload's exit status.
	workloadExitCode := 0

	var (
		configPath string
		logLevel   string
		cfg        *config.ProtocolConfig
	)

	rootCmd := &cobra.Command{
		Use:   "tracelab",
		Short: "Workload profiling and native-vs-QEMU comparison",
		Long: `tracelab is a single Go binary for workload bottleneck diagnosis.

Executes a workload once under /proc status sampling, replays it under
perf stat and strace -c, and classifies the dominant bottleneck
(cpu-bound, io-bound, syscall-heavy, memory-pressure) with evidence and
confidence. Persisted run artifacts feed the compare command for
native-vs-QEMU slowdown analysis.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			// An explicit flag beats the config file beats the default.
			level := logLevel
			if !cmd.Root().PersistentFlags().Changed("log-level") && cfg.LogLevel != "" {
				level = cfg.LogLevel
			}
			return logging.SetLogLevel(level)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Protocol config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	// --- run command ---
	var (
		runQemuArch   string
		runStrict     bool
		runJSONPath   string
		runTimeoutSec int
	)

	runCmd := &cobra.Command{
		Use:   "run [flags] -- <command...>",
		Short: "Profile a workload and diagnose its bottleneck",
		Long: `Execute a workload under the collector pipeline and print a
diagnosis. The workload command follows a '--' separator; its exit code
becomes tracelab's exit code.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dash := cmd.ArgsLenAtDash()
			if dash < 0 {
				return fmt.Errorf("missing workload separator '--'")
			}
			workload := args[dash:]
			if len(workload) == 0 {
				return fmt.Errorf("missing workload command after '--'")
			}

			if !cmd.Flags().Changed("collector-timeout-sec") {
				runTimeoutSec = cfg.CollectorTimeoutSec
			}
			if runTimeoutSec <= 0 {
				return fmt.Errorf("--collector-timeout-sec must be > 0")
			}
			if !cmd.Flags().Changed("strict") && cfg.Strict {
				runStrict = true
			}

			mode, arch, err := resolveRunMode(cmd.Flags().Changed("qemu"), runQemuArch, cfg.QemuArch)
			if err != nil {
				return err
			}
			runQemuArch = arch

			opts := orchestrator.Options{
				Mode:             mode,
				QemuArch:         runQemuArch,
				Strict:           runStrict,
				CollectorTimeout: time.Duration(runTimeoutSec) * time.Second,
			}

			art, exitCode, err := orchestrator.Run(context.Background(), executor.NewToolRunner(), opts, workload)
			if err != nil {
				return err
			}
			workloadExitCode = exitCode

			// Default destination keeps every run available for compare.
			if !cmd.Flags().Changed("json") {
				runJSONPath = filepath.Join(cfg.OutputDir,
					fmt.Sprintf("run-%s.json", time.Now().UTC().Format("20060102-150405")))
			}

			fmt.Print(output.FormatRun(art))
			if runJSONPath != "" {
				if err := output.WriteJSON(art, runJSONPath); err != nil {
					return fmt.Errorf("write %s: %w", runJSONPath, err)
				}
				fmt.Printf("JSON: %s\n", runJSONPath)
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&runQemuArch, "qemu", "", "Run under qemu user-mode emulation for the given arch")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "Fail unless every collector reports ok")
	runCmd.Flags().StringVar(&runJSONPath, "json", "", "Run artifact destination (default <output_dir>/run-<timestamp>.json; \"\" disables)")
	runCmd.Flags().IntVar(&runTimeoutSec, "collector-timeout-sec", config.DefaultCollectorTimeoutSec, "Per-collector timeout in seconds")

	// --- report command ---
	reportCmd := &cobra.Command{
		Use:   "report <result.json>",
		Short: "Summarise a persisted run artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(args[0])
		},
	}

	// --- compare command ---
	var (
		compareNative   []string
		compareQemu     []string
		compareJSONPath string
	)

	compareCmd := &cobra.Command{
		Use:   "compare [<first.json> <second.json>] [--native <run.json>... --qemu <run.json>...]",
		Short: "Compare native and qemu run artifacts by duration medians",
		Long: `Compare persisted run artifacts by duration medians. Either pass one
native and one qemu artifact positionally (in either order), or explicit
--native and --qemu lists for multi-sample comparisons.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && (len(compareNative) > 0 || len(compareQemu) > 0) {
				return fmt.Errorf("use either positional mode (2 files) or --native/--qemu lists, not both")
			}

			var (
				native      []*compare.RunSample
				qemuSamples []*compare.RunSample
				err         error
			)
			if len(args) > 0 {
				native, qemuSamples, err = bucketPositional(args)
				if err != nil {
					return err
				}
			} else {
				if len(compareNative) == 0 || len(compareQemu) == 0 {
					return fmt.Errorf("at least one --native and one --qemu artifact are required")
				}
				native, err = loadSamples(compareNative, model.ModeNative)
				if err != nil {
					return err
				}
				qemuSamples, err = loadSamples(compareQemu, model.ModeQemu)
				if err != nil {
					return err
				}
			}

			result, err := compare.CompareWithProtocol(native, qemuSamples, cfg.WarmupRuns, cfg.MeasuredRuns)
			if err != nil {
				return err
			}

			fmt.Print(compare.FormatResult(result))
			if compareJSONPath != "" {
				if err := output.WriteJSON(result, compareJSONPath); err != nil {
					return fmt.Errorf("write %s: %w", compareJSONPath, err)
				}
				fmt.Printf("JSON: %s\n", compareJSONPath)
			}
			return nil
		},
	}
	compareCmd.Flags().StringArrayVar(&compareNative, "native", nil, "Native run_result JSON file (repeatable)")
	compareCmd.Flags().StringArrayVar(&compareQemu, "qemu", nil, "QEMU run_result JSON file (repeatable)")
	compareCmd.Flags().StringVar(&compareJSONPath, "json", "", "Write the compare_result JSON artifact to this path")

	// --- doctor command ---
	var doctorJSONPath string

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the host for required tools and tracing capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := doctor.Check()
			fmt.Print(doctor.FormatReport(report))
			if doctorJSONPath != "" {
				if err := output.WriteJSON(report, doctorJSONPath); err != nil {
					return fmt.Errorf("write %s: %w", doctorJSONPath, err)
				}
				fmt.Printf("JSON: %s\n", doctorJSONPath)
			}
			if !report.Ready {
				workloadExitCode = 2
			}
			return nil
		},
	}
	doctorCmd.Flags().StringVar(&doctorJSONPath, "json", "", "Write the doctor_result JSON artifact to this path")

	// --- inspect command ---
	var inspectJSONPath string

	inspectCmd := &cobra.Command{
		Use:   "inspect <binary>",
		Short: "Extract ELF/ISA metadata and qemu selector hints from a binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := inspect.Inspect(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Print(inspect.FormatReport(report))
			if inspectJSONPath != "" {
				if err := output.WriteJSON(report, inspectJSONPath); err != nil {
					return fmt.Errorf("write %s: %w", inspectJSONPath, err)
				}
				fmt.Printf("JSON: %s\n", inspectJSONPath)
			}
			return nil
		},
	}
	inspectCmd.Flags().StringVar(&inspectJSONPath, "json", "", "Write the inspect_result JSON artifact to this path")

	rootCmd.AddCommand(runCmd, reportCmd, compareCmd, doctorCmd, inspectCmd, mcpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tracelab: %v\n", err)
		os.Exit(2)
	}
	os.Exit(workloadExitCode)
}

// runReport prints the headline fields of a persisted run artifact using the
// best-effort field scanner; absent fields print as unknown.
func runReport(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := string(data)

	kind, ok := artifact.ScanString(text, "kind")
	if !ok || kind != artifact.KindRunResult {
		return fmt.Errorf("unsupported or missing kind field in %s", path)
	}

	fmt.Println("=== Run Report ===")
	fmt.Printf("Source: %s\n", path)
	fmt.Printf("Mode: %s\n", scanStringOr(text, "mode", "unknown"))
	fmt.Printf("Command: %s\n", scanStringOr(text, "command", "unknown"))
	if duration, ok := artifact.ScanNumber(text, "duration_sec"); ok {
		fmt.Printf("Duration: %.6fs\n", duration)
	} else {
		fmt.Println("Duration: unknown")
	}
	if exitCode, ok := artifact.ScanInteger(text, "exit_code"); ok {
		fmt.Printf("Exit code: %d\n", exitCode)
	} else {
		fmt.Println("Exit code: unknown")
	}
	fmt.Printf("Collectors: perf_stat=%s, strace_summary=%s, proc_status=%s\n",
		scanStatusOr(text, model.CollectorPerfStat),
		scanStatusOr(text, model.CollectorStraceSummary),
		scanStatusOr(text, model.CollectorProcStatus))
	return nil
}

// resolveRunMode picks the run mode from the --qemu flag and the config
// file. A non-empty qemu_arch in the config selects qemu mode on its own;
// an explicit --qemu flag overrides it.
func resolveRunMode(qemuFlagSet bool, flagArch, cfgArch string) (mode, arch string, err error) {
	switch {
	case qemuFlagSet:
		if flagArch == "" {
			return "", "", fmt.Errorf("--qemu expects an architecture")
		}
		return model.ModeQemu, flagArch, nil
	case cfgArch != "":
		return model.ModeQemu, cfgArch, nil
	}
	return model.ModeNative, flagArch, nil
}

// bucketPositional loads two artifacts without a mode expectation and
// assigns each to its bucket by the recorded mode. Exactly one native and
// one qemu artifact are required, in either order.
func bucketPositional(paths []string) (native, qemuSamples []*compare.RunSample, err error) {
	if len(paths) != 2 {
		return nil, nil, fmt.Errorf("expected either two positional files or explicit --native/--qemu lists")
	}
	first, err := compare.LoadSample(paths[0], "")
	if err != nil {
		return nil, nil, err
	}
	second, err := compare.LoadSample(paths[1], "")
	if err != nil {
		return nil, nil, err
	}
	switch {
	case first.Mode == model.ModeNative && second.Mode == model.ModeQemu:
		return []*compare.RunSample{first}, []*compare.RunSample{second}, nil
	case first.Mode == model.ModeQemu && second.Mode == model.ModeNative:
		return []*compare.RunSample{second}, []*compare.RunSample{first}, nil
	}
	return nil, nil, fmt.Errorf("positional inputs must include exactly one native and one qemu artifact")
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
