package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polcheck/polcheck/pkg/config"
	"github.com/polcheck/polcheck/pkg/telemetry"
)

// Exit codes for the evaluate command.
const (
	// ExitPass means the policy conformed and matched the reference.
	ExitPass = 0

	// ExitFail means the report did not pass.
	ExitFail = 1

	// ExitError means evaluation could not complete (syntax errors,
	// malformed rules, unsupported dialect, usage errors).
	ExitError = 2
)

// ExitCodeError carries a process exit code out of command execution.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// exitWith wraps an error with an exit code.
func exitWith(code int, err error) *ExitCodeError {
	return &ExitCodeError{Code: code, Err: err}
}

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "polcheck",
		Short: "Polcheck - Policy Conformance Evaluator",
		Long: `Polcheck evaluates infrastructure policy documents against a set of
conformance rules and reports pass/fail verdicts with evidence.

Features:
  - Terraform HCL, Kubernetes YAML, and Rego dialects
  - Declarative rules with equals/one-of/pattern predicates
  - Procedural predicates via Starlark and Rego
  - Reference comparison with divergence reporting
  - JSON and colored text reports with pluggable scoring`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (CUE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newEvaluateCommand())
	rootCmd.AddCommand(newRulesCommand())
	rootCmd.AddCommand(newDialectsCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}

// loadToolConfig loads the CUE configuration, falling back to defaults
// when no --config flag was given.
func loadToolConfig(ctx context.Context) (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.NewLoader().Load(ctx, configPath)
}

// buildTelemetry assembles the telemetry stack from the tool config and
// the global flags.
func buildTelemetry(cfg *config.Config) (*telemetry.Telemetry, error) {
	tcfg := telemetry.DefaultConfig()
	tcfg.Logging.Level = cfg.Telemetry.LogLevel
	if verbose {
		tcfg.Logging.Level = "debug"
	}
	tcfg.Logging.Format = cfg.Telemetry.LogFormat
	tcfg.Metrics.Enabled = cfg.Telemetry.MetricsEnabled
	if cfg.Telemetry.MetricsAddr != "" {
		tcfg.Metrics.ListenAddress = cfg.Telemetry.MetricsAddr
	}
	tcfg.Tracing.Enabled = cfg.Telemetry.TracingEnabled
	if cfg.Telemetry.TracingEnabled {
		tcfg.Tracing.Exporter = "otlp"
		tcfg.Tracing.Endpoint = cfg.Telemetry.OTLPEndpoint
		tcfg.Tracing.SamplingRate = cfg.Telemetry.SampleRate
	}

	return telemetry.NewTelemetry(tcfg)
}
