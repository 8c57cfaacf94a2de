package config

import (
	"time"
)

// RulesConfig controls where conformance rules are loaded from.
type RulesConfig struct {
	// Paths lists rule files or directories loaded in addition to the
	// built-in rules.
	Paths []string `json:"paths,omitempty"`

	// DisableBuiltin skips loading the built-in rule set.
	DisableBuiltin bool `json:"disable_builtin,omitempty"`
}

// EvaluationConfig controls parsing and rule evaluation.
type EvaluationConfig struct {
	// Dialect is the default policy dialect when the CLI flag is not
	// given (terraform-hcl, kubernetes-yaml, rego).
	Dialect string `json:"dialect,omitempty" validate:"omitempty,oneof=terraform-hcl kubernetes-yaml rego"`

	// MaxDepth bounds field nesting accepted by the parser.
	MaxDepth int `json:"max_depth,omitempty" validate:"omitempty,min=1"`

	// StarlarkTimeoutSeconds bounds each starlark predicate execution.
	StarlarkTimeoutSeconds int `json:"starlark_timeout_seconds,omitempty" validate:"omitempty,min=1"`
}

// StarlarkTimeout returns the configured predicate timeout.
func (ec EvaluationConfig) StarlarkTimeout() time.Duration {
	return time.Duration(ec.StarlarkTimeoutSeconds) * time.Second
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	// Format selects the output renderer (json, text).
	Format string `json:"format,omitempty" validate:"omitempty,oneof=json text"`

	// Scoring names the scoring strategy (binary, rubric).
	Scoring string `json:"scoring,omitempty" validate:"omitempty,oneof=binary rubric"`

	// Color controls ANSI color in text output (auto, always, never).
	Color string `json:"color,omitempty" validate:"omitempty,oneof=auto always never"`
}

// TelemetryConfig controls logging, metrics and tracing.
type TelemetryConfig struct {
	// LogLevel is the minimum level emitted.
	LogLevel string `json:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`

	// LogFormat selects json or console output.
	LogFormat string `json:"log_format,omitempty" validate:"omitempty,oneof=json console"`

	// MetricsEnabled exposes Prometheus metrics during watch mode.
	MetricsEnabled bool `json:"metrics_enabled,omitempty"`

	// MetricsAddr is the listen address for the metrics endpoint.
	MetricsAddr string `json:"metrics_addr,omitempty"`

	// TracingEnabled turns on OpenTelemetry tracing.
	TracingEnabled bool `json:"tracing_enabled,omitempty"`

	// OTLPEndpoint is the OTLP collector endpoint.
	OTLPEndpoint string `json:"otlp_endpoint,omitempty"`

	// SampleRate is the trace sampling rate between 0 and 1.
	SampleRate float64 `json:"sample_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Config is the tool configuration, loaded from a CUE file.
type Config struct {
	// Rules controls rule loading.
	Rules RulesConfig `json:"rules,omitempty"`

	// Evaluation controls parsing and evaluation.
	Evaluation EvaluationConfig `json:"evaluation,omitempty"`

	// Report controls report rendering.
	Report ReportConfig `json:"report,omitempty"`

	// Telemetry controls logging, metrics and tracing.
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// ValidationError is a configuration error with source position.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the configuration path the error refers to.
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Evaluation: EvaluationConfig{
			MaxDepth:               64,
			StarlarkTimeoutSeconds: 10,
		},
		Report: ReportConfig{
			Format:  "text",
			Scoring: "binary",
			Color:   "auto",
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "console",
			MetricsAddr: ":9090",
			SampleRate:  1.0,
		},
	}
}
