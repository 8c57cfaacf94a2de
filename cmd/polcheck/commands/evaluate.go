package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/polcheck/polcheck/pkg/compare"
	"github.com/polcheck/polcheck/pkg/config"
	"github.com/polcheck/polcheck/pkg/eval"
	"github.com/polcheck/polcheck/pkg/parser"
	"github.com/polcheck/polcheck/pkg/report"
	"github.com/polcheck/polcheck/pkg/rules"
	"github.com/polcheck/polcheck/pkg/sources"
	"github.com/polcheck/polcheck/pkg/telemetry"
)

// evaluateOptions collects the per-run settings of one evaluation.
type evaluateOptions struct {
	dialect   string
	reference string
	format    string
	scoring   string
	maxDepth  int
}

func newEvaluateCommand() *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate <rules-file> <policy-file>...",
		Short: "Evaluate policy documents against conformance rules",
		Long: `Evaluate parses one or more policy documents in the selected dialect,
checks every resource against the loaded conformance rules, and prints
a report. Multiple documents are evaluated concurrently.

Each policy file may be a local path, "-" for standard input, or an
sftp:// URL. When a reference file is given, the same rules are
evaluated against it and any verdict divergence fails the report.

Exit codes:
  0  the report passed
  1  the report failed (failing verdicts or divergences)
  2  evaluation could not complete`,
		Example: `  # Evaluate a Terraform policy
  polcheck evaluate rules.yaml main.tf --dialect=terraform-hcl

  # Evaluate Kubernetes manifests from stdin, JSON output
  kubectl get pod -o yaml | polcheck evaluate rules.yaml - --dialect=kubernetes-yaml --format=json

  # Compare against a previously approved reference
  polcheck evaluate rules.yaml candidate.tf --dialect=terraform-hcl --reference=approved.tf`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadToolConfig(cmd.Context())
			if err != nil {
				return exitWith(ExitError, err)
			}

			tel, err := buildTelemetry(cfg)
			if err != nil {
				return exitWith(ExitError, err)
			}
			ctx := tel.WithContext(cmd.Context())
			defer func() { _ = tel.Shutdown(context.Background()) }()

			r, err := evaluateOnce(ctx, tel, cfg, args[0], args[1:], opts)
			if err != nil {
				return exitWith(ExitError, err)
			}

			if err := renderReport(cfg, opts, r); err != nil {
				return exitWith(ExitError, err)
			}

			if !r.Pass {
				return exitWith(ExitFail, nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.dialect, "dialect", "d", "", "policy dialect (terraform-hcl, kubernetes-yaml, rego)")
	cmd.Flags().StringVar(&opts.reference, "reference", "", "reference policy file to compare against")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "report format (json, text)")
	cmd.Flags().StringVar(&opts.scoring, "scoring", "", "scoring strategy (binary, rubric)")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "maximum field nesting depth")

	return cmd
}

// evaluateOnce runs one full evaluation: load rules, fetch and parse the
// policy documents, evaluate, optionally compare against a reference,
// and build the report.
func evaluateOnce(ctx context.Context, tel *telemetry.Telemetry, cfg *config.Config, rulesFile string, policyFiles []string, opts evaluateOptions) (*report.Report, error) {
	logger := tel.Logger.Zerolog()

	dialectName := opts.dialect
	if dialectName == "" {
		dialectName = cfg.Evaluation.Dialect
	}
	dialect, err := parser.ParseDialect(dialectName)
	if err != nil {
		return nil, err
	}

	// Load rules: built-ins, configured paths, then the rules file.
	var registry *rules.Registry
	if cfg.Rules.DisableBuiltin {
		registry = rules.NewEmptyRegistry(logger)
	} else {
		registry, err = rules.NewRegistry(logger)
		if err != nil {
			return nil, err
		}
	}
	rulePaths := append(append([]string{}, cfg.Rules.Paths...), rulesFile)
	if err := registry.LoadPaths(ctx, rulePaths); err != nil {
		return nil, err
	}
	tel.Metrics.SetRulesLoaded(float64(registry.Len()))

	parseOpts := parser.Options{MaxDepth: cfg.Evaluation.MaxDepth}
	if opts.maxDepth > 0 {
		parseOpts.MaxDepth = opts.maxDepth
	}

	resolver := sources.NewResolver(logger)
	resolver.SFTP = sources.DefaultSFTPConfig()

	docs := make([][]parser.Resource, 0, len(policyFiles))
	for _, policyFile := range policyFiles {
		resources, err := fetchAndParse(ctx, resolver, policyFile, dialect, parseOpts)
		if err != nil {
			return nil, err
		}
		docs = append(docs, resources)
	}

	evaluator := eval.NewEvaluator(logger, eval.Options{
		StarlarkTimeout: cfg.Evaluation.StarlarkTimeout(),
	})

	tel.Metrics.RecordEvaluationStarted()
	timer := telemetry.NewTimer()

	perDoc, err := evaluator.EvaluateDocuments(ctx, docs, registry.List())
	if err != nil {
		return nil, err
	}
	var verdicts []eval.Verdict
	for _, dv := range perDoc {
		verdicts = append(verdicts, dv...)
	}
	for _, v := range verdicts {
		tel.Metrics.RecordVerdict(string(v.Outcome))
	}

	// Reference comparison, when requested. An ambiguous match degrades
	// to a warning instead of failing the run.
	var divergences []compare.Divergence
	var warnings []string
	if opts.reference != "" {
		refResources, err := fetchAndParse(ctx, resolver, opts.reference, dialect, parseOpts)
		if err != nil {
			return nil, fmt.Errorf("reference: %w", err)
		}
		refVerdicts := evaluator.Evaluate(ctx, refResources, registry.List())

		divergences, err = compare.Compare(verdicts, refVerdicts)
		if err != nil {
			if compare.IsAmbiguousMatch(err) {
				tel.Metrics.RecordAmbiguousMatch()
				warnings = append(warnings, fmt.Sprintf("reference comparison skipped: %v", err))
				divergences = nil
			} else {
				return nil, err
			}
		}
		tel.Metrics.RecordDivergences(len(divergences))
	}

	scoring := opts.scoring
	if scoring == "" {
		scoring = cfg.Report.Scoring
	}
	builder, err := report.NewBuilder(logger, scoring)
	if err != nil {
		return nil, err
	}

	r := builder.Build(verdicts, divergences, warnings)
	r.PolicyFile = strings.Join(policyFiles, ", ")
	r.ReferenceFile = opts.reference

	result := "pass"
	if !r.Pass {
		result = "fail"
	}
	tel.Metrics.RecordEvaluationCompleted(result, timer.Duration())
	_ = tel.Events.PublishEvaluationCompleted(r.ID, r.Pass, timer.Duration())

	return r, nil
}

// fetchAndParse retrieves one document and parses it into resources,
// recording parse telemetry.
func fetchAndParse(ctx context.Context, resolver *sources.Resolver, location string, dialect parser.Dialect, opts parser.Options) ([]parser.Resource, error) {
	doc, err := resolver.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	var resources []parser.Resource
	err = telemetry.RecordParseOperation(ctx, doc.Name, string(dialect), func() (int, error) {
		var parseErr error
		resources, parseErr = parser.Parse(ctx, doc, dialect, opts)
		return len(resources), parseErr
	})
	if err != nil {
		return nil, err
	}
	return resources, nil
}

// renderReport writes the report to stdout in the selected format.
func renderReport(cfg *config.Config, opts evaluateOptions, r *report.Report) error {
	switch cfg.Report.Color {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}

	format := opts.format
	if format == "" {
		format = cfg.Report.Format
	}
	if jsonOutput {
		format = "json"
	}

	switch format {
	case "json":
		return report.RenderJSON(os.Stdout, r)
	case "", "text":
		return report.RenderText(os.Stdout, r)
	default:
		return fmt.Errorf("unknown report format %q (supported: json, text)", format)
	}
}
