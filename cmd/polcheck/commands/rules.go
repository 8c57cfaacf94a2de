package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/polcheck/polcheck/pkg/rules"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate conformance rules",
		Long: `Rules lists the rules the evaluator would apply and validates rule
definition files without running an evaluation.`,
	}

	cmd.AddCommand(newRulesListCommand())
	cmd.AddCommand(newRulesValidateCommand())

	return cmd
}

func newRulesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [rules-file...]",
		Short: "List built-in and loaded rules",
		Example: `  # List the built-in rules
  polcheck rules list

  # List built-ins plus a local rule file
  polcheck rules list team-rules.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadToolConfig(cmd.Context())
			if err != nil {
				return exitWith(ExitError, err)
			}

			tel, err := buildTelemetry(cfg)
			if err != nil {
				return exitWith(ExitError, err)
			}
			logger := tel.Logger.Zerolog()

			var registry *rules.Registry
			if cfg.Rules.DisableBuiltin {
				registry = rules.NewEmptyRegistry(logger)
			} else {
				registry, err = rules.NewRegistry(logger)
				if err != nil {
					return exitWith(ExitError, err)
				}
			}

			paths := append(append([]string{}, cfg.Rules.Paths...), args...)
			if len(paths) > 0 {
				if err := registry.LoadPaths(cmd.Context(), paths); err != nil {
					return exitWith(ExitError, err)
				}
			}

			ruleSet := registry.List()
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ruleSet)
			}

			bold := color.New(color.Bold).SprintFunc()
			faint := color.New(color.Faint).SprintFunc()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", bold("ID"), bold("KIND"), bold("OPTIONAL"), bold("DESCRIPTION"))
			for _, r := range ruleSet {
				optional := ""
				if r.Optional {
					optional = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Kind, optional, faint(r.Description))
			}
			if err := w.Flush(); err != nil {
				return exitWith(ExitError, err)
			}
			fmt.Fprintf(os.Stdout, "\n%d rules\n", len(ruleSet))
			return nil
		},
	}
}

func newRulesValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules-file>...",
		Short: "Validate rule definition files",
		Long: `Validate loads each rule file with the same structural checks the
evaluator applies and reports every malformed rule it finds. Exit code
0 means every file loaded cleanly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadToolConfig(cmd.Context())
			if err != nil {
				return exitWith(ExitError, err)
			}

			tel, err := buildTelemetry(cfg)
			if err != nil {
				return exitWith(ExitError, err)
			}

			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()

			logger := tel.Logger.Zerolog()
			failed := false
			for _, path := range args {
				// A throwaway registry applies the same structural
				// checks evaluate does, not just the file decode.
				registry := rules.NewEmptyRegistry(logger)
				if err := registry.LoadPaths(cmd.Context(), []string{path}); err != nil {
					failed = true
					fmt.Fprintf(os.Stdout, "%s %s: %v\n", red("INVALID"), path, err)
					continue
				}
				fmt.Fprintf(os.Stdout, "%s %s: %d rules\n", green("OK"), path, registry.Len())
			}
			if failed {
				return exitWith(ExitFail, nil)
			}
			return nil
		},
	}
}
