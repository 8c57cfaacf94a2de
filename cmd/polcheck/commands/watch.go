package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/polcheck/polcheck/pkg/config"
	"github.com/polcheck/polcheck/pkg/telemetry"
)

// watchDebounce coalesces editor save bursts into one re-evaluation.
const watchDebounce = 500 * time.Millisecond

func newWatchCommand() *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "watch <rules-file> <policy-file>",
		Short: "Re-evaluate a policy whenever it or its rules change",
		Long: `Watch evaluates the policy once, then keeps watching the rules file and
the policy file for changes and re-evaluates on every save. The policy
file must be a local path.

Watch never exits with the report outcome; stop it with Ctrl-C.`,
		Example: `  polcheck watch rules.yaml main.tf --dialect=terraform-hcl`,
		Args:    cobra.ExactArgs(2),
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

			if cfg.Telemetry.MetricsEnabled {
				if err := tel.Metrics.StartMetricsServer(); err != nil {
					return exitWith(ExitError, err)
				}
			}

			return runWatch(ctx, tel, cfg, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dialect, "dialect", "d", "", "policy dialect (terraform-hcl, kubernetes-yaml, rego)")
	cmd.Flags().StringVar(&opts.reference, "reference", "", "reference policy file to compare against")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "report format (json, text)")
	cmd.Flags().StringVar(&opts.scoring, "scoring", "", "scoring strategy (binary, rubric)")

	return cmd
}

func runWatch(ctx context.Context, tel *telemetry.Telemetry, cfg *config.Config, rulesFile, policyFile string, opts evaluateOptions) error {
	logger := tel.Logger.Zerolog()

	runOnce := func() {
		r, err := evaluateOnce(ctx, tel, cfg, rulesFile, []string{policyFile}, opts)
		if err != nil {
			logger.Error().Err(err).Msg("Evaluation failed")
			return
		}
		if err := renderReport(cfg, opts, r); err != nil {
			logger.Error().Err(err).Msg("Failed to render report")
		}
	}

	runOnce()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return exitWith(ExitError, fmt.Errorf("failed to create watcher: %w", err))
	}
	defer func() { _ = watcher.Close() }()

	// Watch parent directories so atomic saves (write to temp, rename
	// over the original) still produce events.
	watched := map[string]bool{}
	for _, path := range []string{rulesFile, policyFile} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return exitWith(ExitError, err)
		}
		watched[abs] = true
		if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
			if err := watcher.Add(abs); err != nil {
				return exitWith(ExitError, fmt.Errorf("failed to watch %s: %w", path, err))
			}
			continue
		}
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return exitWith(ExitError, fmt.Errorf("failed to watch %s: %w", path, err))
		}
	}

	logger.Info().
		Str("rules", rulesFile).
		Str("policy", policyFile).
		Msg("Watching for changes")

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if !watched[abs] && !watched[filepath.Dir(abs)] {
				continue
			}

			logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("File changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, runOnce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("Watcher error")
		}
	}
}
