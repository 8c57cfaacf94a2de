package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// LoadedRule is a rule together with the file it was defined in, kept
// for error attribution.
type LoadedRule struct {
	Rule Rule
	File string
}

// Loader reads rule definition files from disk.
type Loader struct {
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
}

// NewLoader creates a new rule loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "rule-loader").Logger(),
	}
}

// LoadFromPaths loads rules from a list of file or directory paths.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]LoadedRule, error) {
	var all []LoadedRule

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loaded, err := l.loadFromPath(path)
		if err != nil {
			return nil, err
		}
		all = append(all, loaded...)
	}

	l.logger.Debug().
		Int("total", len(all)).
		Int("sources", len(paths)).
		Msg("Rules loaded from paths")

	return all, nil
}

// loadFromPath loads rules from a single path (file or directory).
func (l *Loader) loadFromPath(path string) ([]LoadedRule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return l.loadFromDirectory(path)
	}
	return l.loadFromFile(path)
}

// loadFromDirectory loads all rule files from a directory recursively.
func (l *Loader) loadFromDirectory(dirPath string) ([]LoadedRule, error) {
	var all []LoadedRule

	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isRuleFile(path) {
			return nil
		}

		loaded, err := l.loadFromFile(path)
		if err != nil {
			return err
		}
		all = append(all, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return all, nil
}

// loadFromFile loads rules from a single definition file.
func (l *Loader) loadFromFile(path string) ([]LoadedRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	var file File
	switch {
	case strings.HasSuffix(path, ".json"):
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, &MalformedRuleError{File: path, Message: "invalid JSON", Err: err}
		}
	default:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, &MalformedRuleError{File: path, Message: "invalid YAML", Err: err}
		}
	}

	if file.Version != CurrentVersion {
		return nil, &MalformedRuleError{
			File:    path,
			Message: fmt.Sprintf("unsupported rule file version %d (want %d)", file.Version, CurrentVersion),
		}
	}
	if len(file.Rules) == 0 {
		return nil, &MalformedRuleError{File: path, Message: "file defines no rules"}
	}

	loaded := make([]LoadedRule, 0, len(file.Rules))
	for _, rule := range file.Rules {
		loaded = append(loaded, LoadedRule{Rule: rule, File: path})
	}

	l.logger.Debug().
		Str("path", path).
		Int("rules", len(loaded)).
		Msg("Rule file loaded")

	return loaded, nil
}

// isRuleFile reports whether a path looks like a rule definition file.
func isRuleFile(path string) bool {
	return strings.HasSuffix(path, ".yaml") ||
		strings.HasSuffix(path, ".yml") ||
		strings.HasSuffix(path, ".json")
}

// Watch watches rule paths and invokes reloadFn with freshly loaded
// rules whenever a rule file changes. Events are debounced so editors
// that write multiple times per save trigger a single reload.
func (l *Loader) Watch(ctx context.Context, paths []string, reloadFn func([]LoadedRule) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	l.watcher = watcher

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to stat path for watching")
			continue
		}
		if info.IsDir() {
			if err := watcher.Add(path); err != nil {
				l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch directory")
			}
		} else if err := watcher.Add(path); err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch file")
		}
	}

	go l.processEvents(ctx, paths, reloadFn)

	l.logger.Info().
		Int("paths", len(paths)).
		Msg("Started watching rule paths")

	return nil
}

// processEvents processes file system events and triggers reloads.
func (l *Loader) processEvents(ctx context.Context, paths []string, reloadFn func([]LoadedRule) error) {
	var reloadTimer *time.Timer
	const reloadDelay = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			_ = l.watcher.Close()
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isRuleFile(event.Name) {
				continue
			}

			l.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Rule file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				loaded, err := l.LoadFromPaths(ctx, paths)
				if err != nil {
					l.logger.Error().Err(err).Msg("Failed to reload rules")
					return
				}
				if err := reloadFn(loaded); err != nil {
					l.logger.Error().Err(err).Msg("Failed to apply reloaded rules")
				}
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// StopWatching stops watching for file changes.
func (l *Loader) StopWatching() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
