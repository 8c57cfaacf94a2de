package rules

import (
	"context"
	"fmt"

	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Registry holds the loaded compliance rules. It starts out with the
// built-in baseline rules and can be extended from rule files. Lookups
// are safe for concurrent use with loads.
type Registry struct {
	mu       sync.RWMutex
	rules    map[string]Rule
	order    []string
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewRegistry creates a registry pre-loaded with the built-in rules.
func NewRegistry(logger zerolog.Logger) (*Registry, error) {
	r := NewEmptyRegistry(logger)

	for _, rule := range BuiltinRules() {
		if err := r.Add(rule); err != nil {
			return nil, fmt.Errorf("failed to load built-in rule %s: %w", rule.ID, err)
		}
	}

	r.logger.Debug().
		Int("count", len(r.order)).
		Msg("Built-in rules loaded")

	return r, nil
}

// NewEmptyRegistry creates a registry without the built-in rules.
func NewEmptyRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		rules:    make(map[string]Rule),
		order:    make([]string, 0),
		logger:   logger.With().Str("component", "rule-registry").Logger(),
		validate: validator.New(),
	}
}

// Add validates a rule and stores it. A rule with an id already present
// replaces the previous definition.
func (r *Registry) Add(rule Rule) error {
	if err := r.checkRule(rule); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rules[rule.ID]; !exists {
		r.order = append(r.order, rule.ID)
	} else {
		r.logger.Debug().Str("rule", rule.ID).Msg("Rule replaced")
	}
	r.rules[rule.ID] = rule
	return nil
}

// Get returns the rule with the given id, or NotFoundError.
func (r *Registry) Get(id string) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[id]
	if !exists {
		return Rule{}, &NotFoundError{ID: id}
	}
	return rule, nil
}

// List returns all rules in load order.
func (r *Registry) List() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// Len returns the number of loaded rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// LoadPaths loads rule files from the given file or directory paths into
// the registry. The whole batch is validated before any rule is stored,
// so a malformed file never leaves the registry partially updated.
func (r *Registry) LoadPaths(ctx context.Context, paths []string) error {
	loader := NewLoader(r.logger)
	loaded, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return err
	}

	for _, lr := range loaded {
		if err := r.checkRule(lr.Rule); err != nil {
			return err
		}
	}

	for _, lr := range loaded {
		if err := r.Add(lr.Rule); err != nil {
			return err
		}
	}

	r.logger.Info().
		Int("loaded", len(loaded)).
		Int("total", r.Len()).
		Msg("Rules loaded")

	return nil
}

// checkRule enforces the structural invariants on a rule definition.
func (r *Registry) checkRule(rule Rule) error {
	if err := r.validate.Struct(rule); err != nil {
		return &MalformedRuleError{
			RuleID:  rule.ID,
			Message: "missing required fields",
			Err:     err,
		}
	}

	if len(rule.Required) == 0 && len(rule.Forbidden) == 0 {
		return &MalformedRuleError{
			RuleID:  rule.ID,
			Message: "rule declares neither required conditions nor forbidden overrides",
		}
	}

	for i, cond := range rule.Required {
		if cond.predicateCount() > 1 {
			return &MalformedRuleError{
				RuleID:  rule.ID,
				Message: fmt.Sprintf("required[%d] at %s sets more than one predicate form", i, cond.Path),
			}
		}
	}

	return nil
}
