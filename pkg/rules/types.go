package rules

import (
	"fmt"
	"strings"
)

// CurrentVersion is the rule file format version this build understands.
const CurrentVersion = 1

// File is the on-disk shape of a rule definition file.
type File struct {
	// Version is the rule file format version. Must be CurrentVersion.
	Version int `yaml:"version" json:"version"`

	// Rules are the rule definitions in the file.
	Rules []Rule `yaml:"rules" json:"rules"`
}

// Rule is a single machine-checkable compliance requirement. Rules are
// immutable once loaded into a registry.
type Rule struct {
	// ID uniquely identifies the rule.
	ID string `yaml:"id" json:"id" validate:"required"`

	// Description is the human-readable requirement statement.
	Description string `yaml:"description" json:"description"`

	// Kind is the resource kind this rule applies to. Resources of any
	// other kind are never evaluated against it.
	Kind string `yaml:"kind" json:"kind" validate:"required"`

	// Optional marks the rule as non-blocking: its verdicts are reported
	// but do not affect the overall report outcome. Used for reviewer
	// judgment categories that cannot be mechanized strictly.
	Optional bool `yaml:"optional" json:"optional,omitempty"`

	// Required lists field conditions that must all hold for a pass.
	// An absent required field is a fail, never an implicit pass.
	Required []Condition `yaml:"required" json:"required,omitempty" validate:"dive"`

	// Forbidden lists override paths whose presence (with a disabling
	// value) fails the rule regardless of the required conditions.
	Forbidden []Override `yaml:"forbidden" json:"forbidden,omitempty" validate:"dive"`

	// Tags are labels for organizing rules.
	Tags []string `yaml:"tags" json:"tags,omitempty"`
}

// Condition is a predicate over a single field path. Exactly one
// predicate form may be set; a condition with only a path asserts
// presence.
type Condition struct {
	// Path is the dotted field path the predicate applies to.
	Path string `yaml:"path" json:"path" validate:"required"`

	// Equals requires the observed value to equal this value.
	Equals interface{} `yaml:"equals" json:"equals,omitempty"`

	// OneOf requires the observed value to equal one of these values.
	OneOf []interface{} `yaml:"one_of" json:"one_of,omitempty"`

	// Pattern requires the observed value's string form to match this
	// regular expression.
	Pattern string `yaml:"pattern" json:"pattern,omitempty"`

	// Starlark is a Starlark expression evaluated with the observed
	// value bound to `value` and the resource field tree to `fields`.
	// It must produce a bool.
	Starlark string `yaml:"starlark" json:"starlark,omitempty"`

	// Rego is an inline Rego module whose deny set is evaluated with
	// the resource as input. An empty deny set satisfies the condition.
	Rego string `yaml:"rego" json:"rego,omitempty"`
}

// predicateCount returns how many predicate forms the condition sets.
func (c Condition) predicateCount() int {
	n := 0
	if c.Equals != nil {
		n++
	}
	if len(c.OneOf) > 0 {
		n++
	}
	if c.Pattern != "" {
		n++
	}
	if c.Starlark != "" {
		n++
	}
	if c.Rego != "" {
		n++
	}
	return n
}

// Describe renders the predicate for report recommendations, e.g.
// `== "AES256"` or `present`.
func (c Condition) Describe() string {
	switch {
	case c.Equals != nil:
		return fmt.Sprintf("== %s", formatValue(c.Equals))
	case len(c.OneOf) > 0:
		parts := make([]string, 0, len(c.OneOf))
		for _, v := range c.OneOf {
			parts = append(parts, formatValue(v))
		}
		return fmt.Sprintf("one of [%s]", strings.Join(parts, ", "))
	case c.Pattern != "":
		return fmt.Sprintf("matching /%s/", c.Pattern)
	case c.Starlark != "":
		return "starlark predicate"
	case c.Rego != "":
		return "rego predicate"
	default:
		return "present"
	}
}

// Override is a forbidden override path. A resource that sets the path
// to the disabling value fails the rule even when every required
// condition holds.
type Override struct {
	// Path is the dotted field path of the override.
	Path string `yaml:"path" json:"path" validate:"required"`

	// Equals is the value that disables enforcement. When nil, any
	// present value at the path counts as an override.
	Equals interface{} `yaml:"equals" json:"equals,omitempty"`
}

// Describe renders the override for report recommendations.
func (o Override) Describe() string {
	if o.Equals == nil {
		return "absent"
	}
	return fmt.Sprintf("!= %s", formatValue(o.Equals))
}

func formatValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
