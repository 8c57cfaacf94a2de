package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the policy document language a parser understands.
type Dialect string

const (
	// DialectTerraformHCL parses Terraform HCL documents.
	DialectTerraformHCL Dialect = "terraform-hcl"

	// DialectKubernetesYAML parses Kubernetes YAML manifests (multi-document).
	DialectKubernetesYAML Dialect = "kubernetes-yaml"

	// DialectRego parses Rego policy modules.
	DialectRego Dialect = "rego"
)

// Dialects returns the recognized dialects in stable order.
func Dialects() []Dialect {
	return []Dialect{DialectTerraformHCL, DialectKubernetesYAML, DialectRego}
}

// ParseDialect converts a dialect selector string into a Dialect.
// It returns an UnsupportedDialectError for anything outside the
// recognized set.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Dialects() {
		if d == known {
			return d, nil
		}
	}
	return "", &UnsupportedDialectError{Dialect: s}
}

// Location is a position in a source document, used for evidence in reports.
type Location struct {
	// File is the document name the resource was parsed from.
	File string `json:"file"`

	// Line is the 1-based line of the resource's opening construct.
	Line int `json:"line,omitempty"`

	// Column is the 1-based column of the resource's opening construct.
	Column int `json:"column,omitempty"`
}

// String renders the location as file:line:column.
func (l Location) String() string {
	if l.Line == 0 {
		return l.File
	}
	if l.Column == 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Resource is a normalized resource instance extracted from a policy
// document. Resources are read-only after parsing.
type Resource struct {
	// Kind is the resource kind (e.g. "aws_s3_bucket", "Deployment", "rule").
	Kind string `json:"kind"`

	// Name is the resource name when the dialect provides one.
	Name string `json:"name,omitempty"`

	// Ordinal is the position of this resource among resources of the
	// same kind within the document, starting at zero.
	Ordinal int `json:"ordinal"`

	// Fields is the nested field tree of the resource.
	Fields map[string]interface{} `json:"fields"`

	// Source is where the resource was found.
	Source Location `json:"source"`
}

// Lookup resolves a dotted field path against the resource's field tree.
// Map keys are matched literally; numeric segments index into lists.
// The second return value reports whether the path was present.
func (r *Resource) Lookup(path string) (interface{}, bool) {
	var current interface{} = r.Fields
	for _, seg := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Ref returns a short human-readable reference for the resource.
func (r *Resource) Ref() string {
	if r.Name != "" {
		return fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s[%d]", r.Kind, r.Ordinal)
}

// Document is a policy document to be parsed.
type Document struct {
	// Name identifies the document in locations, typically a file path.
	Name string

	// Content is the raw document text.
	Content []byte
}

// DefaultMaxDepth bounds field tree nesting for pathological documents.
const DefaultMaxDepth = 64

// Options tunes parsing behavior.
type Options struct {
	// MaxDepth is the maximum allowed field nesting depth.
	// Zero means DefaultMaxDepth.
	MaxDepth int
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}
