package parser

import (
	"context"
	"fmt"
)

// Parse converts a policy document into its normalized resource sequence.
// It is a pure function of its inputs: re-parsing identical content yields
// an identical sequence, so callers may restart or repeat parses freely.
//
// The returned resources carry per-kind ordinals assigned in document
// order. A document that nests fields deeper than opts.MaxDepth is
// rejected with a SyntaxError rather than consuming unbounded memory.
func Parse(ctx context.Context, doc Document, dialect Dialect, opts Options) ([]Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		resources []Resource
		err       error
	)
	switch dialect {
	case DialectTerraformHCL:
		resources, err = parseHCL(doc)
	case DialectKubernetesYAML:
		resources, err = parseKubernetesYAML(doc)
	case DialectRego:
		resources, err = parseRego(doc)
	default:
		return nil, &UnsupportedDialectError{Dialect: string(dialect)}
	}
	if err != nil {
		return nil, err
	}

	// Assign per-kind ordinals in document order. The comparator relies
	// on these when resources carry no name.
	ordinals := make(map[string]int)
	for i := range resources {
		resources[i].Ordinal = ordinals[resources[i].Kind]
		ordinals[resources[i].Kind]++
		if resources[i].Source.File == "" {
			resources[i].Source.File = doc.Name
		}
	}

	maxDepth := opts.maxDepth()
	for i := range resources {
		if depth := fieldDepth(resources[i].Fields, 1); depth > maxDepth {
			return nil, &SyntaxError{
				File:    doc.Name,
				Line:    resources[i].Source.Line,
				Column:  resources[i].Source.Column,
				Message: fmt.Sprintf("resource %s nests %d levels deep, limit is %d", resources[i].Ref(), depth, maxDepth),
			}
		}
	}

	return resources, nil
}

// fieldDepth computes the nesting depth of a field tree.
func fieldDepth(v interface{}, depth int) int {
	max := depth
	switch val := v.(type) {
	case map[string]interface{}:
		for _, child := range val {
			if d := fieldDepth(child, depth+1); d > max {
				max = d
			}
		}
	case []interface{}:
		for _, child := range val {
			if d := fieldDepth(child, depth+1); d > max {
				max = d
			}
		}
	}
	return max
}
