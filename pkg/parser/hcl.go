package parser

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// parseHCL extracts resources from a Terraform HCL document. Each
// top-level block becomes one resource: "resource" and "data" blocks
// take their kind from the first label and their name from the second,
// every other block type (provider, variable, module, ...) uses the
// block type as kind and the first label, if any, as name.
func parseHCL(doc Document) ([]Resource, error) {
	file, diags := hclparse.NewParser().ParseHCL(doc.Content, doc.Name)
	if diags.HasErrors() {
		return nil, syntaxErrorFromDiags(doc.Name, diags)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, &SyntaxError{File: doc.Name, Message: "document is not native HCL syntax"}
	}

	resources := make([]Resource, 0, len(body.Blocks))
	for _, block := range body.Blocks {
		kind, name := hclBlockIdentity(block)

		res := Resource{
			Kind:   kind,
			Name:   name,
			Fields: flattenHCLBody(block.Body, doc.Content),
			Source: Location{
				File:   doc.Name,
				Line:   block.TypeRange.Start.Line,
				Column: block.TypeRange.Start.Column,
			},
		}
		resources = append(resources, res)
	}

	return resources, nil
}

// hclBlockIdentity derives the resource kind and name from a block header.
func hclBlockIdentity(block *hclsyntax.Block) (kind, name string) {
	switch block.Type {
	case "resource":
		if len(block.Labels) >= 2 {
			return block.Labels[0], block.Labels[1]
		}
		if len(block.Labels) == 1 {
			return block.Labels[0], ""
		}
	case "data":
		if len(block.Labels) >= 2 {
			return "data." + block.Labels[0], block.Labels[1]
		}
		if len(block.Labels) == 1 {
			return "data." + block.Labels[0], ""
		}
	}
	if len(block.Labels) > 0 {
		return block.Type, block.Labels[0]
	}
	return block.Type, ""
}

// flattenHCLBody converts a block body into a nested field map.
// Attribute expressions that cannot be statically evaluated (variable
// references, function calls) keep their raw source text so rules can
// still match on them.
func flattenHCLBody(body *hclsyntax.Body, src []byte) map[string]interface{} {
	fields := make(map[string]interface{}, len(body.Attributes)+len(body.Blocks))

	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || !val.IsWhollyKnown() {
			fields[name] = rawExprText(attr.Expr, src)
			continue
		}
		fields[name] = ctyToGo(val)
	}

	for _, block := range body.Blocks {
		child := flattenHCLBody(block.Body, src)
		key := block.Type
		// Labeled nested blocks nest one level per label, so
		// `rule "deny" {}` lands at fields["rule"]["deny"].
		for i := len(block.Labels) - 1; i >= 0; i-- {
			child = map[string]interface{}{block.Labels[i]: child}
		}
		insertNested(fields, key, child)
	}

	return fields
}

// insertNested merges a nested block value into the field map. A repeated
// block type turns the entry into a list, preserving document order.
func insertNested(fields map[string]interface{}, key string, value interface{}) {
	existing, ok := fields[key]
	if !ok {
		fields[key] = value
		return
	}
	if list, isList := existing.([]interface{}); isList {
		fields[key] = append(list, value)
		return
	}
	fields[key] = []interface{}{existing, value}
}

// rawExprText returns the source text of an expression.
func rawExprText(expr hclsyntax.Expression, src []byte) string {
	rng := expr.Range()
	if rng.Start.Byte < 0 || rng.End.Byte > len(src) || rng.Start.Byte >= rng.End.Byte {
		return ""
	}
	return strings.TrimSpace(string(src[rng.Start.Byte:rng.End.Byte]))
}

// ctyToGo converts a cty value into plain Go values for the field tree.
func ctyToGo(v cty.Value) interface{} {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}

	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString()
	case t == cty.Bool:
		return v.True()
	case t == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
		f, _ := bf.Float64()
		return f
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		out := make([]interface{}, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ctyToGo(ev))
		}
		return out
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]interface{})
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			out[kv.AsString()] = ctyToGo(ev)
		}
		return out
	default:
		return fmt.Sprintf("%v", v.GoString())
	}
}

// syntaxErrorFromDiags converts HCL diagnostics into a SyntaxError
// positioned at the first error.
func syntaxErrorFromDiags(file string, diags hcl.Diagnostics) *SyntaxError {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		se := &SyntaxError{File: file, Message: d.Summary, Err: diags}
		if d.Detail != "" {
			se.Message = fmt.Sprintf("%s: %s", d.Summary, d.Detail)
		}
		if d.Subject != nil {
			se.Line = d.Subject.Start.Line
			se.Column = d.Subject.Start.Column
		}
		return se
	}
	return &SyntaxError{File: file, Message: diags.Error(), Err: diags}
}
