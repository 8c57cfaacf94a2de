// Package parser converts policy documents into normalized resource trees.
//
// Three dialects are recognized: Terraform HCL, Kubernetes YAML, and Rego.
// Regardless of dialect, the output is a flat sequence of Resource values,
// each carrying a kind, an optional name, a nested field map, and the
// source location of the construct it was parsed from. That normalized
// shape is what the evaluator walks when checking compliance rules.
//
// Parsing is deterministic and side-effect free. The same document text
// always produces the same resource sequence, so parses can be repeated
// or run concurrently for independent documents without coordination.
//
// # Usage
//
// Parsing a Terraform document:
//
//	doc := parser.Document{Name: "main.tf", Content: content}
//	resources, err := parser.Parse(ctx, doc, parser.DialectTerraformHCL, parser.Options{})
//	if err != nil {
//	    var se *parser.SyntaxError
//	    if errors.As(err, &se) {
//	        fmt.Printf("%s:%d: %s\n", se.File, se.Line, se.Message)
//	    }
//	    return err
//	}
//
// Resolving a field path against a resource:
//
//	if val, ok := resources[0].Lookup("encryption.algorithm"); ok {
//	    fmt.Println(val)
//	}
//
// # Dialect mapping
//
//   - terraform-hcl: each top-level block is one resource. "resource" and
//     "data" blocks take kind and name from their labels; other blocks use
//     the block type as kind. Nested blocks become nested field maps,
//     repeated nested blocks become lists.
//   - kubernetes-yaml: each YAML document in the stream is one resource,
//     kind and name from the object's kind and metadata.name.
//   - rego: the module is one resource of kind "package"; every rego rule
//     is one resource of kind "rule".
//
// Documents nesting deeper than Options.MaxDepth are rejected with a
// SyntaxError to bound memory and time on pathological input.
package parser
