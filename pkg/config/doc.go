// Package config provides CUE configuration parsing for the polcheck
// tool.
//
// # Overview
//
// The config package loads the tool configuration from a CUE file,
// validates it against a built-in CUE schema, and fills defaults for
// every field the file does not set. It also hosts the schema registry
// used to validate rule files before they reach the rule registry.
//
// # Usage Example
//
//	loader := config.NewLoader()
//
//	cfg, err := loader.Load(ctx, "polcheck.cue")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// A typical configuration:
//
//	rules: {
//	    paths: ["./rules"]
//	}
//	evaluation: {
//	    dialect: "terraform-hcl"
//	    max_depth: 64
//	}
//	report: {
//	    format: "text"
//	    scoring: "rubric"
//	}
//
// # Error Handling
//
// Parsing and validation errors carry the CUE source position of the
// offending field, so a misconfigured file points at the exact line.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package config
