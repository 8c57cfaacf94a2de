// Package rules provides the compliance rule registry.
//
// A Rule binds a target resource kind to a set of required field
// conditions and forbidden override paths. Rules are defined in YAML or
// JSON files (see File for the on-disk shape), validated on load with
// go-playground/validator, and held immutably in a Registry. A built-in
// baseline set is always present; rule files layer on top of it.
//
// Loading a registry:
//
//	registry, err := rules.NewRegistry(logger)
//	if err != nil {
//	    return err
//	}
//	if err := registry.LoadPaths(ctx, []string{"./rules"}); err != nil {
//	    // *MalformedRuleError on bad definitions; the registry is
//	    // never left partially updated.
//	    return err
//	}
//
// Rule files look like:
//
//	version: 1
//	rules:
//	  - id: bucket-encryption
//	    description: Buckets must encrypt at rest
//	    kind: aws_s3_bucket
//	    required:
//	      - path: encryption.algorithm
//	        equals: AES256
//	    forbidden:
//	      - path: encryption.disabled
//	        equals: true
//
// The Loader also supports watching rule paths with fsnotify so
// long-running commands can pick up edits without restarting.
package rules
