package rules

// BuiltinRules returns the baseline rules every registry starts with.
// They cover the most common hardening requirements for the supported
// dialects; rule files can extend or replace them by id.
func BuiltinRules() []Rule {
	return []Rule{
		bucketEncryptionRule(),
		bucketPublicACLRule(),
		podPrivilegedRule(),
		podRunAsNonRootRule(),
		serviceTypeRule(),
		regoDefaultDenyRule(),
	}
}

// bucketEncryptionRule requires server-side encryption on object
// storage buckets.
func bucketEncryptionRule() Rule {
	return Rule{
		ID:          "bucket-encryption",
		Description: "Object storage buckets must encrypt at rest with AES256",
		Kind:        "aws_s3_bucket",
		Tags:        []string{"storage", "encryption"},
		Required: []Condition{
			{Path: "server_side_encryption_configuration.rule.apply_server_side_encryption_by_default.sse_algorithm", Equals: "AES256"},
		},
	}
}

// bucketPublicACLRule forbids public bucket ACLs.
func bucketPublicACLRule() Rule {
	return Rule{
		ID:          "bucket-no-public-acl",
		Description: "Object storage buckets must not use public ACLs",
		Kind:        "aws_s3_bucket",
		Tags:        []string{"storage", "access"},
		Required: []Condition{
			{Path: "acl", OneOf: []interface{}{"private", "log-delivery-write"}},
		},
		Forbidden: []Override{
			{Path: "force_destroy", Equals: true},
		},
	}
}

// podPrivilegedRule forbids privileged containers anywhere in a pod spec.
func podPrivilegedRule() Rule {
	return Rule{
		ID:          "pod-no-privileged",
		Description: "Pods must not run privileged containers",
		Kind:        "Pod",
		Tags:        []string{"kubernetes", "security-context"},
		Required: []Condition{
			{
				Path: "spec.containers",
				Starlark: `all([not c.get("securityContext", {}).get("privileged", False) for c in value])`,
			},
		},
	}
}

// podRunAsNonRootRule requires pods to declare a non-root security context.
func podRunAsNonRootRule() Rule {
	return Rule{
		ID:          "pod-run-as-non-root",
		Description: "Pods must set spec.securityContext.runAsNonRoot",
		Kind:        "Pod",
		Tags:        []string{"kubernetes", "security-context"},
		Required: []Condition{
			{Path: "spec.securityContext.runAsNonRoot", Equals: true},
		},
	}
}

// serviceTypeRule flags externally exposed services. Optional because
// exposure is sometimes intended; the verdict informs without blocking.
func serviceTypeRule() Rule {
	return Rule{
		ID:          "service-internal-type",
		Description: "Services should prefer cluster-internal types",
		Kind:        "Service",
		Optional:    true,
		Tags:        []string{"kubernetes", "exposure"},
		Required: []Condition{
			{Path: "spec.type", OneOf: []interface{}{"ClusterIP", "NodePort"}},
		},
	}
}

// regoDefaultDenyRule requires rego access-control packages to carry an
// explicit deny rule. The rego predicate runs against the package
// resource the parser emits for each module.
func regoDefaultDenyRule() Rule {
	return Rule{
		ID:          "rego-default-deny",
		Description: "Rego policy packages must define a deny rule",
		Kind:        "package",
		Tags:        []string{"rego", "defaults"},
		Required: []Condition{
			{
				Path: "rules",
				Rego: `package polcheck.checks.defaultdeny

import rego.v1

deny contains msg if {
	not input.fields.rules.deny
	msg := sprintf("package %s has no deny rule", [input.fields.path])
}
`,
			},
		},
	}
}
