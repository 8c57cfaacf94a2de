package rules

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestNewRegistry_LoadsBuiltins(t *testing.T) {
	registry, err := NewRegistry(testLogger())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	expected := []string{
		"bucket-encryption",
		"bucket-no-public-acl",
		"pod-no-privileged",
		"pod-run-as-non-root",
		"service-internal-type",
		"rego-default-deny",
	}

	for _, id := range expected {
		if _, err := registry.Get(id); err != nil {
			t.Errorf("Expected built-in rule %s: %v", id, err)
		}
	}
	if registry.Len() != len(expected) {
		t.Errorf("Expected %d built-in rules, got %d", len(expected), registry.Len())
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	registry, err := NewRegistry(testLogger())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	_, err = registry.Get("no-such-rule")
	if err == nil {
		t.Fatal("Expected error for unknown rule id")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError, got %T", err)
	}
	if nf.ID != "no-such-rule" {
		t.Errorf("Expected id in error, got %s", nf.ID)
	}
}

func TestRegistry_AddMalformed(t *testing.T) {
	registry, err := NewRegistry(testLogger())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	tests := []struct {
		name string
		rule Rule
	}{
		{
			name: "missing id",
			rule: Rule{Kind: "bucket", Required: []Condition{{Path: "acl"}}},
		},
		{
			name: "missing kind",
			rule: Rule{ID: "r1", Required: []Condition{{Path: "acl"}}},
		},
		{
			name: "no conditions at all",
			rule: Rule{ID: "r2", Kind: "bucket"},
		},
		{
			name: "condition without path",
			rule: Rule{ID: "r3", Kind: "bucket", Required: []Condition{{Equals: "x"}}},
		},
		{
			name: "two predicate forms on one condition",
			rule: Rule{ID: "r4", Kind: "bucket", Required: []Condition{
				{Path: "acl", Equals: "private", Pattern: "^p"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Add(tt.rule)
			if !IsMalformed(err) {
				t.Fatalf("Expected MalformedRuleError, got %v", err)
			}
		})
	}
}

func TestRegistry_AddReplacesById(t *testing.T) {
	registry, err := NewRegistry(testLogger())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	before := registry.Len()

	replacement := Rule{
		ID:          "bucket-encryption",
		Description: "tightened",
		Kind:        "aws_s3_bucket",
		Required:    []Condition{{Path: "encryption.algorithm", Equals: "aws:kms"}},
	}
	if err := registry.Add(replacement); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if registry.Len() != before {
		t.Errorf("Replacement should not grow the registry: %d -> %d", before, registry.Len())
	}
	got, err := registry.Get("bucket-encryption")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Description != "tightened" {
		t.Errorf("Expected replaced rule, got %q", got.Description)
	}
}

func TestConditionDescribe(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{name: "equals string", cond: Condition{Path: "a", Equals: "AES256"}, want: `== "AES256"`},
		{name: "equals bool", cond: Condition{Path: "a", Equals: true}, want: "== true"},
		{name: "one of", cond: Condition{Path: "a", OneOf: []interface{}{"x", "y"}}, want: `one of ["x", "y"]`},
		{name: "pattern", cond: Condition{Path: "a", Pattern: "^v[0-9]+$"}, want: "matching /^v[0-9]+$/"},
		{name: "starlark", cond: Condition{Path: "a", Starlark: "value > 1"}, want: "starlark predicate"},
		{name: "rego", cond: Condition{Path: "a", Rego: "package x"}, want: "rego predicate"},
		{name: "presence only", cond: Condition{Path: "a"}, want: "present"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Describe(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
