package parser

import (
	"context"
	"testing"
)

const sampleRego = `package example.authz

import data.common

default allow := false

allow if {
	input.user == "admin"
}

deny contains msg if {
	input.user == "anonymous"
	msg := "anonymous access is not permitted"
}
`

func TestParseRego_ModernSyntaxWithoutImport(t *testing.T) {
	// `if` and `contains` keywords must parse without an explicit
	// `import rego.v1` line.
	src := `package example

allow if {
	input.user == "admin"
}
`
	doc := Document{Name: "allow.rego", Content: []byte(src)}

	resources, err := Parse(context.Background(), doc, DialectRego, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("Expected package + rule, got %d resources", len(resources))
	}
	if resources[1].Name != "allow" {
		t.Errorf("Expected rule allow, got %s", resources[1].Name)
	}
}

func TestParseRego_ModuleAndRules(t *testing.T) {
	doc := Document{Name: "authz.rego", Content: []byte(sampleRego)}

	resources, err := Parse(context.Background(), doc, DialectRego, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if resources[0].Kind != "package" {
		t.Fatalf("Expected first resource to be the package, got %s", resources[0].Kind)
	}
	pkg := resources[0]
	if pkg.Name != "data.example.authz" {
		t.Errorf("Expected package data.example.authz, got %s", pkg.Name)
	}
	if path, ok := pkg.Lookup("path"); !ok || path != "data.example.authz" {
		t.Errorf("Expected path field, got %v (present=%v)", path, ok)
	}
	if _, ok := pkg.Lookup("rules.allow"); !ok {
		t.Error("Expected rules.allow entry in package resource")
	}
	if _, ok := pkg.Lookup("rules.deny"); !ok {
		t.Error("Expected rules.deny entry in package resource")
	}

	var ruleNames []string
	var sawDefault bool
	for _, r := range resources[1:] {
		if r.Kind != "rule" {
			t.Errorf("Expected rule kind, got %s", r.Kind)
			continue
		}
		ruleNames = append(ruleNames, r.Name)
		if def, ok := r.Lookup("default"); ok && def == true {
			sawDefault = true
		}
	}
	if len(ruleNames) != 3 {
		t.Errorf("Expected 3 rego rules, got %d: %v", len(ruleNames), ruleNames)
	}
	if !sawDefault {
		t.Error("Expected the default allow rule to be flagged as default")
	}
}

func TestParseRego_SyntaxError(t *testing.T) {
	doc := Document{Name: "broken.rego", Content: []byte("package x\n\nallow if {")}

	_, err := Parse(context.Background(), doc, DialectRego, Options{})
	if !IsSyntaxError(err) {
		t.Fatalf("Expected SyntaxError, got %v", err)
	}
	se := err.(*SyntaxError)
	if se.Line == 0 {
		t.Error("Expected position annotation from the rego parser")
	}
}

func TestParseRego_Deterministic(t *testing.T) {
	doc := Document{Name: "authz.rego", Content: []byte(sampleRego)}

	first, err := Parse(context.Background(), doc, DialectRego, Options{})
	if err != nil {
		t.Fatalf("First parse failed: %v", err)
	}
	second, err := Parse(context.Background(), doc, DialectRego, Options{})
	if err != nil {
		t.Fatalf("Second parse failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Parse count differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Ref() != second[i].Ref() {
			t.Errorf("Resource %d differs: %s vs %s", i, first[i].Ref(), second[i].Ref())
		}
	}
}
