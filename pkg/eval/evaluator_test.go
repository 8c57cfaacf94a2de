package eval

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/polcheck/polcheck/pkg/parser"
	"github.com/polcheck/polcheck/pkg/rules"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(zerolog.New(nil).Level(zerolog.Disabled), Options{})
}

func bucketRule() rules.Rule {
	return rules.Rule{
		ID:          "bucket-encryption",
		Description: "Buckets must encrypt at rest",
		Kind:        "bucket",
		Required: []rules.Condition{
			{Path: "encryption.algorithm", Equals: "AES256"},
		},
	}
}

func bucketResource(fields map[string]interface{}) parser.Resource {
	return parser.Resource{
		Kind:   "bucket",
		Name:   "logs",
		Fields: fields,
		Source: parser.Location{File: "main.tf", Line: 1},
	}
}

func TestEvaluate_KindMismatchEmitsNoVerdict(t *testing.T) {
	e := newTestEvaluator()

	resources := []parser.Resource{
		{Kind: "queue", Name: "q", Fields: map[string]interface{}{}},
		{Kind: "topic", Name: "t", Fields: map[string]interface{}{}},
	}

	verdicts := e.Evaluate(context.Background(), resources, []rules.Rule{bucketRule()})
	if len(verdicts) != 0 {
		t.Fatalf("Expected no verdicts for non-matching kinds, got %d", len(verdicts))
	}
}

func TestEvaluateRule_KindMismatchIsNotApplicable(t *testing.T) {
	e := newTestEvaluator()

	res := parser.Resource{Kind: "queue", Fields: map[string]interface{}{}}
	v := e.EvaluateRule(context.Background(), &res, bucketRule())
	if v.Outcome != OutcomeNotApplicable {
		t.Fatalf("Expected not-applicable, got %s", v.Outcome)
	}
}

func TestEvaluate_RequiredFieldSatisfied(t *testing.T) {
	e := newTestEvaluator()

	res := bucketResource(map[string]interface{}{
		"encryption": map[string]interface{}{"algorithm": "AES256"},
	})

	verdicts := e.Evaluate(context.Background(), []parser.Resource{res}, []rules.Rule{bucketRule()})
	if len(verdicts) != 1 {
		t.Fatalf("Expected 1 verdict, got %d", len(verdicts))
	}
	v := verdicts[0]
	if v.Outcome != OutcomePass {
		t.Fatalf("Expected pass, got %s (%s)", v.Outcome, v.Observation)
	}
	if v.RuleID != "bucket-encryption" || v.Resource.Kind != "bucket" {
		t.Errorf("Verdict references wrong rule/resource: %s %s", v.RuleID, v.Resource)
	}
	if len(v.Evidence) != 1 || !v.Evidence[0].OK {
		t.Errorf("Expected one passing evidence entry, got %+v", v.Evidence)
	}
}

func TestEvaluate_AbsentRequiredFieldFails(t *testing.T) {
	e := newTestEvaluator()

	res := bucketResource(map[string]interface{}{})

	verdicts := e.Evaluate(context.Background(), []parser.Resource{res}, []rules.Rule{bucketRule()})
	if len(verdicts) != 1 {
		t.Fatalf("Expected 1 verdict, got %d", len(verdicts))
	}
	v := verdicts[0]
	if v.Outcome != OutcomeFail {
		t.Fatalf("Absent required field must fail, got %s", v.Outcome)
	}
	failing := v.FailingEvidence()
	if len(failing) != 1 {
		t.Fatalf("Expected 1 failing evidence entry, got %d", len(failing))
	}
	if !failing[0].Absent || failing[0].ObservedString() != "absent" {
		t.Errorf("Expected absent evidence, got %+v", failing[0])
	}
}

func TestEvaluate_WrongValueFails(t *testing.T) {
	e := newTestEvaluator()

	res := bucketResource(map[string]interface{}{
		"encryption": map[string]interface{}{"algorithm": "NONE"},
	})

	verdicts := e.Evaluate(context.Background(), []parser.Resource{res}, []rules.Rule{bucketRule()})
	if verdicts[0].Outcome != OutcomeFail {
		t.Fatalf("Expected fail, got %s", verdicts[0].Outcome)
	}
	if got := verdicts[0].FailingEvidence()[0].ObservedString(); got != `"NONE"` {
		t.Errorf("Expected observed \"NONE\", got %s", got)
	}
}

func TestEvaluate_ForbiddenOverrideTrumpsPass(t *testing.T) {
	e := newTestEvaluator()

	rule := rules.Rule{
		ID:   "pod-no-privileged",
		Kind: "Pod",
		Required: []rules.Condition{
			{Path: "spec.securityContext.runAsNonRoot", Equals: true},
		},
		Forbidden: []rules.Override{
			{Path: "spec.securityContext.privileged", Equals: true},
		},
	}

	res := parser.Resource{
		Kind: "Pod",
		Name: "web",
		Fields: map[string]interface{}{
			"spec": map[string]interface{}{
				"securityContext": map[string]interface{}{
					"runAsNonRoot": true,
					"privileged":   true,
				},
			},
		},
	}

	v := e.EvaluateRule(context.Background(), &res, rule)
	if v.Outcome != OutcomeFail {
		t.Fatalf("Forbidden override must fail the rule even when required conditions pass, got %s", v.Outcome)
	}
	failing := v.FailingEvidence()
	if len(failing) != 1 || failing[0].Path != "spec.securityContext.privileged" {
		t.Errorf("Expected the override in failing evidence, got %+v", failing)
	}
}

func TestEvaluate_ForbiddenOverrideAbsentIsFine(t *testing.T) {
	e := newTestEvaluator()

	rule := rules.Rule{
		ID:        "no-force-destroy",
		Kind:      "bucket",
		Required:  []rules.Condition{{Path: "acl", Equals: "private"}},
		Forbidden: []rules.Override{{Path: "force_destroy"}},
	}

	res := bucketResource(map[string]interface{}{"acl": "private"})
	if v := e.EvaluateRule(context.Background(), &res, rule); v.Outcome != OutcomePass {
		t.Fatalf("Expected pass when override absent, got %s (%s)", v.Outcome, v.Observation)
	}

	// Any present value counts when the override has no value constraint.
	res2 := bucketResource(map[string]interface{}{"acl": "private", "force_destroy": false})
	if v := e.EvaluateRule(context.Background(), &res2, rule); v.Outcome != OutcomeFail {
		t.Fatalf("Expected fail when unconstrained override present, got %s", v.Outcome)
	}
}

func TestEvaluate_OptionalFlagPropagates(t *testing.T) {
	e := newTestEvaluator()

	rule := bucketRule()
	rule.Optional = true

	res := bucketResource(map[string]interface{}{})
	v := e.EvaluateRule(context.Background(), &res, rule)
	if !v.Optional {
		t.Error("Expected optional flag on verdict")
	}
	if v.Outcome != OutcomeFail {
		t.Errorf("Optional rules still fail on absent fields, got %s", v.Outcome)
	}
}

func TestEvaluate_NumericNormalization(t *testing.T) {
	e := newTestEvaluator()

	// HCL yields int64, YAML yields int, rule files may carry either.
	rule := rules.Rule{
		ID:       "min-port",
		Kind:     "service",
		Required: []rules.Condition{{Path: "port", Equals: 8080}},
	}
	res := parser.Resource{
		Kind:   "service",
		Fields: map[string]interface{}{"port": int64(8080)},
	}

	if v := e.EvaluateRule(context.Background(), &res, rule); v.Outcome != OutcomePass {
		t.Fatalf("Expected int64(8080) == 8080, got %s", v.Outcome)
	}
}

func TestEvaluate_OneOfAndPattern(t *testing.T) {
	e := newTestEvaluator()

	rule := rules.Rule{
		ID:   "svc-shape",
		Kind: "Service",
		Required: []rules.Condition{
			{Path: "spec.type", OneOf: []interface{}{"ClusterIP", "NodePort"}},
			{Path: "metadata.name", Pattern: "^[a-z][a-z0-9-]*$"},
		},
	}

	res := parser.Resource{
		Kind: "Service",
		Fields: map[string]interface{}{
			"spec":     map[string]interface{}{"type": "ClusterIP"},
			"metadata": map[string]interface{}{"name": "web-svc"},
		},
	}
	if v := e.EvaluateRule(context.Background(), &res, rule); v.Outcome != OutcomePass {
		t.Fatalf("Expected pass, got %s (%+v)", v.Outcome, v.Evidence)
	}

	res.Fields["spec"] = map[string]interface{}{"type": "LoadBalancer"}
	if v := e.EvaluateRule(context.Background(), &res, rule); v.Outcome != OutcomeFail {
		t.Fatalf("Expected fail for LoadBalancer, got %s", v.Outcome)
	}
}

func TestEvaluateDocuments_PreservesOrder(t *testing.T) {
	e := newTestEvaluator()

	docs := [][]parser.Resource{
		{bucketResource(map[string]interface{}{"encryption": map[string]interface{}{"algorithm": "AES256"}})},
		{bucketResource(map[string]interface{}{})},
		{},
	}

	results, err := e.EvaluateDocuments(context.Background(), docs, []rules.Rule{bucketRule()})
	if err != nil {
		t.Fatalf("EvaluateDocuments failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 result sets, got %d", len(results))
	}
	if len(results[0]) != 1 || results[0][0].Outcome != OutcomePass {
		t.Errorf("Document 0 should pass, got %+v", results[0])
	}
	if len(results[1]) != 1 || results[1][0].Outcome != OutcomeFail {
		t.Errorf("Document 1 should fail, got %+v", results[1])
	}
	if len(results[2]) != 0 {
		t.Errorf("Document 2 should produce no verdicts, got %d", len(results[2]))
	}
}
