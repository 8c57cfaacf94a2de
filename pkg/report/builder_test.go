package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/polcheck/polcheck/pkg/compare"
	"github.com/polcheck/polcheck/pkg/eval"
)

func testBuilder(t *testing.T, strategy string) *Builder {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	b, err := NewBuilder(logger, strategy)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	return b
}

func passVerdict(ruleID string) eval.Verdict {
	return eval.Verdict{
		RuleID:   ruleID,
		Resource: eval.ResourceRef{Kind: "bucket", Name: "logs"},
		Outcome:  eval.OutcomePass,
		Evidence: []eval.Evidence{
			{Path: "acl", Expected: `== "private"`, Observed: "private", OK: true},
		},
	}
}

func failVerdict(ruleID string, optional bool) eval.Verdict {
	return eval.Verdict{
		RuleID:   ruleID,
		Resource: eval.ResourceRef{Kind: "bucket", Name: "logs"},
		Outcome:  eval.OutcomeFail,
		Optional: optional,
		Evidence: []eval.Evidence{
			{
				Path:     "server_side_encryption_configuration.rule.apply_server_side_encryption_by_default.sse_algorithm",
				Expected: `== "AES256"`,
				Absent:   true,
			},
		},
		Observation: "1 of 1 required condition(s) not satisfied",
	}
}

func TestBuild_AllPassing(t *testing.T) {
	b := testBuilder(t, "")

	r := b.Build([]eval.Verdict{passVerdict("a"), passVerdict("b")}, nil, nil)

	if !r.Pass {
		t.Error("Expected overall pass")
	}
	if r.ID == "" {
		t.Error("Expected report ID to be set")
	}
	if r.Summary.Total != 2 || r.Summary.Passed != 2 || r.Summary.Failed != 0 {
		t.Errorf("Unexpected summary: %+v", r.Summary)
	}
	if len(r.Recommendations) != 0 {
		t.Errorf("Expected no recommendations, got %v", r.Recommendations)
	}
	if r.Strategy != StrategyBinary {
		t.Errorf("Expected default strategy %q, got %q", StrategyBinary, r.Strategy)
	}
}

func TestBuild_NonOptionalFailureBlocks(t *testing.T) {
	b := testBuilder(t, StrategyBinary)

	r := b.Build([]eval.Verdict{passVerdict("a"), failVerdict("bucket-encryption", false)}, nil, nil)

	if r.Pass {
		t.Error("Expected overall fail")
	}
	if len(r.Recommendations) != 1 {
		t.Fatalf("Expected 1 recommendation, got %d", len(r.Recommendations))
	}
	want := `bucket-encryption: expected == "AES256" at server_side_encryption_configuration.rule.apply_server_side_encryption_by_default.sse_algorithm, found absent`
	if r.Recommendations[0] != want {
		t.Errorf("Recommendation mismatch:\n got: %s\nwant: %s", r.Recommendations[0], want)
	}
}

func TestBuild_OptionalFailureDoesNotBlock(t *testing.T) {
	b := testBuilder(t, "")

	r := b.Build([]eval.Verdict{passVerdict("a"), failVerdict("service-internal-type", true)}, nil, nil)

	if !r.Pass {
		t.Error("Optional failure must not block the overall outcome")
	}
	if r.Summary.OptionalFailed != 1 {
		t.Errorf("Expected 1 optional failure, got %d", r.Summary.OptionalFailed)
	}
	// Optional failures still surface a recommendation.
	if len(r.Recommendations) != 1 {
		t.Errorf("Expected 1 recommendation, got %d", len(r.Recommendations))
	}
}

func TestBuild_DivergenceBlocks(t *testing.T) {
	b := testBuilder(t, "")

	divergences := []compare.Divergence{
		{
			RuleID:    "a",
			Resource:  eval.ResourceRef{Kind: "bucket", Name: "logs"},
			Candidate: eval.OutcomeFail,
			Reference: eval.OutcomePass,
		},
	}
	r := b.Build([]eval.Verdict{passVerdict("a")}, divergences, nil)

	if r.Pass {
		t.Error("A divergence must fail the report even when all verdicts pass")
	}
}

func TestBuild_WarningsDoNotBlock(t *testing.T) {
	b := testBuilder(t, "")

	r := b.Build([]eval.Verdict{passVerdict("a")}, nil, []string{"reference comparison skipped: ambiguous match"})

	if !r.Pass {
		t.Error("Warnings must not affect the overall outcome")
	}
	if len(r.Warnings) != 1 {
		t.Errorf("Expected warning to be carried, got %v", r.Warnings)
	}
}

func TestBuild_NotApplicableSkipsScoring(t *testing.T) {
	b := testBuilder(t, "")

	na := eval.Verdict{
		RuleID:   "pod-no-privileged",
		Resource: eval.ResourceRef{Kind: "bucket", Name: "logs"},
		Outcome:  eval.OutcomeNotApplicable,
	}
	r := b.Build([]eval.Verdict{passVerdict("a"), na}, nil, nil)

	if !r.Pass {
		t.Error("Not-applicable verdicts must not affect the outcome")
	}
	if r.Summary.NotApplicable != 1 {
		t.Errorf("Expected 1 not-applicable, got %d", r.Summary.NotApplicable)
	}
	if len(r.Scores) != 1 {
		t.Errorf("Not-applicable verdicts must not be scored, got %d scores", len(r.Scores))
	}
}

func TestScoring_Strategies(t *testing.T) {
	mixed := eval.Verdict{
		RuleID:  "m",
		Outcome: eval.OutcomeFail,
		Evidence: []eval.Evidence{
			{Path: "a", OK: true},
			{Path: "b", OK: true},
			{Path: "c", OK: false},
			{Path: "d", OK: false},
		},
	}

	tests := []struct {
		name     string
		strategy Strategy
		verdict  eval.Verdict
		want     int
	}{
		{"binary pass", BinaryStrategy, passVerdict("a"), 1},
		{"binary fail", BinaryStrategy, failVerdict("a", false), 0},
		{"rubric all pass", RubricStrategy, passVerdict("a"), 5},
		{"rubric all fail", RubricStrategy, failVerdict("a", false), 1},
		{"rubric half", RubricStrategy, mixed, 3},
		{"rubric no evidence pass", RubricStrategy, eval.Verdict{Outcome: eval.OutcomePass}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.strategy(tt.verdict); got != tt.want {
				t.Errorf("Expected score %d, got %d", tt.want, got)
			}
		})
	}
}

func TestStrategyByName_Unknown(t *testing.T) {
	if _, err := StrategyByName("weighted"); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}

func TestRenderJSON_RoundTrips(t *testing.T) {
	b := testBuilder(t, StrategyRubric)
	r := b.Build([]eval.Verdict{passVerdict("a"), failVerdict("bucket-encryption", false)}, nil, nil)

	var buf bytes.Buffer
	if err := RenderJSON(&buf, r); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode rendered report: %v", err)
	}
	if decoded.ID != r.ID || decoded.Pass != r.Pass || len(decoded.Verdicts) != 2 {
		t.Errorf("Round-tripped report does not match: %+v", decoded)
	}
}

func TestRenderText_Sections(t *testing.T) {
	b := testBuilder(t, "")
	r := b.Build(
		[]eval.Verdict{passVerdict("a"), failVerdict("bucket-encryption", false)},
		nil,
		[]string{"something non-fatal"},
	)

	var buf bytes.Buffer
	if err := RenderText(&buf, r); err != nil {
		t.Fatalf("RenderText failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Observations", "Warnings", "Scores", "Recommendations", "bucket-encryption", "found absent", "FAIL"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected rendered text to contain %q:\n%s", want, out)
		}
	}
}
