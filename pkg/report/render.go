package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/polcheck/polcheck/pkg/eval"
)

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// RenderText writes a human-readable report with Observations, Scores
// and Recommendations sections.
func RenderText(w io.Writer, r *Report) error {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", bold("Report"), faint(r.ID))
	fmt.Fprintf(w, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if r.PolicyFile != "" {
		fmt.Fprintf(w, "Policy:    %s\n", r.PolicyFile)
	}
	if r.ReferenceFile != "" {
		fmt.Fprintf(w, "Reference: %s\n", r.ReferenceFile)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n", bold("Observations"))
	for _, v := range r.Verdicts {
		if v.Outcome == eval.OutcomeNotApplicable {
			continue
		}

		marker := green("PASS")
		if v.Outcome == eval.OutcomeFail {
			marker = red("FAIL")
			if v.Optional {
				marker = yellow("FAIL")
			}
		}
		optional := ""
		if v.Optional {
			optional = faint(" (optional)")
		}
		fmt.Fprintf(w, "  %s  %s on %s%s\n", marker, v.RuleID, v.Resource.String(), optional)

		for _, e := range v.Evidence {
			if e.OK {
				continue
			}
			fmt.Fprintf(w, "        %s: expected %s, found %s\n", e.Path, e.Expected, e.ObservedString())
		}
	}
	fmt.Fprintln(w)

	if len(r.Divergences) > 0 {
		fmt.Fprintf(w, "%s\n", bold("Divergences"))
		for _, d := range r.Divergences {
			fmt.Fprintf(w, "  %s  %s\n", red("DIFF"), d.String())
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "%s\n", bold("Warnings"))
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "  %s  %s\n", yellow("WARN"), warning)
		}
		fmt.Fprintln(w)
	}

	if len(r.Scores) > 0 {
		fmt.Fprintf(w, "%s (%s)\n", bold("Scores"), r.Strategy)
		for _, s := range r.Scores {
			fmt.Fprintf(w, "  %d  %s on %s\n", s.Value, s.RuleID, s.Resource)
		}
		fmt.Fprintln(w)
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(w, "%s\n", bold("Recommendations"))
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
		fmt.Fprintln(w)
	}

	verdict := green("PASS")
	if !r.Pass {
		verdict = red("FAIL")
	}
	fmt.Fprintf(w, "%s: %d checked, %d passed, %d failed\n",
		verdict, r.Summary.Total-r.Summary.NotApplicable, r.Summary.Passed, r.Summary.Failed)

	return nil
}
