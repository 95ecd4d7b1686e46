package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffResult holds the result of comparing two plans.
type DiffResult struct {
	Unified        string
	HasDifferences bool
	OldLabel       string
	NewLabel       string
}

// DiffOptions configures plan comparison.
type DiffOptions struct {
	OldLabel string
	NewLabel string
	Context  int
}

// DefaultDiffOptions returns sensible default diff options.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		OldLabel: "current",
		NewLabel: "refined",
		Context:  3,
	}
}

// Diff computes a unified diff between the serialized forms of two plans.
func Diff(oldPlan, newPlan *Plan, opts DiffOptions) (*DiffResult, error) {
	oldDoc, err := renderForDiff(oldPlan)
	if err != nil {
		return nil, fmt.Errorf("rendering %s plan: %w", opts.OldLabel, err)
	}

	newDoc, err := renderForDiff(newPlan)
	if err != nil {
		return nil, fmt.Errorf("rendering %s plan: %w", opts.NewLabel, err)
	}

	diff := difflib.UnifiedDiff{
		A:        splitLines(oldDoc),
		B:        splitLines(newDoc),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	}

	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	return &DiffResult{
		Unified:        unified,
		HasDifferences: unified != "",
		OldLabel:       opts.OldLabel,
		NewLabel:       opts.NewLabel,
	}, nil
}

// WriteDiff writes a formatted diff to the given writer.
func WriteDiff(w io.Writer, result *DiffResult) {
	if !result.HasDifferences {
		_, _ = fmt.Fprintln(w, "No differences found.")

		return
	}

	_, _ = fmt.Fprint(w, result.Unified)

	if !strings.HasSuffix(result.Unified, "\n") {
		_, _ = fmt.Fprintln(w)
	}
}

// renderForDiff produces a stable, line-oriented rendering of a plan.
func renderForDiff(p *Plan) (string, error) {
	if p == nil {
		return "", nil
	}

	data, err := json.MarshalIndent(p.ToObject(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(data) + "\n", nil
}

// splitLines splits a string into lines for diff processing. Each element
// keeps its trailing newline for difflib compatibility.
func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}

	return strings.SplitAfter(s, "\n")
}
