// Package audit lints transformer catalogs: capability surfaces that can
// never match, colliding names, unresolvable commands, and transformers
// isolated from the rest of the graph. It supports built-in rules, custom
// policy files, and multiple output formats (table, JSON, SARIF).
package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/catalog"
)

// Severity ranks the impact of a finding.
type Severity int

const (
	// SeverityInfo is purely informational.
	SeverityInfo Severity = iota
	// SeverityLow indicates a minor concern.
	SeverityLow
	// SeverityMedium indicates a moderate concern.
	SeverityMedium
	// SeverityHigh indicates a serious issue.
	SeverityHigh
	// SeverityCritical indicates the catalog cannot work as declared.
	SeverityCritical
)

// String returns the lowercase label for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseSeverity parses a severity string (case-insensitive).
// Returns an error for unrecognised values.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical, nil
	case "high":
		return SeverityHigh, nil
	case "medium":
		return SeverityMedium, nil
	case "low":
		return SeverityLow, nil
	case "info":
		return SeverityInfo, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q, valid values: critical, high, medium, low, info", s)
	}
}

// Finding represents a single audit result.
type Finding struct {
	RuleID      string   `json:"ruleId"`
	Severity    Severity `json:"severity"`
	Transformer string   `json:"transformer"`
	Source      string   `json:"source,omitempty"`
	Message     string   `json:"message"`
	Remediation string   `json:"remediation,omitempty"`
}

// Check is the interface every audit rule must implement.
type Check interface {
	// ID returns the unique rule identifier (e.g. "CAT-001").
	ID() string
	// Run evaluates the catalog specs and returns any findings.
	Run(ctx context.Context, specs []*catalog.Spec) []Finding
}

// Result aggregates findings from all checks.
type Result struct {
	Findings []Finding      `json:"findings"`
	Summary  map[string]int `json:"summary"`
}

// Passed returns true when no finding meets or exceeds the threshold severity.
func (r *Result) Passed(threshold Severity) bool {
	for _, f := range r.Findings {
		if f.Severity >= threshold {
			return false
		}
	}

	return true
}

// Auditor orchestrates a set of checks against catalog specs.
type Auditor struct {
	checks []Check
}

// New creates an Auditor with the given checks.
func New(checks ...Check) *Auditor {
	return &Auditor{checks: checks}
}

// Run executes every registered check and returns the result.
func (a *Auditor) Run(ctx context.Context, specs []*catalog.Spec) *Result {
	var all []Finding

	for _, chk := range a.checks {
		all = append(all, chk.Run(ctx, specs)...)
	}

	// Sort: severity descending, then rule ID, transformer, and message
	// ascending so output is stable across runs.
	sort.Slice(all, func(i, j int) bool {
		if all[i].Severity != all[j].Severity {
			return all[i].Severity > all[j].Severity
		}

		if all[i].RuleID != all[j].RuleID {
			return all[i].RuleID < all[j].RuleID
		}

		if all[i].Transformer != all[j].Transformer {
			return all[i].Transformer < all[j].Transformer
		}

		return all[i].Message < all[j].Message
	})

	summary := make(map[string]int)
	for _, f := range all {
		summary[f.Severity.String()]++
	}

	return &Result{Findings: all, Summary: summary}
}

// CheckLevel describes when a built-in check runs.
type CheckLevel int

const (
	// CheckLevelStandard runs on every audit.
	CheckLevelStandard CheckLevel = iota
	// CheckLevelStrict runs only when strict auditing is requested. These
	// checks inspect the local environment or are advisory.
	CheckLevelStrict
)

// checkEntry pairs a check with the level that activates it.
type checkEntry struct {
	check Check
	level CheckLevel
}

// allChecks defines every built-in check with its level.
var allChecks = []checkEntry{
	{&DuplicateNameCheck{}, CheckLevelStandard},
	{&OutputTypeCheck{}, CheckLevelStandard},
	{&InputTypeCheck{}, CheckLevelStandard},
	{&EmptyListCheck{}, CheckLevelStandard},
	{&RangeOrderCheck{}, CheckLevelStandard},
	{&SourceTypeCheck{}, CheckLevelStandard},
	{&TypeTokenCheck{}, CheckLevelStandard},
	{&EngineVersionCheck{}, CheckLevelStandard},
	{&CommandCheck{}, CheckLevelStandard},

	// Strict-only checks.
	{&CommandPathCheck{}, CheckLevelStrict},
	{&IsolationCheck{}, CheckLevelStrict},
}

// DefaultChecks returns the built-in catalog checks:
//   - standard: declaration problems detectable from the catalog alone
//   - strict:   adds PATH resolution and graph-isolation advisories
func DefaultChecks(strict bool) []Check {
	var checks []Check

	for _, entry := range allChecks {
		if entry.level == CheckLevelStrict && !strict {
			continue
		}

		checks = append(checks, entry.check)
	}

	return checks
}
