package audit

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/catalog"
)

// PolicyFile represents a custom policy YAML file.
type PolicyFile struct {
	Rules []PolicyRule `json:"rules" yaml:"rules"`
}

// PolicyRule defines a single custom audit rule.
type PolicyRule struct {
	// ID is the unique rule identifier (e.g., "CUSTOM-001").
	ID string `json:"id" yaml:"id"`

	// Severity is the finding severity (critical, high, medium, low, info).
	SeverityStr string `json:"severity" yaml:"severity"`

	// Match restricts the rule to specific transformers.
	Match PolicyMatch `json:"match" yaml:"match"`

	// Condition is a simple check description for matching.
	// Supported: "no description", "no timeout", "no engine version",
	// "no command", "consumes metadata".
	Condition string `json:"condition" yaml:"condition"`

	// Message is the finding message.
	Message string `json:"message" yaml:"message"`

	// Remediation suggests how to fix the issue.
	Remediation string `json:"remediation" yaml:"remediation"`
}

// PolicyMatch restricts which transformers a rule applies to.
type PolicyMatch struct {
	// Name is a glob pattern matched against transformer names.
	// Empty matches every transformer.
	Name string `json:"name" yaml:"name"`
}

// LoadPolicyFile loads a custom policy file from disk.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided CLI arg, not attacker-controlled
	if err != nil {
		return nil, fmt.Errorf("reading policy file %s: %w", path, err)
	}

	var pf PolicyFile
	if err := sigsyaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	for _, r := range pf.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("policy file %s: rule missing required 'id' field", path)
		}

		if r.Message == "" {
			return nil, fmt.Errorf("policy file %s: rule %s missing required 'message' field", path, r.ID)
		}

		if r.SeverityStr != "" {
			if _, err := ParseSeverity(r.SeverityStr); err != nil {
				return nil, fmt.Errorf("policy file %s: rule %s: %w", path, r.ID, err)
			}
		}

		if r.Condition != "" {
			if !isKnownCondition(r.Condition) {
				return nil, fmt.Errorf("policy file %s: rule %s: unknown condition %q; supported: %s",
					path, r.ID, r.Condition, strings.Join(knownConditions(), ", "))
			}
		}
	}

	return &pf, nil
}

// ToChecks converts policy rules into audit checks.
func (pf *PolicyFile) ToChecks() []Check {
	var checks []Check

	for _, rule := range pf.Rules {
		checks = append(checks, &customRuleCheck{rule: rule})
	}

	return checks
}

// customRuleCheck implements Check for a custom policy rule.
type customRuleCheck struct {
	rule PolicyRule
}

func (c *customRuleCheck) ID() string { return c.rule.ID }

func (c *customRuleCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		// Apply name filter.
		if c.rule.Match.Name != "" {
			if ok, _ := path.Match(c.rule.Match.Name, s.Name); !ok {
				continue
			}
		}

		if c.matchesCondition(s) {
			sev, _ := ParseSeverity(c.rule.SeverityStr)
			findings = append(findings, Finding{
				RuleID:      c.rule.ID,
				Severity:    sev,
				Transformer: s.Name,
				Source:      s.Source,
				Message:     c.rule.Message,
				Remediation: c.rule.Remediation,
			})
		}
	}

	return findings
}

// matchesCondition evaluates the rule condition against a spec.
func (c *customRuleCheck) matchesCondition(s *catalog.Spec) bool {
	condition := strings.ToLower(strings.TrimSpace(c.rule.Condition))

	switch condition {
	case "no description":
		return s.Description == ""
	case "no timeout":
		return len(s.Command) > 0 && s.Timeout.Duration == 0
	case "no engine version":
		return s.Manifest.EngineVersion == ""
	case "no command":
		return len(s.Command) == 0
	case "consumes metadata":
		return s.Manifest.ConsumesMetadata
	default:
		// This is unreachable when conditions are validated at load time via
		// LoadPolicyFile, but we keep it as a safety net.
		return false
	}
}

// knownConditions returns the list of supported condition strings.
func knownConditions() []string {
	return []string{
		"no description",
		"no timeout",
		"no engine version",
		"no command",
		"consumes metadata",
	}
}

// isKnownCondition reports whether the given condition string is supported.
func isKnownCondition(cond string) bool {
	normalized := strings.ToLower(strings.TrimSpace(cond))
	for _, c := range knownConditions() {
		if c == normalized {
			return true
		}
	}

	return false
}
