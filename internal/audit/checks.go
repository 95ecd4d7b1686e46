package audit

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/Masterminds/semver/v3"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/catalog"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/planner"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// surface names one capability surface of a manifest for iteration.
type surface struct {
	name  string
	attrs manifest.Attributes
}

// surfaces returns the spec's surfaces in declaration order.
func surfaces(s *catalog.Spec) []surface {
	return []surface{
		{"inputs", s.Manifest.Inputs},
		{"outputs", s.Manifest.Outputs},
	}
}

// scalarValues returns the concrete scalars of a value or list expression.
func scalarValues(expr manifest.Expression) []interface{} {
	switch expr.Kind() {
	case manifest.KindValue:
		return []interface{}{expr.Value()}
	case manifest.KindList:
		return expr.Values()
	default:
		return nil
	}
}

// finding builds a Finding attributed to the given spec.
func finding(c Check, sev Severity, s *catalog.Spec, message, remediation string) Finding {
	return Finding{
		RuleID:      c.ID(),
		Severity:    sev,
		Transformer: s.Name,
		Source:      s.Source,
		Message:     message,
		Remediation: remediation,
	}
}

// DuplicateNameCheck flags transformer names declared more than once.
// Registration is last-wins, so earlier declarations are silently shadowed.
type DuplicateNameCheck struct{}

// ID returns the rule identifier.
func (c *DuplicateNameCheck) ID() string { return "CAT-001" }

// Run evaluates the check.
func (c *DuplicateNameCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	first := make(map[string]*catalog.Spec, len(specs))

	var findings []Finding

	for _, s := range specs {
		prev, ok := first[s.Name]
		if !ok {
			first[s.Name] = s

			continue
		}

		findings = append(findings, finding(c, SeverityHigh, s,
			fmt.Sprintf("name already declared in %s; the earlier declaration is shadowed", prev.Source),
			"Rename one of the transformers or remove the duplicate declaration.",
		))
	}

	return findings
}

// OutputTypeCheck flags transformers whose output surface carries no type
// attribute. Such a transformer can never satisfy a rendition instruction
// or feed a chain.
type OutputTypeCheck struct{}

// ID returns the rule identifier.
func (c *OutputTypeCheck) ID() string { return "CAT-002" }

// Run evaluates the check.
func (c *OutputTypeCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		expr, ok := s.Manifest.Outputs[manifest.AttrType]
		if !ok || expr.IsAbsent() {
			findings = append(findings, finding(c, SeverityHigh, s,
				"declares no output 'type' attribute; it can never be selected for a rendition",
				"Declare the produced type(s) in the manifest outputs.",
			))
		}
	}

	return findings
}

// InputTypeCheck flags transformers whose input surface carries no type
// attribute. An absent type admits every source, which is rarely intended.
type InputTypeCheck struct{}

// ID returns the rule identifier.
func (c *InputTypeCheck) ID() string { return "CAT-003" }

// Run evaluates the check.
func (c *InputTypeCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		expr, ok := s.Manifest.Inputs[manifest.AttrType]
		if !ok || expr.IsAbsent() {
			findings = append(findings, finding(c, SeverityLow, s,
				"declares no input 'type' attribute and accepts every source",
				"Declare the accepted type(s) in the manifest inputs to scope the transformer.",
			))
		}
	}

	return findings
}

// EmptyListCheck flags list expressions with zero values; such an attribute
// can never match anything.
type EmptyListCheck struct{}

// ID returns the rule identifier.
func (c *EmptyListCheck) ID() string { return "CAT-004" }

// Run evaluates the check.
func (c *EmptyListCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		for _, sf := range surfaces(s) {
			for name, expr := range sf.attrs {
				if expr.Kind() == manifest.KindList && len(expr.Values()) == 0 {
					findings = append(findings, finding(c, SeverityHigh, s,
						fmt.Sprintf("attribute %q in %s is an empty list and can never match", name, sf.name),
						"List at least one supported value or drop the attribute.",
					))
				}
			}
		}
	}

	return findings
}

// RangeOrderCheck flags ranges whose min exceeds their max.
type RangeOrderCheck struct{}

// ID returns the rule identifier.
func (c *RangeOrderCheck) ID() string { return "CAT-005" }

// Run evaluates the check.
func (c *RangeOrderCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		for _, sf := range surfaces(s) {
			for name, expr := range sf.attrs {
				if expr.Kind() != manifest.KindRange {
					continue
				}

				if min, max := expr.Bounds(); min > max {
					findings = append(findings, finding(c, SeverityHigh, s,
						fmt.Sprintf("attribute %q in %s has range min %g greater than max %g", name, sf.name, min, max),
						"Swap the bounds so min does not exceed max.",
					))
				}
			}
		}
	}

	return findings
}

// SourceTypeCheck flags sourceType values outside URL and LOCAL.
type SourceTypeCheck struct{}

// ID returns the rule identifier.
func (c *SourceTypeCheck) ID() string { return "CAT-006" }

// Run evaluates the check.
func (c *SourceTypeCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		for _, sf := range surfaces(s) {
			expr, ok := sf.attrs[manifest.AttrSourceType]
			if !ok {
				continue
			}

			for _, v := range scalarValues(expr) {
				str, _ := v.(string)
				if str == manifest.SourceTypeURL || str == manifest.SourceTypeLocal {
					continue
				}

				findings = append(findings, finding(c, SeverityMedium, s,
					fmt.Sprintf("sourceType value %v in %s is not one of %s, %s",
						v, sf.name, manifest.SourceTypeURL, manifest.SourceTypeLocal),
					"Use URL for presigned-URL inputs or LOCAL for materialized files.",
				))
			}
		}
	}

	return findings
}

// TypeTokenCheck flags type values that are not well-formed type tokens.
type TypeTokenCheck struct{}

// ID returns the rule identifier.
func (c *TypeTokenCheck) ID() string { return "CAT-007" }

// Run evaluates the check.
func (c *TypeTokenCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		for _, sf := range surfaces(s) {
			expr, ok := sf.attrs[manifest.AttrType]
			if !ok {
				continue
			}

			for _, v := range scalarValues(expr) {
				str, isString := v.(string)
				if isString && manifest.IsWellFormedType(str) {
					continue
				}

				findings = append(findings, finding(c, SeverityMedium, s,
					fmt.Sprintf("type value %v in %s is not a well-formed type token", v, sf.name),
					"Use MIME-like tokens such as image/png or machine-json.",
				))
			}
		}
	}

	return findings
}

// EngineVersionCheck flags unparseable engineVersion constraints. A
// transformer carrying one can never be registered.
type EngineVersionCheck struct{}

// ID returns the rule identifier.
func (c *EngineVersionCheck) ID() string { return "CAT-008" }

// Run evaluates the check.
func (c *EngineVersionCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		if s.Manifest.EngineVersion == "" {
			continue
		}

		if _, err := semver.NewConstraint(s.Manifest.EngineVersion); err != nil {
			findings = append(findings, finding(c, SeverityMedium, s,
				fmt.Sprintf("engineVersion constraint %q is not parseable", s.Manifest.EngineVersion),
				"Use a semver constraint such as ^1.0.0 or >=1.2.0 <2.0.0.",
			))
		}
	}

	return findings
}

// CommandCheck flags catalog transformers without a command; they can never
// produce a rendition.
type CommandCheck struct{}

// ID returns the rule identifier.
func (c *CommandCheck) ID() string { return "CAT-009" }

// Run evaluates the check.
func (c *CommandCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		if len(s.Command) == 0 {
			findings = append(findings, finding(c, SeverityHigh, s,
				"declares no command; it can never produce a rendition",
				"Add the command template that converts the input into the output.",
			))
		}
	}

	return findings
}

// CommandPathCheck flags commands whose binary does not resolve on the
// auditing host's PATH. Strict-only: the result depends on the environment.
type CommandPathCheck struct{}

// ID returns the rule identifier.
func (c *CommandPathCheck) ID() string { return "CAT-010" }

// Run evaluates the check.
func (c *CommandPathCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	var findings []Finding

	for _, s := range specs {
		if len(s.Command) == 0 {
			continue
		}

		if _, err := exec.LookPath(s.Command[0]); err != nil {
			findings = append(findings, finding(c, SeverityLow, s,
				fmt.Sprintf("command %q not found on PATH", s.Command[0]),
				"Install the tool or fix the command name; renditions will fail at run time otherwise.",
			))
		}
	}

	return findings
}

// IsolationCheck flags transformers with no graph edges to or from any
// other transformer; they can only ever serve single-step plans.
type IsolationCheck struct{}

// ID returns the rule identifier.
func (c *IsolationCheck) ID() string { return "CAT-011" }

// Run evaluates the check.
func (c *IsolationCheck) Run(_ context.Context, specs []*catalog.Spec) []Finding {
	registry := pipeline.NewRegistry()
	byName := make(map[string]*catalog.Spec, len(specs))

	for _, s := range specs {
		if _, ok := byName[s.Name]; ok {
			continue
		}

		byName[s.Name] = s

		registry.Register(pipeline.NewCallback(s.Name, s.Manifest, nil))
	}

	if registry.Len() < 2 {
		return nil
	}

	graph := planner.NewGraph(registry)

	var findings []Finding

	for _, name := range registry.Names() {
		if graph.HasEdges(name) {
			continue
		}

		findings = append(findings, finding(c, SeverityInfo, byName[name],
			"connects to no other transformer; it can only serve single-step plans",
			"Check the input and output type attributes if this transformer is meant to chain.",
		))
	}

	return findings
}
