package manifest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Reserved attribute names recognized by the engine.
const (
	// AttrType is the MIME-like format token; mandatory for graph edges.
	AttrType = "type"
	// AttrWidth and AttrHeight are numeric pixel dimensions subject to the
	// never-upscale rule.
	AttrWidth  = "width"
	AttrHeight = "height"
	// AttrSourceType selects how a step's input is materialized.
	AttrSourceType = "sourceType"
	// AttrOrientation carries the EXIF orientation probed from a source.
	AttrOrientation = "orientation"

	// FeaturePrefix marks feature sentinel attributes: an input surface
	// declaring "feature:autoTag" only matches instances whose features
	// map carries a truthy "autoTag".
	FeaturePrefix = "feature:"

	// KeyFeatures and KeyUserData are instance-bag keys that are carried
	// through plans but are not capability attributes.
	KeyFeatures = "features"
	KeyUserData = "userData"
)

// Values accepted for the reserved sourceType attribute.
const (
	SourceTypeURL   = "URL"
	SourceTypeLocal = "LOCAL"
)

// Attributes is one capability surface: attribute name to expression.
type Attributes map[string]Expression

// ParseAttributes converts a decoded wire mapping into Attributes.
func ParseAttributes(raw map[string]interface{}) (Attributes, error) {
	attrs := make(Attributes, len(raw))

	for name, v := range raw {
		expr, err := ParseExpression(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}

		attrs[name] = expr
	}

	return attrs, nil
}

// Wire converts the surface back to its decoded-JSON shape.
func (a Attributes) Wire() map[string]interface{} {
	if a == nil {
		return nil
	}

	out := make(map[string]interface{}, len(a))
	for name, expr := range a {
		out[name] = expr.Wire()
	}

	return out
}

// Clone returns an independent copy of the surface.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}

	out := make(Attributes, len(a))
	for name, expr := range a {
		out[name] = expr
	}

	return out
}

// String renders the surface with attribute names in stable order.
func (a Attributes) String() string {
	parts := make([]string, 0, len(a))
	for _, name := range sortedNames(a) {
		parts = append(parts, name+"="+a[name].String())
	}

	return "{" + strings.Join(parts, " ") + "}"
}

// Manifest declares what a transformer accepts and produces.
type Manifest struct {
	// Inputs is the accepted input surface.
	Inputs Attributes
	// Outputs is the produced output surface.
	Outputs Attributes
	// ConsumesMetadata marks transformers that interpret source metadata
	// themselves; single-step plans ending in such a transformer get an
	// orientation-normalizing step prepended when the source needs it.
	ConsumesMetadata bool
	// EngineVersion optionally constrains the engine versions the
	// transformer is compatible with (semver constraint syntax).
	EngineVersion string
}

// manifestWire is the serialized shape of a Manifest.
type manifestWire struct {
	Inputs           map[string]interface{} `json:"inputs,omitempty"`
	Outputs          map[string]interface{} `json:"outputs,omitempty"`
	ConsumesMetadata bool                   `json:"consumesMetadata,omitempty"`
	EngineVersion    string                 `json:"engineVersion,omitempty"`
}

// UnmarshalJSON decodes the wire form, parsing each attribute expression.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var wire manifestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	inputs, err := ParseAttributes(wire.Inputs)
	if err != nil {
		return fmt.Errorf("inputs: %w", err)
	}

	outputs, err := ParseAttributes(wire.Outputs)
	if err != nil {
		return fmt.Errorf("outputs: %w", err)
	}

	m.Inputs = inputs
	m.Outputs = outputs
	m.ConsumesMetadata = wire.ConsumesMetadata
	m.EngineVersion = wire.EngineVersion

	return nil
}

// MarshalJSON encodes the wire form.
func (m Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(manifestWire{
		Inputs:           m.Inputs.Wire(),
		Outputs:          m.Outputs.Wire(),
		ConsumesMetadata: m.ConsumesMetadata,
		EngineVersion:    m.EngineVersion,
	})
}

// Validate checks structural soundness: range bounds ordered, sourceType
// values recognized, and the engine-version constraint parseable.
func (m *Manifest) Validate() error {
	for surface, attrs := range map[string]Attributes{"inputs": m.Inputs, "outputs": m.Outputs} {
		for name, expr := range attrs {
			if expr.Kind() == KindRange {
				if min, max := expr.Bounds(); min > max {
					return fmt.Errorf("%s attribute %q: range min %g exceeds max %g", surface, name, min, max)
				}
			}

			if name == AttrSourceType {
				if err := validateSourceType(expr); err != nil {
					return fmt.Errorf("%s attribute %q: %w", surface, name, err)
				}
			}
		}
	}

	if m.EngineVersion != "" {
		if _, err := semver.NewConstraint(m.EngineVersion); err != nil {
			return fmt.Errorf("engineVersion %q: %w", m.EngineVersion, err)
		}
	}

	return nil
}

// Compatible reports whether the manifest's engine-version constraint (if
// any) admits the given engine version. Unparseable versions or constraints
// are reported as errors, not silently accepted.
func (m *Manifest) Compatible(engineVersion string) (bool, error) {
	if m.EngineVersion == "" {
		return true, nil
	}

	c, err := semver.NewConstraint(m.EngineVersion)
	if err != nil {
		return false, fmt.Errorf("parsing engineVersion constraint %q: %w", m.EngineVersion, err)
	}

	v, err := semver.NewVersion(strings.TrimPrefix(engineVersion, "v"))
	if err != nil {
		return false, fmt.Errorf("parsing engine version %q: %w", engineVersion, err)
	}

	return c.Check(v), nil
}

func validateSourceType(expr Expression) error {
	check := func(v interface{}) error {
		s, _ := v.(string)
		if s != SourceTypeURL && s != SourceTypeLocal {
			return fmt.Errorf("value %v not one of %s, %s", v, SourceTypeURL, SourceTypeLocal)
		}

		return nil
	}

	switch expr.Kind() {
	case KindValue:
		return check(expr.Value())
	case KindList:
		for _, v := range expr.Values() {
			if err := check(v); err != nil {
				return err
			}
		}

		return nil
	case KindAbsent:
		return nil
	default:
		return fmt.Errorf("must be a value or list, got %s", expr.Kind())
	}
}

// typeTokenRegex accepts MIME-like tokens: one or two slash-separated
// segments of restricted token characters ("image/png", "machine-json").
var typeTokenRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]*(/[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]*)?$`)

// IsWellFormedType reports whether s is a well-formed MIME-like type token.
func IsWellFormedType(s string) bool {
	return typeTokenRegex.MatchString(s)
}
