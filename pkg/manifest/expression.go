// Package manifest models transformer capability surfaces: attribute
// expressions (value, priority list, inclusive range, absent), the
// intersection algebra over them, the match predicate for concrete
// instances, and best-value selection for plan realization.
package manifest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
)

// Kind discriminates the expression variants.
type Kind int

const (
	// KindAbsent means the attribute carries no constraint (wildcard).
	KindAbsent Kind = iota
	// KindValue is a single concrete scalar.
	KindValue
	// KindList is an ordered priority list of scalars.
	KindList
	// KindRange is an inclusive numeric range.
	KindRange
)

// String returns the lowercase label for the kind.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindValue:
		return "value"
	case KindList:
		return "list"
	case KindRange:
		return "range"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Expression is one attribute constraint on a capability surface. The zero
// value is absent. Scalars are strings, bools, or float64 (all numeric
// inputs are normalized to float64 on construction).
type Expression struct {
	kind  Kind
	value interface{}
	list  []interface{}
	min   float64
	max   float64
}

// NewValue builds a single-value expression.
func NewValue(v interface{}) Expression {
	return Expression{kind: KindValue, value: normalizeScalar(v)}
}

// NewList builds a priority-list expression. An empty list is legal and
// means "supports nothing" for this attribute.
func NewList(values ...interface{}) Expression {
	list := make([]interface{}, len(values))
	for i, v := range values {
		list[i] = normalizeScalar(v)
	}

	return Expression{kind: KindList, list: list}
}

// NewRange builds an inclusive numeric range expression.
func NewRange(min, max float64) Expression {
	return Expression{kind: KindRange, min: min, max: max}
}

// ParseExpression converts a decoded wire value into an Expression:
// nil is absent, a scalar is a value, an array is a priority list, and a
// {min, max} object is a range. A missing min defaults to 0 and a missing
// max to +Inf.
func ParseExpression(raw interface{}) (Expression, error) {
	switch v := raw.(type) {
	case nil:
		return Expression{}, nil
	case []interface{}:
		return NewList(v...), nil
	case map[string]interface{}:
		return parseRange(v)
	case string, bool:
		return NewValue(v), nil
	default:
		if _, ok := maputil.Number(v); ok {
			return NewValue(v), nil
		}

		return Expression{}, fmt.Errorf("unsupported attribute expression %v (%T)", raw, raw)
	}
}

func parseRange(m map[string]interface{}) (Expression, error) {
	min, max := 0.0, math.Inf(1)

	for k, v := range m {
		n, ok := maputil.Number(v)
		if !ok {
			return Expression{}, fmt.Errorf("range bound %q must be numeric, got %v (%T)", k, v, v)
		}

		switch k {
		case "min":
			min = n
		case "max":
			max = n
		default:
			return Expression{}, fmt.Errorf("unsupported range key %q", k)
		}
	}

	return NewRange(min, max), nil
}

// Kind returns the expression variant.
func (e Expression) Kind() Kind { return e.kind }

// IsAbsent reports whether the expression carries no constraint.
func (e Expression) IsAbsent() bool { return e.kind == KindAbsent }

// Value returns the scalar of a value expression, or nil otherwise.
func (e Expression) Value() interface{} {
	if e.kind != KindValue {
		return nil
	}

	return e.value
}

// Values returns the elements of a list expression, or nil otherwise.
func (e Expression) Values() []interface{} {
	if e.kind != KindList {
		return nil
	}

	return e.list
}

// Bounds returns the inclusive bounds of a range expression.
func (e Expression) Bounds() (min, max float64) {
	return e.min, e.max
}

// First returns the highest-priority element of a list expression, the
// scalar of a value expression, and nil otherwise.
func (e Expression) First() interface{} {
	switch e.kind {
	case KindValue:
		return e.value
	case KindList:
		if len(e.list) == 0 {
			return nil
		}

		return e.list[0]
	default:
		return nil
	}
}

// Admits reports whether the concrete scalar v is accepted by the
// expression. Absent admits everything.
func (e Expression) Admits(v interface{}) bool {
	switch e.kind {
	case KindAbsent:
		return true
	case KindValue:
		return scalarEqual(e.value, v)
	case KindList:
		for _, item := range e.list {
			if scalarEqual(item, v) {
				return true
			}
		}

		return false
	case KindRange:
		n, ok := maputil.Number(v)

		return ok && n >= e.min && n <= e.max
	default:
		return false
	}
}

// Wire converts the expression back to its decoded-JSON shape.
func (e Expression) Wire() interface{} {
	switch e.kind {
	case KindValue:
		return e.value
	case KindList:
		return append([]interface{}{}, e.list...)
	case KindRange:
		w := map[string]interface{}{}
		if e.min != 0 || math.IsInf(e.max, 1) {
			w["min"] = e.min
		}

		if !math.IsInf(e.max, 1) {
			w["max"] = e.max
		}

		return w
	default:
		return nil
	}
}

// String renders the expression for logs and documentation.
func (e Expression) String() string {
	switch e.kind {
	case KindValue:
		return formatScalar(e.value)
	case KindList:
		parts := make([]string, len(e.list))
		for i, v := range e.list {
			parts[i] = formatScalar(v)
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case KindRange:
		if math.IsInf(e.max, 1) {
			return fmt.Sprintf("[%s..]", formatNumber(e.min))
		}

		return fmt.Sprintf("[%s..%s]", formatNumber(e.min), formatNumber(e.max))
	default:
		return "*"
	}
}

// Equal reports structural equality of two expressions.
func (e Expression) Equal(other Expression) bool {
	if e.kind != other.kind {
		return false
	}

	switch e.kind {
	case KindValue:
		return scalarEqual(e.value, other.value)
	case KindList:
		if len(e.list) != len(other.list) {
			return false
		}

		for i := range e.list {
			if !scalarEqual(e.list[i], other.list[i]) {
				return false
			}
		}

		return true
	case KindRange:
		return e.min == other.min && e.max == other.max
	default:
		return true
	}
}

// normalizeScalar coerces numeric scalars to float64 so that values decoded
// from JSON (float64) and YAML (int) compare equal.
func normalizeScalar(v interface{}) interface{} {
	if n, ok := maputil.Number(v); ok {
		return n
	}

	return v
}

// scalarEqual compares two scalars, coercing numeric types.
func scalarEqual(a, b interface{}) bool {
	na, aNum := maputil.Number(a)
	nb, bNum := maputil.Number(b)

	if aNum || bNum {
		return aNum && bNum && na == nb
	}

	return a == b
}

func formatScalar(v interface{}) string {
	if n, ok := maputil.Number(v); ok {
		return formatNumber(n)
	}

	return fmt.Sprintf("%v", v)
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%d", int64(n))
	}

	return fmt.Sprintf("%g", n)
}

// sortedNames returns map keys in stable order; used for deterministic
// rendering only, never for matching.
func sortedNames(m map[string]Expression) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
