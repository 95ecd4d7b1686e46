package manifest

import (
	"math"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
)

// Best collapses every attribute of an intersection surface to a single
// concrete value: the first element of a list, the max of a range, or the
// value itself. Two post-rules adjust the result against the source:
//
//   - width/height never exceed the source's dimensions (no upscaling);
//   - when the source's type is itself admissible, it is preferred over
//     the collapsed candidate (no unnecessary format conversion).
//
// Attributes that do not collapse to a concrete scalar are dropped.
func Best(intersection Attributes, source map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(intersection))

	for name, expr := range intersection {
		var candidate interface{}

		switch expr.Kind() {
		case KindList:
			candidate = expr.First()
		case KindRange:
			_, max := expr.Bounds()
			candidate = max
		case KindValue:
			candidate = expr.Value()
		default:
			continue
		}

		switch name {
		case AttrWidth, AttrHeight:
			if hint, ok := maputil.GetNumber(source, name); ok {
				if n, isNum := maputil.Number(candidate); isNum && hint < n {
					candidate = hint
				}
			}
		case AttrType:
			if srcType, ok := maputil.GetString(source, AttrType); ok && expr.Admits(srcType) {
				candidate = srcType
			}
		}

		if !isConcrete(candidate) {
			continue
		}

		out[name] = candidate
	}

	return out
}

// isConcrete accepts finite numbers, strings, and bools.
func isConcrete(v interface{}) bool {
	switch t := v.(type) {
	case string, bool:
		return true
	case float64:
		return !math.IsInf(t, 0) && !math.IsNaN(t)
	default:
		if n, ok := maputil.Number(v); ok {
			return !math.IsInf(n, 0) && !math.IsNaN(n)
		}

		return false
	}
}
