package manifest

import (
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
)

// Matches reports whether a concrete instance bag is admissible under the
// target surface. Every capability attribute present in the instance must
// either be omitted by the target or accepted by the target's expression.
//
// Feature sentinels on the target ("feature:X") require a truthy "X" in the
// instance's features map and never read the instance bag directly.
//
// Instance values must be concrete: a list value, or a {min, max}-shaped
// map, fails the match outright. Other nested maps (features, userData,
// auth bags) are transport baggage, not capability attributes, and are
// ignored.
func Matches(target Attributes, instance map[string]interface{}) bool {
	for name := range target {
		flag, ok := strings.CutPrefix(name, FeaturePrefix)
		if !ok {
			continue
		}

		features, _ := maputil.GetMap(instance, KeyFeatures)
		if features == nil || !maputil.Truthy(features[flag]) {
			return false
		}
	}

	for name, raw := range instance {
		switch v := raw.(type) {
		case []interface{}, []string:
			return false
		case map[string]interface{}:
			if isRangeShaped(v) {
				return false
			}

			continue
		}

		expr, declared := target[name]
		if !declared {
			continue
		}

		if !expr.Admits(raw) {
			return false
		}
	}

	return true
}

// isRangeShaped reports whether a map looks like a range expression rather
// than an opaque bag.
func isRangeShaped(m map[string]interface{}) bool {
	if len(m) == 0 || len(m) > 2 {
		return false
	}

	for k, v := range m {
		if k != "min" && k != "max" {
			return false
		}

		if _, ok := maputil.Number(v); !ok {
			return false
		}
	}

	return true
}
