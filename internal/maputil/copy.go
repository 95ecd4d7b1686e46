// Package maputil provides shared utilities for the map[string]interface{}
// attribute bags that flow through plans, steps, and events: deep copying,
// filtered copying, merging, and typed field access.
package maputil

// DeepCopyMap performs a deep copy of a map[string]interface{}.
func DeepCopyMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}

	dst := make(map[string]interface{}, len(src))

	for k, v := range src {
		switch val := v.(type) {
		case map[string]interface{}:
			dst[k] = DeepCopyMap(val)
		case []interface{}:
			dst[k] = DeepCopySlice(val)
		default:
			dst[k] = v
		}
	}

	return dst
}

// DeepCopySlice performs a deep copy of a []interface{}.
func DeepCopySlice(src []interface{}) []interface{} {
	if src == nil {
		return nil
	}

	dst := make([]interface{}, len(src))

	for i, v := range src {
		switch val := v.(type) {
		case map[string]interface{}:
			dst[i] = DeepCopyMap(val)
		case []interface{}:
			dst[i] = DeepCopySlice(val)
		default:
			dst[i] = v
		}
	}

	return dst
}

// CopyExcluding deep-copies src, omitting the listed top-level keys.
func CopyExcluding(src map[string]interface{}, keys ...string) map[string]interface{} {
	if src == nil {
		return nil
	}

	skip := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		skip[k] = struct{}{}
	}

	dst := make(map[string]interface{}, len(src))

	for k, v := range src {
		if _, drop := skip[k]; drop {
			continue
		}

		switch val := v.(type) {
		case map[string]interface{}:
			dst[k] = DeepCopyMap(val)
		case []interface{}:
			dst[k] = DeepCopySlice(val)
		default:
			dst[k] = v
		}
	}

	return dst
}

// Merge deep-copies overlay's entries into dst, overwriting existing keys.
// dst may be nil, in which case a new map is allocated.
func Merge(dst, overlay map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{}, len(overlay))
	}

	for k, v := range overlay {
		switch val := v.(type) {
		case map[string]interface{}:
			dst[k] = DeepCopyMap(val)
		case []interface{}:
			dst[k] = DeepCopySlice(val)
		default:
			dst[k] = v
		}
	}

	return dst
}
