package maputil

// GetString returns the string stored under key, if present.
func GetString(m map[string]interface{}, key string) (string, bool) {
	if m == nil {
		return "", false
	}

	s, ok := m[key].(string)

	return s, ok
}

// GetNumber returns the numeric value stored under key coerced to float64.
func GetNumber(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}

	return Number(m[key])
}

// GetMap returns the nested map stored under key, if present.
func GetMap(m map[string]interface{}, key string) (map[string]interface{}, bool) {
	if m == nil {
		return nil, false
	}

	nested, ok := m[key].(map[string]interface{})

	return nested, ok
}

// Number coerces any Go or decoded-JSON/YAML numeric type to float64.
func Number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Truthy reports whether a decoded attribute value should be treated as a
// set flag: true booleans, non-zero numbers, and the strings "true"/"1".
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	default:
		if n, ok := Number(v); ok {
			return n != 0
		}

		return false
	}
}
