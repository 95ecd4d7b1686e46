package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	yamlv3 "gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// SerializeOptions configures the canonical YAML serializer.
type SerializeOptions struct {
	// Indent is the number of spaces per indentation level (default: 2).
	Indent int
}

// DefaultSerializeOptions returns sensible defaults.
func DefaultSerializeOptions() SerializeOptions {
	return SerializeOptions{
		Indent: 2,
	}
}

// Serialize converts a value to canonical YAML bytes. The value is first
// normalized through its JSON representation so struct tags are honored and
// numbers come out uniformly, then encoded with deterministic key ordering
// and without null or empty-map noise.
func Serialize(v interface{}, opts SerializeOptions) ([]byte, error) {
	if opts.Indent == 0 {
		opts.Indent = 2
	}

	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	enc := yamlv3.NewEncoder(&buf)
	enc.SetIndent(opts.Indent)

	if err := enc.Encode(normalized); err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// SerializeJSON converts a value to indented JSON bytes with a trailing
// newline.
func SerializeJSON(v interface{}, indent string) ([]byte, error) {
	if indent == "" {
		indent = "  "
	}

	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(normalized, "", indent)
	if err != nil {
		return nil, fmt.Errorf("serializing JSON: %w", err)
	}

	return append(out, '\n'), nil
}

// normalize round-trips a value through its JSON representation and strips
// nil values and empty maps. The round trip turns arbitrary structs into
// plain maps and slices with uniform scalar types, so both encoders produce
// the same shape.
func normalize(v interface{}) (interface{}, error) {
	data, err := sigsyaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalizing value: %w", err)
	}

	var raw interface{}
	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("normalizing value: %w", err)
	}

	return cleanValue(raw), nil
}

// cleanValue recursively removes nil values and empty maps.
func cleanValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(val))

		for k, item := range val {
			cleaned := cleanValue(item)
			if cleaned != nil {
				result[k] = cleaned
			}
		}

		if len(result) == 0 {
			return nil
		}

		return result
	case []interface{}:
		result := make([]interface{}, 0, len(val))

		for _, item := range val {
			cleaned := cleanValue(item)
			if cleaned != nil {
				result = append(result, cleaned)
			}
		}

		return result
	default:
		return v
	}
}
