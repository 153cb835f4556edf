// FILE: lixenwraith/layerconf/format/yaml.go
package format

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML parses and writes .yaml and .yml files.
type YAML struct{}

func (YAML) Name() string         { return "yaml" }
func (YAML) Extensions() []string { return []string{"yaml", "yml"} }

// Parse decodes a YAML mapping. An empty document is an empty object.
func (YAML) Parse(data []byte) (map[string]any, error) {
	out := make(map[string]any)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return normalizeYAML(out).(map[string]any), nil
}

// Serialize encodes data as YAML.
func (YAML) Serialize(data map[string]any) ([]byte, error) {
	return yaml.Marshal(data)
}

// normalizeYAML converts map[any]any mappings, produced for non-string keys,
// into map[string]any.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeYAML(item)
		}
		return val
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return m
	case []any:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	default:
		return v
	}
}
