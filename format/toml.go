// FILE: lixenwraith/layerconf/format/toml.go
package format

import (
	"bytes"

	"github.com/BurntSushi/toml"
)

// TOML parses and writes .toml files.
type TOML struct{}

func (TOML) Name() string         { return "toml" }
func (TOML) Extensions() []string { return []string{"toml"} }

// Parse decodes a TOML document.
func (TOML) Parse(data []byte) (map[string]any, error) {
	out := make(map[string]any)
	if err := toml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Serialize encodes data as TOML. TOML has no null, so nil values are dropped.
func (TOML) Serialize(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(stripNil(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stripNil(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = stripNil(val)
		case []any:
			items := make([]any, 0, len(val))
			for _, item := range val {
				if item == nil {
					continue
				}
				if sub, ok := item.(map[string]any); ok {
					item = stripNil(sub)
				}
				items = append(items, item)
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}
