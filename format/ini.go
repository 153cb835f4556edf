// FILE: lixenwraith/layerconf/format/ini.go
package format

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// INI parses and writes .ini files.
//
// Keys of the default section map to top-level keys, and a section named
// "a.b" maps to the nested object a -> b. INI carries no types, so every
// parsed value is a string; arrays are written comma-joined.
type INI struct{}

func (INI) Name() string         { return "ini" }
func (INI) Extensions() []string { return []string{"ini"} }

// Parse maps default-section keys to the top level and nests dotted
// section names.
func (INI) Parse(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{}, data)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	for _, sec := range file.Sections() {
		target := out
		if sec.Name() != ini.DefaultSection {
			target = sectionMap(out, strings.Split(sec.Name(), "."))
		}
		for _, key := range sec.Keys() {
			target[key.Name()] = key.Value()
		}
	}
	return out, nil
}

// Serialize writes scalars as keys and nested objects as sections.
func (INI) Serialize(data map[string]any) ([]byte, error) {
	file := ini.Empty()
	if err := writeINISection(file, ini.DefaultSection, data); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sectionMap walks or creates the nested map for a dotted section name.
func sectionMap(root map[string]any, segments []string) map[string]any {
	current := root
	for _, segment := range segments {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	return current
}

func writeINISection(file *ini.File, name string, data map[string]any) error {
	sec, err := file.NewSection(name)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var children []string
	for _, k := range keys {
		if _, isMap := data[k].(map[string]any); isMap {
			children = append(children, k)
			continue
		}
		if _, err := sec.NewKey(k, iniValue(data[k])); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}

	for _, k := range children {
		childName := k
		if name != ini.DefaultSection {
			childName = name + "." + k
		}
		if err := writeINISection(file, childName, data[k].(map[string]any)); err != nil {
			return err
		}
	}
	return nil
}

func iniValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = iniValue(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}
