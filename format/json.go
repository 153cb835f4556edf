// FILE: lixenwraith/layerconf/format/json.go
package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// JSON parses and writes .json files.
type JSON struct{}

func (JSON) Name() string         { return "json" }
func (JSON) Extensions() []string { return []string{"json"} }

// Parse decodes a JSON object. Numbers are kept as json.Number to preserve
// integer precision.
func (JSON) Parse(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var out map[string]any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("top-level JSON value must be an object")
	}

	// Reject anything after the first value
	var trailing json.RawMessage
	if err := decoder.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level JSON object")
	}

	return out, nil
}

// Serialize encodes data as indented JSON. Whole-number floats keep a
// fractional part so they parse back as floats.
func (JSON) Serialize(data map[string]any) ([]byte, error) {
	out, err := json.MarshalIndent(markFloats(data), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// markFloats copies v, replacing finite whole-number floats with a
// json.Number carrying a ".0" suffix.
func markFloats(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = markFloats(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = markFloats(item)
		}
		return out
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) || val != math.Trunc(val) {
			return val
		}
		s := strconv.FormatFloat(val, 'f', -1, 64)
		if strings.ContainsAny(s, ".eE") {
			return val
		}
		return json.Number(s + ".0")
	case float32:
		return markFloats(float64(val))
	}
	return v
}
