// FILE: lixenwraith/layerconf/value.go
package layerconf

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindArray
	KindObject
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a recursive tagged configuration value shared by all layers.
// The zero Value is null. Values are treated as immutable: slices and maps
// returned by Array and Object must not be modified.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	b    bool
	arr  []Value
	obj  map[string]Value
}

// NullValue returns the null value, which is also the zero Value.
func NullValue() Value { return Value{} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{kind: KindInt, num: i} }

// FloatValue wraps f.
func FloatValue(f float64) Value { return Value{kind: KindFloat, flt: f} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ArrayValue wraps items in order.
func ArrayValue(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// ObjectValue wraps fields as an object. A nil map yields an empty object.
func ObjectValue(fields map[string]Value) Value {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return Value{kind: KindObject, obj: fields}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Array returns the elements of an array value.
func (v Value) Array() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Object returns the fields of an object value.
func (v Value) Object() (map[string]Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Field returns an object's field.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// Index returns an array element; out-of-range is not found.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Equal reports deep equality, including kind.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindInt:
		return v.num == other.num
	case KindFloat:
		return v.flt == other.flt || (math.IsNaN(v.flt) && math.IsNaN(other.flt))
	case KindBool:
		return v.b == other.b
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, fv := range v.obj {
			ov, ok := other.obj[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Any converts v into plain Go data: nil, string, int64, float64, bool,
// []any or map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.b
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Any()
		}
		return out
	default:
		return nil
	}
}

// String renders v for display. Composite values render as compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindArray, KindObject:
		data, err := json.Marshal(v.withFiniteFloats().Any())
		if err != nil {
			return fmt.Sprintf("%v", v.Any())
		}
		return string(data)
	default:
		s, _ := v.AsString()
		return s
	}
}

// withFiniteFloats replaces NaN and infinities with their string literal
// forms, since most serialization formats cannot represent them.
func (v Value) withFiniteFloats() Value {
	switch v.kind {
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			return StringValue(formatFloat(v.flt))
		}
		return v
	case KindArray:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.withFiniteFloats()
		}
		return ArrayValue(items...)
	case KindObject:
		fields := make(map[string]Value, len(v.obj))
		for k, item := range v.obj {
			fields[k] = item.withFiniteFloats()
		}
		return ObjectValue(fields)
	default:
		return v
	}
}

// AsString coerces primitives to a string. Null is the empty string.
func (v Value) AsString() (string, error) {
	switch v.kind {
	case KindNull:
		return "", nil
	case KindString:
		return v.str, nil
	case KindInt:
		return strconv.FormatInt(v.num, 10), nil
	case KindFloat:
		return formatFloat(v.flt), nil
	case KindBool:
		return strconv.FormatBool(v.b), nil
	}
	return "", &TypeError{From: v.kind.String(), To: KindString.String()}
}

// AsInt coerces to int64. Finite floats are truncated, strings are parsed
// with base prefix detection and a float fallback, booleans map to 1 and 0.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.num, nil
	case KindFloat:
		return floatToInt(v.flt)
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		s := strings.TrimSpace(v.str)
		i, err := strconv.ParseInt(s, 0, 64)
		if err == nil {
			return i, nil
		}
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return floatToInt(f)
		}
		return 0, &TypeError{From: KindString.String(), To: KindInt.String(), Err: err}
	}
	return 0, &TypeError{From: v.kind.String(), To: KindInt.String()}
}

// AsFloat coerces to float64.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.flt, nil
	case KindInt:
		return float64(v.num), nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, &TypeError{From: KindString.String(), To: KindFloat.String(), Err: err}
		}
		return f, nil
	}
	return 0, &TypeError{From: v.kind.String(), To: KindFloat.String()}
}

// AsBool coerces to bool. Strings must belong to a fixed case-insensitive
// vocabulary; numbers are true when non-zero.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.num != 0, nil
	case KindFloat:
		return v.flt != 0, nil
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "true", "1", "yes", "on", "t", "y":
			return true, nil
		case "false", "0", "no", "off", "f", "n", "":
			return false, nil
		}
		return false, &TypeError{From: KindString.String(), To: KindBool.String(),
			Err: fmt.Errorf("unrecognized boolean %q", v.str)}
	}
	return false, &TypeError{From: v.kind.String(), To: KindBool.String()}
}

// AsStringSlice coerces arrays elementwise and splits strings on commas.
func (v Value) AsStringSlice() ([]string, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindArray:
		out := make([]string, len(v.arr))
		for i, item := range v.arr {
			s, err := item.AsString()
			if err != nil {
				return nil, &TypeError{From: KindArray.String(), To: "string slice", Err: err}
			}
			out[i] = s
		}
		return out, nil
	case KindString:
		if strings.TrimSpace(v.str) == "" {
			return []string{}, nil
		}
		parts := strings.Split(v.str, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
	return nil, &TypeError{From: v.kind.String(), To: "string slice"}
}

// AsDuration parses strings with time.ParseDuration and treats integers as nanoseconds.
func (v Value) AsDuration() (time.Duration, error) {
	switch v.kind {
	case KindString:
		d, err := time.ParseDuration(strings.TrimSpace(v.str))
		if err != nil {
			return 0, &TypeError{From: KindString.String(), To: "duration", Err: err}
		}
		return d, nil
	case KindInt:
		return time.Duration(v.num), nil
	case KindFloat:
		i, err := floatToInt(v.flt)
		if err != nil {
			return 0, &TypeError{From: KindFloat.String(), To: "duration", Err: err}
		}
		return time.Duration(i), nil
	}
	return 0, &TypeError{From: v.kind.String(), To: "duration"}
}

// FromAny converts Go data into a Value. It accepts the output of the
// format parsers, Value itself, integer/float/bool/string types of any
// width, slices, maps with string-like keys, and structs (decoded through
// their `toml` tags).
func FromAny(in any) (Value, error) {
	switch val := in.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return val, nil
	case string:
		return StringValue(val), nil
	case bool:
		return BoolValue(val), nil
	case int:
		return IntValue(int64(val)), nil
	case int64:
		return IntValue(val), nil
	case float64:
		return FloatValue(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return Value{}, &InvalidValueError{Value: in, Reason: err.Error()}
		}
		return FloatValue(f), nil
	case time.Duration:
		return StringValue(val.String()), nil
	case time.Time:
		return StringValue(val.Format(time.RFC3339Nano)), nil
	case []byte:
		return StringValue(string(val)), nil
	case map[string]any:
		fields := make(map[string]Value, len(val))
		for k, item := range val {
			fv, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = fv
		}
		return ObjectValue(fields), nil
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			iv, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = iv
		}
		return ArrayValue(items...), nil
	}

	return fromReflect(reflect.ValueOf(in))
}

func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Value{}, nil
		}
		return FromAny(rv.Elem().Interface())
	case reflect.String:
		return StringValue(rv.String()), nil
	case reflect.Bool:
		return BoolValue(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntValue(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, &InvalidValueError{Value: rv.Interface(), Reason: "unsigned integer overflows int64"}
		}
		return IntValue(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return FloatValue(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return ArrayValue(), nil
		}
		items := make([]Value, rv.Len())
		for i := range items {
			iv, err := FromAny(rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			items[i] = iv
		}
		return ArrayValue(items...), nil
	case reflect.Map:
		fields := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			fv, err := FromAny(iter.Value().Interface())
			if err != nil {
				return Value{}, err
			}
			fields[fmt.Sprint(iter.Key().Interface())] = fv
		}
		return ObjectValue(fields), nil
	case reflect.Struct:
		out := make(map[string]any)
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:  &out,
			TagName: DefaultTagName,
		})
		if err != nil {
			return Value{}, &InvalidValueError{Value: rv.Interface(), Reason: err.Error()}
		}
		if err := decoder.Decode(rv.Interface()); err != nil {
			return Value{}, &InvalidValueError{Value: rv.Interface(), Reason: err.Error()}
		}
		return FromAny(out)
	}

	if !rv.IsValid() {
		return Value{}, nil
	}
	return Value{}, &InvalidValueError{Value: rv.Interface(), Reason: "unsupported type"}
}

// flatten returns leaf paths of v joined by delim. Arrays and empty objects
// are leaves.
func (v Value) flatten(prefix, delim string, out map[string]Value) {
	if v.kind != KindObject || len(v.obj) == 0 {
		if prefix != "" {
			out[prefix] = v
		}
		return
	}
	for k, item := range v.obj {
		path := k
		if prefix != "" {
			path = prefix + delim + k
		}
		item.flatten(path, delim, out)
	}
}

// sortedKeys returns an object's field names in order.
func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, &TypeError{From: KindFloat.String(), To: KindInt.String(),
			Err: fmt.Errorf("%s out of range", formatFloat(f))}
	}
	return int64(f), nil
}
