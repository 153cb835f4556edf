// FILE: lixenwraith/layerconf/key.go
package layerconf

import (
	"strconv"
	"strings"
)

// DefaultDelimiter separates path segments in keys.
const DefaultDelimiter = "."

// KeyPart is one segment of a parsed key path: an object field name or an
// array index.
type KeyPart struct {
	Key     string
	Index   int
	IsIndex bool
}

// String returns the segment text.
func (p KeyPart) String() string {
	if p.IsIndex {
		return strconv.Itoa(p.Index)
	}
	return p.Key
}

// ParseKey splits key on delim. A segment is an index if and only if it
// consists solely of decimal digits and fits an int; every other segment,
// including the empty one, is a field name.
func ParseKey(key, delim string) []KeyPart {
	if delim == "" {
		delim = DefaultDelimiter
	}
	segments := strings.Split(key, delim)
	parts := make([]KeyPart, len(segments))
	for i, segment := range segments {
		parts[i] = parseSegment(segment)
	}
	return parts
}

func parseSegment(segment string) KeyPart {
	if segment == "" {
		return KeyPart{Key: segment}
	}
	for i := 0; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return KeyPart{Key: segment}
		}
	}
	n, err := strconv.Atoi(segment)
	if err != nil {
		return KeyPart{Key: segment}
	}
	return KeyPart{Key: segment, Index: n, IsIndex: true}
}

// lookupFunc performs an exact-key lookup.
type lookupFunc func(key string) (Value, bool)

// resolve finds key using exact lookup first, then structural traversal.
//
// On an exact miss the key is split on delim and prefixes are tried from
// longest to shortest; the first prefix that resolves becomes the root and
// the remaining parts are walked through it. A literal key therefore always
// shadows the structural path of the same name. Type mismatches, missing
// fields and out-of-range indices are reported as not found.
func resolve(key, delim string, lookup lookupFunc) (Value, bool) {
	if v, ok := lookup(key); ok {
		return v, true
	}
	if delim == "" || !strings.Contains(key, delim) {
		return Value{}, false
	}

	segments := strings.Split(key, delim)
	for i := len(segments); i >= 1; i-- {
		root, ok := lookup(strings.Join(segments[:i], delim))
		if !ok {
			continue
		}
		if i == len(segments) {
			return root, true
		}
		rest := make([]KeyPart, 0, len(segments)-i)
		for _, segment := range segments[i:] {
			rest = append(rest, parseSegment(segment))
		}
		return traverse(root, rest)
	}
	return Value{}, false
}

// traverse walks parts through v.
func traverse(v Value, parts []KeyPart) (Value, bool) {
	current := v
	for _, part := range parts {
		var ok bool
		if part.IsIndex {
			current, ok = current.Index(part.Index)
		} else {
			current, ok = current.Field(part.Key)
		}
		if !ok {
			return Value{}, false
		}
	}
	return current, true
}

// setPath returns a copy of root with value stored at parts. Missing or
// non-object intermediates become objects; in-range array elements are
// descended into. Only the containers along the path are copied.
func setPath(root Value, parts []KeyPart, value Value) Value {
	if len(parts) == 0 {
		return value
	}
	part := parts[0]

	if part.IsIndex && root.kind == KindArray && part.Index < len(root.arr) {
		items := make([]Value, len(root.arr))
		copy(items, root.arr)
		items[part.Index] = setPath(items[part.Index], parts[1:], value)
		return ArrayValue(items...)
	}

	fields := make(map[string]Value, len(root.obj)+1)
	if root.kind == KindObject {
		for k, item := range root.obj {
			fields[k] = item
		}
	}
	fields[part.Key] = setPath(fields[part.Key], parts[1:], value)
	return ObjectValue(fields)
}
