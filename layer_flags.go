// FILE: lixenwraith/layerconf/layer_flags.go
package layerconf

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// FlagsLayer exposes the flags of a pflag.FlagSet that were set on the
// command line. Unchanged flags are invisible so that files and defaults can
// supply those keys.
//
// A key resolves to the flag named after it with the delimiter replaced by
// "." or, failing that, by "-": "server.port" matches --server.port or
// --server-port.
type FlagsLayer struct {
	name      string
	flags     *pflag.FlagSet
	delimiter string
}

// NewFlagsLayer wraps a flag set. The set should be parsed before values are read.
func NewFlagsLayer(flags *pflag.FlagSet, delimiter string) *FlagsLayer {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &FlagsLayer{
		name:      PriorityFlags.String(),
		flags:     flags,
		delimiter: delimiter,
	}
}

func (l *FlagsLayer) lookup(key string) *pflag.Flag {
	if f := l.flags.Lookup(strings.ReplaceAll(key, l.delimiter, ".")); f != nil {
		return f
	}
	return l.flags.Lookup(strings.ReplaceAll(key, l.delimiter, "-"))
}

// Get returns the value of the flag for key when it was set on the command line.
func (l *FlagsLayer) Get(key string) (Value, bool) {
	f := l.lookup(key)
	if f == nil || !f.Changed {
		return Value{}, false
	}
	return flagValue(f), true
}

// Set always fails: flags are read-only.
func (l *FlagsLayer) Set(key string, value Value) error {
	return &UnsupportedOperationError{Op: "set", Source: l.name}
}

// Keys returns the names of changed flags, with "." replaced by the delimiter.
func (l *FlagsLayer) Keys() []string {
	var keys []string
	l.flags.Visit(func(f *pflag.Flag) {
		keys = append(keys, strings.ReplaceAll(f.Name, ".", l.delimiter))
	})
	sort.Strings(keys)
	return keys
}

// SourceName returns "flags".
func (l *FlagsLayer) SourceName() string { return l.name }

// Priority returns PriorityFlags.
func (l *FlagsLayer) Priority() Priority { return PriorityFlags }

// flagValue maps a flag onto the closest Value kind, falling back to its
// string form.
func flagValue(f *pflag.Flag) Value {
	typ := f.Value.Type()

	if sv, ok := f.Value.(pflag.SliceValue); ok {
		raw := sv.GetSlice()
		elemType := strings.TrimSuffix(strings.TrimSuffix(typ, "Slice"), "Array")
		items := make([]Value, len(raw))
		for i, s := range raw {
			items[i] = scalarFlagValue(elemType, s)
		}
		return ArrayValue(items...)
	}

	return scalarFlagValue(typ, f.Value.String())
}

func scalarFlagValue(typ, s string) Value {
	switch {
	case typ == "bool":
		if b, err := strconv.ParseBool(s); err == nil {
			return BoolValue(b)
		}
	case strings.HasPrefix(typ, "int") || strings.HasPrefix(typ, "uint"):
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntValue(i)
		}
	case strings.HasPrefix(typ, "float"):
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FloatValue(f)
		}
	}
	return StringValue(s)
}
