// FILE: lixenwraith/layerconf/type.go
package layerconf

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// withKey attaches the key to a coercion error.
func withKey(key string, err error) error {
	var te *TypeError
	if errors.As(err, &te) && te.Key == "" {
		te.Key = key
	}
	return err
}

// String retrieves a string value. Numbers and booleans are formatted;
// arrays and objects cannot be converted. A missing key yields "".
func (r *Registry) String(key string) (string, error) {
	v, ok := r.Get(key)
	if !ok {
		return "", nil
	}
	s, err := v.AsString()
	if err != nil {
		return "", withKey(key, err)
	}
	return s, nil
}

// Int64 retrieves an integer value. Floats are truncated, strings are
// parsed (base prefixes such as "0x" are honored), booleans map to 1 and 0.
// A missing key yields 0.
func (r *Registry) Int64(key string) (int64, error) {
	v, ok := r.Get(key)
	if !ok {
		return 0, nil
	}
	i, err := v.AsInt()
	if err != nil {
		return 0, withKey(key, err)
	}
	return i, nil
}

// Int is Int64 narrowed to int. Values outside int's range return a *TypeError.
func (r *Registry) Int(key string) (int, error) {
	i, err := r.Int64(key)
	if err != nil {
		return 0, err
	}
	return narrowInt(key, i)
}

func narrowInt(key string, i int64) (int, error) {
	if i > math.MaxInt || i < math.MinInt {
		return 0, &TypeError{Key: key, From: KindInt.String(), To: "int",
			Err: fmt.Errorf("%d overflows int", i)}
	}
	return int(i), nil
}

// Float64 retrieves a floating point value. A missing key yields 0.
func (r *Registry) Float64(key string) (float64, error) {
	v, ok := r.Get(key)
	if !ok {
		return 0, nil
	}
	f, err := v.AsFloat()
	if err != nil {
		return 0, withKey(key, err)
	}
	return f, nil
}

// Bool retrieves a boolean value.
// Strings accept true/false, 1/0, yes/no, on/off, t/f and y/n in any case;
// numbers are true when non-zero. A missing key yields false.
func (r *Registry) Bool(key string) (bool, error) {
	v, ok := r.Get(key)
	if !ok {
		return false, nil
	}
	b, err := v.AsBool()
	if err != nil {
		return false, withKey(key, err)
	}
	return b, nil
}

// StringSlice retrieves a list of strings. Comma-separated strings are
// split, which is how list values arrive from environment variables.
func (r *Registry) StringSlice(key string) ([]string, error) {
	v, ok := r.Get(key)
	if !ok {
		return nil, nil
	}
	s, err := v.AsStringSlice()
	if err != nil {
		return nil, withKey(key, err)
	}
	return s, nil
}

// Duration retrieves a time.Duration. Strings use time.ParseDuration syntax,
// integers are nanoseconds.
func (r *Registry) Duration(key string) (time.Duration, error) {
	v, ok := r.Get(key)
	if !ok {
		return 0, nil
	}
	d, err := v.AsDuration()
	if err != nil {
		return 0, withKey(key, err)
	}
	return d, nil
}
