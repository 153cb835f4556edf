// FILE: lixenwraith/layerconf/errors.go
package layerconf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lixenwraith/layerconf/format"
)

// Error categories. Every concrete error type below matches exactly one of
// these through errors.Is.
var (
	ErrIO                   = errors.New("config io failure")
	ErrParse                = errors.New("config parse failure")
	ErrKeyNotFound          = errors.New("config key not found")
	ErrTypeConversion       = errors.New("config type conversion failure")
	ErrUnsupportedFormat    = format.ErrUnsupportedFormat
	ErrWatch                = errors.New("config watch failure")
	ErrSerialization        = errors.New("config serialization failure")
	ErrDeserialization      = errors.New("config deserialization failure")
	ErrInvalidValue         = errors.New("invalid config value")
	ErrUnsupportedOperation = errors.New("unsupported config operation")

	// ErrConfigNotFound indicates that a config file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrNoFileLayers is returned when watching is requested without any file layer.
	ErrNoFileLayers = errors.New("no file layers to watch")
)

// IOError wraps a filesystem failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s '%s': %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error        { return e.Err }
func (e *IOError) Is(target error) bool { return target == ErrIO }

// ParseError reports content a parser rejected.
type ParseError struct {
	// Source is the file path or layer name being parsed.
	Source  string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse config '%s': %s", e.Source, e.Message)
}

func (e *ParseError) Unwrap() error        { return e.Err }
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// KeyNotFoundError is returned by operations that require a key to exist.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string        { return fmt.Sprintf("key not found: %s", e.Key) }
func (e *KeyNotFoundError) Is(target error) bool { return target == ErrKeyNotFound }

// TypeError reports a failed coercion between value kinds.
type TypeError struct {
	Key  string
	From string
	To   string
	Err  error
}

func (e *TypeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cannot convert %s to %s", e.From, e.To)
	if e.Key != "" {
		fmt.Fprintf(&b, " for key %s", e.Key)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TypeError) Unwrap() error        { return e.Err }
func (e *TypeError) Is(target error) bool { return target == ErrTypeConversion }

// UnsupportedOperationError is returned when writing into a read-only layer.
type UnsupportedOperationError struct {
	Op     string
	Source string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation %s not supported by layer %s", e.Op, e.Source)
}

func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupportedOperation }

// WatchError wraps a failure to start or run the file monitor.
type WatchError struct {
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("watch failed: %v", e.Err)
	}
	return fmt.Sprintf("watch failed for '%s': %v", e.Path, e.Err)
}

func (e *WatchError) Unwrap() error        { return e.Err }
func (e *WatchError) Is(target error) bool { return target == ErrWatch }

// SerializationError wraps a parser's failure to encode data.
type SerializationError struct {
	Format string
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to marshal config data to %s: %v", e.Format, e.Err)
}

func (e *SerializationError) Unwrap() error        { return e.Err }
func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

// DeserializationError wraps a failure to decode configuration into a Go value.
type DeserializationError struct {
	Key string
	Err error
}

func (e *DeserializationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("decode failed: %v", e.Err)
	}
	return fmt.Sprintf("decode failed for key %q: %v", e.Key, e.Err)
}

func (e *DeserializationError) Unwrap() error        { return e.Err }
func (e *DeserializationError) Is(target error) bool { return target == ErrDeserialization }

// InvalidValueError reports a Go value that cannot be represented as a Value.
type InvalidValueError struct {
	Value  any
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value of type %T: %s", e.Value, e.Reason)
}

func (e *InvalidValueError) Is(target error) bool { return target == ErrInvalidValue }

// ConfigFileNotFoundError is returned when discovery finds no config file.
type ConfigFileNotFoundError struct {
	Name  string
	Paths []string
}

func (e *ConfigFileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found in [%s]", e.Name, strings.Join(e.Paths, ", "))
}

func (e *ConfigFileNotFoundError) Is(target error) bool { return target == ErrConfigNotFound }
