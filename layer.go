// FILE: lixenwraith/layerconf/layer.go
package layerconf

import (
	"sort"
	"sync"
)

// Priority is a layer's precedence class. Lower values take precedence.
type Priority int

const (
	// PriorityExplicit holds values set through Registry.Set and always wins.
	PriorityExplicit Priority = iota
	// PriorityFlags holds command-line flags.
	PriorityFlags
	// PriorityEnvironment holds environment variables.
	PriorityEnvironment
	// PriorityConfigFile holds parsed configuration files.
	PriorityConfigFile
	// PriorityKeyValue is reserved for remote key-value stores; no layer implements it.
	PriorityKeyValue
	// PriorityDefaults holds default values and always loses.
	PriorityDefaults
)

// String returns the priority class name.
func (p Priority) String() string {
	switch p {
	case PriorityExplicit:
		return "explicit"
	case PriorityFlags:
		return "flags"
	case PriorityEnvironment:
		return "environment"
	case PriorityConfigFile:
		return "file"
	case PriorityKeyValue:
		return "keyvalue"
	case PriorityDefaults:
		return "default"
	default:
		return "unknown"
	}
}

// Layer is a named configuration source with a fixed priority class.
type Layer interface {
	// Get returns the value stored for key, if any.
	Get(key string) (Value, bool)

	// Set stores a value. Read-only layers return an UnsupportedOperationError.
	Set(key string, value Value) error

	// Keys lists the keys the layer can enumerate.
	Keys() []string

	// SourceName identifies the layer in diagnostics.
	SourceName() string

	// Priority returns the layer's precedence class.
	Priority() Priority
}

// MapLayer is a flat, exact-match key/value layer. It backs the Explicit and
// Defaults layers of a Registry.
type MapLayer struct {
	mu       sync.RWMutex
	name     string
	priority Priority
	values   map[string]Value
}

// NewMapLayer creates an empty map layer.
func NewMapLayer(name string, priority Priority) *MapLayer {
	return &MapLayer{
		name:     name,
		priority: priority,
		values:   make(map[string]Value),
	}
}

// NewExplicitLayer creates the layer for explicitly set values.
func NewExplicitLayer() *MapLayer {
	return NewMapLayer(PriorityExplicit.String(), PriorityExplicit)
}

// NewDefaultsLayer creates the layer for default values.
func NewDefaultsLayer() *MapLayer {
	return NewMapLayer(PriorityDefaults.String(), PriorityDefaults)
}

// Get returns the value stored under exactly key.
func (l *MapLayer) Get(key string) (Value, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v, ok := l.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (l *MapLayer) Set(key string, value Value) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.values[key] = value
	return nil
}

// Delete removes key and reports whether it was present.
func (l *MapLayer) Delete(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.values[key]
	delete(l.values, key)
	return ok
}

// Keys returns the stored keys in sorted order.
func (l *MapLayer) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.values))
	for k := range l.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SourceName returns the layer name given at construction.
func (l *MapLayer) SourceName() string { return l.name }

// Priority returns the class given at construction.
func (l *MapLayer) Priority() Priority { return l.priority }
