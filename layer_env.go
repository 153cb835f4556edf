// FILE: lixenwraith/layerconf/layer_env.go
package layerconf

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// EnvAccessor reads environment variables. Injecting it keeps EnvLayer
// independent of the process environment.
type EnvAccessor interface {
	Lookup(name string) (string, bool)
}

// OSEnv reads the process environment.
type OSEnv struct{}

// Lookup reads name with os.LookupEnv.
func (OSEnv) Lookup(name string) (string, bool) { return os.LookupEnv(name) }

// MapEnv is an in-memory environment.
type MapEnv map[string]string

// Lookup reads name from the map.
func (m MapEnv) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// EnvTransformFunc converts a configuration key to an environment variable name.
type EnvTransformFunc func(key string) string

// EnvLayer exposes environment variables as string values.
//
// By default a key maps to its variable name by replacing the delimiter
// with "_", upper-casing, and prepending the prefix: with prefix "MYAPP_",
// "server.port" reads MYAPP_SERVER_PORT. Keys bound with BindEnv use their
// explicit variable names instead.
type EnvLayer struct {
	mu        sync.RWMutex
	name      string
	prefix    string
	delimiter string
	env       EnvAccessor
	transform EnvTransformFunc
	bindings  map[string][]string
	boundOnly bool
}

// NewEnvLayer creates an environment layer. A nil accessor reads the process environment.
func NewEnvLayer(prefix, delimiter string, env EnvAccessor) *EnvLayer {
	if env == nil {
		env = OSEnv{}
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &EnvLayer{
		name:      PriorityEnvironment.String(),
		prefix:    prefix,
		delimiter: delimiter,
		env:       env,
		bindings:  make(map[string][]string),
	}
}

// SetTransform replaces the key to variable name transformation.
func (l *EnvLayer) SetTransform(fn EnvTransformFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transform = fn
}

// SetBoundOnly limits Get to keys registered with BindEnv.
func (l *EnvLayer) SetBoundOnly(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.boundOnly = on
}

// BindEnv maps key to explicit variable names, tried in order. Without
// names the key is bound to its transformed name.
func (l *EnvLayer) BindEnv(key string, names ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(names) == 0 {
		names = []string{l.envName(key)}
	}
	l.bindings[key] = names
}

// EnvName returns the variable name that key maps to without a binding.
func (l *EnvLayer) EnvName(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.envName(key)
}

func (l *EnvLayer) envName(key string) string {
	if l.transform != nil {
		return l.transform(key)
	}
	name := strings.ToUpper(strings.ReplaceAll(key, l.delimiter, "_"))
	return l.prefix + name
}

// Get reads the variable bound to key, or the transformed name when
// key is unbound.
func (l *EnvLayer) Get(key string) (Value, bool) {
	l.mu.RLock()
	names, bound := l.bindings[key]
	if !bound {
		if l.boundOnly {
			l.mu.RUnlock()
			return Value{}, false
		}
		names = []string{l.envName(key)}
	}
	l.mu.RUnlock()

	for _, name := range names {
		if v, ok := l.env.Lookup(name); ok {
			return StringValue(v), true
		}
	}
	return Value{}, false
}

// Set always fails: the environment layer is read-only.
func (l *EnvLayer) Set(key string, value Value) error {
	return &UnsupportedOperationError{Op: "set", Source: l.name}
}

// Keys returns the bound keys whose variables are present.
func (l *EnvLayer) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.bindings))
	for key, names := range l.bindings {
		for _, name := range names {
			if _, ok := l.env.Lookup(name); ok {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// SourceName returns "environment".
func (l *EnvLayer) SourceName() string { return l.name }

// Priority returns PriorityEnvironment.
func (l *EnvLayer) Priority() Priority { return PriorityEnvironment }
