// FILE: lixenwraith/layerconf/registry.go
package layerconf

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/imdario/mergo"

	"github.com/lixenwraith/layerconf/format"
)

// Registry merges configuration layers by precedence.
//
// Layers are kept sorted by priority class; reads return the value of the
// highest-precedence layer that has the key. Set and SetDefault write into
// a single Explicit and a single Defaults layer, created on first use.
//
// Reads may run concurrently. Mutations (Set, SetDefault, adding and
// removing layers, reloads) take an exclusive lock.
type Registry struct {
	mu        sync.RWMutex
	layers    []Layer // ascending priority value, highest precedence first
	explicit  *MapLayer
	defaults  *MapLayer
	delimiter string
	formats   *format.Registry
	logger    *slog.Logger

	// File discovery
	configName  string
	configPaths []string
	configFile  string

	// Watch state
	watchMu      sync.Mutex
	monitor      *monitor
	tracked      atomic.Pointer[map[string]struct{}]
	reloadNeeded atomic.Bool
	reloadMu     sync.Mutex // serializes reparse through commit
	cbMu         sync.RWMutex
	callbacks    []func(Event)
}

// Option configures a Registry.
type Option func(*Registry)

// WithDelimiter sets the key path delimiter. The default is ".".
func WithDelimiter(delim string) Option {
	return func(r *Registry) {
		if delim != "" {
			r.delimiter = delim
		}
	}
}

// WithLogger sets the logger for layer changes and reload activity.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFormats sets the parsers used for config files.
func WithFormats(formats *format.Registry) Option {
	return func(r *Registry) {
		if formats != nil {
			r.formats = formats
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		delimiter: DefaultDelimiter,
		formats:   format.Default(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Delimiter returns the key path delimiter.
func (r *Registry) Delimiter() string { return r.delimiter }

// Formats returns the parser registry used for config files.
func (r *Registry) Formats() *format.Registry { return r.formats }

// AddLayer inserts a layer according to its priority. Among layers of the
// same class, the most recently added one takes precedence.
//
// Explicit and Defaults layers must be *MapLayer; adding one replaces the
// registry's current layer of that class.
func (r *Registry) AddLayer(l Layer) error {
	if l == nil {
		return &InvalidValueError{Value: l, Reason: "nil layer"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch l.Priority() {
	case PriorityExplicit, PriorityDefaults:
		ml, ok := l.(*MapLayer)
		if !ok {
			return &UnsupportedOperationError{Op: "add " + l.Priority().String() + " layer of type " + fmt.Sprintf("%T", l), Source: l.SourceName()}
		}
		if l.Priority() == PriorityExplicit {
			if r.explicit != nil {
				r.removeLocked(r.explicit)
			}
			r.explicit = ml
		} else {
			if r.defaults != nil {
				r.removeLocked(r.defaults)
			}
			r.defaults = ml
		}
	}

	r.insertLocked(l)

	if fl, ok := l.(*FileLayer); ok {
		r.trackLocked(fl)
	}
	return nil
}

func (r *Registry) insertLocked(l Layer) {
	idx := sort.Search(len(r.layers), func(i int) bool {
		return r.layers[i].Priority() >= l.Priority()
	})
	r.layers = append(r.layers, nil)
	copy(r.layers[idx+1:], r.layers[idx:])
	r.layers[idx] = l

	r.logger.Debug("config layer added",
		slog.String("source", l.SourceName()),
		slog.String("priority", l.Priority().String()),
		slog.Int("layers", len(r.layers)))
}

// RemoveLayer removes l and reports whether it was present.
func (r *Registry) RemoveLayer(l Layer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(l)
}

func (r *Registry) removeLocked(l Layer) bool {
	for i, existing := range r.layers {
		if existing != l {
			continue
		}
		r.layers = append(r.layers[:i], r.layers[i+1:]...)
		r.clearSlot(existing)
		r.logger.Debug("config layer removed", slog.String("source", l.SourceName()))
		return true
	}
	return false
}

// RemoveLayers removes every layer of priority class p and returns how many
// were removed.
func (r *Registry) RemoveLayers(p Priority) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.layers[:0]
	removed := 0
	for _, l := range r.layers {
		if l.Priority() == p {
			r.clearSlot(l)
			removed++
			continue
		}
		kept = append(kept, l)
	}
	for i := len(kept); i < len(r.layers); i++ {
		r.layers[i] = nil
	}
	r.layers = kept

	if removed > 0 {
		r.logger.Debug("config layers removed",
			slog.String("priority", p.String()),
			slog.Int("count", removed))
	}
	return removed
}

func (r *Registry) clearSlot(l Layer) {
	if ml, ok := l.(*MapLayer); ok {
		if ml == r.explicit {
			r.explicit = nil
		}
		if ml == r.defaults {
			r.defaults = nil
		}
	}
}

// Layers returns the active layers, highest precedence first.
func (r *Registry) Layers() []Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Layer, len(r.layers))
	copy(out, r.layers)
	return out
}

// AddConfigFile loads path as a File layer.
func (r *Registry) AddConfigFile(path string) error {
	fl, err := NewFileLayer(path, WithFileFormats(r.formats), WithFileDelimiter(r.delimiter))
	if err != nil {
		return err
	}
	return r.AddLayer(fl)
}

// Set stores value in the Explicit layer, which overrides every other source.
func (r *Registry) Set(key string, value any) error {
	v, err := FromAny(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.explicit == nil {
		r.explicit = NewExplicitLayer()
		r.insertLocked(r.explicit)
	}
	return r.explicit.Set(key, v)
}

// SetDefault stores value in the Defaults layer, which every other source overrides.
func (r *Registry) SetDefault(key string, value any) error {
	v, err := FromAny(value)
	if err != nil {
		return fmt.Errorf("set default %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defaults == nil {
		r.defaults = NewDefaultsLayer()
		r.insertLocked(r.defaults)
	}
	return r.defaults.Set(key, v)
}

// Get returns the value for key from the highest-precedence layer that has
// it. When no layer holds the exact key and the key contains the
// delimiter, it is resolved structurally through objects and arrays.
// A missing key is reported by the second return value, never by an error.
func (r *Registry) Get(key string) (Value, bool) {
	v, _, ok := r.GetSource(key)
	return v, ok
}

// GetSource is like Get and also names the layer the value came from.
func (r *Registry) GetSource(key string) (Value, string, bool) {
	r.checkReload()

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, src, ok := r.getLocked(key)
	if !ok {
		return Value{}, "", false
	}
	return v, src.SourceName(), true
}

// IsSet reports whether any layer provides key.
func (r *Registry) IsSet(key string) bool {
	_, ok := r.Get(key)
	return ok
}

func (r *Registry) lookupLocked(key string) (Value, Layer, bool) {
	for _, l := range r.layers {
		if v, ok := l.Get(key); ok {
			return v, l, true
		}
	}
	return Value{}, nil, false
}

func (r *Registry) getLocked(key string) (Value, Layer, bool) {
	var src Layer
	v, ok := resolve(key, r.delimiter, func(k string) (Value, bool) {
		v, l, found := r.lookupLocked(k)
		if found {
			src = l
		}
		return v, found
	})
	return v, src, ok
}

// Keys returns the sorted union of all layers' keys.
func (r *Registry) Keys() []string {
	r.checkReload()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keysLocked()
}

func (r *Registry) keysLocked() []string {
	seen := make(map[string]struct{})
	for _, l := range r.layers {
		for _, k := range l.Keys() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AllSettings returns the merged configuration as a nested map. Dotted flat
// keys are expanded into nested objects, and each key carries the value
// Get would return for it.
func (r *Registry) AllSettings() map[string]any {
	r.checkReload()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settingsLocked(false)
}

// settingsLocked builds the nested view. With finiteFloats set, NaN and
// infinities become strings.
func (r *Registry) settingsLocked(finiteFloats bool) map[string]any {
	out := make(map[string]any)
	for _, key := range r.keysLocked() {
		v, _, ok := r.getLocked(key)
		if !ok {
			continue
		}
		if finiteFloats {
			v = v.withFiniteFloats()
		}
		insertNested(out, strings.Split(key, r.delimiter), v.Any())
	}
	return out
}

// insertNested stores value at path, replacing non-map intermediates.
// When both the existing and the new value are maps they are deep-merged
// with the new value winning.
func insertNested(root map[string]any, path []string, value any) {
	current := root
	for _, segment := range path[:len(path)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}

	last := path[len(path)-1]
	existing, existingIsMap := current[last].(map[string]any)
	incoming, incomingIsMap := value.(map[string]any)
	if existingIsMap && incomingIsMap {
		if err := mergo.Merge(&existing, incoming, mergo.WithOverride); err == nil {
			current[last] = existing
			return
		}
	}
	current[last] = value
}
