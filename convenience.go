// FILE: lixenwraith/layerconf/convenience.go
package layerconf

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/lixenwraith/layerconf/format"
)

// Quick creates a Registry from defaults, environment variables with
// envPrefix, and an optional config file, with the usual precedence:
// environment over file over defaults.
// A missing configFile is reported through an error matching ErrConfigNotFound.
func Quick(defaults any, envPrefix, configFile string) (*Registry, error) {
	return NewBuilder().
		WithDefaults(defaults).
		WithEnvPrefix(envPrefix).
		WithFile(configFile).
		Build()
}

// MustQuick is like Quick but panics on error
func MustQuick(defaults any, envPrefix, configFile string) *Registry {
	r, err := Quick(defaults, envPrefix, configFile)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return r
}

// GenerateFlags registers a flag for every key that has a default value
// and is not already defined in fs. Flag types follow the default's kind.
func (r *Registry) GenerateFlags(fs *pflag.FlagSet) {
	r.mu.RLock()
	defaults := r.defaults
	r.mu.RUnlock()
	if defaults == nil {
		return
	}

	for _, key := range defaults.Keys() {
		name := strings.ReplaceAll(key, r.delimiter, ".")
		if fs.Lookup(name) != nil {
			continue
		}
		v, _ := defaults.Get(key)
		usage := fmt.Sprintf("Config: %s", key)

		switch v.Kind() {
		case KindBool:
			b, _ := v.AsBool()
			fs.Bool(name, b, usage)
		case KindInt:
			i, _ := v.AsInt()
			fs.Int64(name, i, usage)
		case KindFloat:
			f, _ := v.AsFloat()
			fs.Float64(name, f, usage)
		case KindArray:
			s, err := v.AsStringSlice()
			if err != nil {
				fs.String(name, v.String(), usage)
				continue
			}
			fs.StringSlice(name, s, usage)
		default:
			s, err := v.AsString()
			if err != nil {
				s = v.String()
			}
			fs.String(name, s, usage)
		}
	}
}

// Validate checks that every required key is provided by some layer
func (r *Registry) Validate(required ...string) error {
	var missing []string
	for _, key := range required {
		if !r.IsSet(key) {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ExportEnv renders the configuration as environment variables named the
// way an EnvLayer with prefix would read them. Keys whose value comes from
// the Defaults layer are skipped, as are arrays and objects.
func (r *Registry) ExportEnv(prefix string) map[string]string {
	r.checkReload()

	r.mu.RLock()
	defer r.mu.RUnlock()

	names := NewEnvLayer(prefix, r.delimiter, MapEnv{})
	exports := make(map[string]string)
	for _, key := range r.keysLocked() {
		v, src, ok := r.getLocked(key)
		if !ok || src.Priority() == PriorityDefaults {
			continue
		}
		s, err := v.AsString()
		if err != nil {
			continue
		}
		exports[names.EnvName(key)] = s
	}
	return exports
}

// Debug returns a formatted string showing the layer stack and every
// key's effective value with the layer that supplied it.
func (r *Registry) Debug() string {
	r.checkReload()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	b.WriteString("Layers:\n")
	for i, l := range r.layers {
		fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, l.SourceName(), l.Priority())
	}
	b.WriteString("Current values:\n")
	for _, key := range r.keysLocked() {
		v, src, ok := r.getLocked(key)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %s = %s  [%s]\n", key, v, src.SourceName())
	}
	return b.String()
}

// Dump writes the merged configuration to w in TOML format
func (r *Registry) Dump(w io.Writer) error {
	r.checkReload()
	r.mu.RLock()
	settings := r.settingsLocked(true)
	r.mu.RUnlock()

	data, err := format.TOML{}.Serialize(settings)
	if err != nil {
		return &SerializationError{Format: "toml", Err: err}
	}
	_, err = w.Write(data)
	return err
}
