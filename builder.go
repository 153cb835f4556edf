// FILE: lixenwraith/layerconf/builder.go
package layerconf

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/lixenwraith/layerconf/format"
)

// ValidatorFunc validates a fully built Registry.
type ValidatorFunc func(r *Registry) error

// Builder provides a fluent interface for assembling a Registry from
// defaults, config files, environment variables and flags.
type Builder struct {
	delimiter    string
	logger       *slog.Logger
	formats      *format.Registry
	defaults     any
	envEnabled   bool
	envPrefix    string
	envTransform EnvTransformFunc
	envAccessor  EnvAccessor
	envWhitelist map[string]bool
	flags        *pflag.FlagSet
	files        []string
	configName   string
	configPaths  []string
	watch        bool
	validators   []ValidatorFunc
}

// NewBuilder creates a new configuration builder
func NewBuilder() *Builder {
	return &Builder{
		delimiter: DefaultDelimiter,
	}
}

// WithDefaults sets a struct or map holding default values. Structs are
// read through their `toml` tags. Nested fields become leaf keys such as
// "server.port".
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = defaults
	return b
}

// WithDelimiter sets the key path delimiter
func (b *Builder) WithDelimiter(delim string) *Builder {
	if delim != "" {
		b.delimiter = delim
	}
	return b
}

// WithLogger sets the registry logger
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithFormats replaces the config file parsers
func (b *Builder) WithFormats(formats *format.Registry) *Builder {
	b.formats = formats
	return b
}

// WithEnvPrefix enables the environment layer with the given variable prefix
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.envEnabled = true
	b.envPrefix = prefix
	return b
}

// WithEnvTransform sets a custom key to environment variable transformer
func (b *Builder) WithEnvTransform(fn EnvTransformFunc) *Builder {
	b.envEnabled = true
	b.envTransform = fn
	return b
}

// WithEnvAccessor reads environment variables from env instead of the process
func (b *Builder) WithEnvAccessor(env EnvAccessor) *Builder {
	b.envEnabled = true
	b.envAccessor = env
	return b
}

// WithEnvWhitelist limits the environment layer to the listed default keys
func (b *Builder) WithEnvWhitelist(keys ...string) *Builder {
	if b.envWhitelist == nil {
		b.envWhitelist = make(map[string]bool)
	}
	for _, key := range keys {
		b.envWhitelist[key] = true
	}
	return b
}

// WithFlags adds a flags layer over fs. Only flags set on the command line
// override other sources.
func (b *Builder) WithFlags(fs *pflag.FlagSet) *Builder {
	b.flags = fs
	return b
}

// WithFile adds a config file. Files added later take precedence over
// earlier ones.
func (b *Builder) WithFile(path string) *Builder {
	if path != "" {
		b.files = append(b.files, path)
	}
	return b
}

// WithConfigName enables config file discovery for name.<ext>
func (b *Builder) WithConfigName(name string) *Builder {
	b.configName = name
	return b
}

// WithConfigPaths adds directories searched during discovery
func (b *Builder) WithConfigPaths(dirs ...string) *Builder {
	b.configPaths = append(b.configPaths, dirs...)
	return b
}

// WithWatch starts watching config files once the registry is built
func (b *Builder) WithWatch() *Builder {
	b.watch = true
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the Registry. A config file that does not exist is not
// fatal: the registry is returned together with an error matching
// ErrConfigNotFound so the application can run on defaults and environment.
func (b *Builder) Build() (*Registry, error) {
	r := New(WithDelimiter(b.delimiter), WithLogger(b.logger), WithFormats(b.formats))

	var defaultKeys []string
	if b.defaults != nil {
		layer, err := defaultsLayer(b.defaults, r.delimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to register defaults: %w", err)
		}
		defaultKeys = layer.Keys()
		if err := r.AddLayer(layer); err != nil {
			return nil, err
		}
	}

	var loadErr error
	for _, path := range b.files {
		if err := r.AddConfigFile(path); err != nil {
			if !errors.Is(err, ErrConfigNotFound) {
				return nil, err
			}
			loadErr = err
		}
	}

	if b.configName != "" {
		r.SetConfigName(b.configName)
		for _, dir := range b.configPaths {
			r.AddConfigPath(dir)
		}
		if err := r.ReadInConfig(); err != nil {
			if !errors.Is(err, ErrConfigNotFound) {
				return nil, err
			}
			loadErr = err
		}
	}

	if b.envEnabled {
		env := NewEnvLayer(b.envPrefix, r.delimiter, b.envAccessor)
		if b.envTransform != nil {
			env.SetTransform(b.envTransform)
		}
		env.SetBoundOnly(b.envWhitelist != nil)
		for _, key := range defaultKeys {
			if b.envWhitelist == nil || b.envWhitelist[key] {
				env.BindEnv(key)
			}
		}
		if err := r.AddLayer(env); err != nil {
			return nil, err
		}
	}

	if b.flags != nil {
		if err := r.AddLayer(NewFlagsLayer(b.flags, r.delimiter)); err != nil {
			return nil, err
		}
	}

	if b.watch {
		if err := r.WatchConfig(); err != nil && !errors.Is(err, ErrNoFileLayers) {
			return nil, err
		}
	}

	for _, validator := range b.validators {
		if err := validator(r); err != nil {
			r.StopWatching()
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	// ErrConfigNotFound or nil
	return r, loadErr
}

// defaultsLayer flattens a struct or map into a Defaults layer of leaf keys,
// so a config file providing part of an object does not hide the
// remaining default fields.
func defaultsLayer(defaults any, delim string) (*MapLayer, error) {
	v, err := FromAny(defaults)
	if err != nil {
		return nil, err
	}
	fields, ok := v.Object()
	if !ok {
		return nil, &InvalidValueError{Value: defaults, Reason: "defaults must be a struct or map"}
	}

	leaves := make(map[string]Value)
	for k, field := range fields {
		field.flatten(k, delim, leaves)
	}

	layer := NewDefaultsLayer()
	for k, leaf := range leaves {
		if err := layer.Set(k, leaf); err != nil {
			return nil, err
		}
	}
	return layer, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		// Ignore ErrConfigNotFound as it is not a fatal error for MustBuild.
		// The application can proceed with defaults/env vars.
		if !errors.Is(err, ErrConfigNotFound) {
			panic(fmt.Sprintf("config build failed: %v", err))
		}
	}
	return r
}

// BuildAndScan builds the registry and unmarshals the merged configuration
// into target.
func (b *Builder) BuildAndScan(target any) (*Registry, error) {
	r, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}

	if scanErr := r.Unmarshal(target); scanErr != nil {
		return r, fmt.Errorf("failed to scan final config into target: %w", scanErr)
	}

	// ErrConfigNotFound or nil
	return r, err
}
