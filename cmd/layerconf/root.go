// FILE: lixenwraith/layerconf/cmd/layerconf/root.go
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lixenwraith/layerconf"
)

type rootOptions struct {
	configFiles []string
	configName  string
	configPaths []string
	envPrefix   string
	delimiter   string
	overrides   []string
	logLevel    string
}

// commandContext builds the registry once per invocation.
type commandContext struct {
	opts   *rootOptions
	stderr io.Writer

	once     sync.Once
	registry *layerconf.Registry
	err      error
}

func newCommandContext(opts *rootOptions, stderr io.Writer) *commandContext {
	return &commandContext{opts: opts, stderr: stderr}
}

func (c *commandContext) ensureRegistry() (*layerconf.Registry, error) {
	c.once.Do(func() {
		c.registry, c.err = c.build()
	})
	return c.registry, c.err
}

func (c *commandContext) build() (*layerconf.Registry, error) {
	overrides, err := overrideFlags(c.opts.overrides, c.opts.delimiter)
	if err != nil {
		return nil, err
	}

	b := layerconf.NewBuilder().
		WithDelimiter(c.opts.delimiter).
		WithLogger(newLogger(c.stderr, c.opts.logLevel)).
		WithFlags(overrides)

	for _, path := range c.opts.configFiles {
		b.WithFile(path)
	}
	if c.opts.configName != "" {
		paths := c.opts.configPaths
		if len(paths) == 0 {
			paths = layerconf.DefaultConfigPaths(c.opts.configName)
		}
		b.WithConfigName(c.opts.configName).WithConfigPaths(paths...)
	}
	if c.opts.envPrefix != "" {
		b.WithEnvPrefix(c.opts.envPrefix)
	}

	r, err := b.Build()
	if err != nil && !errors.Is(err, layerconf.ErrConfigNotFound) {
		return nil, err
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "warning: %v\n", err)
	}
	return r, nil
}

// overrideFlags turns key=value pairs into a parsed flag set so they are
// served by the flags layer.
func overrideFlags(pairs []string, delimiter string) (*pflag.FlagSet, error) {
	if delimiter == "" {
		delimiter = layerconf.DefaultDelimiter
	}
	fs := pflag.NewFlagSet("set", pflag.ContinueOnError)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", pair)
		}
		name := strings.ReplaceAll(key, delimiter, ".")
		if fs.Lookup(name) == nil {
			fs.String(name, "", "")
		}
		if err := fs.Set(name, value); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", pair, err)
		}
	}
	return fs, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	opts := slog.HandlerOptions{Level: parseLevel(level)}
	return slog.New(slog.NewTextHandler(w, &opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	ctx := newCommandContext(opts, os.Stderr)

	rootCmd := &cobra.Command{
		Use:           "layerconf",
		Short:         "Inspect and export layered configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.stderr = cmd.ErrOrStderr()
			_, err := ctx.ensureRegistry()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringArrayVarP(&opts.configFiles, "config", "c", nil, "Configuration file (repeatable, later files win)")
	flags.StringVar(&opts.configName, "name", "", "Discover <name>.<ext> in the search paths")
	flags.StringArrayVar(&opts.configPaths, "path", nil, "Search directory for --name (repeatable)")
	flags.StringVar(&opts.envPrefix, "env-prefix", "", "Read environment variables with this prefix")
	flags.StringVar(&opts.delimiter, "delimiter", layerconf.DefaultDelimiter, "Key path delimiter")
	flags.StringArrayVar(&opts.overrides, "set", nil, "Override a key as key=value (repeatable)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newGetCommand(ctx))
	rootCmd.AddCommand(newKeysCommand(ctx))
	rootCmd.AddCommand(newWriteCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newEnvCommand(ctx))
	rootCmd.AddCommand(newDebugCommand(ctx))

	return rootCmd
}
