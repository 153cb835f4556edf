// FILE: lixenwraith/layerconf/cmd/layerconf/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/layerconf"
)

func newGetCommand(ctx *commandContext) *cobra.Command {
	var showSource bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.ensureRegistry()
			if err != nil {
				return err
			}
			v, source, ok := r.GetSource(args[0])
			if !ok {
				return &layerconf.KeyNotFoundError{Key: args[0]}
			}
			out := cmd.OutOrStdout()
			if showSource {
				fmt.Fprintf(out, "%s\t%s\n", v, source)
				return nil
			}
			fmt.Fprintln(out, v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSource, "source", false, "Also print the layer that supplied the value")
	return cmd
}

func newKeysCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every key with its value and source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.ensureRegistry()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, key := range r.Keys() {
				v, source, ok := r.GetSource(key)
				if !ok {
					continue
				}
				rows = append(rows, []string{key, v.String(), source})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No keys")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Key", "Value", "Source"}, rows, tableStyle(out)))
			return nil
		},
	}
}

func newWriteCommand(ctx *commandContext) *cobra.Command {
	var safe bool

	cmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Write the merged configuration, format chosen by extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.ensureRegistry()
			if err != nil {
				return err
			}
			if safe {
				err = r.SafeWriteConfig(args[0])
			} else {
				err = r.WriteConfig(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&safe, "safe", false, "Refuse to overwrite an existing file")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch [key...]",
		Short: "Watch config files and print keys whenever a reload is committed",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.ensureRegistry()
			if err != nil {
				return err
			}
			if interval <= 0 {
				return errors.New("--interval must be positive")
			}

			out := cmd.OutOrStdout()
			keys := args
			if len(keys) == 0 {
				keys = r.Keys()
			}

			r.OnConfigChange(func(ev layerconf.Event) {
				fmt.Fprintf(out, "reloaded %s at %s\n", strings.Join(ev.Paths, ", "), ev.Time.Format(time.RFC3339))
			})
			if err := r.WatchConfig(); err != nil {
				return err
			}
			defer r.StopWatching()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printKeys(out, r, keys)
			return pollRegistry(runCtx, r, interval, func() {
				printKeys(out, r, keys)
			}, newLogger(cmd.ErrOrStderr(), ctx.opts.logLevel))
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "How often to read the configuration")
	return cmd
}

// pollRegistry reads the registry on every tick; reads are what apply
// pending file changes. onChange runs after a tick that saw new values.
func pollRegistry(ctx context.Context, r *layerconf.Registry, interval time.Duration, onChange func(), logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := r.Debug()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("watch stopped", slog.Any("reason", context.Cause(ctx)))
			return nil
		case <-ticker.C:
			current := r.Debug()
			if current != last {
				last = current
				onChange()
			}
		}
	}
}

func printKeys(out io.Writer, r *layerconf.Registry, keys []string) {
	for _, key := range keys {
		v, ok := r.Get(key)
		if !ok {
			fmt.Fprintf(out, "%s = <unset>\n", key)
			continue
		}
		fmt.Fprintf(out, "%s = %s\n", key, v)
	}
}

func newEnvCommand(ctx *commandContext) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print non-default values as environment variable assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.ensureRegistry()
			if err != nil {
				return err
			}
			if prefix == "" {
				prefix = ctx.opts.envPrefix
			}

			exports := r.ExportEnv(prefix)
			names := make([]string, 0, len(exports))
			for name := range exports {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "%s=%s\n", name, exports[name])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Variable prefix (defaults to --env-prefix)")
	return cmd
}

func newDebugCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Show the layer stack and every resolved value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.ensureRegistry()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), r.Debug())
			return nil
		},
	}
}
