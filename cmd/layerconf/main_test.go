// FILE: lixenwraith/layerconf/cmd/layerconf/main_test.go
package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/layerconf"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGetCommand(t *testing.T) {
	path := writeConfig(t, "app.json", `{"server": {"host": "file", "port": 8080}}`)

	out, _, err := runCLI(t, "-c", path, "--set", "server.host=cli", "get", "server.host")
	require.NoError(t, err)
	assert.Equal(t, "cli\n", out)

	out, _, err = runCLI(t, "-c", path, "get", "--source", "server.port")
	require.NoError(t, err)
	assert.Equal(t, "8080\tfile:"+path+"\n", out)

	_, _, err = runCLI(t, "-c", path, "get", "server.missing")
	assert.ErrorIs(t, err, layerconf.ErrKeyNotFound)
}

func TestMissingConfigWarns(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	out, stderr, err := runCLI(t, "-c", missing, "--set", "name=svc", "get", "name")
	require.NoError(t, err)
	assert.Equal(t, "svc\n", out)
	assert.Contains(t, stderr, "warning:")
}

func TestKeysCommand(t *testing.T) {
	path := writeConfig(t, "app.yaml", "server:\n  port: 8080\n")

	out, _, err := runCLI(t, "-c", path, "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "server.port")
	assert.Contains(t, out, "8080")
	assert.Contains(t, out, "file:"+path)

	out, _, err = runCLI(t, "keys")
	require.NoError(t, err)
	assert.Equal(t, "No keys\n", out)
}

func TestWriteCommand(t *testing.T) {
	src := writeConfig(t, "app.ini", "[server]\nhost = example\n")
	dest := filepath.Join(t.TempDir(), "out.toml")

	out, _, err := runCLI(t, "-c", src, "--set", "server.port=9000", "write", dest)
	require.NoError(t, err)
	assert.Equal(t, "Wrote "+dest+"\n", out)

	r := layerconf.New()
	require.NoError(t, r.AddConfigFile(dest))
	host, err := r.String("server.host")
	require.NoError(t, err)
	assert.Equal(t, "example", host)
	port, err := r.Int64("server.port")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), port)

	_, _, err = runCLI(t, "-c", src, "write", "--safe", dest)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestEnvCommand(t *testing.T) {
	out, _, err := runCLI(t, "--set", "server.port=9000", "--set", "name=svc", "env", "--prefix", "APP_")
	require.NoError(t, err)
	assert.Equal(t, "APP_NAME=svc\nAPP_SERVER_PORT=9000\n", out)
}

func TestDebugCommand(t *testing.T) {
	out, _, err := runCLI(t, "--set", "name=svc", "debug")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Configuration Debug Info:\n"))
	assert.Contains(t, out, "name = svc  [flags]")
}

func TestOverrideFlags(t *testing.T) {
	fs, err := overrideFlags([]string{"a::b=1", "a::b=2", "c=x=y"}, "::")
	require.NoError(t, err)
	assert.Equal(t, "2", fs.Lookup("a.b").Value.String())
	assert.Equal(t, "x=y", fs.Lookup("c").Value.String())
	assert.True(t, fs.Lookup("a.b").Changed)

	for _, bad := range []string{"novalue", "=value"} {
		_, err := overrideFlags([]string{bad}, "")
		assert.Error(t, err, bad)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"error", slog.LevelError},
		{"warn", slog.LevelWarn},
		{"", slog.LevelWarn},
		{"verbose", slog.LevelWarn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestPollRegistry(t *testing.T) {
	r := layerconf.New()
	require.NoError(t, r.Set("a", 1))

	ctx, cancel := context.WithCancel(context.Background())
	var changes atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- pollRegistry(ctx, r, 5*time.Millisecond, func() { changes.Add(1) }, slog.New(slog.DiscardHandler))
	}()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), changes.Load())

	require.NoError(t, r.Set("a", 2))
	require.Eventually(t, func() bool { return changes.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pollRegistry did not return after cancel")
	}
}

func TestPrintKeys(t *testing.T) {
	r := layerconf.New()
	require.NoError(t, r.Set("a", "x"))

	var buf bytes.Buffer
	printKeys(&buf, r, []string{"a", "b"})
	assert.Equal(t, "a = x\nb = <unset>\n", buf.String())
}
