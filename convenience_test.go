// FILE: lixenwraith/layerconf/convenience_test.go
package layerconf

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quick.toml")
	writeFile(t, path, "name = \"from-file\"\n[server]\nhost = \"file-host\"\n")
	t.Setenv("QK_SERVER_PORT", "9999")
	t.Setenv("QK_NAME", "from-env")

	r, err := Quick(newBuilderDefaults(), "QK_", path)
	require.NoError(t, err)

	assert.Equal(t, "file-host", mustString(t, r, "server.host"))
	assert.Equal(t, "from-env", mustString(t, r, "name"))
	port, err := r.Int64("server.port")
	require.NoError(t, err)
	assert.Equal(t, int64(9999), port)

	t.Run("NoFile", func(t *testing.T) {
		r, err := Quick(newBuilderDefaults(), "QK_", "")
		require.NoError(t, err)
		assert.Equal(t, "localhost", mustString(t, r, "server.host"))
	})

	t.Run("MustQuickPanics", func(t *testing.T) {
		assert.Panics(t, func() { MustQuick(7, "QK_", "") })
	})
}

func TestGenerateFlags(t *testing.T) {
	r := New()
	require.NoError(t, r.SetDefault("server.port", 8080))
	require.NoError(t, r.SetDefault("debug", false))
	require.NoError(t, r.SetDefault("ratio", 0.5))
	require.NoError(t, r.SetDefault("tags", []string{"a", "b"}))
	require.NoError(t, r.SetDefault("name", "svc"))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("name", 3, "predefined")
	r.GenerateFlags(fs)

	types := map[string]string{
		"server.port": "int64",
		"debug":       "bool",
		"ratio":       "float64",
		"tags":        "stringSlice",
		"name":        "int",
	}
	for name, typ := range types {
		f := fs.Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, typ, f.Value.Type(), name)
	}
	assert.Equal(t, "8080", fs.Lookup("server.port").DefValue)

	require.NoError(t, fs.Parse([]string{"--server.port=9000", "--tags=x,y", "--debug"}))
	require.NoError(t, r.AddLayer(NewFlagsLayer(fs, r.Delimiter())))

	port, err := r.Int64("server.port")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), port)

	tags, err := r.StringSlice("tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, tags)

	debug, err := r.Bool("debug")
	require.NoError(t, err)
	assert.True(t, debug)

	ratio, err := r.Float64("ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.5, ratio, "unchanged flags do not override defaults")

	t.Run("NoDefaults", func(t *testing.T) {
		fs := pflag.NewFlagSet("empty", pflag.ContinueOnError)
		New().GenerateFlags(fs)
		assert.False(t, fs.HasFlags())
	})
}

func TestValidate(t *testing.T) {
	r := New()
	require.NoError(t, r.SetDefault("server.host", "localhost"))

	require.NoError(t, r.Validate("server.host"))

	err := r.Validate("server.host", "db.url", "api.key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.url, api.key")
}

func TestExportEnv(t *testing.T) {
	r := New()
	require.NoError(t, r.SetDefault("server.port", 8080))
	require.NoError(t, r.SetDefault("server.host", "localhost"))
	require.NoError(t, r.Set("server.host", "example"))
	require.NoError(t, r.Set("debug", true))
	require.NoError(t, r.Set("tags", []string{"a"}))

	assert.Equal(t, map[string]string{
		"APP_SERVER_HOST": "example",
		"APP_DEBUG":       "true",
	}, r.ExportEnv("APP_"))
}

func TestDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	writeFile(t, path, `{"server": {"port": 9000}}`)

	r := New()
	require.NoError(t, r.SetDefault("server.host", "localhost"))
	require.NoError(t, r.AddConfigFile(path))
	require.NoError(t, r.Set("name", "svc"))

	out := r.Debug()
	lines := strings.Split(out, "\n")
	assert.Equal(t, "Configuration Debug Info:", lines[0])
	assert.Contains(t, out, "  1. explicit (explicit)\n")
	assert.Contains(t, out, "  2. file:"+path+" (file)\n")
	assert.Contains(t, out, "  3. default (default)\n")
	assert.Contains(t, out, "  name = svc  [explicit]\n")
	assert.Contains(t, out, "  server.host = localhost  [default]\n")
	assert.Contains(t, out, "  server.port = 9000  [file:"+path+"]\n")
}

func TestDump(t *testing.T) {
	r := New()
	require.NoError(t, r.SetDefault("server.host", "localhost"))
	require.NoError(t, r.Set("server.port", 9000))
	require.NoError(t, r.Set("name", "svc"))

	var buf bytes.Buffer
	require.NoError(t, r.Dump(&buf))

	var decoded map[string]any
	_, err := toml.Decode(buf.String(), &decoded)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name": "svc",
		"server": map[string]any{
			"host": "localhost",
			"port": int64(9000),
		},
	}, decoded)
}
