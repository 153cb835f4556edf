// FILE: lixenwraith/layerconf/watch_test.go
package layerconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/layerconf/format"
)

const (
	watchTimeout = 3 * time.Second
	watchTick    = 10 * time.Millisecond
)

// changeRecorder collects OnConfigChange events.
type changeRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (c *changeRecorder) record(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *changeRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *changeRecorder) last() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func portOf(t *testing.T, r *Registry) int64 {
	t.Helper()
	p, err := r.Int64("port")
	require.NoError(t, err)
	return p
}

func TestWatchConfig(t *testing.T) {
	t.Run("RequiresFileLayer", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Set("a", 1))
		err := r.WatchConfig()
		assert.ErrorIs(t, err, ErrNoFileLayers)
		assert.ErrorIs(t, err, ErrWatch)
		assert.False(t, r.IsWatching())
	})

	t.Run("ReloadAtomicity", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.json")
		writeFile(t, path, `{"port": 1}`)

		r := New()
		require.NoError(t, r.AddConfigFile(path))
		rec := &changeRecorder{}
		r.OnConfigChange(rec.record)

		require.NoError(t, r.WatchConfig())
		defer r.StopWatching()
		assert.True(t, r.IsWatching())
		require.NoError(t, r.WatchConfig(), "second call is a no-op")

		// Invalid rewrite: observed, validated, rejected
		writeFile(t, path, `{"port": `)
		require.Eventually(t, func() bool { return r.reloadNeeded.Load() }, watchTimeout, watchTick)
		assert.Equal(t, int64(1), portOf(t, r))
		assert.Equal(t, 0, rec.count())

		// Valid rewrite: committed once
		writeFile(t, path, `{"port": 2}`)
		require.Eventually(t, func() bool { return portOf(t, r) == 2 }, watchTimeout, watchTick)

		// Let trailing notifications for the same write drain through a read
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int64(2), portOf(t, r))
		assert.Equal(t, 1, rec.count())

		ev := rec.last()
		assert.Equal(t, []string{path}, ev.Paths)
		assert.False(t, ev.Time.IsZero())
	})

	t.Run("RenameSave", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.yaml")
		writeFile(t, path, "port: 1\n")

		r := New()
		require.NoError(t, r.AddConfigFile(path))
		require.NoError(t, r.WatchConfig())
		defer r.StopWatching()

		tmp := filepath.Join(dir, ".app.yaml.swp")
		writeFile(t, tmp, "port: 3\n")
		require.NoError(t, os.Rename(tmp, path))

		require.Eventually(t, func() bool { return portOf(t, r) == 3 }, watchTimeout, watchTick)
	})

	t.Run("UntrackedFilesIgnored", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.json")
		writeFile(t, path, `{"port": 1}`)

		r := New()
		require.NoError(t, r.AddConfigFile(path))
		require.NoError(t, r.WatchConfig())
		defer r.StopWatching()

		writeFile(t, filepath.Join(dir, "other.json"), `{}`)
		time.Sleep(100 * time.Millisecond)
		assert.False(t, r.reloadNeeded.Load())
	})

	t.Run("FileAddedWhileWatching", func(t *testing.T) {
		first := filepath.Join(t.TempDir(), "base.json")
		second := filepath.Join(t.TempDir(), "override.json")
		writeFile(t, first, `{"port": 1}`)
		writeFile(t, second, `{"name": "a"}`)

		r := New()
		require.NoError(t, r.AddConfigFile(first))
		require.NoError(t, r.WatchConfig())
		defer r.StopWatching()

		require.NoError(t, r.AddConfigFile(second))
		writeFile(t, second, `{"name": "b"}`)

		require.Eventually(t, func() bool {
			name, err := r.String("name")
			return err == nil && name == "b"
		}, watchTimeout, watchTick)
	})

	t.Run("StopWatching", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.toml")
		writeFile(t, path, "port = 1\n")

		r := New()
		require.NoError(t, r.AddConfigFile(path))
		rec := &changeRecorder{}
		r.OnConfigChange(rec.record)
		require.NoError(t, r.WatchConfig())
		require.NoError(t, r.StopWatching())
		assert.False(t, r.IsWatching())
		require.NoError(t, r.StopWatching(), "stopping twice is harmless")

		writeFile(t, path, "port = 2\n")
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int64(1), portOf(t, r))
		assert.False(t, r.reloadNeeded.Load())
		assert.Nil(t, r.tracked.Load())
		assert.Equal(t, 0, rec.count())

		// Watching again picks the change up on the next modification
		require.NoError(t, r.WatchConfig())
		defer r.StopWatching()
		writeFile(t, path, "port = 4\n")
		require.Eventually(t, func() bool { return portOf(t, r) == 4 }, watchTimeout, watchTick)
	})
}

func TestReloadConfig(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.toml")
	writeFile(t, a, `{"port": 1}`)
	writeFile(t, b, "name = \"one\"\n")

	r := New()
	require.NoError(t, r.AddConfigFile(a))
	require.NoError(t, r.AddConfigFile(b))

	var calls atomic.Int32
	r.OnConfigChange(func(ev Event) {
		calls.Add(1)
		assert.Equal(t, []string{a}, ev.Paths)
	})

	t.Run("Unchanged", func(t *testing.T) {
		require.NoError(t, r.ReloadConfig())
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("AllOrNothing", func(t *testing.T) {
		writeFile(t, a, `{"port": 2}`)
		writeFile(t, b, "name = ")

		err := r.ReloadConfig()
		assert.ErrorIs(t, err, ErrParse)
		assert.Equal(t, int64(1), portOf(t, r), "valid file is not applied alone")
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("Commit", func(t *testing.T) {
		writeFile(t, b, "name = \"one\"\n")
		require.NoError(t, r.ReloadConfig())
		assert.Equal(t, int64(2), portOf(t, r))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("KeepsLayerIdentity", func(t *testing.T) {
		var files []Layer
		for _, l := range r.Layers() {
			if l.Priority() == PriorityConfigFile {
				files = append(files, l)
			}
		}
		require.Len(t, files, 2)
		assert.True(t, r.RemoveLayer(files[0]))
		assert.True(t, r.RemoveLayer(files[1]))
		assert.False(t, r.IsSet("port"))
	})
}

// gateParser reads "*.gate" files whose whole content is the "value" key.
// Parsing the content named by hold blocks once until release is closed.
type gateParser struct {
	hold    string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gateParser) Name() string         { return "gate" }
func (g *gateParser) Extensions() []string { return []string{"gate"} }

func (g *gateParser) Parse(data []byte) (map[string]any, error) {
	content := strings.TrimSpace(string(data))
	if content == g.hold {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return map[string]any{"value": content}, nil
}

func (g *gateParser) Serialize(map[string]any) ([]byte, error) {
	return nil, errors.New("gate files are read-only")
}

func TestReloadSerialized(t *testing.T) {
	gate := &gateParser{hold: "v2", entered: make(chan struct{}), release: make(chan struct{})}
	formats := format.NewRegistry()
	formats.Register(gate)

	path := filepath.Join(t.TempDir(), "app.gate")
	writeFile(t, path, "v1")

	r := New(WithFormats(formats))
	require.NoError(t, r.AddConfigFile(path))
	var calls atomic.Int32
	r.OnConfigChange(func(Event) { calls.Add(1) })

	// First reload stalls while parsing v2
	writeFile(t, path, "v2")
	first := make(chan error, 1)
	go func() { first <- r.ReloadConfig() }()
	<-gate.entered

	// Second reload starts after the file already moved on to v3
	writeFile(t, path, "v3")
	second := make(chan error, 1)
	go func() { second <- r.ReloadConfig() }()
	time.Sleep(50 * time.Millisecond)

	close(gate.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.Equal(t, "v3", mustString(t, r, "value"))
	assert.Equal(t, int32(2), calls.Load(), "one callback per committed transition")

	// Nothing left to apply
	require.NoError(t, r.ReloadConfig())
	assert.Equal(t, int32(2), calls.Load())
}

func TestConcurrentReadsWhileWatching(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	writeFile(t, path, `{"port": 0, "name": "svc"}`)

	r := New()
	require.NoError(t, r.SetDefault("timeout", "5s"))
	require.NoError(t, r.AddConfigFile(path))
	var calls atomic.Int32
	r.OnConfigChange(func(Event) { calls.Add(1) })
	require.NoError(t, r.WatchConfig())
	defer r.StopWatching()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if v, ok := r.Get("name"); ok {
					assert.Equal(t, "svc", v.String())
				}
				r.Get("port")
				r.Keys()
				r.AllSettings()
			}
		}()
	}

	const rewrites = 5
	for i := 1; i <= rewrites; i++ {
		writeFile(t, path, fmt.Sprintf(`{"port": %d, "name": "svc"}`, i))
		want := int64(i)
		require.Eventually(t, func() bool { return portOf(t, r) == want }, watchTimeout, watchTick)
	}

	close(stop)
	wg.Wait()

	// Trailing notifications see unchanged content
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(rewrites), portOf(t, r))
	assert.Equal(t, int32(rewrites), calls.Load())
}
