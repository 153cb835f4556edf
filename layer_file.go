// FILE: lixenwraith/layerconf/layer_file.go
package layerconf

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/lixenwraith/layerconf/format"
)

// FileLayer holds the parsed content of one configuration file.
//
// Get and Set accept delimiter-separated paths resolved against the layer's
// own data, with the same rules as Registry.Get. Set only changes the
// in-memory copy; Reload replaces that copy wholesale with the file's
// current content.
type FileLayer struct {
	mu        sync.RWMutex
	path      string
	parser    format.Parser
	delimiter string
	data      map[string]Value
	modTime   time.Time
	checksum  string
}

// FileOption configures a FileLayer.
type FileOption func(*fileOptions)

type fileOptions struct {
	formats   *format.Registry
	delimiter string
}

// WithFileFormats selects parsers from formats instead of format.Default().
func WithFileFormats(formats *format.Registry) FileOption {
	return func(o *fileOptions) {
		if formats != nil {
			o.formats = formats
		}
	}
}

// WithFileDelimiter sets the path delimiter used by Get and Set.
func WithFileDelimiter(delim string) FileOption {
	return func(o *fileOptions) {
		if delim != "" {
			o.delimiter = delim
		}
	}
}

// NewFileLayer loads and parses path. The parser is chosen by file
// extension. A missing file matches ErrConfigNotFound and unparsable content
// returns a *ParseError; there is no retry.
func NewFileLayer(path string, opts ...FileOption) (*FileLayer, error) {
	o := fileOptions{delimiter: DefaultDelimiter}
	for _, opt := range opts {
		opt(&o)
	}
	if o.formats == nil {
		o.formats = format.Default()
	}

	parser, err := o.formats.ForPath(path)
	if err != nil {
		return nil, err
	}

	l := &FileLayer{
		path:      path,
		parser:    parser,
		delimiter: o.delimiter,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// fileSnapshot is one parse of a file.
type fileSnapshot struct {
	data     map[string]Value
	modTime  time.Time
	checksum string
}

func readFileSnapshot(path string, parser format.Parser) (*fileSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &IOError{Op: "stat config file", Path: path, Err: fmt.Errorf("%w: %w", ErrConfigNotFound, err)}
		}
		return nil, &IOError{Op: "stat config file", Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &IOError{Op: "read config file", Path: path, Err: errors.New("is a directory")}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read config file", Path: path, Err: err}
	}

	parsed, err := parser.Parse(raw)
	if err != nil {
		return nil, &ParseError{Source: path, Message: fmt.Sprintf("invalid %s: %v", parser.Name(), err), Err: err}
	}

	data := make(map[string]Value, len(parsed))
	for k, item := range parsed {
		v, err := FromAny(item)
		if err != nil {
			return nil, &ParseError{Source: path, Message: fmt.Sprintf("key %q: %v", k, err), Err: err}
		}
		data[k] = v
	}

	sum := sha256.Sum256(raw)
	return &fileSnapshot{
		data:     data,
		modTime:  info.ModTime(),
		checksum: hex.EncodeToString(sum[:]),
	}, nil
}

func (l *FileLayer) load() error {
	snap, err := readFileSnapshot(l.path, l.parser)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = snap.data
	l.modTime = snap.modTime
	l.checksum = snap.checksum
	return nil
}

// Reload re-parses the file and replaces the whole cached map; keys removed
// from the file disappear. On failure the layer keeps its previous content.
func (l *FileLayer) Reload() error {
	return l.load()
}

// reparse builds a new layer for the same file without touching l.
func (l *FileLayer) reparse() (*FileLayer, error) {
	fresh := &FileLayer{
		path:      l.path,
		parser:    l.parser,
		delimiter: l.delimiter,
	}
	if err := fresh.load(); err != nil {
		return nil, err
	}
	return fresh, nil
}

// adopt takes over the content of a reparsed layer.
func (l *FileLayer) adopt(fresh *FileLayer) {
	fresh.mu.RLock()
	data, modTime, checksum := fresh.data, fresh.modTime, fresh.checksum
	fresh.mu.RUnlock()

	l.mu.Lock()
	l.data = data
	l.modTime = modTime
	l.checksum = checksum
	l.mu.Unlock()
}

// Get resolves key against the file's data, descending into objects and arrays.
func (l *FileLayer) Get(key string) (Value, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return resolve(key, l.delimiter, func(k string) (Value, bool) {
		v, ok := l.data[k]
		return v, ok
	})
}

// Set stores value at the delimiter-separated key, creating intermediate
// objects as needed.
func (l *FileLayer) Set(key string, value Value) error {
	parts := ParseKey(key, l.delimiter)

	l.mu.Lock()
	defer l.mu.Unlock()

	top := parts[0].Key
	l.data[top] = setPath(l.data[top], parts[1:], value)
	return nil
}

// Keys returns leaf paths. Arrays and empty objects are leaves.
func (l *FileLayer) Keys() []string {
	l.mu.RLock()
	leaves := make(map[string]Value)
	for k, v := range l.data {
		v.flatten(k, l.delimiter, leaves)
	}
	l.mu.RUnlock()

	keys := make([]string, 0, len(leaves))
	for k := range leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SourceName returns "file:" followed by the path.
func (l *FileLayer) SourceName() string { return "file:" + l.path }

// Priority returns PriorityConfigFile.
func (l *FileLayer) Priority() Priority { return PriorityConfigFile }

// Path returns the file path the layer was loaded from.
func (l *FileLayer) Path() string { return l.path }

// Format returns the name of the parser used for the file.
func (l *FileLayer) Format() string { return l.parser.Name() }

// ModTime returns the file's modification time at the last successful load.
func (l *FileLayer) ModTime() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modTime
}

// Checksum returns the SHA-256 of the content at the last successful load.
func (l *FileLayer) Checksum() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.checksum
}
