// FILE: lixenwraith/layerconf/watch.go
package layerconf

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event describes a committed configuration reload.
type Event struct {
	// Paths lists the files whose content changed
	Paths []string
	// Time is when the reload was committed
	Time time.Time
}

// monitor owns the fsnotify watcher and the goroutine draining it.
type monitor struct {
	fsw  *fsnotify.Watcher
	dirs map[string]struct{}
	done chan struct{}
}

// addDir watches a directory once. Watching directories instead of files
// keeps notifications flowing after editors replace a file by rename.
func (m *monitor) addDir(dir string) error {
	if _, ok := m.dirs[dir]; ok {
		return nil
	}
	if err := m.fsw.Add(dir); err != nil {
		return err
	}
	m.dirs[dir] = struct{}{}
	return nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// WatchConfig starts watching every File layer for changes. Changes are
// not applied in the background: the next read validates all files and
// either commits them together or keeps the current configuration.
//
// Calling WatchConfig while already watching is a no-op.
func (r *Registry) WatchConfig() error {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.monitor != nil {
		return nil
	}

	files := r.fileLayersLocked()
	if len(files) == 0 {
		return &WatchError{Err: ErrNoFileLayers}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return &WatchError{Err: err}
	}

	m := &monitor{
		fsw:  fsw,
		dirs: make(map[string]struct{}),
		done: make(chan struct{}),
	}
	tracked := make(map[string]struct{}, len(files))
	for _, fl := range files {
		path := absPath(fl.Path())
		dir := filepath.Dir(path)
		if err := m.addDir(dir); err != nil {
			fsw.Close()
			return &WatchError{Path: dir, Err: err}
		}
		tracked[path] = struct{}{}
	}

	r.reloadNeeded.Store(false)
	r.tracked.Store(&tracked)
	r.monitor = m
	go r.monitorLoop(m)

	r.logger.Info("config watch started",
		slog.Int("files", len(tracked)),
		slog.Int("directories", len(m.dirs)))
	return nil
}

// StopWatching stops the watcher and waits for its goroutine to exit.
// Pending changes that have not been read yet are discarded.
func (r *Registry) StopWatching() error {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()

	r.mu.Lock()
	m := r.monitor
	r.monitor = nil
	r.mu.Unlock()

	if m == nil {
		return nil
	}

	r.tracked.Store(nil)
	err := m.fsw.Close()
	<-m.done
	r.reloadNeeded.Store(false)

	r.logger.Info("config watch stopped")
	if err != nil {
		return &WatchError{Err: err}
	}
	return nil
}

// IsWatching reports whether WatchConfig is active.
func (r *Registry) IsWatching() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.monitor != nil
}

// OnConfigChange registers fn to run after every committed reload.
// Callbacks run on the goroutine whose read triggered the reload, after the
// registry lock has been released.
func (r *Registry) OnConfigChange(fn func(Event)) {
	if fn == nil {
		return
	}
	r.cbMu.Lock()
	r.callbacks = append(r.callbacks, fn)
	r.cbMu.Unlock()
}

// monitorLoop only flags changes; parsing happens on the reading goroutine.
func (r *Registry) monitorLoop(m *monitor) {
	defer close(m.done)

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	for {
		select {
		case event, ok := <-m.fsw.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 {
				continue
			}
			if r.isTracked(event.Name) {
				r.reloadNeeded.Store(true)
			}
		case err, ok := <-m.fsw.Errors:
			if !ok {
				return
			}
			r.logger.Warn("config watcher error", slog.Any("error", err))
		}
	}
}

func (r *Registry) isTracked(name string) bool {
	set := r.tracked.Load()
	if set == nil {
		return false
	}
	_, ok := (*set)[filepath.Clean(name)]
	return ok
}

// trackLocked adds a File layer to a running watch. Caller holds r.mu.
func (r *Registry) trackLocked(fl *FileLayer) {
	if r.monitor == nil {
		return
	}

	path := absPath(fl.Path())
	if err := r.monitor.addDir(filepath.Dir(path)); err != nil {
		r.logger.Warn("config watch add failed",
			slog.String("path", path),
			slog.Any("error", err))
		return
	}

	next := make(map[string]struct{})
	if cur := r.tracked.Load(); cur != nil {
		for p := range *cur {
			next[p] = struct{}{}
		}
	}
	next[path] = struct{}{}
	r.tracked.Store(&next)
}

// checkReload consumes a pending change notification.
func (r *Registry) checkReload() {
	if r.tracked.Load() == nil {
		return
	}
	if !r.reloadNeeded.CompareAndSwap(true, false) {
		return
	}

	changed, err := r.reloadFiles()
	if err != nil {
		r.logger.Warn("config reload rejected", slog.Any("error", err))
		return
	}
	if len(changed) > 0 {
		r.notify(changed)
	}
}

// ReloadConfig re-reads every File layer. Either all files parse and are
// applied together, or the error of the first failing file is returned and
// nothing changes. Change callbacks run when any content differs.
func (r *Registry) ReloadConfig() error {
	changed, err := r.reloadFiles()
	if err != nil {
		return err
	}
	if len(changed) > 0 {
		r.notify(changed)
	}
	return nil
}

// reloadFiles parses every File layer off to the side and commits the
// results under the write lock when all succeed. It returns the paths
// whose checksum changed. Reloads run one at a time so an older snapshot
// can never be committed over a newer one.
func (r *Registry) reloadFiles() ([]string, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	r.mu.RLock()
	current := r.fileLayersLocked()
	r.mu.RUnlock()

	fresh := make([]*FileLayer, len(current))
	for i, fl := range current {
		next, err := fl.reparse()
		if err != nil {
			return nil, err
		}
		fresh[i] = next
	}

	var changed []string
	r.mu.Lock()
	for i, fl := range current {
		if fresh[i].Checksum() == fl.Checksum() {
			continue
		}
		fl.adopt(fresh[i])
		changed = append(changed, fl.Path())
	}
	r.mu.Unlock()

	if len(changed) == 0 {
		return nil, nil
	}
	r.logger.Info("config reloaded", slog.Any("paths", changed))
	return changed, nil
}

func (r *Registry) notify(paths []string) {
	r.cbMu.RLock()
	callbacks := make([]func(Event), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.cbMu.RUnlock()

	event := Event{Paths: paths, Time: time.Now()}
	for _, fn := range callbacks {
		fn(event)
	}
}

func (r *Registry) fileLayersLocked() []*FileLayer {
	var files []*FileLayer
	for _, l := range r.layers {
		if fl, ok := l.(*FileLayer); ok {
			files = append(files, fl)
		}
	}
	return files
}
