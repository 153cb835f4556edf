// FILE: lixenwraith/layerconf/io.go
package layerconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteConfig serializes the merged configuration to path in the format
// selected by its extension. Dotted keys are written as nested sections,
// and NaN or infinite floats are written as strings because not every
// format can represent them.
//
// The file is replaced atomically while holding an advisory lock on
// "<path>.lock", so concurrent writers from other processes do not
// interleave. The lock file is left in place after the write; it is empty
// and safe to delete when no writer is running.
func (r *Registry) WriteConfig(path string) error {
	parser, err := r.formats.ForPath(path)
	if err != nil {
		return err
	}

	r.checkReload()
	r.mu.RLock()
	settings := r.settingsLocked(true)
	r.mu.RUnlock()

	data, err := parser.Serialize(settings)
	if err != nil {
		return &SerializationError{Format: parser.Name(), Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &IOError{Op: "create config directory", Path: path, Err: err}
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return &IOError{Op: "lock config file", Path: path, Err: err}
	}
	defer lock.Unlock()

	if err := atomicWriteFile(path, data); err != nil {
		return &IOError{Op: "write config file", Path: path, Err: err}
	}
	return nil
}

// SafeWriteConfig is WriteConfig that refuses to replace an existing file.
func (r *Registry) SafeWriteConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return &IOError{Op: "write config file", Path: path, Err: os.ErrExist}
	} else if !errors.Is(err, os.ErrNotExist) {
		return &IOError{Op: "stat config file", Path: path, Err: err}
	}
	return r.WriteConfig(path)
}

// atomicWriteFile performs atomic file write. The directory must exist.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
