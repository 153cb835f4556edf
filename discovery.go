// FILE: lixenwraith/layerconf/discovery.go
package layerconf

import (
	"os"
	"path/filepath"
)

// SetConfigName sets the base name, without extension, that FindConfigFile
// searches for.
func (r *Registry) SetConfigName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configName = name
}

// AddConfigPath appends a directory to the search list. Directories are
// searched in the order they were added.
func (r *Registry) AddConfigPath(dir string) {
	if dir == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configPaths = append(r.configPaths, dir)
}

// FindConfigFile searches every configured directory, in order, for
// <name>.<ext> with each supported extension, returning the first regular
// file that can be opened. When nothing matches the error is a
// *ConfigFileNotFoundError.
func (r *Registry) FindConfigFile() (string, error) {
	r.mu.RLock()
	name := r.configName
	dirs := append([]string(nil), r.configPaths...)
	r.mu.RUnlock()

	if name == "" {
		return "", &InvalidValueError{Value: name, Reason: "config name not set"}
	}

	exts := r.formats.Extensions()
	for _, dir := range dirs {
		for _, ext := range exts {
			path := filepath.Join(dir, name+"."+ext)
			if isReadableFile(path) {
				return path, nil
			}
		}
	}
	return "", &ConfigFileNotFoundError{Name: name, Paths: dirs}
}

func isReadableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// ReadInConfig finds the config file and adds it as a File layer.
func (r *Registry) ReadInConfig() error {
	path, err := r.FindConfigFile()
	if err != nil {
		return err
	}
	if err := r.AddConfigFile(path); err != nil {
		return err
	}

	r.mu.Lock()
	r.configFile = path
	r.mu.Unlock()
	return nil
}

// ConfigFileUsed returns the path loaded by ReadInConfig, or "".
func (r *Registry) ConfigFileUsed() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configFile
}

// DefaultConfigPaths returns the conventional search directories for an
// application: the working directory followed by the XDG config locations.
func DefaultConfigPaths(appName string) []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}
	return append(paths, getXDGConfigPaths(appName)...)
}

// getXDGConfigPaths returns XDG-compliant config search paths
func getXDGConfigPaths(appName string) []string {
	var paths []string

	// XDG_CONFIG_HOME
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	// XDG_CONFIG_DIRS
	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		for _, dir := range filepath.SplitList(xdgDirs) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		paths = append(paths, filepath.Join("/etc/xdg", appName))
	}

	return paths
}
