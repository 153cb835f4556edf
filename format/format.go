// FILE: lixenwraith/layerconf/format/format.go

// Package format defines the parser capability consumed by file-backed
// configuration layers, and ships parsers for JSON, YAML, TOML and INI.
//
// Parsers work on Go-native data: Parse returns a map whose values are
// nil, string, bool, integer and float types, []any and map[string]any.
// Grammar details are delegated to the underlying libraries.
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsupportedFormat is returned when no parser is registered for an extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Parser converts between a file's text and an object-shaped map.
type Parser interface {
	// Name is a display name such as "json" or "toml".
	Name() string

	// Extensions lists recognized file extensions without the leading dot, in preference order.
	Extensions() []string

	// Parse decodes file content into a map. The top level must be an object.
	Parse(data []byte) (map[string]any, error)

	// Serialize encodes a nested map into file content.
	Serialize(data map[string]any) ([]byte, error)
}

// Registry dispatches parsers by file extension, case-insensitively.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]Parser
	order []string // extensions in registration order
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		byExt: make(map[string]Parser),
	}
}

// Default returns a registry with the built-in parsers registered in
// preference order: json, yaml, yml, toml, ini.
func Default() *Registry {
	r := NewRegistry()
	r.Register(JSON{})
	r.Register(YAML{})
	r.Register(TOML{})
	r.Register(INI{})
	return r
}

// Register adds a parser under each of its extensions.
// A later registration for an existing extension replaces the earlier parser
// but keeps the extension's position in the preference order.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range p.Extensions() {
		ext = normalizeExt(ext)
		if ext == "" {
			continue
		}
		if _, exists := r.byExt[ext]; !exists {
			r.order = append(r.order, ext)
		}
		r.byExt[ext] = p
	}
}

// ForExtension returns the parser for an extension, with or without the leading dot.
func (r *Registry) ForExtension(ext string) (Parser, error) {
	norm := normalizeExt(ext)

	r.mu.RLock()
	p, ok := r.byExt[norm]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return p, nil
}

// ForPath returns the parser matching a file path's extension.
func (r *Registry) ForPath(path string) (Parser, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, fmt.Errorf("%w: file %q has no extension", ErrUnsupportedFormat, path)
	}
	return r.ForExtension(ext)
}

// Extensions returns all registered extensions in preference order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, len(r.order))
	copy(exts, r.order)
	return exts
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
