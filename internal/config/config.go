// Package config loads the shared TOML configuration file. The file is
// keyed by component: each component reads exactly one table, named after
// itself by default, and rejects keys it does not understand so typos fail
// fast instead of silently running with defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const maxFileSize = 1 * 1024 * 1024

// File is a parsed configuration file with per-component tables still in
// raw form; components decode their own table via Decode.
type File struct {
	path   string
	md     toml.MetaData
	tables map[string]toml.Primitive
}

// Load parses the TOML file at path.
func Load(path string) (*File, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".toml" {
		return nil, fmt.Errorf("config file must have .toml extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	tables := make(map[string]toml.Primitive)
	md, err := toml.DecodeFile(cleanPath, &tables)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
	}
	return &File{path: cleanPath, md: md, tables: tables}, nil
}

// Path returns the cleaned file path.
func (f *File) Path() string { return f.path }

// Has reports whether a table exists for the given component key.
func (f *File) Has(key string) bool {
	_, ok := f.tables[key]
	return ok
}

// Decode decodes the component's table into v and fails on keys the
// component does not declare.
func (f *File) Decode(key string, v any) error {
	p, ok := f.tables[key]
	if !ok {
		return fmt.Errorf("no table %q in configuration file %s", key, f.path)
	}
	if err := f.md.PrimitiveDecode(p, v); err != nil {
		return fmt.Errorf("invalid table %q in %s: %w", key, f.path, err)
	}
	for _, undecoded := range f.md.Undecoded() {
		if len(undecoded) > 1 && undecoded[0] == key {
			return fmt.Errorf("unknown key %q in table %q of %s", undecoded[1], key, f.path)
		}
	}
	return nil
}

// DecodeLoose decodes the component's table into v without the unknown-key
// check, for components whose table keys are user-chosen names (for
// example, region definitions).
func (f *File) DecodeLoose(key string, v any) error {
	p, ok := f.tables[key]
	if !ok {
		return fmt.Errorf("no table %q in configuration file %s", key, f.path)
	}
	if err := f.md.PrimitiveDecode(p, v); err != nil {
		return fmt.Errorf("invalid table %q in %s: %w", key, f.path, err)
	}
	return nil
}
