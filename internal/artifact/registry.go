// Package artifact defines the boundary to the host system's tracked
// configuration artifacts. The engine never interprets artifact content;
// it captures, fingerprints, and restores opaque payloads by name.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Registry supplies current readable/writable content for tracked
// artifacts: configuration files, feature-flag tables, small state
// documents. Implementations live with the host system; phasegate ships
// a directory-backed one.
type Registry interface {
	// Names returns the declared artifact names, sorted.
	Names() ([]string, error)

	// Read returns the current content of a named artifact.
	Read(name string) ([]byte, error)

	// Write replaces the content of a named artifact.
	Write(name string, data []byte) error
}

// DirRegistry is a Registry over a flat directory: every regular file in
// the directory is one tracked artifact, keyed by its base name.
type DirRegistry struct {
	root string
}

// NewDirRegistry creates a directory-backed registry rooted at root,
// creating the directory if needed.
func NewDirRegistry(root string) (*DirRegistry, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &DirRegistry{root: root}, nil
}

// Root returns the registry's directory.
func (r *DirRegistry) Root() string {
	return r.root
}

// Names returns the base names of all regular files in the registry
// directory, sorted. Hidden files are skipped.
func (r *DirRegistry) Names() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}

// Read returns the content of the named artifact.
func (r *DirRegistry) Read(name string) ([]byte, error) {
	path, err := r.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the content of the named artifact. The write goes through
// a temporary file and rename so a crash never leaves a half-written
// artifact behind.
func (r *DirRegistry) Write(name string, data []byte) error {
	path, err := r.path(name)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace artifact %s: %w", name, err)
	}
	return nil
}

// path resolves an artifact name inside the registry root, rejecting names
// that would escape it.
func (r *DirRegistry) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid artifact name: %q", name)
	}
	return filepath.Join(r.root, name), nil
}
