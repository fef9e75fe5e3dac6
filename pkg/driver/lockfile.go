package driver

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Lockfile pins the resolved revision of every installed dependency.
type Lockfile struct {
	Root     string           `yaml:"root"`
	Tool     string           `yaml:"tool"`
	Packages []*LockedPackage `yaml:"packages"`

	Path string `yaml:"-"`
}

// LockedPackage records where a dependency came from, the exact revision
// checked out into the cache, and the manifest refinement (tag/branch/rev)
// the revision was resolved from. A refinement change in package.yml is
// detected by comparing Pin against the manifest.
type LockedPackage struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Rev    string `yaml:"rev,omitempty"`
	Pin    string `yaml:"pin,omitempty"`
}

// NewLockfile creates an empty lockfile for the given root package.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{Root: root, Tool: tool}
}

// LoadLockfile parses package.lock from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock Lockfile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", path, err)
	}
	lock.Path = path
	return &lock, nil
}

// WriteLockfile renders the lockfile with packages in name order so
// repeated installs produce byte-identical output.
func WriteLockfile(lock *Lockfile, path string) error {
	sort.Slice(lock.Packages, func(a, b int) bool {
		return lock.Packages[a].Name < lock.Packages[b].Name
	})
	data, err := yaml.Marshal(lock)
	if err != nil {
		return fmt.Errorf("lockfile: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Find returns the locked entry for a dependency, if any.
func (l *Lockfile) Find(name string) *LockedPackage {
	for _, pkg := range l.Packages {
		if pkg != nil && pkg.Name == name {
			return pkg
		}
	}
	return nil
}

// Put inserts or replaces a locked entry.
func (l *Lockfile) Put(pkg *LockedPackage) {
	for idx, existing := range l.Packages {
		if existing != nil && existing.Name == pkg.Name {
			l.Packages[idx] = pkg
			return
		}
	}
	l.Packages = append(l.Packages, pkg)
}
