// Package driver handles Lox script projects: the package.yml manifest,
// the package.lock lockfile, and git-based dependency installation.
package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest represents the parsed contents of package.yml.
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Targets      map[string]*TargetSpec
	Dependencies map[string]*DependencySpec
}

// TargetSpec describes a runnable entrypoint from the manifest.
type TargetSpec struct {
	Name string
	Main string
}

// DependencySpec describes a dependency descriptor in the manifest.
// Exactly one of Git or Path must be set; Tag/Branch/Rev refine Git.
type DependencySpec struct {
	Git    string `yaml:"git,omitempty"`
	Tag    string `yaml:"tag,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	Rev    string `yaml:"rev,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type manifestFile struct {
	Name         string                     `yaml:"name"`
	Version      string                     `yaml:"version"`
	Targets      map[string]*targetSpecFile `yaml:"targets"`
	Dependencies map[string]*DependencySpec `yaml:"dependencies"`
}

type targetSpecFile struct {
	Main string `yaml:"main"`
}

// LoadManifest parses package.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (raw *manifestFile) toManifest(path string) *Manifest {
	m := &Manifest{
		Path:         path,
		Name:         raw.Name,
		Version:      raw.Version,
		Targets:      make(map[string]*TargetSpec, len(raw.Targets)),
		Dependencies: raw.Dependencies,
	}
	if m.Dependencies == nil {
		m.Dependencies = make(map[string]*DependencySpec)
	}
	for name, spec := range raw.Targets {
		if spec == nil {
			spec = &targetSpecFile{}
		}
		m.Targets[name] = &TargetSpec{Name: name, Main: spec.Main}
	}
	return m
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	for name, target := range m.Targets {
		if name == "" {
			errs.Issues = append(errs.Issues, "targets must not use empty keys")
		}
		if strings.TrimSpace(target.Main) == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q missing main entrypoint", name))
		}
	}
	for name, dep := range m.Dependencies {
		if dep == nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependency %q has no descriptor", name))
			continue
		}
		if dep.Git == "" && dep.Path == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependency %q needs a git URL or a path", name))
		}
		if dep.Git != "" && dep.Path != "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependency %q can't set both git and path", name))
		}
		refinements := 0
		for _, ref := range []string{dep.Tag, dep.Branch, dep.Rev} {
			if ref != "" {
				refinements++
			}
		}
		if refinements > 1 {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependency %q may set at most one of tag, branch, rev", name))
		}
		if dep.Path != "" && refinements > 0 {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependency %q: path dependencies take no git refinement", name))
		}
	}
	if len(errs.Issues) > 0 {
		sort.Strings(errs.Issues)
		return &errs
	}
	return nil
}

// DefaultTarget picks the sole target, or the one named "main".
func (m *Manifest) DefaultTarget() (*TargetSpec, error) {
	if len(m.Targets) == 0 {
		return nil, fmt.Errorf("manifest %q declares no targets", m.Name)
	}
	if len(m.Targets) == 1 {
		for _, t := range m.Targets {
			return t, nil
		}
	}
	if t, ok := m.Targets["main"]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("manifest %q has multiple targets and none named \"main\"", m.Name)
}

// FindTarget looks a target up by name.
func (m *Manifest) FindTarget(name string) (*TargetSpec, bool) {
	t, ok := m.Targets[name]
	return t, ok
}

// ResolveMain turns a target's main path into an absolute file path
// relative to the manifest's directory.
func (m *Manifest) ResolveMain(target *TargetSpec) (string, error) {
	main := strings.TrimSpace(target.Main)
	if main == "" {
		return "", fmt.Errorf("target %q missing main entrypoint", target.Name)
	}
	if filepath.IsAbs(main) {
		return filepath.Clean(main), nil
	}
	return filepath.Join(filepath.Dir(m.Path), filepath.FromSlash(main)), nil
}

// FindManifest walks from start upwards looking for package.yml.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, "package.yml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no package.yml found from %s upwards: %w", origin, ErrManifestNotFound)
		}
		dir = parent
	}
}

// ErrManifestNotFound reports that the upward search exhausted the tree.
var ErrManifestNotFound = errors.New("package.yml not found")
