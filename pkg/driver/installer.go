package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Installer materializes a manifest's dependencies into the cache
// directory and keeps the lockfile in sync.
type Installer struct {
	manifest *Manifest
	cacheDir string
}

// NewInstaller creates an installer rooted at cacheDir (LOX_HOME).
func NewInstaller(manifest *Manifest, cacheDir string) *Installer {
	return &Installer{manifest: manifest, cacheDir: cacheDir}
}

// Install fetches every dependency not already pinned and present in the
// cache. It reports whether the lockfile changed, plus one log line per
// dependency. Install is idempotent: a second run against an up-to-date
// lockfile touches nothing.
func (ins *Installer) Install(lock *Lockfile) (bool, []string, error) {
	names := make([]string, 0, len(ins.manifest.Dependencies))
	for name := range ins.manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	changed := false
	var logs []string
	for _, name := range names {
		dep := ins.manifest.Dependencies[name]
		line, depChanged, err := ins.installOne(name, dep, lock)
		if err != nil {
			return changed, logs, fmt.Errorf("dependency %q: %w", name, err)
		}
		logs = append(logs, line)
		changed = changed || depChanged
	}
	return changed, logs, nil
}

func (ins *Installer) installOne(name string, dep *DependencySpec, lock *Lockfile) (string, bool, error) {
	if dep.Path != "" {
		return ins.installPath(name, dep, lock)
	}
	return ins.installGit(name, dep, lock)
}

func (ins *Installer) installPath(name string, dep *DependencySpec, lock *Lockfile) (string, bool, error) {
	source := dep.Path
	if !filepath.IsAbs(source) {
		source = filepath.Join(filepath.Dir(ins.manifest.Path), filepath.FromSlash(dep.Path))
	}
	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		return "", false, fmt.Errorf("path %s is not a directory", source)
	}

	entry := &LockedPackage{Name: name, Source: "path:" + dep.Path}
	if existing := lock.Find(name); existing != nil && *existing == *entry {
		return fmt.Sprintf("%s: %s (path, unchanged)", name, source), false, nil
	}
	lock.Put(entry)
	return fmt.Sprintf("%s: %s (path)", name, source), true, nil
}

func (ins *Installer) installGit(name string, dep *DependencySpec, lock *Lockfile) (string, bool, error) {
	dest := ins.SourceDir(name)
	pin := gitPin(dep)

	existing := lock.Find(name)
	if existing != nil && existing.Source == dep.Git && existing.Pin == pin &&
		existing.Rev != "" && dirExists(dest) {
		return fmt.Sprintf("%s: %s (cached at %s)", name, existing.Rev, dest), false, nil
	}

	// Clones are single-branch and never fetched afterwards, so a cached
	// checkout can't serve a changed tag, branch, or rev. Drop it and
	// clone fresh whenever the lock entry doesn't vouch for it.
	if dirExists(dest) && (existing == nil || existing.Source != dep.Git || existing.Pin != pin) {
		if err := os.RemoveAll(dest); err != nil {
			return "", false, fmt.Errorf("drop stale checkout %s: %w", dest, err)
		}
	}

	repo, err := ins.cloneOrOpen(dest, dep)
	if err != nil {
		return "", false, err
	}

	if dep.Rev != "" {
		wt, err := repo.Worktree()
		if err != nil {
			return "", false, err
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(dep.Rev)}); err != nil {
			return "", false, fmt.Errorf("checkout %s: %w", dep.Rev, err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "", false, fmt.Errorf("resolve HEAD: %w", err)
	}
	rev := head.Hash().String()

	lock.Put(&LockedPackage{Name: name, Source: dep.Git, Rev: rev, Pin: pin})
	return fmt.Sprintf("%s: %s (fetched %s)", name, rev, dep.Git), true, nil
}

// gitPin canonicalizes a dependency's git refinement so the lockfile can
// detect when package.yml moved to a different tag, branch, or rev.
func gitPin(dep *DependencySpec) string {
	switch {
	case dep.Tag != "":
		return "tag:" + dep.Tag
	case dep.Branch != "":
		return "branch:" + dep.Branch
	case dep.Rev != "":
		return "rev:" + dep.Rev
	default:
		return ""
	}
}

func (ins *Installer) cloneOrOpen(dest string, dep *DependencySpec) (*git.Repository, error) {
	if dirExists(dest) {
		repo, err := git.PlainOpen(dest)
		if err == nil {
			return repo, nil
		}
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, err
	}
	options := &git.CloneOptions{URL: dep.Git}
	switch {
	case dep.Tag != "":
		options.ReferenceName = plumbing.NewTagReferenceName(dep.Tag)
		options.SingleBranch = true
	case dep.Branch != "":
		options.ReferenceName = plumbing.NewBranchReferenceName(dep.Branch)
		options.SingleBranch = true
	}
	repo, err := git.PlainClone(dest, false, options)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", dep.Git, err)
	}
	return repo, nil
}

// SourceDir is where a named dependency's working tree lives in the cache.
func (ins *Installer) SourceDir(name string) string {
	return filepath.Join(ins.cacheDir, "src", name)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
