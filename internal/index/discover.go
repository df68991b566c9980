package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/abramin/strata/internal/config"
)

// ErrPathNotFound is returned when a configured path does not exist.
var ErrPathNotFound = errors.New("is not a valid path or does not exists")

var skipDirs = map[string]struct{}{
	"vendor":       {},
	"testdata":     {},
	"node_modules": {},
}

// Discoverer finds the Go source files selected by a configuration.
type Discoverer struct {
	baseDir  string
	paths    []string
	excludes []*regexp.Regexp
	ignore   *ignore.GitIgnore
}

// NewDiscoverer resolves the configured paths against baseDir and compiles
// the exclusion patterns.
func NewDiscoverer(cfg *config.Config, baseDir string) (*Discoverer, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base dir: %w", err)
	}
	excludes, err := cfg.ExcludePatterns()
	if err != nil {
		return nil, err
	}

	d := &Discoverer{baseDir: absBase, excludes: excludes}
	for _, p := range cfg.Paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(absBase, p)
		}
		d.paths = append(d.paths, filepath.Clean(p))
	}
	if cfg.UsesGitignore() {
		d.ignore = loadGitignore(absBase)
	}
	return d, nil
}

// BaseDir returns the absolute directory relative paths are resolved from.
func (d *Discoverer) BaseDir() string { return d.baseDir }

// Roots returns the absolute configured paths.
func (d *Discoverer) Roots() []string { return d.paths }

// Files returns the absolute paths of every selected file, sorted and
// without duplicates.
func (d *Discoverer) Files() ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if _, ok := seen[path]; ok || !d.Selects(path) {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range d.paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%q %w", root, ErrPathNotFound)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			if entry.IsDir() {
				if path != root && SkipDir(entry.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.Type()&os.ModeSymlink != 0 {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Selects reports whether path is a Go file that is neither ignored nor
// excluded.
func (d *Discoverer) Selects(path string) bool {
	if filepath.Ext(path) != ".go" {
		return false
	}
	if d.ignore != nil {
		if rel, err := filepath.Rel(d.baseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			if d.ignore.MatchesPath(filepath.ToSlash(rel)) {
				return false
			}
		}
	}
	slashed := filepath.ToSlash(path)
	for _, re := range d.excludes {
		if re.MatchString(slashed) {
			return false
		}
	}
	return true
}

// SkipDir reports whether a directory is never descended into: vendored
// code, test fixtures and directories the go tool ignores.
func SkipDir(name string) bool {
	if _, skip := skipDirs[name]; skip {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
