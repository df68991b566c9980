package parser

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/tools/go/packages"
)

// LoadMode is the packages.Load mode needed to map directories to import
// paths.
const LoadMode = packages.NeedName | packages.NeedFiles | packages.NeedModule

// PackagesNamer maps directories to import paths using go/packages. It
// handles build setups go.mod alone cannot describe, such as workspaces and
// replace directives. Directories the loader did not report fall back to
// the go.mod lookup.
type PackagesNamer struct {
	dirs     map[string]string
	fallback *ModuleNamer
}

// LoadPackagesNamer loads every package below dir.
func LoadPackagesNamer(dir string, logger *slog.Logger) (*PackagesNamer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := &packages.Config{
		Mode: LoadMode,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	n := &PackagesNamer{dirs: make(map[string]string), fallback: NewModuleNamer()}
	var loadErrs int
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		loadErrs += len(pkg.Errors)
		files := append(append([]string(nil), pkg.GoFiles...), pkg.OtherFiles...)
		for _, file := range files {
			d := filepath.Dir(file)
			if _, ok := n.dirs[d]; !ok {
				n.dirs[d] = pkg.PkgPath
			}
		}
	})
	if loadErrs > 0 {
		logger.Warn("packages.load.errors", "count", loadErrs)
	}
	logger.Debug("packages.load", "packages", len(pkgs), "dirs", len(n.dirs))
	return n, nil
}

func (n *PackagesNamer) PackagePath(dir string) string {
	if p, ok := n.dirs[filepath.Clean(dir)]; ok {
		return p
	}
	return n.fallback.PackagePath(dir)
}
