package parser

import (
	"os"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/mod/modfile"
)

// ModuleNamer derives import paths from the nearest go.mod above a
// directory. It is safe for concurrent use.
type ModuleNamer struct {
	mu    sync.Mutex
	roots map[string]moduleRoot
}

type moduleRoot struct {
	dir  string
	path string
}

func NewModuleNamer() *ModuleNamer {
	return &ModuleNamer{roots: make(map[string]moduleRoot)}
}

func (n *ModuleNamer) PackagePath(dir string) string {
	dir = filepath.Clean(dir)
	root, ok := n.findRoot(dir)
	if !ok {
		return ""
	}
	rel, err := filepath.Rel(root.dir, dir)
	if err != nil {
		return ""
	}
	if rel == "." {
		return root.path
	}
	return path.Join(root.path, filepath.ToSlash(rel))
}

func (n *ModuleNamer) findRoot(dir string) (moduleRoot, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var visited []string
	found := moduleRoot{}
	ok := false
	for d := dir; ; d = filepath.Dir(d) {
		if root, cached := n.roots[d]; cached {
			found, ok = root, root.path != ""
			break
		}
		visited = append(visited, d)
		if data, err := os.ReadFile(filepath.Join(d, "go.mod")); err == nil {
			if modPath := modfile.ModulePath(data); modPath != "" {
				found, ok = moduleRoot{dir: d, path: modPath}, true
				break
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
	}
	for _, d := range visited {
		n.roots[d] = found
	}
	return found, ok
}
