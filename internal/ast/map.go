package ast

import "sort"

// Map is the fact base for one run: every analysed file with its declared
// symbols, indexed by token.
type Map struct {
	files      []*FileReference
	byPath     map[string]*FileReference
	classLikes []*ClassLikeReference
	byClass    map[string]*ClassLikeReference
	functions  []*FunctionReference
	byFunction map[string]*FunctionReference
}

// NewMap assembles a map from extracted file references. The result does
// not depend on the order of files.
//
// Partial class-likes are merged into the reference of the file that
// declares the type. If no analysed file declares it, the first partial
// reference in path order stands in for the declaration.
func NewMap(files []*FileReference) *Map {
	sorted := make([]*FileReference, 0, len(files))
	for _, f := range files {
		if f != nil {
			sorted = append(sorted, f)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Filepath < sorted[j].Filepath })

	m := &Map{
		files:      sorted,
		byPath:     make(map[string]*FileReference, len(sorted)),
		byClass:    make(map[string]*ClassLikeReference),
		byFunction: make(map[string]*FunctionReference),
	}

	var partials []*ClassLikeReference
	for _, f := range sorted {
		f.bind()
		m.byPath[f.Filepath] = f
		for _, ref := range f.ClassLikes {
			if ref.Partial {
				partials = append(partials, ref)
				continue
			}
			if existing, ok := m.byClass[ref.ClassLike.Name]; ok {
				mergeClassLike(existing, ref)
				continue
			}
			m.byClass[ref.ClassLike.Name] = ref
			m.classLikes = append(m.classLikes, ref)
		}
		for _, ref := range f.Functions {
			if _, ok := m.byFunction[ref.Function.Name]; ok {
				continue
			}
			m.byFunction[ref.Function.Name] = ref
			m.functions = append(m.functions, ref)
		}
	}

	for _, ref := range partials {
		existing, ok := m.byClass[ref.ClassLike.Name]
		if !ok {
			owner := *ref
			owner.Inherits = append([]*Inherit(nil), ref.Inherits...)
			owner.Dependencies = append([]DependencyToken(nil), ref.Dependencies...)
			owner.Partial = false
			m.byClass[ref.ClassLike.Name] = &owner
			m.classLikes = append(m.classLikes, &owner)
			continue
		}
		mergeClassLike(existing, ref)
	}

	return m
}

func mergeClassLike(dst, src *ClassLikeReference) {
	dst.Inherits = append(dst.Inherits, src.Inherits...)
	dst.Dependencies = append(dst.Dependencies, src.Dependencies...)
}

// Files returns the file references sorted by path.
func (m *Map) Files() []*FileReference { return m.files }

// ClassLikes returns the class-like references in declaration order.
func (m *Map) ClassLikes() []*ClassLikeReference { return m.classLikes }

// Functions returns the function references in declaration order.
func (m *Map) Functions() []*FunctionReference { return m.functions }

func (m *Map) FileReference(path string) *FileReference { return m.byPath[path] }

func (m *Map) ClassLikeReference(token ClassLikeToken) *ClassLikeReference {
	return m.byClass[token.Name]
}

func (m *Map) FunctionReference(token FunctionToken) *FunctionReference {
	return m.byFunction[token.Name]
}

// ClassInherits walks every ancestor edge reachable from token, depth
// first. Directly declared edges come back unchanged; edges found further
// up carry the hops leading to them in Path. A class-like already visited
// on the current descent is never entered again, so cycles terminate. An
// ancestor reached by a second route yields its edge but is not expanded
// again: its own ancestors already came back with the first route.
func (m *Map) ClassInherits(token ClassLikeToken) []*Inherit {
	var out []*Inherit
	w := inheritWalk{
		visited:  map[string]bool{token.Name: true},
		expanded: map[string]bool{},
		out:      &out,
	}
	m.walkInherits(token, nil, &w)
	return out
}

type inheritWalk struct {
	visited  map[string]bool // current descent
	expanded map[string]bool // whole walk
	out      *[]*Inherit
}

func (m *Map) walkInherits(token ClassLikeToken, path []*Inherit, w *inheritWalk) {
	ref := m.byClass[token.Name]
	if ref == nil {
		return
	}
	for _, inherit := range ref.Inherits {
		parent := inherit.Parent.Name
		if w.visited[parent] {
			continue
		}
		if len(path) == 0 {
			*w.out = append(*w.out, inherit)
		} else {
			*w.out = append(*w.out, inherit.WithPath(path))
		}
		if w.expanded[parent] {
			continue
		}
		w.expanded[parent] = true

		next := make([]*Inherit, 0, len(path)+1)
		next = append(next, inherit)
		next = append(next, path...)

		w.visited[parent] = true
		m.walkInherits(inherit.Parent, next, w)
		delete(w.visited, parent)
	}
}
