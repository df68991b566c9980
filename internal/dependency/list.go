package dependency

import "github.com/abramin/strata/internal/ast"

// List indexes direct and inherited edges by depender.
type List struct {
	direct      []*Dependency
	inherited   []*InheritDependency
	byDepender  map[string][]*Dependency
	inheritedBy map[string][]*InheritDependency
}

func NewList() *List {
	return &List{
		byDepender:  make(map[string][]*Dependency),
		inheritedBy: make(map[string][]*InheritDependency),
	}
}

func (l *List) AddDependency(d *Dependency) {
	l.direct = append(l.direct, d)
	key := d.depender.String()
	l.byDepender[key] = append(l.byDepender[key], d)
}

func (l *List) AddInheritDependency(d *InheritDependency) {
	l.inherited = append(l.inherited, d)
	key := d.depender.String()
	l.inheritedBy[key] = append(l.inheritedBy[key], d)
}

// DependenciesByToken returns the direct dependencies of depender in
// insertion order.
func (l *List) DependenciesByToken(depender ast.Token) []*Dependency {
	return l.byDepender[depender.String()]
}

// InheritDependenciesByToken returns the inherited dependencies of depender.
func (l *List) InheritDependenciesByToken(depender ast.Token) []*InheritDependency {
	return l.inheritedBy[depender.String()]
}

// Dependencies returns every direct dependency in insertion order.
func (l *List) Dependencies() []*Dependency { return l.direct }

// InheritDependencies returns every inherited dependency in insertion order.
func (l *List) InheritDependencies() []*InheritDependency { return l.inherited }

// DependenciesAndInheritDependencies returns all direct edges followed by
// all inherited edges.
func (l *List) DependenciesAndInheritDependencies() []Edge {
	out := make([]Edge, 0, len(l.direct)+len(l.inherited))
	for _, d := range l.direct {
		out = append(out, d)
	}
	for _, d := range l.inherited {
		out = append(out, d)
	}
	return out
}

// Len returns the number of direct and inherited edges.
func (l *List) Len() int { return len(l.direct) + len(l.inherited) }
