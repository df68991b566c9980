// Package dependency builds the edge list the analyser classifies: direct
// dependencies emitted from the AST map and the inherited dependencies
// synthesized by flattening the inheritance graph.
package dependency

import "github.com/abramin/strata/internal/ast"

// Edge is a dependency between two tokens as seen by the rule chain.
type Edge interface {
	Depender() ast.Token
	Dependent() ast.Token
	Occurrence() ast.FileOccurrence
	Type() ast.DependencyType
}

// Dependency is a directly observed edge.
type Dependency struct {
	depender   ast.Token
	dependent  ast.Token
	occurrence ast.FileOccurrence
	typ        ast.DependencyType
}

var _ Edge = (*Dependency)(nil)

func New(depender, dependent ast.Token, occurrence ast.FileOccurrence, typ ast.DependencyType) *Dependency {
	return &Dependency{depender: depender, dependent: dependent, occurrence: occurrence, typ: typ}
}

func (d *Dependency) Depender() ast.Token            { return d.depender }
func (d *Dependency) Dependent() ast.Token           { return d.dependent }
func (d *Dependency) Occurrence() ast.FileOccurrence { return d.occurrence }
func (d *Dependency) Type() ast.DependencyType       { return d.typ }

// InheritDependency is a dependency a class-like has only because one of
// its ancestors declares it directly.
type InheritDependency struct {
	depender ast.Token
	original *Dependency
	via      *ast.Inherit
}

var _ Edge = (*InheritDependency)(nil)

func NewInherit(depender ast.Token, original *Dependency, via *ast.Inherit) *InheritDependency {
	return &InheritDependency{depender: depender, original: original, via: via}
}

func (d *InheritDependency) Depender() ast.Token            { return d.depender }
func (d *InheritDependency) Dependent() ast.Token           { return d.original.dependent }
func (d *InheritDependency) Occurrence() ast.FileOccurrence { return d.original.occurrence }
func (d *InheritDependency) Type() ast.DependencyType       { return ast.DependencyInherit }

// Original returns the direct dependency declared on the ancestor.
func (d *InheritDependency) Original() *Dependency { return d.original }

// Inherit returns the inheritance edge whose parent declares the original
// dependency. Its Chain leads back to the depender.
func (d *InheritDependency) Inherit() *ast.Inherit { return d.via }
