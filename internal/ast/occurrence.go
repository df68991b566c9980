package ast

import (
	"fmt"
	"strings"
)

// FileOccurrence pinpoints where an edge was observed.
type FileOccurrence struct {
	Filepath string `json:"file"`
	Line     int    `json:"line"`
}

func NewFileOccurrence(path string, line int) FileOccurrence {
	if line < 1 {
		line = 1
	}
	return FileOccurrence{Filepath: path, Line: line}
}

func (o FileOccurrence) String() string {
	return fmt.Sprintf("%s:%d", o.Filepath, o.Line)
}

// DependencyType records why a dependency edge exists. It is carried for
// diagnostics only.
type DependencyType string

const (
	DependencyParameter                DependencyType = "parameter"
	DependencyReturnType               DependencyType = "returntype"
	DependencyVariable                 DependencyType = "variable"
	DependencyNew                      DependencyType = "new"
	DependencyFunctionCall             DependencyType = "function_call"
	DependencyInstanceof               DependencyType = "instanceof"
	DependencyConst                    DependencyType = "const"
	DependencyAnonymousClass           DependencyType = "anonymous_class"
	DependencyAnonymousClassExtends    DependencyType = "anonymous_class_extends"
	DependencyAnonymousClassImplements DependencyType = "anonymous_class_implements"
	DependencyExtends                  DependencyType = "extends"
	DependencyImplements               DependencyType = "implements"
	DependencyUses                     DependencyType = "uses"
	DependencyInherit                  DependencyType = "inherit"
)

// DependencyToken is a raw reference observed inside a declaration.
type DependencyToken struct {
	Token      Token
	Occurrence FileOccurrence
	Type       DependencyType
}

// InheritType is the kind of an inheritance edge.
type InheritType string

const (
	InheritExtends    InheritType = "extends"
	InheritImplements InheritType = "implements"
	InheritUses       InheritType = "uses"
)

// DependencyType maps an inheritance kind to the dependency type emitted
// for the direct edge.
func (t InheritType) DependencyType() DependencyType {
	switch t {
	case InheritImplements:
		return DependencyImplements
	case InheritUses:
		return DependencyUses
	default:
		return DependencyExtends
	}
}

// Inherit is a typed inheritance edge from Child to Parent.
//
// Path is empty for an edge observed in source. An edge yielded while
// walking the ancestors of some descendant carries the hops that lead from
// the descendant to Child, nearest to this edge first. Inherits are never
// mutated after construction; WithPath returns a copy.
type Inherit struct {
	Child      ClassLikeToken
	Parent     ClassLikeToken
	Occurrence FileOccurrence
	Type       InheritType
	Path       []*Inherit
}

func NewInherit(child, parent ClassLikeToken, occurrence FileOccurrence, typ InheritType) *Inherit {
	return &Inherit{Child: child, Parent: parent, Occurrence: occurrence, Type: typ}
}

// WithPath returns a copy of the edge carrying path.
func (i *Inherit) WithPath(path []*Inherit) *Inherit {
	cp := *i
	cp.Path = append([]*Inherit(nil), path...)
	return &cp
}

// Chain returns the edge followed by its path: the full walk from Parent
// back toward the descendant whose ancestors produced the edge.
func (i *Inherit) Chain() []*Inherit {
	chain := make([]*Inherit, 0, len(i.Path)+1)
	chain = append(chain, i)
	return append(chain, i.Path...)
}

func (i *Inherit) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s::%d (%s)", i.Parent, i.Occurrence.Line, i.Type)
	for _, hop := range i.Path {
		fmt.Fprintf(&b, " -> %s::%d (%s)", hop.Parent, hop.Occurrence.Line, hop.Type)
	}
	return b.String()
}
