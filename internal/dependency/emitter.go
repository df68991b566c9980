package dependency

import (
	"fmt"

	"github.com/abramin/strata/internal/ast"
)

// EmitterType selects which declarations contribute depender edges.
type EmitterType string

const (
	EmitterClass    EmitterType = "class"
	EmitterFunction EmitterType = "function"
	EmitterFile     EmitterType = "file"
)

// DefaultEmitters are used when no analyser types are configured.
var DefaultEmitters = []EmitterType{EmitterClass, EmitterFunction}

// Emitter turns map facts into direct dependencies.
type Emitter interface {
	Name() EmitterType
	Emit(m *ast.Map, list *List)
}

// NewEmitter returns the emitter registered under typ.
func NewEmitter(typ EmitterType) (Emitter, error) {
	switch typ {
	case EmitterClass:
		return classEmitter{}, nil
	case EmitterFunction:
		return functionEmitter{}, nil
	case EmitterFile:
		return fileEmitter{}, nil
	default:
		return nil, fmt.Errorf("unknown analyser type %q", typ)
	}
}

// classEmitter emits the dependencies of class-likes, including one edge
// per directly declared inheritance.
type classEmitter struct{}

func (classEmitter) Name() EmitterType { return EmitterClass }

func (classEmitter) Emit(m *ast.Map, list *List) {
	for _, ref := range m.ClassLikes() {
		for _, inh := range ref.Inherits {
			list.AddDependency(New(ref.ClassLike, inh.Parent, inh.Occurrence, inh.Type.DependencyType()))
		}
		for _, dep := range ref.Dependencies {
			if ast.SameToken(dep.Token, ref.ClassLike) {
				continue
			}
			list.AddDependency(New(ref.ClassLike, dep.Token, dep.Occurrence, dep.Type))
		}
	}
}

type functionEmitter struct{}

func (functionEmitter) Name() EmitterType { return EmitterFunction }

func (functionEmitter) Emit(m *ast.Map, list *List) {
	for _, ref := range m.Functions() {
		for _, dep := range ref.Dependencies {
			if ast.SameToken(dep.Token, ref.Function) {
				continue
			}
			list.AddDependency(New(ref.Function, dep.Token, dep.Occurrence, dep.Type))
		}
	}
}

// fileEmitter emits file-level dependencies: package variables, init
// functions and anything else not owned by a declaration.
type fileEmitter struct{}

func (fileEmitter) Name() EmitterType { return EmitterFile }

func (fileEmitter) Emit(m *ast.Map, list *List) {
	for _, f := range m.Files() {
		for _, dep := range f.Dependencies {
			list.AddDependency(New(f.Token(), dep.Token, dep.Occurrence, dep.Type))
		}
	}
}

// Resolver runs the configured emitters and flattens the result.
type Resolver struct {
	emitters  []Emitter
	flattener InheritanceFlattener
}

// NewResolver builds a resolver for the given analyser types. Unknown
// types are skipped; configuration validation reports them. When no usable
// type remains the resolver falls back to DefaultEmitters.
func NewResolver(types []EmitterType) *Resolver {
	r := &Resolver{}
	seen := make(map[EmitterType]bool)
	for _, typ := range types {
		if seen[typ] {
			continue
		}
		seen[typ] = true
		if e, err := NewEmitter(typ); err == nil {
			r.emitters = append(r.emitters, e)
		}
	}
	if len(r.emitters) == 0 {
		for _, typ := range DefaultEmitters {
			e, _ := NewEmitter(typ)
			r.emitters = append(r.emitters, e)
		}
	}
	return r
}

// Resolve returns the direct and inherited edges of m.
func (r *Resolver) Resolve(m *ast.Map) *List {
	list := NewList()
	for _, e := range r.emitters {
		e.Emit(m, list)
	}
	r.flattener.Flatten(m, list)
	return list
}
