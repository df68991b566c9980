// Package layer assigns tokens to the configured architectural layers.
package layer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/config"
)

// Layers maps the name of every layer containing a token to the type of
// the collector that matched it.
type Layers map[string]string

// Names returns the layer names in sorted order.
func (l Layers) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is one of the layers.
func (l Layers) Has(name string) bool {
	_, ok := l[name]
	return ok
}

// Resolver returns the layers containing a resolved token.
type Resolver interface {
	LayersFor(ref ast.TokenReference, m *ast.Map) Layers
}

// CollectorError describes a layer whose collectors cannot be used.
type CollectorError struct {
	Layer string
	Err   error
}

func (e *CollectorError) Error() string {
	return fmt.Sprintf("layer %q: %v", e.Layer, e.Err)
}

func (e *CollectorError) Unwrap() error { return e.Err }

type compiledLayer struct {
	name       string
	collectors []Collector
	refs       []string
}

// CollectorResolver evaluates configured collectors in declaration order.
// Results are memoized per token for the map last seen, so a resolver can
// be reused across analysis runs. It is safe for concurrent use.
type CollectorResolver struct {
	layers []*compiledLayer
	byName map[string]*compiledLayer

	mu    sync.Mutex
	memo  map[string]Layers
	memoM *ast.Map
}

var _ Resolver = (*CollectorResolver)(nil)

// NewCollectorResolver compiles the collectors of every layer. Layers that
// cannot be compiled, reference undefined layers or take part in a layer
// reference cycle are left out and reported as CollectorErrors.
func NewCollectorResolver(layers []config.Layer, baseDir string) (*CollectorResolver, []error) {
	r := &CollectorResolver{
		byName: make(map[string]*compiledLayer, len(layers)),
		memo:   make(map[string]Layers),
	}
	defined := make(map[string]bool, len(layers))
	for _, l := range layers {
		defined[l.Name] = true
	}

	var errs []error
	var candidates []*compiledLayer
	for _, l := range layers {
		if l.Name == "" || r.byName[l.Name] != nil {
			continue
		}
		c := &compiler{baseDir: baseDir, resolver: r}
		cl := &compiledLayer{name: l.Name}
		var err error
		for i, cfg := range l.Collectors {
			var col Collector
			if col, err = c.compile(cfg); err != nil {
				err = fmt.Errorf("collector %d: %w", i, err)
				break
			}
			cl.collectors = append(cl.collectors, col)
		}
		if err == nil {
			for _, ref := range c.layerRefs {
				if !defined[ref] {
					err = fmt.Errorf("references undefined layer %q", ref)
					break
				}
			}
		}
		if err != nil {
			errs = append(errs, &CollectorError{Layer: l.Name, Err: err})
			continue
		}
		cl.refs = c.layerRefs
		r.byName[l.Name] = cl
		candidates = append(candidates, cl)
	}

	for _, name := range r.cyclic() {
		errs = append(errs, &CollectorError{Layer: name, Err: errors.New("circular layer reference")})
		delete(r.byName, name)
	}
	// Layers that reference a dropped layer cannot be evaluated either.
	for changed := true; changed; {
		changed = false
		for _, cl := range candidates {
			if r.byName[cl.name] != cl {
				continue
			}
			for _, ref := range cl.refs {
				if r.byName[ref] == nil {
					errs = append(errs, &CollectorError{Layer: cl.name, Err: fmt.Errorf("references invalid layer %q", ref)})
					delete(r.byName, cl.name)
					changed = true
					break
				}
			}
		}
	}

	for _, cl := range candidates {
		if r.byName[cl.name] == cl {
			r.layers = append(r.layers, cl)
		}
	}
	sortErrors(errs)
	return r, errs
}

// cyclic returns the names of layers on a layer reference cycle, sorted.
func (r *CollectorResolver) cyclic() []string {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(r.byName))
	onCycle := map[string]bool{}
	var stack []string

	var visit func(name string)
	visit = func(name string) {
		state[name] = active
		stack = append(stack, name)
		for _, ref := range r.byName[name].refs {
			if r.byName[ref] == nil {
				continue
			}
			switch state[ref] {
			case unvisited:
				visit(ref)
			case active:
				for i := len(stack) - 1; i >= 0; i-- {
					onCycle[stack[i]] = true
					if stack[i] == ref {
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
	}

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if state[name] == unvisited {
			visit(name)
		}
	}

	out := make([]string, 0, len(onCycle))
	for name := range onCycle {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortErrors(errs []error) {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].(*CollectorError).Layer < errs[j].(*CollectorError).Layer
	})
}

// Names returns the usable layer names in declaration order.
func (r *CollectorResolver) Names() []string {
	names := make([]string, 0, len(r.layers))
	for _, l := range r.layers {
		names = append(names, l.name)
	}
	return names
}

// LayersFor returns every layer containing ref. The evidence recorded for
// a layer is the type of its first matching collector.
func (r *CollectorResolver) LayersFor(ref ast.TokenReference, m *ast.Map) Layers {
	key := memoKey(ref.Token())

	r.mu.Lock()
	if r.memoM != m {
		r.memo = make(map[string]Layers)
		r.memoM = m
	}
	if cached, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	out := Layers{}
	for _, l := range r.layers {
		if col := l.match(ref, m); col != nil {
			out[l.name] = col.Type()
		}
	}

	r.mu.Lock()
	if r.memoM == m {
		r.memo[key] = out
	}
	r.mu.Unlock()
	return out
}

func (r *CollectorResolver) inLayer(name string, ref ast.TokenReference, m *ast.Map) bool {
	l := r.byName[name]
	return l != nil && l.match(ref, m) != nil
}

func (l *compiledLayer) match(ref ast.TokenReference, m *ast.Map) Collector {
	for _, col := range l.collectors {
		if col.Satisfy(ref, m) {
			return col
		}
	}
	return nil
}

func memoKey(tok ast.Token) string {
	return string(tok.Kind()) + ":" + tok.String()
}
