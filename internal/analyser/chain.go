package analyser

import (
	"errors"
	"fmt"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/dependency"
	"github.com/abramin/strata/internal/layer"
	"github.com/abramin/strata/internal/result"
)

// ErrChainExhausted is returned when no handler of a chain decided an
// event. A chain ending with the violation handler never exhausts.
var ErrChainExhausted = errors.New("rule chain exhausted without a decision")

// Event is one edge passed through the chain.
type Event struct {
	Dependency      dependency.Edge
	Depender        ast.TokenReference
	DependerLayers  layer.Layers
	Dependent       ast.TokenReference
	DependentLayers layer.Layers
}

// Rule builds a rule of category c for the event. dependentLayers
// overrides the dependent layer names when non-nil.
func (e *Event) Rule(c result.Category, dependentLayers []string) result.Rule {
	if dependentLayers == nil && len(e.DependentLayers) > 0 {
		dependentLayers = e.DependentLayers.Names()
	}
	return result.Rule{
		Category:        c,
		Dependency:      e.Dependency,
		DependerLayers:  e.DependerLayers.Names(),
		DependentLayers: dependentLayers,
	}
}

// Decision is the outcome of one handler.
type Decision struct {
	halt bool
	rule result.Rule
}

// Continue passes the event to the next handler.
var Continue = Decision{}

// Halt stops the chain and records rule.
func Halt(rule result.Rule) Decision { return Decision{halt: true, rule: rule} }

// Halted reports whether the decision stops the chain.
func (d Decision) Halted() bool { return d.halt }

// Handler classifies events.
type Handler interface {
	Name() string
	Handle(e *Event) Decision
}

// Chain is an ordered list of handlers. The first handler to halt decides
// the event.
type Chain struct {
	handlers []Handler
}

func NewChain(handlers ...Handler) *Chain {
	return &Chain{handlers: handlers}
}

// Append adds h after the existing handlers.
func (c *Chain) Append(h Handler) { c.handlers = append(c.handlers, h) }

// Prepend adds h before the existing handlers.
func (c *Chain) Prepend(h Handler) { c.handlers = append([]Handler{h}, c.handlers...) }

// InsertBefore adds h in front of the handler called name, or at the end
// when there is none.
func (c *Chain) InsertBefore(name string, h Handler) {
	for i, existing := range c.handlers {
		if existing.Name() == name {
			c.handlers = append(c.handlers[:i], append([]Handler{h}, c.handlers[i:]...)...)
			return
		}
	}
	c.Append(h)
}

// Remove drops the handler called name.
func (c *Chain) Remove(name string) {
	for i, existing := range c.handlers {
		if existing.Name() == name {
			c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
			return
		}
	}
}

// Names returns the handler names in evaluation order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.handlers))
	for i, h := range c.handlers {
		names[i] = h.Name()
	}
	return names
}

// Process runs e through the chain and returns the deciding rule.
func (c *Chain) Process(e *Event) (result.Rule, error) {
	for _, h := range c.handlers {
		if d := h.Handle(e); d.halt {
			return d.rule, nil
		}
	}
	return result.Rule{}, fmt.Errorf("%w: %s -> %s", ErrChainExhausted, e.Dependency.Depender(), e.Dependency.Dependent())
}
