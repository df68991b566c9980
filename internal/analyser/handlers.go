package analyser

import (
	"slices"

	"github.com/abramin/strata/internal/result"
)

// Handler names of the default chain.
const (
	HandlerSameLayer = "same_layer"
	HandlerUncovered = "uncovered"
	HandlerAllowed   = "allowed"
	HandlerSkipped   = "skipped"
	HandlerViolation = "violation"
)

// Ruleset returns the layers a layer may depend on.
type Ruleset func(layer string) []string

// forbidden returns the dependent layers outside the depender's layers
// that none of the depender's layers may depend on, sorted.
func forbidden(e *Event, rules Ruleset) []string {
	var out []string
	for _, dependent := range e.DependentLayers.Names() {
		if e.DependerLayers.Has(dependent) {
			continue
		}
		allowed := false
		for depender := range e.DependerLayers {
			if rules != nil && slices.Contains(rules(depender), dependent) {
				allowed = true
				break
			}
		}
		if !allowed {
			out = append(out, dependent)
		}
	}
	return out
}

// SameLayerHandler allows edges whose dependent only lives in layers the
// depender is in as well. A dependent without layers is left to the
// uncovered handler.
type SameLayerHandler struct{}

func (SameLayerHandler) Name() string { return HandlerSameLayer }

func (SameLayerHandler) Handle(e *Event) Decision {
	if len(e.DependerLayers) == 0 || len(e.DependentLayers) == 0 {
		return Continue
	}
	for name := range e.DependentLayers {
		if !e.DependerLayers.Has(name) {
			return Continue
		}
	}
	return Halt(e.Rule(result.Allowed, nil))
}

// UncoveredHandler reports dependents that belong to no layer.
type UncoveredHandler struct{}

func (UncoveredHandler) Name() string { return HandlerUncovered }

func (UncoveredHandler) Handle(e *Event) Decision {
	if len(e.DependentLayers) > 0 {
		return Continue
	}
	return Halt(e.Rule(result.Uncovered, nil))
}

// AllowedHandler allows edges whose every foreign dependent layer is
// permitted by the ruleset.
type AllowedHandler struct {
	Rules Ruleset
}

func (AllowedHandler) Name() string { return HandlerAllowed }

func (h AllowedHandler) Handle(e *Event) Decision {
	if len(forbidden(e, h.Rules)) > 0 {
		return Continue
	}
	return Halt(e.Rule(result.Allowed, nil))
}

// SkippedHandler tolerates forbidden edges listed in skip_violations.
type SkippedHandler struct {
	Rules Ruleset
	// Skip maps a depender token to the dependent tokens it may use.
	Skip map[string][]string
}

func (SkippedHandler) Name() string { return HandlerSkipped }

func (h SkippedHandler) Handle(e *Event) Decision {
	dependents, ok := h.Skip[e.Dependency.Depender().String()]
	if !ok || !slices.Contains(dependents, e.Dependency.Dependent().String()) {
		return Continue
	}
	return Halt(e.Rule(result.SkippedViolation, reported(e, h.Rules)))
}

// ViolationHandler terminates the chain with a violation naming the
// forbidden dependent layers.
type ViolationHandler struct {
	Rules Ruleset
}

func (ViolationHandler) Name() string { return HandlerViolation }

func (h ViolationHandler) Handle(e *Event) Decision {
	return Halt(e.Rule(result.Violation, reported(e, h.Rules)))
}

// reported returns the forbidden layers, or nil to report every dependent
// layer.
func reported(e *Event, rules Ruleset) []string {
	if layers := forbidden(e, rules); len(layers) > 0 {
		return layers
	}
	return nil
}
