// Package analyser classifies dependency edges against the layer
// configuration with an ordered chain of handlers.
package analyser

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/config"
	"github.com/abramin/strata/internal/dependency"
	"github.com/abramin/strata/internal/layer"
	"github.com/abramin/strata/internal/result"
)

// DefaultChain returns the standard handler order for cfg.
func DefaultChain(cfg *config.Config) *Chain {
	rules := ResolveRuleset(cfg)
	return NewChain(
		SameLayerHandler{},
		UncoveredHandler{},
		AllowedHandler{Rules: rules},
		SkippedHandler{Rules: rules, Skip: cfg.SkipViolations},
		ViolationHandler{Rules: rules},
	)
}

// ResolveRuleset expands the "+Layer" entries of cfg's ruleset once and
// returns a lookup over the result. Later changes to cfg are not seen.
func ResolveRuleset(cfg *config.Config) Ruleset {
	resolved := make(map[string][]string, len(cfg.Ruleset))
	for name := range cfg.Ruleset {
		resolved[name] = cfg.AllowedLayers(name)
	}
	return func(layer string) []string { return resolved[layer] }
}

// Analyser runs every edge of a dependency list through its chain.
type Analyser struct {
	cfg    *config.Config
	tokens dependency.TokenResolver
	layers layer.Resolver
	chain  *Chain
	logger *slog.Logger
}

func New(cfg *config.Config, layers layer.Resolver, logger *slog.Logger) *Analyser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyser{
		cfg:    cfg,
		layers: layers,
		chain:  DefaultChain(cfg),
		logger: logger,
	}
}

// Chain returns the handler chain. Changes apply to subsequent runs.
func (a *Analyser) Chain() *Chain { return a.chain }

// Analyse classifies every edge of deps into res. Edges whose depender
// belongs to no layer are not classified. Unresolvable tokens are recorded
// as errors and their edges skipped. The only error returned is
// ErrChainExhausted.
func (a *Analyser) Analyse(m *ast.Map, deps *dependency.List, res *result.Result) error {
	seen := map[string]bool{}
	note := func(ref ast.TokenReference, layers layer.Layers) {
		for name := range layers {
			seen[name] = true
		}
		if len(layers) > 1 {
			res.AddWarning(result.MultipleLayersWarning(ref.Token().String(), layers.Names()))
		}
	}

	var processed int
	for _, edge := range deps.DependenciesAndInheritDependencies() {
		depender, err := a.tokens.Resolve(edge.Depender(), m)
		if err != nil {
			a.unresolvable(res, err)
			continue
		}
		dependerLayers := a.layers.LayersFor(depender, m)
		note(depender, dependerLayers)
		if len(dependerLayers) == 0 {
			continue
		}

		dependent, err := a.tokens.Resolve(edge.Dependent(), m)
		if err != nil {
			a.unresolvable(res, err)
			continue
		}
		dependentLayers := a.layers.LayersFor(dependent, m)
		note(dependent, dependentLayers)
		if len(dependentLayers) == 0 && a.ignored(dependent) {
			continue
		}

		rule, err := a.chain.Process(&Event{
			Dependency:      edge,
			Depender:        depender,
			DependerLayers:  dependerLayers,
			Dependent:       dependent,
			DependentLayers: dependentLayers,
		})
		if err != nil {
			return err
		}
		res.Add(rule)
		processed++
	}

	a.unmatchedSkips(res)
	a.emptyLayers(m, res, seen)
	a.logger.Debug("analyse.done", "edges", deps.Len(), "processed", processed)
	return nil
}

func (a *Analyser) unresolvable(res *result.Result, err error) {
	var ute *dependency.UnresolvableTokenError
	if errors.As(err, &ute) {
		a.logger.Debug("analyse.unresolvable", "token", ute.Token.String(), "reason", ute.Reason)
	}
	res.AddError(err.Error())
}

// ignored reports whether an uncovered dependent is an undeclared standard
// library symbol that the configuration chooses not to report.
func (a *Analyser) ignored(dependent ast.TokenReference) bool {
	if !a.cfg.IgnoresUncoveredInternal() || dependent.File() != nil {
		return false
	}
	return ast.IsStandardLibrary(dependent.Token().String())
}

// unmatchedSkips records an error for every skip_violations entry that
// suppressed nothing.
func (a *Analyser) unmatchedSkips(res *result.Result) {
	if len(a.cfg.SkipViolations) == 0 {
		return
	}
	matched := map[string]bool{}
	for _, rule := range res.SkippedViolations() {
		matched[rule.Dependency.Depender().String()+"\x00"+rule.Dependency.Dependent().String()] = true
	}
	dependers := make([]string, 0, len(a.cfg.SkipViolations))
	for depender := range a.cfg.SkipViolations {
		dependers = append(dependers, depender)
	}
	sort.Strings(dependers)
	for _, depender := range dependers {
		for _, dependent := range a.cfg.SkipViolations[depender] {
			if !matched[depender+"\x00"+dependent] {
				res.AddError(fmt.Sprintf("Skipped violation %q for %q was not matched.", dependent, depender))
			}
		}
	}
}

// emptyLayers records an error for every layer no token was found in.
// Declared tokens are checked as well as the edges seen during the run.
func (a *Analyser) emptyLayers(m *ast.Map, res *result.Result, seen map[string]bool) {
	lister, ok := a.layers.(interface{ Names() []string })
	if !ok {
		return
	}
	var missing []string
	for _, name := range lister.Names() {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return
	}
	for _, ref := range declared(m, a.emitterTypes()) {
		for name := range a.layers.LayersFor(ref, m) {
			seen[name] = true
		}
	}
	for _, name := range missing {
		if !seen[name] {
			res.AddError(fmt.Sprintf("Layer %q does not match any token.", name))
		}
	}
}

// emitterTypes returns the configured analyser types the dependency layer
// knows, or DefaultEmitters when none is usable.
func (a *Analyser) emitterTypes() []dependency.EmitterType {
	var types []dependency.EmitterType
	for _, t := range a.cfg.Analyser.Types {
		if _, err := dependency.NewEmitter(dependency.EmitterType(t)); err == nil {
			types = append(types, dependency.EmitterType(t))
		}
	}
	if len(types) == 0 {
		return dependency.DefaultEmitters
	}
	return types
}

// declared returns the references of every declared token of the given
// emitter types.
func declared(m *ast.Map, types []dependency.EmitterType) []ast.TokenReference {
	var refs []ast.TokenReference
	for _, typ := range types {
		switch typ {
		case dependency.EmitterClass:
			for _, ref := range m.ClassLikes() {
				refs = append(refs, ref)
			}
		case dependency.EmitterFunction:
			for _, ref := range m.Functions() {
				refs = append(refs, ref)
			}
		case dependency.EmitterFile:
			for _, ref := range m.Files() {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}
