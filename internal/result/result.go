// Package result collects the classification of every dependency edge
// together with process-level warnings and errors.
package result

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/dependency"
)

// Category is the outcome of classifying one edge.
type Category string

const (
	Violation        Category = "violation"
	SkippedViolation Category = "skipped_violation"
	Uncovered        Category = "uncovered"
	Allowed          Category = "allowed"
)

// Categories lists every category in report order.
var Categories = []Category{Violation, SkippedViolation, Uncovered, Allowed}

// Rule is a classified edge.
type Rule struct {
	Category        Category
	Dependency      dependency.Edge
	DependerLayers  []string
	DependentLayers []string
}

// Result accumulates rules, warnings and errors in insertion order. It is
// not safe for concurrent use.
type Result struct {
	rules    map[Category][]Rule
	warnings []string
	errors   []string
	seen     map[string]bool
}

func New() *Result {
	return &Result{
		rules: make(map[Category][]Rule, len(Categories)),
		seen:  make(map[string]bool),
	}
}

func (r *Result) Add(rule Rule) {
	r.rules[rule.Category] = append(r.rules[rule.Category], rule)
}

// Rules returns the rules of one category in insertion order.
func (r *Result) Rules(c Category) []Rule { return r.rules[c] }

func (r *Result) Violations() []Rule        { return r.rules[Violation] }
func (r *Result) SkippedViolations() []Rule { return r.rules[SkippedViolation] }
func (r *Result) Uncovered() []Rule         { return r.rules[Uncovered] }
func (r *Result) Allowed() []Rule           { return r.rules[Allowed] }

// AddWarning records a warning once per distinct message.
func (r *Result) AddWarning(msg string) {
	if r.seen["w:"+msg] {
		return
	}
	r.seen["w:"+msg] = true
	r.warnings = append(r.warnings, msg)
}

// AddError records an error once per distinct message.
func (r *Result) AddError(msg string) {
	if r.seen["e:"+msg] {
		return
	}
	r.seen["e:"+msg] = true
	r.errors = append(r.errors, msg)
}

func (r *Result) Warnings() []string { return r.warnings }
func (r *Result) Errors() []string   { return r.errors }

// Counts summarizes a result.
type Counts struct {
	Violations        int `json:"violations"`
	SkippedViolations int `json:"skipped_violations"`
	Uncovered         int `json:"uncovered"`
	Allowed           int `json:"allowed"`
	Warnings          int `json:"warnings"`
	Errors            int `json:"errors"`
}

func (r *Result) Counts() Counts {
	return Counts{
		Violations:        len(r.rules[Violation]),
		SkippedViolations: len(r.rules[SkippedViolation]),
		Uncovered:         len(r.rules[Uncovered]),
		Allowed:           len(r.rules[Allowed]),
		Warnings:          len(r.warnings),
		Errors:            len(r.errors),
	}
}

// MultipleLayersWarning is the warning recorded for a token that belongs to
// more than one layer.
func MultipleLayersWarning(token string, layers []string) string {
	quoted := make([]string, len(layers))
	for i, l := range layers {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return fmt.Sprintf("%s is in more than one layer [%s]. It is recommended that one token should only be in one layer.",
		token, strings.Join(quoted, ", "))
}

// Step is one hop of an inherited dependency's path.
type Step struct {
	Token string `json:"token"`
	Line  int    `json:"line"`
}

// Item is the flattened view of a rule consumed by renderers.
type Item struct {
	Category        Category           `json:"category"`
	Depender        string             `json:"depender"`
	Dependent       string             `json:"dependent"`
	File            string             `json:"file"`
	Line            int                `json:"line"`
	Type            ast.DependencyType `json:"type"`
	DependerLayers  []string           `json:"depender_layers"`
	DependentLayers []string           `json:"dependent_layers"`
	Path            []Step             `json:"path,omitempty"`
}

// Item renders rule. For inherited dependencies the path starts at the
// nearest ancestor of the depender and ends with the original dependent.
func (rule Rule) Item() Item {
	d := rule.Dependency
	occ := d.Occurrence()
	item := Item{
		Category:        rule.Category,
		Depender:        d.Depender().String(),
		Dependent:       d.Dependent().String(),
		File:            occ.Filepath,
		Line:            occ.Line,
		Type:            d.Type(),
		DependerLayers:  rule.DependerLayers,
		DependentLayers: rule.DependentLayers,
	}
	if inh, ok := d.(*dependency.InheritDependency); ok {
		item.Path = InheritPath(inh)
	}
	return item
}

// InheritPath reconstructs the hops from the depender of d to the
// dependent of its original dependency.
func InheritPath(d *dependency.InheritDependency) []Step {
	chain := slices.Clone(d.Inherit().Chain())
	slices.Reverse(chain)
	steps := make([]Step, 0, len(chain)+1)
	for _, hop := range chain {
		steps = append(steps, Step{Token: hop.Parent.String(), Line: hop.Occurrence.Line})
	}
	orig := d.Original()
	steps = append(steps, Step{Token: orig.Dependent().String(), Line: orig.Occurrence().Line})
	return steps
}

// Items returns the rules of the given categories, category by category.
func (r *Result) Items(categories ...Category) []Item {
	var out []Item
	for _, c := range categories {
		for _, rule := range r.rules[c] {
			out = append(out, rule.Item())
		}
	}
	return out
}
