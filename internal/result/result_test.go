package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/dependency"
)

func class(name string) ast.ClassLikeToken { return ast.NewClassLikeToken(name) }

func edge(from, to string, line int) *dependency.Dependency {
	return dependency.New(class(from), class(to), ast.NewFileOccurrence("/src/"+from+".go", line), ast.DependencyVariable)
}

func TestResult_KeepsInsertionOrderPerCategory(t *testing.T) {
	r := New()
	r.Add(Rule{Category: Violation, Dependency: edge("a", "b", 1)})
	r.Add(Rule{Category: Allowed, Dependency: edge("a", "c", 2)})
	r.Add(Rule{Category: Violation, Dependency: edge("d", "e", 3)})
	r.Add(Rule{Category: Uncovered, Dependency: edge("d", "x", 4)})

	require.Len(t, r.Violations(), 2)
	assert.Equal(t, "a", r.Violations()[0].Dependency.Depender().String())
	assert.Equal(t, "d", r.Violations()[1].Dependency.Depender().String())
	assert.Len(t, r.Allowed(), 1)
	assert.Len(t, r.Uncovered(), 1)
	assert.Empty(t, r.SkippedViolations())

	items := r.Items(Violation, Uncovered)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"b", "e", "x"}, []string{items[0].Dependent, items[1].Dependent, items[2].Dependent})
}

func TestResult_DeduplicatesWarningsAndErrors(t *testing.T) {
	r := New()
	r.AddWarning("w1")
	r.AddWarning("w1")
	r.AddError("w1")
	r.AddError("e2")
	r.AddError("e2")

	assert.Equal(t, []string{"w1"}, r.Warnings())
	assert.Equal(t, []string{"w1", "e2"}, r.Errors())
	assert.Equal(t, Counts{Warnings: 1, Errors: 2}, r.Counts())
}

func TestResult_Counts(t *testing.T) {
	r := New()
	r.Add(Rule{Category: Violation, Dependency: edge("a", "b", 1)})
	r.Add(Rule{Category: SkippedViolation, Dependency: edge("a", "b", 2)})
	r.Add(Rule{Category: Allowed, Dependency: edge("a", "b", 3)})
	r.Add(Rule{Category: Allowed, Dependency: edge("a", "b", 4)})

	assert.Equal(t, Counts{Violations: 1, SkippedViolations: 1, Allowed: 2}, r.Counts())
}

func TestMultipleLayersWarning(t *testing.T) {
	got := MultipleLayersWarning("app.User", []string{"Domain", "Model"})
	assert.Equal(t, `app.User is in more than one layer ["Domain", "Model"]. It is recommended that one token should only be in one layer.`, got)
}

func TestRuleItem_Direct(t *testing.T) {
	rule := Rule{
		Category:        Violation,
		Dependency:      edge("a", "b", 7),
		DependerLayers:  []string{"A"},
		DependentLayers: []string{"B"},
	}

	item := rule.Item()
	assert.Equal(t, Item{
		Category:        Violation,
		Depender:        "a",
		Dependent:       "b",
		File:            "/src/a.go",
		Line:            7,
		Type:            ast.DependencyVariable,
		DependerLayers:  []string{"A"},
		DependentLayers: []string{"B"},
	}, item)
}

func TestRuleItem_InheritPathNearestAncestorFirst(t *testing.T) {
	// C uses B (line 10), B extends A (line 4), A depends on X at line 5.
	cb := ast.NewInherit(class("C"), class("B"), ast.NewFileOccurrence("/src/c.go", 10), ast.InheritUses)
	ba := ast.NewInherit(class("B"), class("A"), ast.NewFileOccurrence("/src/b.go", 4), ast.InheritExtends).WithPath([]*ast.Inherit{cb})
	original := dependency.New(class("A"), class("X"), ast.NewFileOccurrence("/src/a.go", 5), ast.DependencyNew)

	rule := Rule{Category: Violation, Dependency: dependency.NewInherit(class("C"), original, ba)}
	item := rule.Item()

	assert.Equal(t, "C", item.Depender)
	assert.Equal(t, "X", item.Dependent)
	assert.Equal(t, "/src/a.go", item.File)
	assert.Equal(t, 5, item.Line)
	assert.Equal(t, ast.DependencyInherit, item.Type)
	assert.Equal(t, []Step{{"B", 10}, {"A", 4}, {"X", 5}}, item.Path)
}

func TestInheritPath_DirectParent(t *testing.T) {
	via := ast.NewInherit(class("C"), class("P"), ast.NewFileOccurrence("/src/c.go", 3), ast.InheritImplements)
	original := dependency.New(class("P"), class("Y"), ast.NewFileOccurrence("/src/p.go", 8), ast.DependencyParameter)

	steps := InheritPath(dependency.NewInherit(class("C"), original, via))

	assert.Equal(t, []Step{{"P", 3}, {"Y", 8}}, steps)
}
