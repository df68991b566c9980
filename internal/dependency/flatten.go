package dependency

import "github.com/abramin/strata/internal/ast"

// InheritanceFlattener copies the direct dependencies of every ancestor of
// a class-like onto the class-like itself.
type InheritanceFlattener struct{}

// Flatten adds one InheritDependency per distinct ancestor dependency to
// each class-like in m. Existing direct dependencies are left untouched. An
// ancestor reached over several routes contributes its dependencies once,
// through the first route found.
func (InheritanceFlattener) Flatten(m *ast.Map, list *List) {
	for _, ref := range m.ClassLikes() {
		seen := make(map[*Dependency]bool)
		for _, inherit := range m.ClassInherits(ref.ClassLike) {
			for _, dep := range list.DependenciesByToken(inherit.Parent) {
				if seen[dep] {
					continue
				}
				seen[dep] = true
				list.AddInheritDependency(NewInherit(ref.ClassLike, dep, inherit))
			}
		}
	}
}
