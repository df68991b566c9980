package ast

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classLike(f *FileReference, name string, typ ClassLikeType) *ClassLikeReference {
	return f.AddClassLike(NewClassLikeReference(NewClassLikeToken(name), typ))
}

func inherit(ref *ClassLikeReference, parent string, line int, typ InheritType) {
	ref.Inherits = append(ref.Inherits, NewInherit(ref.ClassLike, NewClassLikeToken(parent), NewFileOccurrence(ref.File().Filepath, line), typ))
}

// =============================================================================
// Assembly
// =============================================================================

func TestNewMap_SortsFilesAndIndexesDeclarations(t *testing.T) {
	b := NewFileReference("/src/b.go")
	classLike(b, "app.B", TypeClass)
	a := NewFileReference("/src/a.go")
	classLike(a, "app.A", TypeInterface)
	a.AddFunction(NewFunctionReference(NewFunctionToken("app.Run")))

	m := NewMap([]*FileReference{b, a})

	require.Len(t, m.Files(), 2)
	assert.Equal(t, "/src/a.go", m.Files()[0].Filepath)
	assert.Equal(t, "/src/b.go", m.Files()[1].Filepath)

	ref := m.ClassLikeReference(NewClassLikeToken("app.A"))
	require.NotNil(t, ref)
	assert.Equal(t, TypeInterface, ref.Type)
	assert.Same(t, a, ref.File())

	require.NotNil(t, m.FunctionReference(NewFunctionToken("app.Run")))
	assert.Nil(t, m.ClassLikeReference(NewClassLikeToken("app.Missing")))
	assert.Same(t, b, m.FileReference("/src/b.go"))
}

func TestNewMap_MergesPartialDeclarations(t *testing.T) {
	decl := NewFileReference("/src/service.go")
	svc := classLike(decl, "app.Service", TypeClass)
	svc.Dependencies = append(svc.Dependencies, DependencyToken{Token: NewClassLikeToken("app.Repo"), Occurrence: NewFileOccurrence("/src/service.go", 4), Type: DependencyVariable})

	methods := NewFileReference("/src/service_methods.go")
	partial := classLike(methods, "app.Service", TypeClassLike)
	partial.Partial = true
	partial.Dependencies = append(partial.Dependencies, DependencyToken{Token: NewClassLikeToken("app.Clock"), Occurrence: NewFileOccurrence("/src/service_methods.go", 9), Type: DependencyParameter})
	inherit(partial, "app.Runner", 12, InheritImplements)

	m := NewMap([]*FileReference{methods, decl})

	require.Len(t, m.ClassLikes(), 1)
	ref := m.ClassLikeReference(NewClassLikeToken("app.Service"))
	require.NotNil(t, ref)
	assert.Equal(t, TypeClass, ref.Type)
	assert.Same(t, decl, ref.File())
	require.Len(t, ref.Dependencies, 2)
	assert.Equal(t, "app.Clock", ref.Dependencies[1].Token.String())
	assert.Equal(t, "/src/service_methods.go", ref.Dependencies[1].Occurrence.Filepath)
	require.Len(t, ref.Inherits, 1)
}

func TestNewMap_PartialWithoutDeclarationStandsIn(t *testing.T) {
	methods := NewFileReference("/src/methods.go")
	partial := classLike(methods, "app.External", TypeClassLike)
	partial.Partial = true

	m := NewMap([]*FileReference{methods})

	ref := m.ClassLikeReference(NewClassLikeToken("app.External"))
	require.NotNil(t, ref)
	assert.False(t, ref.Partial)
	assert.Same(t, methods, ref.File())
}

// =============================================================================
// Inheritance walk
// =============================================================================

func TestClassInherits_TransitivePathOrdering(t *testing.T) {
	f := NewFileReference("/src/x.go")
	inherit(classLike(f, "C", TypeClass), "B", 10, InheritExtends)
	inherit(classLike(f, "B", TypeClass), "A", 4, InheritUses)
	classLike(f, "A", TypeClass)

	m := NewMap([]*FileReference{f})
	edges := m.ClassInherits(NewClassLikeToken("C"))

	require.Len(t, edges, 2)
	assert.Equal(t, "B", edges[0].Parent.Name)
	assert.Empty(t, edges[0].Path)

	assert.Equal(t, "A", edges[1].Parent.Name)
	chain := edges[1].Chain()
	require.Len(t, chain, 2)
	assert.Equal(t, "B", chain[0].Child.Name)
	assert.Equal(t, "A", chain[0].Parent.Name)
	assert.Equal(t, "C", chain[1].Child.Name)
	assert.Equal(t, "B", chain[1].Parent.Name)
}

func TestClassInherits_PathNearestHopFirst(t *testing.T) {
	f := NewFileReference("/src/x.go")
	inherit(classLike(f, "D", TypeClass), "C", 1, InheritExtends)
	inherit(classLike(f, "C", TypeClass), "B", 2, InheritExtends)
	inherit(classLike(f, "B", TypeClass), "A", 3, InheritExtends)

	m := NewMap([]*FileReference{f})
	edges := m.ClassInherits(NewClassLikeToken("D"))

	require.Len(t, edges, 3)
	last := edges[2]
	assert.Equal(t, "A", last.Parent.Name)
	require.Len(t, last.Path, 2)
	assert.Equal(t, "C", last.Path[0].Child.Name)
	assert.Equal(t, "D", last.Path[1].Child.Name)
}

func TestClassInherits_CycleTerminates(t *testing.T) {
	f := NewFileReference("/src/x.go")
	inherit(classLike(f, "A", TypeClass), "B", 1, InheritExtends)
	inherit(classLike(f, "B", TypeClass), "A", 2, InheritExtends)

	m := NewMap([]*FileReference{f})
	edges := m.ClassInherits(NewClassLikeToken("A"))

	require.Len(t, edges, 1)
	assert.Equal(t, "B", edges[0].Parent.Name)
}

func TestClassInherits_DiamondExpandsSharedAncestorOnce(t *testing.T) {
	f := NewFileReference("/src/x.go")
	d := classLike(f, "D", TypeClass)
	inherit(d, "P1", 1, InheritExtends)
	inherit(d, "P2", 2, InheritExtends)
	inherit(classLike(f, "P1", TypeClass), "G", 3, InheritExtends)
	inherit(classLike(f, "P2", TypeClass), "G", 4, InheritExtends)
	inherit(classLike(f, "G", TypeClass), "H", 5, InheritExtends)
	classLike(f, "H", TypeClass)

	m := NewMap([]*FileReference{f})
	edges := m.ClassInherits(NewClassLikeToken("D"))

	parents := map[string]int{}
	for _, e := range edges {
		parents[e.Parent.Name]++
	}
	assert.Len(t, edges, 5)
	assert.Equal(t, 2, parents["G"], "both routes reach G")
	assert.Equal(t, 1, parents["H"], "G is expanded once")

	for _, e := range edges {
		if e.Parent.Name == "H" {
			chain := e.Chain()
			require.Len(t, chain, 3)
			assert.Equal(t, "P1", chain[1].Child.Name, "first route wins")
		}
	}
}

func TestClassInherits_StackedDiamondsStayLinear(t *testing.T) {
	const depth = 24
	f := NewFileReference("/src/x.go")
	name := func(prefix string, i int) string { return fmt.Sprintf("%s%d", prefix, i) }
	for i := 0; i < depth; i++ {
		n := classLike(f, name("N", i), TypeClass)
		inherit(n, name("A", i+1), 1, InheritExtends)
		inherit(n, name("B", i+1), 2, InheritExtends)
		inherit(classLike(f, name("A", i+1), TypeClass), name("N", i+1), 3, InheritExtends)
		inherit(classLike(f, name("B", i+1), TypeClass), name("N", i+1), 4, InheritExtends)
	}
	classLike(f, name("N", depth), TypeClass)

	m := NewMap([]*FileReference{f})
	edges := m.ClassInherits(NewClassLikeToken("N0"))

	// Four declared edges per rung, each yielded once.
	assert.Len(t, edges, 4*depth)
	var top int
	for _, e := range edges {
		if e.Parent.Name == name("N", depth) {
			top++
		}
	}
	assert.Equal(t, 2, top)
}

func TestClassInherits_UnknownToken(t *testing.T) {
	m := NewMap(nil)
	assert.Empty(t, m.ClassInherits(NewClassLikeToken("Nope")))
}

// =============================================================================
// Tokens
// =============================================================================

func TestClassLikeTypeMatches(t *testing.T) {
	assert.True(t, TypeClass.Matches(TypeClass))
	assert.True(t, TypeInterface.Matches(TypeClassLike))
	assert.True(t, TypeClassLike.Matches(TypeClassLike))
	assert.False(t, TypeClass.Matches(TypeInterface))
	assert.False(t, TypeClassLike.Matches(TypeClass))
}

func TestPackageOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"fmt.Stringer", "fmt"},
		{"net/http.Handler", "net/http"},
		{"github.com/acme/app/user.Service", "github.com/acme/app/user"},
		{"gopkg.in/yaml.v3.Node", "gopkg.in/yaml.v3"},
		{"Local", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PackageOf(tt.name))
		})
	}
}

func TestIsStandardLibrary(t *testing.T) {
	assert.True(t, IsStandardLibrary("net/http.Handler"))
	assert.True(t, IsStandardLibrary("context.Context"))
	assert.False(t, IsStandardLibrary("github.com/acme/app.Service"))
	assert.False(t, IsStandardLibrary("Unqualified"))
}

func TestSameToken(t *testing.T) {
	assert.True(t, SameToken(NewClassLikeToken("a.B"), ClassLikeToken{Name: "a.B"}))
	assert.False(t, SameToken(NewClassLikeToken("a.B"), NewFunctionToken("a.B")))
	anon := AnonymousClassToken{File: "/src/x.go", Ordinal: 2}
	assert.True(t, SameToken(anon, anon.ClassLike()))
}

// =============================================================================
// Codec
// =============================================================================

func TestCodecRoundTrip(t *testing.T) {
	f := NewFileReference("/src/x.go")
	c := classLike(f, "app.Handler", TypeClass)
	inherit(c, "app.Base", 3, InheritUses)
	c.Dependencies = []DependencyToken{
		{Token: NewClassLikeToken("net/http.Request"), Occurrence: NewFileOccurrence("/src/x.go", 7), Type: DependencyParameter},
		{Token: AnonymousClassToken{File: "/src/x.go", Ordinal: 1}, Occurrence: NewFileOccurrence("/src/x.go", 8), Type: DependencyAnonymousClass},
	}
	fn := f.AddFunction(NewFunctionReference(NewFunctionToken("app.New")))
	fn.Dependencies = []DependencyToken{{Token: NewFunctionToken("app.helper"), Occurrence: NewFileOccurrence("/src/x.go", 20), Type: DependencyFunctionCall}}
	f.Dependencies = []DependencyToken{{Token: NewClassLikeToken("app.Config"), Occurrence: NewFileOccurrence("/src/x.go", 2), Type: DependencyVariable}}

	data, err := EncodeFileReference(f)
	require.NoError(t, err)

	got, err := DecodeFileReference(data)
	require.NoError(t, err)

	assert.Equal(t, f.Filepath, got.Filepath)
	require.Len(t, got.ClassLikes, 1)
	assert.Same(t, got, got.ClassLikes[0].File())
	assert.Equal(t, c.Dependencies, got.ClassLikes[0].Dependencies)
	assert.Equal(t, c.Inherits[0].Parent, got.ClassLikes[0].Inherits[0].Parent)
	assert.Equal(t, c.Inherits[0].Occurrence, got.ClassLikes[0].Inherits[0].Occurrence)
	assert.Equal(t, fn.Dependencies, got.Functions[0].Dependencies)
	assert.Equal(t, f.Dependencies, got.Dependencies)
}

func TestDecodeFileReference_Garbage(t *testing.T) {
	_, err := DecodeFileReference([]byte("{not json"))
	assert.Error(t, err)

	_, err = DecodeFileReference([]byte(`{"classes":[]}`))
	assert.Error(t, err)
}
