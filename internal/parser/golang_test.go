package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abramin/strata/internal/ast"
)

const testPkg = "example.com/app"

func parse(t *testing.T, path, src string) *ast.FileReference {
	t.Helper()
	p := NewGoParser(NamerFunc(func(string) string { return testPkg }))
	ref, err := p.ParseFile(path, []byte(src))
	require.NoError(t, err)
	return ref
}

func classRef(t *testing.T, f *ast.FileReference, name string) *ast.ClassLikeReference {
	t.Helper()
	ref := f.ClassLike(testPkg + "." + name)
	require.NotNil(t, ref, "class-like %s not declared", name)
	return ref
}

func funcRef(t *testing.T, f *ast.FileReference, name string) *ast.FunctionReference {
	t.Helper()
	for _, ref := range f.Functions {
		if ref.Function.Name == testPkg+"."+name {
			return ref
		}
	}
	t.Fatalf("function %s not declared", name)
	return nil
}

func hasDep(deps []ast.DependencyToken, tok ast.Token, typ ast.DependencyType) bool {
	for _, d := range deps {
		if d.Type == typ && ast.SameToken(d.Token, tok) {
			return true
		}
	}
	return false
}

func class(name string) ast.ClassLikeToken { return ast.NewClassLikeToken(name) }

func fn(name string) ast.FunctionToken { return ast.NewFunctionToken(name) }

const serviceSrc = `package app

import (
	"context"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"example.com/app/store/v2"
)

type Repository interface {
	Find(ctx context.Context, id string) (*store.Record, error)
}

type Service struct {
	Base
	repo Repository
	cmd  *cobra.Command
}

var _ Repository = (*Service)(nil)

func (s *Service) Find(ctx context.Context, id string) (*store.Record, error) {
	node := &yaml.Node{}
	_ = node
	return store.Load(ctx, id)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}
`

// =============================================================================
// Declarations
// =============================================================================

func TestParseFile_DeclaresKinds(t *testing.T) {
	f := parse(t, "/src/app/service.go", serviceSrc)

	assert.Equal(t, "/src/app/service.go", f.Filepath)
	assert.Equal(t, ast.TypeInterface, classRef(t, f, "Repository").Type)
	assert.Equal(t, ast.TypeClass, classRef(t, f, "Service").Type)
	require.Len(t, f.Functions, 1)
	assert.Equal(t, testPkg+".NewService", f.Functions[0].Function.Name)
	assert.Equal(t, f, f.Functions[0].File())
}

func TestParseFile_EmbeddingAndAssertionsBecomeInherits(t *testing.T) {
	f := parse(t, "/src/app/service.go", serviceSrc)
	svc := classRef(t, f, "Service")

	require.Len(t, svc.Inherits, 2)
	assert.Equal(t, testPkg+".Base", svc.Inherits[0].Parent.Name)
	assert.Equal(t, ast.InheritUses, svc.Inherits[0].Type)
	assert.Equal(t, 17, svc.Inherits[0].Occurrence.Line)
	assert.Equal(t, testPkg+".Repository", svc.Inherits[1].Parent.Name)
	assert.Equal(t, ast.InheritImplements, svc.Inherits[1].Type)
	assert.Equal(t, 22, svc.Inherits[1].Occurrence.Line)
}

func TestParseFile_FieldsAndMethods(t *testing.T) {
	f := parse(t, "/src/app/service.go", serviceSrc)
	svc := classRef(t, f, "Service")

	assert.True(t, hasDep(svc.Dependencies, class(testPkg+".Repository"), ast.DependencyVariable))
	assert.True(t, hasDep(svc.Dependencies, class("github.com/spf13/cobra.Command"), ast.DependencyVariable))
	assert.True(t, hasDep(svc.Dependencies, class("context.Context"), ast.DependencyParameter))
	assert.True(t, hasDep(svc.Dependencies, class("example.com/app/store/v2.Record"), ast.DependencyReturnType))
	assert.True(t, hasDep(svc.Dependencies, class("gopkg.in/yaml.v3.Node"), ast.DependencyNew))
	assert.True(t, hasDep(svc.Dependencies, fn("example.com/app/store/v2.Load"), ast.DependencyFunctionCall))

	for _, d := range svc.Dependencies {
		assert.NotEqual(t, "string", d.Token.String())
		assert.NotEqual(t, "error", d.Token.String())
	}
}

func TestParseFile_InterfaceMethodSignatures(t *testing.T) {
	f := parse(t, "/src/app/service.go", serviceSrc)
	repo := classRef(t, f, "Repository")

	assert.Empty(t, repo.Inherits)
	assert.True(t, hasDep(repo.Dependencies, class("context.Context"), ast.DependencyParameter))
	assert.True(t, hasDep(repo.Dependencies, class("example.com/app/store/v2.Record"), ast.DependencyReturnType))
}

func TestParseFile_FunctionDependencies(t *testing.T) {
	f := parse(t, "/src/app/service.go", serviceSrc)
	newService := funcRef(t, f, "NewService")

	assert.True(t, hasDep(newService.Dependencies, class(testPkg+".Repository"), ast.DependencyParameter))
	assert.True(t, hasDep(newService.Dependencies, class(testPkg+".Service"), ast.DependencyReturnType))
	assert.True(t, hasDep(newService.Dependencies, class(testPkg+".Service"), ast.DependencyNew))
}

// =============================================================================
// Anonymous types, generics and builtins
// =============================================================================

const genericSrc = `package app

type Pair[K comparable, V any] struct {
	Key   K
	Value V
	meta  struct {
		Created Clock
	}
}

func Run[T Runner](items []T) map[string]int {
	counts := make(map[string]int)
	var handler interface {
		Handle(Event) error
	}
	_ = handler
	return counts
}
`

func TestParseFile_AnonymousTypesNumberedInSourceOrder(t *testing.T) {
	path := "/src/app/generic.go"
	f := parse(t, path, genericSrc)

	first := ast.AnonymousClassToken{File: path, Ordinal: 1}
	second := ast.AnonymousClassToken{File: path, Ordinal: 2}

	pair := classRef(t, f, "Pair")
	assert.True(t, hasDep(pair.Dependencies, first, ast.DependencyAnonymousClass))

	meta := f.ClassLike(first.ClassLike().Name)
	require.NotNil(t, meta)
	assert.Equal(t, ast.TypeClass, meta.Type)
	assert.True(t, hasDep(meta.Dependencies, class(testPkg+".Clock"), ast.DependencyVariable))

	run := funcRef(t, f, "Run")
	assert.True(t, hasDep(run.Dependencies, second, ast.DependencyAnonymousClass))

	handler := f.ClassLike(second.ClassLike().Name)
	require.NotNil(t, handler)
	assert.Equal(t, ast.TypeInterface, handler.Type)
	assert.True(t, hasDep(handler.Dependencies, class(testPkg+".Event"), ast.DependencyParameter))
}

func TestParseFile_SkipsTypeParamsAndBuiltins(t *testing.T) {
	f := parse(t, "/src/app/generic.go", genericSrc)

	pair := classRef(t, f, "Pair")
	run := funcRef(t, f, "Run")
	assert.True(t, hasDep(run.Dependencies, class(testPkg+".Runner"), ast.DependencyParameter))

	for _, deps := range [][]ast.DependencyToken{pair.Dependencies, run.Dependencies} {
		for _, d := range deps {
			switch d.Token.String() {
			case testPkg + ".K", testPkg + ".V", testPkg + ".T", "comparable", "any", "string", "int",
				testPkg + ".comparable", testPkg + ".any", testPkg + ".make":
				t.Errorf("unexpected dependency on %s", d.Token)
			}
		}
	}
}

// =============================================================================
// Partial declarations and file-level code
// =============================================================================

const partialSrc = `package app

import "io"

var _ io.Reader = Buffer{}

const limit Size = 10

type ReadCloser interface {
	io.Reader
	Close() error
}

func init() {
	register(defaultHandler)
}

func Check(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case *Buffer:
		return true
	}
	_, ok := v.(io.Closer)
	return ok
}
`

func TestParseFile_AssertionOnForeignTypeIsPartial(t *testing.T) {
	f := parse(t, "/src/app/check.go", partialSrc)

	buf := classRef(t, f, "Buffer")
	assert.True(t, buf.Partial)
	require.Len(t, buf.Inherits, 1)
	assert.Equal(t, "io.Reader", buf.Inherits[0].Parent.Name)
	assert.Equal(t, ast.InheritImplements, buf.Inherits[0].Type)
}

func TestParseFile_EmbeddedInterfaceExtends(t *testing.T) {
	f := parse(t, "/src/app/check.go", partialSrc)

	rc := classRef(t, f, "ReadCloser")
	assert.False(t, rc.Partial)
	require.Len(t, rc.Inherits, 1)
	assert.Equal(t, "io.Reader", rc.Inherits[0].Parent.Name)
	assert.Equal(t, ast.InheritExtends, rc.Inherits[0].Type)
}

func TestParseFile_FileLevelDependencies(t *testing.T) {
	f := parse(t, "/src/app/check.go", partialSrc)

	assert.True(t, hasDep(f.Dependencies, class(testPkg+".Size"), ast.DependencyConst))
	assert.True(t, hasDep(f.Dependencies, fn(testPkg+".register"), ast.DependencyFunctionCall))
	for _, ref := range f.Functions {
		assert.NotEqual(t, testPkg+".init", ref.Function.Name)
	}
}

func TestParseFile_TypeChecksAreInstanceof(t *testing.T) {
	f := parse(t, "/src/app/check.go", partialSrc)
	check := funcRef(t, f, "Check")

	assert.True(t, hasDep(check.Dependencies, class(testPkg+".Buffer"), ast.DependencyInstanceof))
	assert.True(t, hasDep(check.Dependencies, class("io.Closer"), ast.DependencyInstanceof))
	for _, d := range check.Dependencies {
		assert.NotEqual(t, testPkg+".nil", d.Token.String())
	}
}

func TestParseFile_SyntaxError(t *testing.T) {
	p := NewGoParser(NamerFunc(func(string) string { return testPkg }))
	_, err := p.ParseFile("/src/app/broken.go", []byte("package app\n\nfunc {"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/src/app/broken.go")
}

func TestParseFile_FallsBackToPackageName(t *testing.T) {
	p := NewGoParser(NamerFunc(func(string) string { return "" }))
	f, err := p.ParseFile("/tmp/loose/main.go", []byte("package loose\n\ntype Thing struct{}\n"))
	require.NoError(t, err)
	assert.NotNil(t, f.ClassLike("loose.Thing"))
}

// =============================================================================
// Package naming
// =============================================================================

func TestDefaultImportName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"fmt", "fmt"},
		{"golang.org/x/sync/errgroup", "errgroup"},
		{"example.com/app/store/v2", "store"},
		{"gopkg.in/yaml.v3", "yaml"},
		{"github.com/mattn/go-isatty", "isatty"},
		{"github.com/acme/bar-baz", "bar_baz"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultImportName(tt.path))
		})
	}
}

func TestModuleNamer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/demo\n\ngo 1.22\n"), 0o644))
	sub := filepath.Join(root, "internal", "billing")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	n := NewModuleNamer()
	assert.Equal(t, "example.com/demo", n.PackagePath(root))
	assert.Equal(t, "example.com/demo/internal/billing", n.PackagePath(sub))
	// Cached lookups return the same answer.
	assert.Equal(t, "example.com/demo/internal/billing", n.PackagePath(sub))
}

func TestModuleNamer_NestedModuleWins(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/outer\n"), 0o644))
	nested := filepath.Join(root, "tools")
	require.NoError(t, os.MkdirAll(filepath.Join(nested, "gen"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "go.mod"), []byte("module example.com/tools\n"), 0o644))

	n := NewModuleNamer()
	assert.Equal(t, "example.com/tools/gen", n.PackagePath(filepath.Join(nested, "gen")))
	assert.Equal(t, "example.com/outer", n.PackagePath(root))
}
