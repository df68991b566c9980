package parser

import (
	"fmt"
	goast "go/ast"
	goparser "go/parser"
	"go/token"
	"go/types"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abramin/strata/internal/ast"
)

// GoParser extracts facts from Go source files with go/parser.
//
// Named types become class-likes: structs are classes, interfaces are
// interfaces, anything else is a generic classLike. Embedded struct fields
// are "uses" edges, embedded interfaces are "extends" edges and
// compile-time assertions of the form `var _ I = (*T)(nil)` are
// "implements" edges. Methods contribute to their receiver type. Inline,
// non-empty struct and interface types are declared as anonymous
// class-likes numbered in source order.
type GoParser struct {
	namer PackageNamer
}

var _ Parser = (*GoParser)(nil)

func NewGoParser(namer PackageNamer) *GoParser {
	if namer == nil {
		namer = NewModuleNamer()
	}
	return &GoParser{namer: namer}
}

func (p *GoParser) ParseFile(filename string, content []byte) (*ast.FileReference, error) {
	fset := token.NewFileSet()
	file, err := goparser.ParseFile(fset, filename, content, 0)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	pkgPath := p.namer.PackagePath(filepath.Dir(filename))
	if pkgPath == "" {
		pkgPath = file.Name.Name
	}

	e := &extractor{
		fset:    fset,
		path:    filename,
		pkg:     pkgPath,
		ref:     ast.NewFileReference(filename),
		imports: importMap(file),
		types:   make(map[string]*ast.ClassLikeReference),
	}
	e.extract(file)
	return e.ref, nil
}

// importMap maps the local name of every import to its path. Without type
// information the package name is assumed to be the last path element,
// skipping major version suffixes.
func importMap(file *goast.File) map[string]string {
	imports := make(map[string]string, len(file.Imports))
	for _, spec := range file.Imports {
		importPath, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		if spec.Name != nil {
			if spec.Name.Name == "_" || spec.Name.Name == "." {
				continue
			}
			imports[spec.Name.Name] = importPath
			continue
		}
		imports[defaultImportName(importPath)] = importPath
	}
	return imports
}

func defaultImportName(importPath string) string {
	name := path.Base(importPath)
	if isMajorVersion(name) {
		name = path.Base(path.Dir(importPath))
	}
	if strings.HasPrefix(importPath, "gopkg.in/") {
		name, _, _ = strings.Cut(name, ".")
	}
	name = strings.TrimPrefix(name, "go-")
	return strings.ReplaceAll(name, "-", "_")
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

// owner collects the dependencies of one declaration.
type owner struct {
	token  ast.Token
	deps   *[]ast.DependencyToken
	params map[string]bool
}

func (o *owner) withParams(fields *goast.FieldList) *owner {
	if fields == nil || len(fields.List) == 0 {
		return o
	}
	params := make(map[string]bool, len(o.params)+len(fields.List))
	for k := range o.params {
		params[k] = true
	}
	for _, f := range fields.List {
		for _, name := range f.Names {
			params[name.Name] = true
		}
	}
	return &owner{token: o.token, deps: o.deps, params: params}
}

type extractor struct {
	fset    *token.FileSet
	path    string
	pkg     string
	ref     *ast.FileReference
	imports map[string]string
	types   map[string]*ast.ClassLikeReference
	anon    int
}

func (e *extractor) extract(file *goast.File) {
	// Declare types first so methods and assertions preceding the type
	// declaration attach to the declared reference.
	for _, decl := range file.Decls {
		gen, ok := decl.(*goast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*goast.TypeSpec)
			if ts.Name.Name == "_" {
				continue
			}
			ref := ast.NewClassLikeReference(e.qualify(ts.Name.Name), classLikeType(ts.Type))
			e.types[ts.Name.Name] = e.ref.AddClassLike(ref)
		}
	}

	fileOwner := &owner{token: e.ref.Token(), deps: &e.ref.Dependencies}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *goast.GenDecl:
			switch d.Tok {
			case token.TYPE:
				for _, spec := range d.Specs {
					e.typeSpec(spec.(*goast.TypeSpec))
				}
			case token.VAR, token.CONST:
				typ := ast.DependencyVariable
				if d.Tok == token.CONST {
					typ = ast.DependencyConst
				}
				for _, spec := range d.Specs {
					e.packageValue(spec.(*goast.ValueSpec), fileOwner, typ)
				}
			}
		case *goast.FuncDecl:
			e.funcDecl(d, fileOwner)
		}
	}
}

func classLikeType(expr goast.Expr) ast.ClassLikeType {
	switch expr.(type) {
	case *goast.StructType:
		return ast.TypeClass
	case *goast.InterfaceType:
		return ast.TypeInterface
	default:
		return ast.TypeClassLike
	}
}

func (e *extractor) qualify(name string) ast.ClassLikeToken {
	return ast.NewClassLikeToken(e.pkg + "." + name)
}

func (e *extractor) line(pos token.Pos) int {
	return e.fset.Position(pos).Line
}

func (e *extractor) occurrence(pos token.Pos) ast.FileOccurrence {
	return ast.NewFileOccurrence(e.path, e.line(pos))
}

func (o *owner) add(tok ast.Token, occ ast.FileOccurrence, typ ast.DependencyType) {
	for _, d := range *o.deps {
		if d.Occurrence == occ && d.Type == typ && ast.SameToken(d.Token, tok) {
			return
		}
	}
	*o.deps = append(*o.deps, ast.DependencyToken{Token: tok, Occurrence: occ, Type: typ})
}

func (e *extractor) typeSpec(ts *goast.TypeSpec) {
	ref, ok := e.types[ts.Name.Name]
	if !ok {
		return
	}
	o := (&owner{token: ref.ClassLike, deps: &ref.Dependencies}).withParams(ts.TypeParams)
	if ts.TypeParams != nil {
		for _, f := range ts.TypeParams.List {
			e.typeRefs(f.Type, o, ast.DependencyVariable)
		}
	}

	switch t := ts.Type.(type) {
	case *goast.StructType:
		e.structBody(t, ref, o)
	case *goast.InterfaceType:
		e.interfaceBody(t, ref, o)
	default:
		e.typeRefs(ts.Type, o, ast.DependencyVariable)
	}
}

// structBody records the fields of a struct declared as ref. Embedded
// fields become inheritance edges.
func (e *extractor) structBody(st *goast.StructType, ref *ast.ClassLikeReference, o *owner) {
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			if parent, ok := e.namedType(field.Type, o); ok {
				ref.Inherits = append(ref.Inherits, ast.NewInherit(ref.ClassLike, parent, e.occurrence(field.Pos()), ast.InheritUses))
				e.typeArgs(field.Type, o)
				continue
			}
		}
		e.typeRefs(field.Type, o, ast.DependencyVariable)
	}
}

func (e *extractor) interfaceBody(it *goast.InterfaceType, ref *ast.ClassLikeReference, o *owner) {
	for _, field := range it.Methods.List {
		if len(field.Names) == 0 {
			if parent, ok := e.namedType(field.Type, o); ok {
				ref.Inherits = append(ref.Inherits, ast.NewInherit(ref.ClassLike, parent, e.occurrence(field.Pos()), ast.InheritExtends))
				e.typeArgs(field.Type, o)
				continue
			}
			// Union and approximation elements of constraint interfaces.
			e.typeRefs(field.Type, o, ast.DependencyVariable)
			continue
		}
		if ft, ok := field.Type.(*goast.FuncType); ok {
			e.signature(ft, o)
		}
	}
}

// namedType resolves expr to a named class-like, looking through pointers
// and type arguments.
func (e *extractor) namedType(expr goast.Expr, o *owner) (ast.ClassLikeToken, bool) {
	switch t := expr.(type) {
	case *goast.StarExpr:
		return e.namedType(t.X, o)
	case *goast.ParenExpr:
		return e.namedType(t.X, o)
	case *goast.IndexExpr:
		return e.namedType(t.X, o)
	case *goast.IndexListExpr:
		return e.namedType(t.X, o)
	case *goast.Ident:
		return e.identType(t, o)
	case *goast.SelectorExpr:
		return e.qualifiedType(t)
	}
	return ast.ClassLikeToken{}, false
}

// typeArgs records the type arguments of an instantiated embedded type.
func (e *extractor) typeArgs(expr goast.Expr, o *owner) {
	switch t := expr.(type) {
	case *goast.StarExpr:
		e.typeArgs(t.X, o)
	case *goast.IndexExpr:
		e.typeRefs(t.Index, o, ast.DependencyVariable)
	case *goast.IndexListExpr:
		for _, idx := range t.Indices {
			e.typeRefs(idx, o, ast.DependencyVariable)
		}
	}
}

func (e *extractor) identType(id *goast.Ident, o *owner) (ast.ClassLikeToken, bool) {
	if id.Name == "_" || o.params[id.Name] {
		return ast.ClassLikeToken{}, false
	}
	if id.Obj != nil {
		// Resolved within the file: only package-level types count.
		if id.Obj.Kind != goast.Typ {
			return ast.ClassLikeToken{}, false
		}
		if _, ok := e.types[id.Name]; !ok {
			return ast.ClassLikeToken{}, false
		}
		return e.qualify(id.Name), true
	}
	if _, builtin := types.Universe.Lookup(id.Name).(*types.TypeName); builtin {
		return ast.ClassLikeToken{}, false
	}
	return e.qualify(id.Name), true
}

func (e *extractor) qualifiedType(sel *goast.SelectorExpr) (ast.ClassLikeToken, bool) {
	importPath, ok := e.importOf(sel)
	if !ok {
		return ast.ClassLikeToken{}, false
	}
	return ast.NewClassLikeToken(importPath + "." + sel.Sel.Name), true
}

// importOf returns the import path when sel is a package-qualified name.
func (e *extractor) importOf(sel *goast.SelectorExpr) (string, bool) {
	x, ok := sel.X.(*goast.Ident)
	if !ok || x.Obj != nil {
		return "", false
	}
	importPath, ok := e.imports[x.Name]
	return importPath, ok
}

// typeRefs records every named type mentioned in a type expression.
func (e *extractor) typeRefs(expr goast.Expr, o *owner, typ ast.DependencyType) {
	switch t := expr.(type) {
	case nil:
	case *goast.Ident, *goast.SelectorExpr:
		if tok, ok := e.namedType(t, o); ok {
			o.add(tok, e.occurrence(t.Pos()), typ)
		}
	case *goast.StarExpr:
		e.typeRefs(t.X, o, typ)
	case *goast.ParenExpr:
		e.typeRefs(t.X, o, typ)
	case *goast.UnaryExpr:
		e.typeRefs(t.X, o, typ)
	case *goast.BinaryExpr:
		e.typeRefs(t.X, o, typ)
		e.typeRefs(t.Y, o, typ)
	case *goast.ArrayType:
		e.typeRefs(t.Elt, o, typ)
	case *goast.Ellipsis:
		e.typeRefs(t.Elt, o, typ)
	case *goast.MapType:
		e.typeRefs(t.Key, o, typ)
		e.typeRefs(t.Value, o, typ)
	case *goast.ChanType:
		e.typeRefs(t.Value, o, typ)
	case *goast.FuncType:
		e.signature(t, o)
	case *goast.IndexExpr:
		e.typeRefs(t.X, o, typ)
		e.typeRefs(t.Index, o, typ)
	case *goast.IndexListExpr:
		e.typeRefs(t.X, o, typ)
		for _, idx := range t.Indices {
			e.typeRefs(idx, o, typ)
		}
	case *goast.StructType:
		if t.Fields != nil && len(t.Fields.List) > 0 {
			e.anonymousStruct(t, o)
		}
	case *goast.InterfaceType:
		if t.Methods != nil && len(t.Methods.List) > 0 {
			e.anonymousInterface(t, o)
		}
	}
}

func (e *extractor) signature(ft *goast.FuncType, o *owner) {
	o = o.withParams(ft.TypeParams)
	if ft.TypeParams != nil {
		for _, f := range ft.TypeParams.List {
			e.typeRefs(f.Type, o, ast.DependencyParameter)
		}
	}
	if ft.Params != nil {
		for _, f := range ft.Params.List {
			e.typeRefs(f.Type, o, ast.DependencyParameter)
		}
	}
	if ft.Results != nil {
		for _, f := range ft.Results.List {
			e.typeRefs(f.Type, o, ast.DependencyReturnType)
		}
	}
}

// declareAnonymous adds the next anonymous class-like of the file and makes
// the enclosing owner depend on it.
func (e *extractor) declareAnonymous(pos token.Pos, typ ast.ClassLikeType, o *owner) (*ast.ClassLikeReference, *owner) {
	e.anon++
	anon := ast.AnonymousClassToken{File: e.path, Ordinal: e.anon}
	ref := e.ref.AddClassLike(ast.NewClassLikeReference(anon.ClassLike(), typ))
	o.add(anon, e.occurrence(pos), ast.DependencyAnonymousClass)
	return ref, &owner{token: ref.ClassLike, deps: &ref.Dependencies, params: o.params}
}

func (e *extractor) anonymousStruct(st *goast.StructType, o *owner) {
	ref, inner := e.declareAnonymous(st.Pos(), ast.TypeClass, o)
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			if parent, ok := e.namedType(field.Type, o); ok {
				occ := e.occurrence(field.Pos())
				ref.Inherits = append(ref.Inherits, ast.NewInherit(ref.ClassLike, parent, occ, ast.InheritUses))
				o.add(parent, occ, ast.DependencyAnonymousClassExtends)
				e.typeArgs(field.Type, inner)
				continue
			}
		}
		e.typeRefs(field.Type, inner, ast.DependencyVariable)
	}
}

func (e *extractor) anonymousInterface(it *goast.InterfaceType, o *owner) {
	ref, inner := e.declareAnonymous(it.Pos(), ast.TypeInterface, o)
	for _, field := range it.Methods.List {
		if len(field.Names) == 0 {
			if parent, ok := e.namedType(field.Type, o); ok {
				occ := e.occurrence(field.Pos())
				ref.Inherits = append(ref.Inherits, ast.NewInherit(ref.ClassLike, parent, occ, ast.InheritExtends))
				o.add(parent, occ, ast.DependencyAnonymousClassImplements)
				continue
			}
			e.typeRefs(field.Type, inner, ast.DependencyVariable)
			continue
		}
		if ft, ok := field.Type.(*goast.FuncType); ok {
			e.signature(ft, inner)
		}
	}
}

// packageValue records a package-level var or const. Interface assertions
// become implements edges on the asserted type; everything else is a
// file-level dependency.
func (e *extractor) packageValue(spec *goast.ValueSpec, fileOwner *owner, typ ast.DependencyType) {
	if e.assertion(spec) {
		return
	}
	e.typeRefs(spec.Type, fileOwner, typ)
	for _, v := range spec.Values {
		e.expr(v, fileOwner)
	}
}

func (e *extractor) assertion(spec *goast.ValueSpec) bool {
	if len(spec.Names) != 1 || spec.Names[0].Name != "_" || spec.Type == nil || len(spec.Values) != 1 {
		return false
	}
	fileOwner := &owner{}
	iface, ok := e.namedType(spec.Type, fileOwner)
	if !ok {
		return false
	}
	local, ok := assertedType(spec.Values[0])
	if !ok || local.Obj != nil && local.Obj.Kind != goast.Typ {
		return false
	}
	if _, builtin := types.Universe.Lookup(local.Name).(*types.TypeName); builtin && local.Obj == nil {
		return false
	}

	ref := e.classLikeFor(local.Name)
	ref.Inherits = append(ref.Inherits, ast.NewInherit(ref.ClassLike, iface, e.occurrence(spec.Pos()), ast.InheritImplements))
	return true
}

// assertedType extracts T from (*T)(nil), T{}, &T{} and new(T).
func assertedType(expr goast.Expr) (*goast.Ident, bool) {
	switch v := expr.(type) {
	case *goast.CallExpr:
		if id, ok := v.Fun.(*goast.Ident); ok && id.Name == "new" && id.Obj == nil && len(v.Args) == 1 {
			return baseIdent(v.Args[0])
		}
		if len(v.Args) == 1 {
			return baseIdent(v.Fun)
		}
	case *goast.CompositeLit:
		return baseIdent(v.Type)
	case *goast.UnaryExpr:
		if v.Op == token.AND {
			return assertedType(v.X)
		}
	}
	return nil, false
}

func baseIdent(expr goast.Expr) (*goast.Ident, bool) {
	switch t := expr.(type) {
	case *goast.ParenExpr:
		return baseIdent(t.X)
	case *goast.StarExpr:
		return baseIdent(t.X)
	case *goast.IndexExpr:
		return baseIdent(t.X)
	case *goast.IndexListExpr:
		return baseIdent(t.X)
	case *goast.Ident:
		return t, true
	}
	return nil, false
}

// classLikeFor returns the reference for a type of this package, creating
// a partial reference when the type is declared in another file.
func (e *extractor) classLikeFor(name string) *ast.ClassLikeReference {
	if ref, ok := e.types[name]; ok {
		return ref
	}
	tok := e.qualify(name)
	if ref := e.ref.ClassLike(tok.Name); ref != nil {
		return ref
	}
	ref := ast.NewClassLikeReference(tok, ast.TypeClassLike)
	ref.Partial = true
	return e.ref.AddClassLike(ref)
}

func (e *extractor) funcDecl(fn *goast.FuncDecl, fileOwner *owner) {
	var o *owner
	switch {
	case fn.Recv != nil && len(fn.Recv.List) > 0:
		name, params, ok := receiver(fn.Recv.List[0].Type)
		if !ok {
			return
		}
		ref := e.classLikeFor(name)
		o = &owner{token: ref.ClassLike, deps: &ref.Dependencies, params: params}
	case fn.Name.Name == "init" || fn.Name.Name == "_":
		o = fileOwner
	default:
		ref := e.ref.AddFunction(ast.NewFunctionReference(ast.NewFunctionToken(e.pkg + "." + fn.Name.Name)))
		o = &owner{token: ref.Function, deps: &ref.Dependencies}
	}

	o = o.withParams(fn.Type.TypeParams)
	e.signature(fn.Type, o)
	if fn.Body != nil {
		e.stmt(fn.Body, o)
	}
}

// receiver returns the base type name of a method receiver and the names
// of its type parameters.
func receiver(expr goast.Expr) (string, map[string]bool, bool) {
	params := map[string]bool{}
	for {
		switch t := expr.(type) {
		case *goast.StarExpr:
			expr = t.X
			continue
		case *goast.ParenExpr:
			expr = t.X
			continue
		case *goast.IndexExpr:
			if id, ok := t.Index.(*goast.Ident); ok {
				params[id.Name] = true
			}
			expr = t.X
			continue
		case *goast.IndexListExpr:
			for _, idx := range t.Indices {
				if id, ok := idx.(*goast.Ident); ok {
					params[id.Name] = true
				}
			}
			expr = t.X
			continue
		case *goast.Ident:
			return t.Name, params, true
		}
		return "", nil, false
	}
}
