package parser

import (
	goast "go/ast"
	"go/types"

	"github.com/abramin/strata/internal/ast"
)

func (e *extractor) stmt(node goast.Node, o *owner) {
	goast.Inspect(node, func(n goast.Node) bool {
		return e.visit(n, o)
	})
}

func (e *extractor) expr(expr goast.Expr, o *owner) {
	if expr == nil {
		return
	}
	e.stmt(expr, o)
}

// visit handles the nodes that carry references and reports whether
// Inspect should descend on its own.
func (e *extractor) visit(n goast.Node, o *owner) bool {
	switch v := n.(type) {
	case *goast.CompositeLit:
		e.typeRefs(v.Type, o, ast.DependencyNew)
		for _, elt := range v.Elts {
			e.expr(elt, o)
		}
		return false

	case *goast.CallExpr:
		e.call(v, o)
		return false

	case *goast.TypeAssertExpr:
		e.expr(v.X, o)
		e.typeRefs(v.Type, o, ast.DependencyInstanceof)
		return false

	case *goast.TypeSwitchStmt:
		if v.Init != nil {
			e.stmt(v.Init, o)
		}
		e.stmt(v.Assign, o)
		for _, clause := range v.Body.List {
			cc := clause.(*goast.CaseClause)
			for _, typ := range cc.List {
				if id, ok := typ.(*goast.Ident); ok && id.Name == "nil" && id.Obj == nil {
					continue
				}
				e.typeRefs(typ, o, ast.DependencyInstanceof)
			}
			for _, s := range cc.Body {
				e.stmt(s, o)
			}
		}
		return false

	case *goast.ValueSpec:
		e.typeRefs(v.Type, o, ast.DependencyVariable)
		for _, val := range v.Values {
			e.expr(val, o)
		}
		return false

	case *goast.TypeSpec:
		// Function-local type declarations.
		inner := o.withParams(v.TypeParams)
		e.typeRefs(v.Type, inner, ast.DependencyVariable)
		return false

	case *goast.FuncLit:
		e.signature(v.Type, o)
		e.stmt(v.Body, o)
		return false
	}
	return true
}

// call records function calls, conversions and the type arguments of
// new and make.
func (e *extractor) call(c *goast.CallExpr, o *owner) {
	fun := c.Fun
	var typeArgs []goast.Expr
	switch f := fun.(type) {
	case *goast.IndexExpr:
		fun, typeArgs = f.X, []goast.Expr{f.Index}
	case *goast.IndexListExpr:
		fun, typeArgs = f.X, f.Indices
	}
	for _, ta := range typeArgs {
		e.typeRefs(ta, o, ast.DependencyParameter)
	}

	args := c.Args
	switch f := fun.(type) {
	case *goast.Ident:
		e.callIdent(f, c, o, &args)
	case *goast.SelectorExpr:
		if importPath, ok := e.importOf(f); ok {
			o.add(ast.NewFunctionToken(importPath+"."+f.Sel.Name), e.occurrence(f.Pos()), ast.DependencyFunctionCall)
		} else {
			e.expr(f.X, o)
		}
	case *goast.ParenExpr, *goast.StarExpr, *goast.ArrayType, *goast.MapType, *goast.ChanType, *goast.FuncType, *goast.InterfaceType, *goast.StructType:
		// Conversion to a composite or parenthesized type: (*T)(x), []T(x).
		e.typeRefs(fun, o, ast.DependencyVariable)
	default:
		e.expr(fun, o)
	}

	for _, arg := range args {
		e.expr(arg, o)
	}
}

func (e *extractor) callIdent(id *goast.Ident, c *goast.CallExpr, o *owner, args *[]goast.Expr) {
	if o.params[id.Name] {
		return
	}
	if id.Obj == nil {
		switch types.Universe.Lookup(id.Name).(type) {
		case *types.Builtin:
			if (id.Name == "new" || id.Name == "make") && len(c.Args) > 0 {
				e.typeRefs(c.Args[0], o, ast.DependencyNew)
				*args = c.Args[1:]
			}
			return
		case *types.TypeName:
			return
		}
		// Declared in a sibling file: a function or a conversion to a
		// package type. Calls are the common case.
		o.add(ast.NewFunctionToken(e.pkg+"."+id.Name), e.occurrence(id.Pos()), ast.DependencyFunctionCall)
		return
	}

	switch id.Obj.Kind {
	case goast.Fun:
		if decl, ok := id.Obj.Decl.(*goast.FuncDecl); ok && decl.Recv == nil && decl.Name.Name != "init" {
			o.add(ast.NewFunctionToken(e.pkg+"."+id.Name), e.occurrence(id.Pos()), ast.DependencyFunctionCall)
		}
	case goast.Typ:
		if _, ok := e.types[id.Name]; ok {
			o.add(e.qualify(id.Name), e.occurrence(id.Pos()), ast.DependencyVariable)
		}
	}
}
