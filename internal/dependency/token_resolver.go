package dependency

import (
	"fmt"

	"github.com/abramin/strata/internal/ast"
)

// UnresolvableTokenError is returned when a token points into a
// declaration context the map does not contain.
type UnresolvableTokenError struct {
	Token  ast.Token
	Reason string
}

func (e *UnresolvableTokenError) Error() string {
	return fmt.Sprintf("unable to resolve token %q: %s", e.Token, e.Reason)
}

// TokenResolver maps tokens onto their references in an AST map. Tokens
// without a declaration resolve to an undeclared reference.
type TokenResolver struct{}

func (TokenResolver) Resolve(token ast.Token, m *ast.Map) (ast.TokenReference, error) {
	switch tok := token.(type) {
	case ast.AnonymousClassToken:
		f := m.FileReference(tok.File)
		if f == nil {
			return nil, &UnresolvableTokenError{Token: tok, Reason: fmt.Sprintf("file %s is not part of the map", tok.File)}
		}
		canonical := tok.ClassLike()
		if ref := m.ClassLikeReference(canonical); ref != nil && ref.File() == f {
			return ref, nil
		}
		return nil, &UnresolvableTokenError{Token: tok, Reason: fmt.Sprintf("file %s declares no anonymous type #%d", tok.File, tok.Ordinal)}
	case ast.ClassLikeToken:
		if ref := m.ClassLikeReference(tok); ref != nil {
			return ref, nil
		}
		return ast.Undeclared(ast.NewClassLikeToken(tok.Name)), nil
	case ast.FunctionToken:
		if ref := m.FunctionReference(tok); ref != nil {
			return ref, nil
		}
		return ast.Undeclared(ast.NewFunctionToken(tok.Name)), nil
	case ast.FileToken:
		if f := m.FileReference(tok.Path); f != nil {
			return f, nil
		}
		return ast.Undeclared(tok), nil
	default:
		return nil, &UnresolvableTokenError{Token: token, Reason: "unsupported token kind"}
	}
}
