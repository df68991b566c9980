package ast

import (
	"fmt"
	"strings"
)

// TokenKind discriminates the three symbol kinds a layer can contain.
type TokenKind string

const (
	TokenKindClassLike TokenKind = "classLike"
	TokenKindFunction  TokenKind = "function"
	TokenKindFile      TokenKind = "file"
)

// Token is the identity of a symbol. Tokens are values; two tokens are
// equal when their kind and String() are equal.
type Token interface {
	String() string
	Kind() TokenKind
}

// ClassLikeToken identifies a named type (struct, interface or any other
// named type) by its fully qualified name, e.g. "github.com/acme/app/user.Service".
type ClassLikeToken struct {
	Name string
}

func NewClassLikeToken(name string) ClassLikeToken {
	return ClassLikeToken{Name: strings.TrimSpace(name)}
}

func (t ClassLikeToken) String() string  { return t.Name }
func (t ClassLikeToken) Kind() TokenKind { return TokenKindClassLike }

// FunctionToken identifies a package-level function.
type FunctionToken struct {
	Name string
}

func NewFunctionToken(name string) FunctionToken {
	return FunctionToken{Name: strings.TrimSpace(name)}
}

func (t FunctionToken) String() string  { return t.Name }
func (t FunctionToken) Kind() TokenKind { return TokenKindFunction }

// FileToken is the pseudo-symbol for a whole source file.
type FileToken struct {
	Path string
}

func (t FileToken) String() string  { return t.Path }
func (t FileToken) Kind() TokenKind { return TokenKindFile }

// AnonymousClassToken refers to an inline struct or interface type. Its
// identity is derived from the declaring file and the position of the
// literal within that file, so extraction of different files never has to
// coordinate on a counter.
type AnonymousClassToken struct {
	File    string
	Ordinal int
}

// ClassLike returns the canonical class-like token the anonymous type is
// declared under in its file reference.
func (t AnonymousClassToken) ClassLike() ClassLikeToken {
	return ClassLikeToken{Name: t.String()}
}

func (t AnonymousClassToken) String() string {
	return fmt.Sprintf("class@anonymous%s#%d", t.File, t.Ordinal)
}

func (t AnonymousClassToken) Kind() TokenKind { return TokenKindClassLike }

// ClassLikeType is the sub-kind of a class-like declaration.
type ClassLikeType string

const (
	TypeClassLike ClassLikeType = "classLike"
	TypeClass     ClassLikeType = "class"
	TypeInterface ClassLikeType = "interface"
	TypeTrait     ClassLikeType = "trait"
)

// Matches reports whether a declaration of type t satisfies a filter for
// type want. A classLike filter accepts every sub-kind.
func (t ClassLikeType) Matches(want ClassLikeType) bool {
	return t == want || want == TypeClassLike
}

// SameToken reports structural equality of two tokens.
func SameToken(a, b Token) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind() && a.String() == b.String()
}

// PackageOf returns the package import path of a qualified symbol name,
// or the empty string for names without a package qualifier.
func PackageOf(name string) string {
	slash := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name[slash+1:], ".")
	if dot < 0 {
		return ""
	}
	return name[:slash+1+dot]
}

// IsStandardLibrary reports whether a qualified symbol name belongs to a
// standard library package. Standard library import paths never contain a
// dot in their first element.
func IsStandardLibrary(name string) bool {
	pkg := PackageOf(name)
	if pkg == "" {
		return false
	}
	first, _, _ := strings.Cut(pkg, "/")
	return !strings.Contains(first, ".")
}
