// Package parser extracts declarations and raw references from source
// files into AST file references.
package parser

import "github.com/abramin/strata/internal/ast"

// Parser turns the content of one source file into its facts. Parsing must
// be a pure function of path and content; the file-fact cache relies on it.
type Parser interface {
	ParseFile(path string, content []byte) (*ast.FileReference, error)
}

// PackageNamer resolves the import path of the package in dir. It returns
// the empty string when the directory is not part of a known module.
type PackageNamer interface {
	PackagePath(dir string) string
}

// NamerFunc adapts a function to PackageNamer.
type NamerFunc func(dir string) string

func (f NamerFunc) PackagePath(dir string) string { return f(dir) }
