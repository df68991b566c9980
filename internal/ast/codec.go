package ast

import (
	"encoding/json"
	"fmt"
)

// CodecVersion identifies the serialized layout of a FileReference. Bump it
// whenever the wire types below change so stale cache entries are dropped.
const CodecVersion = 1

type wireToken struct {
	Kind    TokenKind `json:"k"`
	Name    string    `json:"n,omitempty"`
	File    string    `json:"f,omitempty"`
	Ordinal int       `json:"o,omitempty"`
	Anon    bool      `json:"a,omitempty"`
}

type wireDependency struct {
	Token wireToken      `json:"t"`
	Line  int            `json:"l"`
	Type  DependencyType `json:"y"`
}

type wireInherit struct {
	Parent string      `json:"p"`
	Line   int         `json:"l"`
	Type   InheritType `json:"y"`
}

type wireClassLike struct {
	Name         string           `json:"n"`
	Type         ClassLikeType    `json:"y"`
	Partial      bool             `json:"p,omitempty"`
	Inherits     []wireInherit    `json:"i,omitempty"`
	Dependencies []wireDependency `json:"d,omitempty"`
}

type wireFunction struct {
	Name         string           `json:"n"`
	Dependencies []wireDependency `json:"d,omitempty"`
}

type wireFile struct {
	Path         string           `json:"path"`
	ClassLikes   []wireClassLike  `json:"classes,omitempty"`
	Functions    []wireFunction   `json:"functions,omitempty"`
	Dependencies []wireDependency `json:"deps,omitempty"`
}

// EncodeFileReference serializes the facts of one file. Occurrences are
// stored as line numbers only since every occurrence in a file reference
// points into that file.
func EncodeFileReference(f *FileReference) ([]byte, error) {
	w := wireFile{Path: f.Filepath, Dependencies: encodeDependencies(f.Dependencies)}
	for _, c := range f.ClassLikes {
		wc := wireClassLike{
			Name:         c.ClassLike.Name,
			Type:         c.Type,
			Partial:      c.Partial,
			Dependencies: encodeDependencies(c.Dependencies),
		}
		for _, inh := range c.Inherits {
			wc.Inherits = append(wc.Inherits, wireInherit{Parent: inh.Parent.Name, Line: inh.Occurrence.Line, Type: inh.Type})
		}
		w.ClassLikes = append(w.ClassLikes, wc)
	}
	for _, fn := range f.Functions {
		w.Functions = append(w.Functions, wireFunction{Name: fn.Function.Name, Dependencies: encodeDependencies(fn.Dependencies)})
	}
	return json.Marshal(w)
}

// DecodeFileReference is the inverse of EncodeFileReference.
func DecodeFileReference(data []byte) (*FileReference, error) {
	var w wireFile
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding file reference: %w", err)
	}
	if w.Path == "" {
		return nil, fmt.Errorf("decoding file reference: missing path")
	}

	f := NewFileReference(w.Path)
	deps, err := decodeDependencies(w.Path, w.Dependencies)
	if err != nil {
		return nil, err
	}
	f.Dependencies = deps

	for _, wc := range w.ClassLikes {
		c := NewClassLikeReference(ClassLikeToken{Name: wc.Name}, wc.Type)
		c.Partial = wc.Partial
		for _, wi := range wc.Inherits {
			c.Inherits = append(c.Inherits, NewInherit(c.ClassLike, ClassLikeToken{Name: wi.Parent}, NewFileOccurrence(w.Path, wi.Line), wi.Type))
		}
		if c.Dependencies, err = decodeDependencies(w.Path, wc.Dependencies); err != nil {
			return nil, err
		}
		f.AddClassLike(c)
	}
	for _, wf := range w.Functions {
		fn := NewFunctionReference(FunctionToken{Name: wf.Name})
		if fn.Dependencies, err = decodeDependencies(w.Path, wf.Dependencies); err != nil {
			return nil, err
		}
		f.AddFunction(fn)
	}
	return f, nil
}

func encodeDependencies(deps []DependencyToken) []wireDependency {
	if len(deps) == 0 {
		return nil
	}
	out := make([]wireDependency, 0, len(deps))
	for _, d := range deps {
		out = append(out, wireDependency{Token: encodeToken(d.Token), Line: d.Occurrence.Line, Type: d.Type})
	}
	return out
}

func decodeDependencies(path string, in []wireDependency) ([]DependencyToken, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]DependencyToken, 0, len(in))
	for _, w := range in {
		tok, err := decodeToken(w.Token)
		if err != nil {
			return nil, err
		}
		out = append(out, DependencyToken{Token: tok, Occurrence: NewFileOccurrence(path, w.Line), Type: w.Type})
	}
	return out, nil
}

func encodeToken(t Token) wireToken {
	switch tok := t.(type) {
	case AnonymousClassToken:
		return wireToken{Kind: TokenKindClassLike, Anon: true, File: tok.File, Ordinal: tok.Ordinal}
	case FileToken:
		return wireToken{Kind: TokenKindFile, Name: tok.Path}
	default:
		return wireToken{Kind: t.Kind(), Name: t.String()}
	}
}

func decodeToken(w wireToken) (Token, error) {
	switch w.Kind {
	case TokenKindClassLike:
		if w.Anon {
			return AnonymousClassToken{File: w.File, Ordinal: w.Ordinal}, nil
		}
		return ClassLikeToken{Name: w.Name}, nil
	case TokenKindFunction:
		return FunctionToken{Name: w.Name}, nil
	case TokenKindFile:
		return FileToken{Path: w.Name}, nil
	default:
		return nil, fmt.Errorf("decoding token: unknown kind %q", w.Kind)
	}
}
