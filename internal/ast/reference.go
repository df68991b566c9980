package ast

// TokenReference is a resolved token. File returns nil for tokens that are
// not declared in the analysed tree.
type TokenReference interface {
	Token() Token
	File() *FileReference
}

// FileReference holds everything extracted from one source file.
type FileReference struct {
	Filepath     string
	ClassLikes   []*ClassLikeReference
	Functions    []*FunctionReference
	Dependencies []DependencyToken
}

func NewFileReference(path string) *FileReference {
	return &FileReference{Filepath: path}
}

func (f *FileReference) Token() Token         { return FileToken{Path: f.Filepath} }
func (f *FileReference) File() *FileReference { return f }

// AddClassLike appends a class-like declaration and binds it to f.
func (f *FileReference) AddClassLike(ref *ClassLikeReference) *ClassLikeReference {
	ref.file = f
	f.ClassLikes = append(f.ClassLikes, ref)
	return ref
}

// AddFunction appends a function declaration and binds it to f.
func (f *FileReference) AddFunction(ref *FunctionReference) *FunctionReference {
	ref.file = f
	f.Functions = append(f.Functions, ref)
	return ref
}

// ClassLike returns the class-like declared in f under name.
func (f *FileReference) ClassLike(name string) *ClassLikeReference {
	for _, ref := range f.ClassLikes {
		if ref.ClassLike.Name == name {
			return ref
		}
	}
	return nil
}

// bind restores the back-pointers of the declarations after decoding.
func (f *FileReference) bind() {
	for _, ref := range f.ClassLikes {
		ref.file = f
	}
	for _, ref := range f.Functions {
		ref.file = f
	}
}

// ClassLikeReference is a declared type together with its dependencies and
// direct inheritance edges.
//
// Partial is set when the declaration only carries facts observed outside
// the declaring file, such as methods or interface assertions for a type
// declared in a sibling file. Partial references are folded into the
// declaring reference when the map is assembled.
type ClassLikeReference struct {
	ClassLike    ClassLikeToken
	Type         ClassLikeType
	Inherits     []*Inherit
	Dependencies []DependencyToken
	Partial      bool

	file *FileReference
}

func NewClassLikeReference(token ClassLikeToken, typ ClassLikeType) *ClassLikeReference {
	return &ClassLikeReference{ClassLike: token, Type: typ}
}

func (r *ClassLikeReference) Token() Token         { return r.ClassLike }
func (r *ClassLikeReference) File() *FileReference { return r.file }

// FunctionReference is a declared package-level function.
type FunctionReference struct {
	Function     FunctionToken
	Dependencies []DependencyToken

	file *FileReference
}

func NewFunctionReference(token FunctionToken) *FunctionReference {
	return &FunctionReference{Function: token}
}

func (r *FunctionReference) Token() Token         { return r.Function }
func (r *FunctionReference) File() *FileReference { return r.file }

// undeclared is a reference to a token that no analysed file declares.
type undeclared struct {
	token Token
}

// Undeclared wraps a token that is not part of the map.
func Undeclared(token Token) TokenReference {
	return undeclared{token: token}
}

func (u undeclared) Token() Token         { return u.token }
func (u undeclared) File() *FileReference { return nil }
