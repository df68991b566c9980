package analyser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/dependency"
)

// TokensInLayer returns the declared tokens of the configured types that
// belong to layer, sorted case-insensitively.
func (a *Analyser) TokensInLayer(m *ast.Map, layerName string) []string {
	var out []string
	for _, ref := range declared(m, a.emitterTypes()) {
		if a.layers.LayersFor(ref, m).Has(layerName) {
			out = append(out, ref.Token().String())
		}
	}
	sortInsensitive(out)
	return out
}

// LayersForToken resolves a token by name and returns its layers, sorted.
// kind selects how name is interpreted.
func (a *Analyser) LayersForToken(m *ast.Map, kind ast.TokenKind, name string) ([]string, error) {
	var tok ast.Token
	switch kind {
	case ast.TokenKindClassLike:
		tok = ast.NewClassLikeToken(name)
	case ast.TokenKindFunction:
		tok = ast.NewFunctionToken(name)
	case ast.TokenKindFile:
		tok = ast.FileToken{Path: name}
	default:
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
	ref, err := a.tokens.Resolve(tok, m)
	if err != nil {
		return nil, err
	}
	return a.layers.LayersFor(ref, m).Names(), nil
}

// UnassignedTokens returns the declared tokens of the configured types
// that belong to no layer, sorted case-insensitively.
func (a *Analyser) UnassignedTokens(m *ast.Map) []string {
	var out []string
	for _, ref := range declared(m, a.emitterTypes()) {
		if len(a.layers.LayersFor(ref, m)) == 0 {
			out = append(out, ref.Token().String())
		}
	}
	sortInsensitive(out)
	return out
}

// EmitterTypes returns the emitter types the analyser reports on.
func (a *Analyser) EmitterTypes() []dependency.EmitterType { return a.emitterTypes() }

func sortInsensitive(s []string) {
	sort.SliceStable(s, func(i, j int) bool {
		li, lj := strings.ToLower(s[i]), strings.ToLower(s[j])
		if li != lj {
			return li < lj
		}
		return s[i] < s[j]
	})
}
