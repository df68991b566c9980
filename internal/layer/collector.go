package layer

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/config"
)

// Collector decides whether a resolved token belongs to a layer.
type Collector interface {
	Type() string
	Satisfy(ref ast.TokenReference, m *ast.Map) bool
}

// Collector types accepted in configuration.
const (
	TypeClassName      = "className"
	TypeClassNameRegex = "classNameRegex"
	TypeClassLike      = "classLike"
	TypeClass          = "class"
	TypeInterface      = "interface"
	TypeTrait          = "trait"
	TypeFunctionName   = "functionName"
	TypeDirectory      = "directory"
	TypeGlob           = "glob"
	TypeInherits       = "inherits"
	TypeLayer          = "layer"
	TypeBool           = "bool"
)

var errMissingValue = errors.New("collector needs a value")

// compiler builds collectors for one resolver. layerRefs collects the
// names referenced through layer collectors.
type compiler struct {
	baseDir   string
	resolver  *CollectorResolver
	layerRefs []string
}

func (c *compiler) compile(cfg config.Collector) (Collector, error) {
	switch cfg.Type {
	case TypeClassName:
		re, err := insensitive(cfg.Value)
		if err != nil {
			return nil, err
		}
		return &classNameCollector{typ: cfg.Type, re: re}, nil

	case TypeClassNameRegex:
		re, err := delimited(cfg.Value)
		if err != nil {
			return nil, err
		}
		return &classNameCollector{typ: cfg.Type, re: re}, nil

	case TypeClassLike, TypeClass, TypeInterface, TypeTrait:
		re, err := insensitive(cfg.Value)
		if err != nil {
			return nil, err
		}
		return &classTypeCollector{typ: cfg.Type, want: ast.ClassLikeType(cfg.Type), re: re}, nil

	case TypeFunctionName:
		re, err := insensitive(cfg.Value)
		if err != nil {
			return nil, err
		}
		return &functionNameCollector{re: re}, nil

	case TypeDirectory:
		re, err := insensitive(cfg.Value)
		if err != nil {
			return nil, err
		}
		return &directoryCollector{re: re}, nil

	case TypeGlob:
		if cfg.Value == "" {
			return nil, errMissingValue
		}
		if !doublestar.ValidatePattern(cfg.Value) {
			return nil, fmt.Errorf("invalid glob %q", cfg.Value)
		}
		return &globCollector{baseDir: c.baseDir, pattern: cfg.Value}, nil

	case TypeInherits:
		if cfg.Value == "" {
			return nil, errMissingValue
		}
		return &inheritsCollector{parent: cfg.Value}, nil

	case TypeLayer:
		if cfg.Value == "" {
			return nil, errMissingValue
		}
		c.layerRefs = append(c.layerRefs, cfg.Value)
		return &layerCollector{name: cfg.Value, resolver: c.resolver}, nil

	case TypeBool:
		if len(cfg.Must) == 0 && len(cfg.MustNot) == 0 {
			return nil, errors.New("bool collector needs must or must_not")
		}
		b := &boolCollector{}
		for _, sub := range cfg.Must {
			col, err := c.compile(sub)
			if err != nil {
				return nil, fmt.Errorf("must: %w", err)
			}
			b.must = append(b.must, col)
		}
		for _, sub := range cfg.MustNot {
			col, err := c.compile(sub)
			if err != nil {
				return nil, fmt.Errorf("must_not: %w", err)
			}
			b.mustNot = append(b.mustNot, col)
		}
		return b, nil

	case "":
		return nil, errors.New("collector has no type")
	default:
		return nil, fmt.Errorf("unknown collector type %q", cfg.Type)
	}
}

func insensitive(value string) (*regexp.Regexp, error) {
	if value == "" {
		return nil, errMissingValue
	}
	re, err := regexp.Compile("(?i)" + value)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", value, err)
	}
	return re, nil
}

// delimited compiles a pattern written with delimiters and trailing
// flags, such as /^app\..*/i. Patterns without delimiters are used as is.
func delimited(value string) (*regexp.Regexp, error) {
	if value == "" {
		return nil, errMissingValue
	}
	expr := value
	if d := value[0]; len(value) > 2 && strings.IndexByte("/#~", d) >= 0 {
		if end := strings.LastIndexByte(value, d); end > 0 {
			expr = value[1:end]
			flags := value[end+1:]
			for _, f := range flags {
				if !strings.ContainsRune("imsU", f) {
					return nil, fmt.Errorf("invalid pattern %q: unsupported flag %q", value, f)
				}
			}
			if flags != "" {
				expr = "(?" + flags + ")" + expr
			}
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", value, err)
	}
	return re, nil
}

type classNameCollector struct {
	typ string
	re  *regexp.Regexp
}

func (c *classNameCollector) Type() string { return c.typ }

func (c *classNameCollector) Satisfy(ref ast.TokenReference, _ *ast.Map) bool {
	tok, ok := ref.Token().(ast.ClassLikeToken)
	return ok && c.re.MatchString(tok.Name)
}

// classTypeCollector matches class-like names of a given kind. Undeclared
// class-likes have no known kind and only satisfy the classLike type.
type classTypeCollector struct {
	typ  string
	want ast.ClassLikeType
	re   *regexp.Regexp
}

func (c *classTypeCollector) Type() string { return c.typ }

func (c *classTypeCollector) Satisfy(ref ast.TokenReference, _ *ast.Map) bool {
	tok, ok := ref.Token().(ast.ClassLikeToken)
	if !ok || !c.re.MatchString(tok.Name) {
		return false
	}
	if decl, ok := ref.(*ast.ClassLikeReference); ok {
		return decl.Type.Matches(c.want)
	}
	return c.want == ast.TypeClassLike
}

type functionNameCollector struct {
	re *regexp.Regexp
}

func (c *functionNameCollector) Type() string { return TypeFunctionName }

func (c *functionNameCollector) Satisfy(ref ast.TokenReference, _ *ast.Map) bool {
	tok, ok := ref.Token().(ast.FunctionToken)
	return ok && c.re.MatchString(tok.Name)
}

type directoryCollector struct {
	re *regexp.Regexp
}

func (c *directoryCollector) Type() string { return TypeDirectory }

func (c *directoryCollector) Satisfy(ref ast.TokenReference, _ *ast.Map) bool {
	f := ref.File()
	return f != nil && c.re.MatchString(filepath.ToSlash(f.Filepath))
}

// globCollector matches the declaring file's path relative to the base
// directory.
type globCollector struct {
	baseDir string
	pattern string
}

func (c *globCollector) Type() string { return TypeGlob }

func (c *globCollector) Satisfy(ref ast.TokenReference, _ *ast.Map) bool {
	f := ref.File()
	if f == nil {
		return false
	}
	path := f.Filepath
	if rel, err := filepath.Rel(c.baseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	ok, err := doublestar.Match(c.pattern, filepath.ToSlash(path))
	return err == nil && ok
}

// inheritsCollector matches class-likes that directly or transitively
// inherit the named class-like.
type inheritsCollector struct {
	parent string
}

func (c *inheritsCollector) Type() string { return TypeInherits }

func (c *inheritsCollector) Satisfy(ref ast.TokenReference, m *ast.Map) bool {
	tok, ok := ref.Token().(ast.ClassLikeToken)
	if !ok {
		return false
	}
	for _, inherit := range m.ClassInherits(tok) {
		if inherit.Parent.Name == c.parent {
			return true
		}
	}
	return false
}

type layerCollector struct {
	name     string
	resolver *CollectorResolver
}

func (c *layerCollector) Type() string { return TypeLayer }

func (c *layerCollector) Satisfy(ref ast.TokenReference, m *ast.Map) bool {
	return c.resolver.inLayer(c.name, ref, m)
}

type boolCollector struct {
	must    []Collector
	mustNot []Collector
}

func (c *boolCollector) Type() string { return TypeBool }

func (c *boolCollector) Satisfy(ref ast.TokenReference, m *ast.Map) bool {
	for _, col := range c.must {
		if !col.Satisfy(ref, m) {
			return false
		}
	}
	for _, col := range c.mustNot {
		if col.Satisfy(ref, m) {
			return false
		}
	}
	return true
}
