package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "strata.yaml"

// Config represents the strata configuration.
type Config struct {
	Paths                          []string            `yaml:"paths"`
	ExcludeFiles                   []string            `yaml:"exclude_files"`
	Layers                         []Layer             `yaml:"layers"`
	Ruleset                        map[string][]string `yaml:"ruleset"`
	SkipViolations                 map[string][]string `yaml:"skip_violations"`
	Analyser                       AnalyserConfig      `yaml:"analyser"`
	Cache                          CacheConfig         `yaml:"cache"`
	Go                             GoConfig            `yaml:"go"`
	IgnoreUncoveredInternalClasses *bool               `yaml:"ignore_uncovered_internal_classes"`
	UseGitignore                   *bool               `yaml:"use_gitignore"`
}

// Layer is a named group of tokens selected by collectors.
type Layer struct {
	Name       string      `yaml:"name"`
	Collectors []Collector `yaml:"collectors"`
}

// Collector decides membership of a token in a layer. Value is used by the
// matching collectors; Must and MustNot by the bool collector.
type Collector struct {
	Type    string      `yaml:"type"`
	Value   string      `yaml:"value"`
	Must    []Collector `yaml:"must"`
	MustNot []Collector `yaml:"must_not"`
}

// AnalyserConfig selects which declarations emit dependencies.
type AnalyserConfig struct {
	Types []string `yaml:"types"`
}

// CacheConfig controls the file-fact cache.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled"`
	File    string `yaml:"file"`
}

// GoConfig tunes Go source handling.
type GoConfig struct {
	// LoadPackages resolves import paths through `go list` instead of
	// reading go.mod files.
	LoadPackages bool `yaml:"load_packages"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Paths:          []string{"."},
		ExcludeFiles:   []string{`_test\.go$`, `\.pb\.go$`, `_gen\.go$`},
		Ruleset:        map[string][]string{},
		SkipViolations: map[string][]string{},
		Analyser: AnalyserConfig{
			Types: []string{"class", "function"},
		},
		Cache: CacheConfig{
			Enabled: boolPtr(true),
			File:    filepath.Join(".strata", "cache.db"),
		},
		IgnoreUncoveredInternalClasses: boolPtr(true),
		UseGitignore:                   boolPtr(true),
	}
}

// Load reads configuration from file, falling back to defaults.
// If configPath is empty, it looks for strata.yaml in the current directory.
// Values in the config file replace defaults entirely (no merging).
func Load(configPath string) (*Config, error) {
	defaults := Default()

	if configPath == "" {
		configPath = DefaultFile
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return nil, fmt.Errorf("config file %q is not readable: %w", configPath, err)
	}

	fileCfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", configPath, err)
	}

	defaults.Merge(fileCfg)
	return defaults, nil
}

// Parse decodes a YAML document. An empty document yields an empty Config.
func Parse(data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return &Config{}, nil
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("parsed yaml is not a mapping")
	}

	var cfg Config
	if err := root.Content[0].Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// LoadFromDir loads configuration from the specified directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, DefaultFile))
}

// Merge combines another config into this one, with other taking precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Paths) > 0 {
		c.Paths = other.Paths
	}
	if other.ExcludeFiles != nil {
		c.ExcludeFiles = other.ExcludeFiles
	}
	if len(other.Layers) > 0 {
		c.Layers = other.Layers
	}
	if len(other.Ruleset) > 0 {
		c.Ruleset = other.Ruleset
	}
	if len(other.SkipViolations) > 0 {
		c.SkipViolations = other.SkipViolations
	}
	if len(other.Analyser.Types) > 0 {
		c.Analyser.Types = other.Analyser.Types
	}
	if other.Cache.Enabled != nil {
		c.Cache.Enabled = other.Cache.Enabled
	}
	if other.Cache.File != "" {
		c.Cache.File = other.Cache.File
	}
	if other.Go.LoadPackages {
		c.Go.LoadPackages = true
	}
	if other.IgnoreUncoveredInternalClasses != nil {
		c.IgnoreUncoveredInternalClasses = other.IgnoreUncoveredInternalClasses
	}
	if other.UseGitignore != nil {
		c.UseGitignore = other.UseGitignore
	}
}

// CacheEnabled reports whether the file-fact cache is in use.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// CachePath returns the cache file location resolved against baseDir.
func (c *Config) CachePath(baseDir string) string {
	if filepath.IsAbs(c.Cache.File) {
		return c.Cache.File
	}
	return filepath.Join(baseDir, c.Cache.File)
}

// IgnoresUncoveredInternal reports whether uncovered dependencies on the
// standard library are left out of the report.
func (c *Config) IgnoresUncoveredInternal() bool {
	return c.IgnoreUncoveredInternalClasses == nil || *c.IgnoreUncoveredInternalClasses
}

// UsesGitignore reports whether .gitignore rules filter discovered files.
func (c *Config) UsesGitignore() bool {
	return c.UseGitignore == nil || *c.UseGitignore
}

// LayerNames returns the configured layer names in declaration order.
func (c *Config) LayerNames() []string {
	names := make([]string, 0, len(c.Layers))
	for _, l := range c.Layers {
		names = append(names, l.Name)
	}
	return names
}

// AllowedLayers returns the layers that layer may depend on. Entries of the
// form "+Other" pull in everything Other is allowed to depend on, followed
// transitively.
func (c *Config) AllowedLayers(layer string) []string {
	var out []string
	seen := map[string]bool{}
	visited := map[string]bool{}
	var walk func(string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, entry := range c.Ruleset[name] {
			if inherited, ok := strings.CutPrefix(entry, "+"); ok {
				if !seen[inherited] {
					seen[inherited] = true
					out = append(out, inherited)
				}
				walk(inherited)
				continue
			}
			if !seen[entry] {
				seen[entry] = true
				out = append(out, entry)
			}
		}
	}
	walk(layer)
	return out
}

// ExcludePatterns compiles the exclude_files expressions.
func (c *Config) ExcludePatterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.ExcludeFiles))
	for _, expr := range c.ExcludeFiles {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("exclude_files %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func boolPtr(b bool) *bool { return &b }
