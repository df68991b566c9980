package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ValidationError describes one problem in a configuration.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var analyserTypes = map[string]bool{"class": true, "function": true, "file": true}

// Validate reports every problem found in c. None of them prevent an
// analysis from running; callers surface them as report errors.
func (c *Config) Validate() []error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	defined := make(map[string]bool, len(c.Layers))
	for i, l := range c.Layers {
		field := fmt.Sprintf("layers[%d]", i)
		if strings.TrimSpace(l.Name) == "" {
			add(field, "layer has no name")
			continue
		}
		if defined[l.Name] {
			add(field, "layer %q is defined more than once", l.Name)
		}
		defined[l.Name] = true
		if len(l.Collectors) == 0 {
			add(field, "layer %q has no collectors", l.Name)
		}
	}

	for _, name := range sortedKeys(c.Ruleset) {
		if !defined[name] {
			add("ruleset", "rule for undefined layer %q", name)
		}
		for _, target := range c.Ruleset[name] {
			target = strings.TrimPrefix(target, "+")
			if !defined[target] {
				add("ruleset", "layer %q allows undefined layer %q", name, target)
			}
		}
	}

	for _, typ := range c.Analyser.Types {
		if !analyserTypes[typ] {
			add("analyser.types", "unknown analyser type %q", typ)
		}
	}

	for _, expr := range c.ExcludeFiles {
		if _, err := regexp.Compile(expr); err != nil {
			add("exclude_files", "invalid pattern %q: %v", expr, err)
		}
	}

	return errs
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
