// Package output renders analysis results.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/abramin/strata/internal/result"
)

var ErrUnknownFormatter = errors.New("unknown formatter")

// Options control what a formatter renders.
type Options struct {
	ReportSkipped   bool
	ReportUncovered bool
	FailOnUncovered bool
	// OutputPath, when set, receives the rendered report instead of the
	// writer passed to Format. Only formatters that produce a document honour
	// it.
	OutputPath string
}

// Formatter renders a result to w.
type Formatter interface {
	Name() string
	Format(w io.Writer, res *result.Result, opts Options) error
}

var formatters = map[string]Formatter{}

func register(f Formatter) { formatters[f.Name()] = f }

func init() {
	register(Console{})
	register(JSON{})
	register(GitHubActions{})
	register(Baseline{})
}

// Get returns the formatter called name.
func Get(name string) (Formatter, error) {
	f, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownFormatter, name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Names returns the registered formatter names, sorted.
func Names() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Failed reports whether res should fail the run.
func Failed(res *result.Result, opts Options) bool {
	c := res.Counts()
	if c.Violations > 0 || c.Errors > 0 {
		return true
	}
	return opts.FailOnUncovered && c.Uncovered > 0
}

// Message is the one-line description of an item.
func Message(item result.Item) string {
	switch item.Category {
	case result.Uncovered:
		return fmt.Sprintf("%s has uncovered dependency on %s (%s)",
			item.Depender, item.Dependent, strings.Join(item.DependerLayers, ", "))
	case result.SkippedViolation:
		return fmt.Sprintf("%s should not depend on %s (%s on %s)",
			item.Depender, item.Dependent, strings.Join(item.DependerLayers, ", "), strings.Join(item.DependentLayers, ", "))
	default:
		return fmt.Sprintf("%s must not depend on %s (%s on %s)",
			item.Depender, item.Dependent, strings.Join(item.DependerLayers, ", "), strings.Join(item.DependentLayers, ", "))
	}
}

// reported returns the items selected by opts: violations always, then
// skipped violations and uncovered dependencies when asked for.
func reported(res *result.Result, opts Options) []result.Item {
	categories := []result.Category{result.Violation}
	if opts.ReportSkipped {
		categories = append(categories, result.SkippedViolation)
	}
	if opts.ReportUncovered {
		categories = append(categories, result.Uncovered)
	}
	return res.Items(categories...)
}

// document writes data to opts.OutputPath when set, and to w otherwise.
func document(w io.Writer, data []byte, opts Options, label string) error {
	if opts.OutputPath == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(opts.OutputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", label, err)
	}
	_, err := fmt.Fprintf(w, "%s dumped to %s\n", label, opts.OutputPath)
	return err
}
