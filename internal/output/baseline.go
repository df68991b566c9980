package output

import (
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/abramin/strata/internal/result"
)

// Baseline renders the current violations as a skip_violations document
// that can be included in the configuration to accept them.
type Baseline struct{}

func (Baseline) Name() string { return "baseline" }

type baselineDoc struct {
	SkipViolations map[string][]string `yaml:"skip_violations"`
}

func (Baseline) Format(w io.Writer, res *result.Result, opts Options) error {
	doc := baselineDoc{SkipViolations: map[string][]string{}}
	for _, item := range res.Items(result.Violation, result.SkippedViolation) {
		dependents := doc.SkipViolations[item.Depender]
		if !slices.Contains(dependents, item.Dependent) {
			doc.SkipViolations[item.Depender] = append(dependents, item.Dependent)
		}
	}
	for _, dependents := range doc.SkipViolations {
		slices.Sort(dependents)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	return document(w, data, opts, "Baseline")
}
