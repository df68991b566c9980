package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/abramin/strata/internal/result"
)

// GitHubActions renders workflow commands that annotate the offending lines
// of a pull request.
type GitHubActions struct{}

func (GitHubActions) Name() string { return "github-actions" }

func (GitHubActions) Format(w io.Writer, res *result.Result, opts Options) error {
	for _, item := range reported(res, opts) {
		level := "error"
		msg := Message(item)
		switch item.Category {
		case result.SkippedViolation:
			level = "warning"
			msg = "[SKIPPED] " + msg
		case result.Uncovered:
			if !opts.FailOnUncovered {
				level = "warning"
			}
		}
		fmt.Fprintf(w, "::%s file=%s,line=%d::%s%s\n", level, item.File, item.Line, msg, inheritPath(item.Path))
	}
	for _, msg := range res.Warnings() {
		fmt.Fprintf(w, "::warning ::%s\n", msg)
	}
	for _, msg := range res.Errors() {
		fmt.Fprintf(w, "::error ::%s\n", msg)
	}
	return nil
}

// inheritPath renders path as continuation lines of an annotation.
func inheritPath(path []result.Step) string {
	if len(path) == 0 {
		return ""
	}
	steps := make([]string, len(path))
	for i, s := range path {
		steps[i] = fmt.Sprintf("%s::%d", s.Token, s.Line)
	}
	return "%0A" + strings.Join(steps, " ->%0A")
}
