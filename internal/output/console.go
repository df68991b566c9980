package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/abramin/strata/internal/result"
)

// Console renders a human readable report.
type Console struct{}

func (Console) Name() string { return "console" }

func (Console) Format(w io.Writer, res *result.Result, opts Options) error {
	for _, item := range reported(res, opts) {
		prefix := ""
		switch item.Category {
		case result.SkippedViolation:
			prefix = "[SKIPPED] "
		case result.Uncovered:
			prefix = "[UNCOVERED] "
		}
		fmt.Fprintf(w, "%s%s\n", prefix, Message(item))
		fmt.Fprintf(w, "  %s:%d\n", item.File, item.Line)
		for _, step := range item.Path {
			fmt.Fprintf(w, "    -> %s::%d\n", step.Token, step.Line)
		}
	}

	for _, msg := range res.Warnings() {
		fmt.Fprintf(w, "[WARNING] %s\n", msg)
	}
	for _, msg := range res.Errors() {
		fmt.Fprintf(w, "[ERROR] %s\n", msg)
	}

	c := res.Counts()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Report")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Violations\t%d\n", c.Violations)
	fmt.Fprintf(tw, "Skipped violations\t%d\n", c.SkippedViolations)
	fmt.Fprintf(tw, "Uncovered\t%d\n", c.Uncovered)
	fmt.Fprintf(tw, "Allowed\t%d\n", c.Allowed)
	fmt.Fprintf(tw, "Warnings\t%d\n", c.Warnings)
	fmt.Fprintf(tw, "Errors\t%d\n", c.Errors)
	return tw.Flush()
}
