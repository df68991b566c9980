package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abramin/strata/internal/index"
	"github.com/abramin/strata/internal/output"
	"github.com/abramin/strata/internal/pipeline"
)

var (
	formatterName string
	formatOpts    output.Options
	noCache       bool
	watch         bool
)

var analyseCmd = &cobra.Command{
	Use:     "analyse",
	Aliases: []string{"analyze"},
	Short:   "Check the dependencies of a project against its layers",
	Long: `Analyse the configured paths and classify every dependency between
layered tokens as allowed, violation, skipped violation or uncovered.

The command exits with a non-zero status when violations or errors are
found, or when uncovered dependencies exist and --fail-on-uncovered is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := output.Get(formatterName)
		if err != nil {
			return err
		}
		runner, err := newRunner(noCache)
		if err != nil {
			return err
		}

		if watch {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runner.Watch(ctx, index.DefaultDebounce, func(run *pipeline.Run, err error) {
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "analysis failed: %v\n", err)
					return
				}
				if err := formatter.Format(cmd.OutOrStdout(), run.Result, formatOpts); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "rendering failed: %v\n", err)
				}
			})
		}

		return analyse(cmd.Context(), runner, formatter, cmd.OutOrStdout())
	},
}

func analyse(ctx context.Context, runner *pipeline.Runner, formatter output.Formatter, w io.Writer) error {
	run, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if err := formatter.Format(w, run.Result, formatOpts); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if output.Failed(run.Result, formatOpts) {
		c := run.Result.Counts()
		return fmt.Errorf("found %d violations, %d errors and %d uncovered dependencies", c.Violations, c.Errors, c.Uncovered)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyseCmd)
	f := analyseCmd.Flags()
	f.StringVarP(&formatterName, "formatter", "f", "console", fmt.Sprintf("output format %v", output.Names()))
	f.StringVarP(&formatOpts.OutputPath, "output", "o", "", "write the report to this file (json, baseline)")
	f.BoolVar(&formatOpts.ReportSkipped, "report-skipped", false, "report skipped violations")
	f.BoolVar(&formatOpts.ReportUncovered, "report-uncovered", false, "report uncovered dependencies")
	f.BoolVar(&formatOpts.FailOnUncovered, "fail-on-uncovered", false, "fail when uncovered dependencies exist")
	f.BoolVar(&noCache, "no-cache", false, "ignore the file-fact cache")
	f.BoolVarP(&watch, "watch", "w", false, "re-run the analysis whenever a source file changes")
}
