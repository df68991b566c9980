package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abramin/strata/internal/index"
	"github.com/abramin/strata/internal/pipeline"
	"github.com/abramin/strata/internal/server"
)

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis report over HTTP",
	Long: `Run the analysis and expose the report as JSON:

  GET /api/health          server status
  GET /api/report          classified dependencies (?category=violation...)
  GET /api/layers          layers with their token counts
  GET /api/layers/{name}   tokens of one layer
  GET /api/stats           run statistics

With --watch the report is refreshed whenever a source file changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner(false)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Config{Port: servePort, Logger: slog.Default()})
		publish := func(run *pipeline.Run, err error) {
			if err != nil {
				slog.Error("analyse.failed", "error", err)
				return
			}
			srv.SetRun(run, runner.LayerNames())
		}

		if serveWatch {
			go func() {
				if err := runner.Watch(ctx, index.DefaultDebounce, publish); err != nil {
					slog.Error("watch.failed", "error", err)
				}
			}()
		} else {
			run, err := runner.Run(ctx)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			publish(run, nil)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Serving report on http://localhost:%d\n", servePort)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to run the server on")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "re-run the analysis on source changes")
}
