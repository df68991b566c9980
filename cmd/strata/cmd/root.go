package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abramin/strata/internal/config"
	"github.com/abramin/strata/internal/pipeline"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "strata - Enforce architectural layers in Go codebases",
	Long: `strata extracts the types, functions and files of a Go source tree,
assigns them to the layers declared in strata.yaml and reports every
dependency that crosses layers against the configured ruleset.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func GetConfig() *config.Config {
	return cfg
}

// baseDir is the directory relative configuration paths are resolved
// against: the config file's directory, or the working directory.
func baseDir() string {
	if cfgFile == "" {
		return "."
	}
	return filepath.Dir(cfgFile)
}

func newRunner(noCache bool) (*pipeline.Runner, error) {
	return pipeline.New(GetConfig(), pipeline.Options{
		BaseDir: baseDir(),
		NoCache: noCache,
		Logger:  slog.Default(),
	})
}
