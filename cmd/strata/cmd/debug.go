package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/pipeline"
)

var tokenKind string

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Inspect how tokens are assigned to layers",
}

var debugLayerCmd = &cobra.Command{
	Use:   "layer <name>",
	Short: "List the tokens collected into a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := indexOnly(cmd)
		if err != nil {
			return err
		}
		for _, tok := range run.Analyser.TokensInLayer(run.Map, args[0]) {
			fmt.Fprintln(cmd.OutOrStdout(), tok)
		}
		return nil
	},
}

var debugTokenCmd = &cobra.Command{
	Use:   "token <name>",
	Short: "Show the layers a token belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := indexOnly(cmd)
		if err != nil {
			return err
		}
		layers, err := run.Analyser.LayersForToken(run.Map, ast.TokenKind(tokenKind), args[0])
		if err != nil {
			return err
		}
		if len(layers) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is not in any layer\n", args[0])
			return nil
		}
		for _, l := range layers {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
		return nil
	},
}

var debugUnassignedCmd = &cobra.Command{
	Use:   "unassigned",
	Short: "List the tokens that belong to no layer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := indexOnly(cmd)
		if err != nil {
			return err
		}
		for _, tok := range run.Analyser.UnassignedTokens(run.Map) {
			fmt.Fprintln(cmd.OutOrStdout(), tok)
		}
		return nil
	},
}

func indexOnly(cmd *cobra.Command) (*pipeline.Run, error) {
	runner, err := newRunner(false)
	if err != nil {
		return nil, err
	}
	run, err := runner.Index(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("indexing failed: %w", err)
	}
	return run, nil
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugLayerCmd, debugTokenCmd, debugUnassignedCmd)
	debugTokenCmd.Flags().StringVarP(&tokenKind, "kind", "k", string(ast.TokenKindClassLike), "token kind (classLike, function, file)")
}
