package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abramin/strata/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the file-fact cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the file-fact cache holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, ok, err := openCache()
		if err != nil || !ok {
			return err
		}
		defer st.Close()

		stats, err := st.GetStats()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cache: %s\n", stats.DBPath)
		fmt.Fprintf(out, "  Files:   %d\n", stats.EntryCount)
		if !stats.WrittenAt.IsZero() {
			fmt.Fprintf(out, "  Written: %s\n", stats.WrittenAt.Local().Format(time.DateTime))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached file fact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, ok, err := openCache()
		if err != nil || !ok {
			return err
		}
		defer st.Close()

		if err := st.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", st.DBPath())
		return nil
	},
}

// openCache opens the configured cache database. ok is false when no
// cache has been written yet.
func openCache() (*store.Store, bool, error) {
	path := GetConfig().CachePath(baseDir())
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Printf("No cache at %s\n", path)
		return nil, false, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("opening cache: %w", err)
	}
	return st, true, nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
