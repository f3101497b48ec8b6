package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the page content cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initBase(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		s := env.Cache.Stats(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Entries:  %d (%d valid, %d expired)\n", s.TotalEntries, s.ValidEntries, s.ExpiredEntries)
		fmt.Fprintf(out, "Size:     %.2f MB (%d bytes)\n", s.TotalSizeMB, s.TotalSize)
		fmt.Fprintf(out, "Ceiling:  %d MB\n", cfg.Cache.MaxMB)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached page",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initBase(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		env.Cache.Clear(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
		return nil
	},
}

var cacheClearExpiredCmd = &cobra.Command{
	Use:   "clear-expired",
	Short: "Remove expired cached pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initBase(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n := env.Swept + env.Cache.ClearExpired(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheClearExpiredCmd)
	rootCmd.AddCommand(cacheCmd)
}
