package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/datavex/intel-cli/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the stage result cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List cached companies with their stages and freshness",
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := cache.NewSQLite(cfg.Cache.Path, cfg.Cache.TTL())
		if err != nil {
			return err
		}
		defer ch.Close() //nolint:errcheck

		entries, err := ch.Summary(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

var cacheClearCompany string

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached stage results",
	Long: `Clears the entire cache, or a single company's entry with --company.
The next scan recomputes every cleared stage from scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := cache.NewSQLite(cfg.Cache.Path, cfg.Cache.TTL())
		if err != nil {
			return err
		}
		defer ch.Close() //nolint:errcheck

		if cacheClearCompany != "" {
			if err := ch.Invalidate(cmd.Context(), cacheClearCompany); err != nil {
				return err
			}
			fmt.Printf("cleared cache for %s\n", cacheClearCompany)
			return nil
		}
		if err := ch.InvalidateAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("cache cleared")
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheClearCompany, "company", "", "clear only this company key")
	cacheCmd.AddCommand(cacheStatusCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
