package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/marco-c/pdf-finder/internal/cache"
	"github.com/marco-c/pdf-finder/internal/discover"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the sidecar cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <pdf>",
	Short: "Print the cached feature record for one document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var store cache.Store
		rec, err := store.Load(args[0])
		if errors.Is(err, cache.ErrMiss) {
			return fmt.Errorf("no cache entry for %s (looked at %s)", args[0], cache.SidecarPath(args[0]))
		}
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <roots...>",
	Short: "Delete all sidecar cache entries under the given roots",
	Long: `Delete every ___TYPES___.json sidecar under the given corpus roots.

Normally unnecessary: entries from an older schema version are ignored and
rewritten automatically. Clearing is for reclaiming space or forcing a full
re-scan.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := discover.Find(args)
		if err != nil {
			return err
		}

		var store cache.Store
		removed := 0
		for _, path := range paths {
			if _, err := os.Stat(cache.SidecarPath(path)); err != nil {
				continue
			}
			if err := store.Remove(path); err != nil {
				return err
			}
			removed++
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s removed %d cache entries\n", green("✓"), removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
