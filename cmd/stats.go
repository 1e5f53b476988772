package cmd

import (
	"fmt"

	"github.com/meysamhadeli/codecompanion/constants/lipgloss"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [dir]",
	Short: "Print file counts and sizes per language for a folder.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd, rootOptions{disableStore: true})
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		if err := scanWithSpinner(cmd, rootDependencies, rootDependencies.projectRoot(args)); err != nil {
			return err
		}
		printStats(rootDependencies)
		return nil
	},
}

func printStats(rootDependencies *RootDependencies) {
	stats := rootDependencies.Companion.Stats()

	fmt.Println(lipgloss.Info.Render("Project Statistics:"))
	printProjectStats(stats.Project)

	fmt.Println(lipgloss.Info.Render("Cache Statistics:"))
	fmt.Printf("  Entries: %d / %d (%s)\n", stats.Cache.Entries, stats.Cache.Capacity, stats.Cache.Policy)
	fmt.Printf("  Hits: %d  Misses: %d  Evictions: %d\n", stats.Cache.CacheHits, stats.Cache.CacheMisses, stats.Cache.Evictions)
	fmt.Printf("  Hit Rate: %.1f%%\n", stats.Cache.HitRate)

	fmt.Println(lipgloss.Info.Render("Session:"))
	fmt.Printf("  ID: %s\n", stats.SessionID)
	fmt.Printf("  Turns in history: %d\n", stats.HistoryTurns)
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
