package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knagel/codesage/internal/coordinator"
)

var indexCmd = &cobra.Command{
	Use:   "index <folder>...",
	Short: "Rebuild the index for the given source folders from scratch",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folders, err := absFolders(args)
		if err != nil {
			return err
		}

		coord, err := newCoordinator()
		if err != nil {
			return err
		}
		coord.OnProgress(func(p coordinator.Progress) {
			fmt.Printf("\r[%3.0f%%] %-60.60s", p.Fraction*100, p.Status)
		})

		fmt.Printf("Indexing %d folder(s)...\n", len(folders))
		stats, err := coord.RebuildIndex(cmd.Context(), folders)
		if err != nil {
			return err
		}
		printStats(stats)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <folder>...",
	Short: "Incrementally update the index: changed files reprocessed, deleted files removed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folders, err := absFolders(args)
		if err != nil {
			return err
		}

		coord, err := newCoordinator()
		if err != nil {
			return err
		}
		coord.OnProgress(func(p coordinator.Progress) {
			fmt.Printf("\r[%3.0f%%] %-60.60s", p.Fraction*100, p.Status)
		})

		fmt.Printf("Updating index for %d folder(s)...\n", len(folders))
		stats, err := coord.IncrementalUpdate(cmd.Context(), folders)
		if err != nil {
			return err
		}
		printStats(stats)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all indexed data, in memory and on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := newCoordinator()
		if err != nil {
			return err
		}
		if err := coord.ClearIndex(); err != nil {
			return err
		}
		fmt.Println("Index cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(clearCmd)
}
