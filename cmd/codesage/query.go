package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knagel/codesage/internal/coordinator"
	"github.com/knagel/codesage/internal/llm"
	"github.com/knagel/codesage/internal/rag"
)

var (
	flagQueryK int
	flagAskK   int
)

var queryCmd = &cobra.Command{
	Use:   "query <text>...",
	Short: "Search the index with a natural language or keyword query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := newCoordinator()
		if err != nil {
			return err
		}
		if coord.State() != coordinator.StateReady {
			return fmt.Errorf("index not ready (state %s); run 'codesage index <folder>' first", coord.State())
		}

		text := strings.Join(args, " ")
		results := coord.Query(cmd.Context(), text, flagQueryK)
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		for i, res := range results {
			fmt.Printf("%d. %s (%s) %s:%d-%d [%.3f]\n",
				i+1, res.Unit.Name, res.Unit.Kind,
				res.Unit.FilePath, res.Unit.StartLine, res.Unit.EndLine, res.Score)
			if res.Unit.Summary != "" {
				fmt.Printf("   %s\n", res.Unit.Summary)
			}
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>...",
	Short: "Ask a question about the indexed code, answered from retrieved excerpts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := newCoordinator()
		if err != nil {
			return err
		}
		if coord.State() != coordinator.StateReady {
			return fmt.Errorf("index not ready (state %s); run 'codesage index <folder>' first", coord.State())
		}

		inference := llm.NewOllamaChat(flagOllama, flagChatModel)
		orch := rag.New(rag.Config{TopK: flagAskK}, coord.Searcher(), inference)

		question := strings.Join(args, " ")
		_, err = orch.Ask(cmd.Context(), question, func(chunk string) {
			fmt.Print(chunk)
		})
		fmt.Println()
		return err
	},
}

func init() {
	queryCmd.Flags().IntVar(&flagQueryK, "k", 10, "number of results to return")
	askCmd.Flags().IntVar(&flagAskK, "k", rag.DefaultTopK, "number of code excerpts to retrieve")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(askCmd)
}
