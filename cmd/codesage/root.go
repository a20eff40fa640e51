package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/knagel/codesage/internal/coordinator"
	"github.com/knagel/codesage/internal/embedder"
	"github.com/knagel/codesage/internal/llm"
	"github.com/knagel/codesage/internal/scanner"
)

var (
	flagDataDir   string
	flagOllama    string
	flagChatModel string
	flagMaxFiles  int
	flagWorkers   int
)

var rootCmd = &cobra.Command{
	Use:   "codesage",
	Short: "Local semantic code index and retrieval for C# projects",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Stdout carries command output (and the MCP protocol); all
		// logging goes to stderr.
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})))
	},
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "index files location (default ~/.codesage)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", llm.DefaultBaseURL, "ollama base URL")
	rootCmd.PersistentFlags().StringVar(&flagChatModel, "chat-model", "qwen3:8b", "generative model for ask")
	rootCmd.PersistentFlags().IntVar(&flagMaxFiles, "max-files", scanner.DefaultMaxFiles, "maximum files per indexing pass")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", runtime.NumCPU(), "parallel embedding workers")
}

// dataDir resolves the index files location, defaulting to ~/.codesage.
func dataDir() (string, error) {
	if flagDataDir != "" {
		return flagDataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codesage"), nil
}

// newCoordinator builds a coordinator over the resolved data directory,
// loading any previously persisted index.
func newCoordinator() (*coordinator.Coordinator, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	return coordinator.New(coordinator.Config{
		Scanner: scanner.Config{
			MaxFiles:     flagMaxFiles,
			UseGitignore: true,
		},
		Workers:   flagWorkers,
		StorePath: filepath.Join(dir, "vectors.bin"),
		CachePath: filepath.Join(dir, "index.json"),
	}, emb), nil
}

// absFolders converts positional folder arguments to absolute paths.
func absFolders(args []string) ([]string, error) {
	folders := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", a, err)
		}
		folders = append(folders, abs)
	}
	return folders, nil
}

// printStats renders pass statistics for terminal output.
func printStats(stats *coordinator.Statistics) {
	if stats == nil {
		fmt.Println("Another indexing operation is already running.")
		return
	}
	fmt.Printf("\nDone in %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Printf("  Files:  %d scanned, %d indexed, %d skipped, %d failed, %d removed\n",
		stats.FilesScanned, stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed, stats.FilesRemoved)
	fmt.Printf("  Units:  %d\n", stats.UnitsIndexed)
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(os.Stderr, "  error: %s\n", msg)
	}
}
