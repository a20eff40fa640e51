package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/knagel/codesage/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the index over the Model Context Protocol on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := dataDir()
		if err != nil {
			return err
		}

		server, err := mcp.NewServer(mcp.Config{
			DataDir:   dir,
			ChatModel: flagChatModel,
			OllamaURL: flagOllama,
			MaxFiles:  flagMaxFiles,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			slog.Info("MCP server ready, listening on stdio", "version", version)
			errChan <- server.Serve(ctx)
		}()

		select {
		case sig := <-sigChan:
			slog.Info("shutting down", "signal", sig.String())
			cancel()
			return nil
		case err := <-errChan:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
