package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/knagel/codesage/internal/coordinator"
	"github.com/knagel/codesage/internal/embedder"
	"github.com/knagel/codesage/internal/llm"
	"github.com/knagel/codesage/internal/rag"
	"github.com/knagel/codesage/internal/scanner"
)

const (
	// ServerName is the MCP server name
	ServerName = "codesage"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDataDir is the default location for persisted index files
	DefaultDataDir = "~/.codesage"

	storeFileName = "vectors.bin"
	cacheFileName = "index.json"
)

// Config carries server construction options.
type Config struct {
	DataDir     string // Index files location (default: ~/.codesage)
	ChatModel   string // Ollama model for ask_code; empty disables generation
	OllamaURL   string // Ollama base URL for ask_code
	MaxFiles    int    // Scanner file cap (default: scanner.DefaultMaxFiles)
	ChunkTokens int    // Chunk token budget (default: chunker default)
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp          *server.MCPServer
	coordinator  *coordinator.Coordinator
	orchestrator *rag.Orchestrator
}

// NewServer creates a new MCP server instance
func NewServer(cfg Config) (*Server, error) {
	dataDir, err := resolveDataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	coord := coordinator.New(coordinator.Config{
		Scanner: scanner.Config{
			MaxFiles:     cfg.MaxFiles,
			UseGitignore: true,
		},
		MaxChunkTokens: cfg.ChunkTokens,
		StorePath:      filepath.Join(dataDir, storeFileName),
		CachePath:      filepath.Join(dataDir, cacheFileName),
	}, emb)

	var inference llm.Inference
	if cfg.ChatModel != "" {
		inference = llm.NewOllamaChat(cfg.OllamaURL, cfg.ChatModel)
	}
	orch := rag.New(rag.Config{}, coord.Searcher(), inference)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:          mcpServer,
		coordinator:  coord,
		orchestrator: orch,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexWorkspaceTool(), s.handleIndexWorkspace)
	s.mcp.AddTool(updateIndexTool(), s.handleUpdateIndex)
	s.mcp.AddTool(queryCodeTool(), s.handleQueryCode)
	s.mcp.AddTool(askCodeTool(), s.handleAskCode)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
	s.mcp.AddTool(clearIndexTool(), s.handleClearIndex)
}

// resolveDataDir expands the default home-relative data directory.
func resolveDataDir(dir string) (string, error) {
	if dir == "" || dir == DefaultDataDir {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, ".codesage"), nil
	}
	return dir, nil
}
