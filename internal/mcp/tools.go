package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/knagel/codesage/internal/coordinator"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleIndexWorkspace handles the index_workspace tool invocation
func (s *Server) handleIndexWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, mcpErr := extractFolders(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	stats, err := s.coordinator.RebuildIndex(ctx, folders)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if stats == nil {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is already running", nil)
	}

	return mcp.NewToolResultText(formatJSON(statsResponse(stats))), nil
}

// handleUpdateIndex handles the update_index tool invocation
func (s *Server) handleUpdateIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, mcpErr := extractFolders(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	stats, err := s.coordinator.IncrementalUpdate(ctx, folders)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "update failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if stats == nil {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is already running", nil)
	}

	return mcp.NewToolResultText(formatJSON(statsResponse(stats))), nil
}

// handleQueryCode handles the query_code tool invocation
func (s *Server) handleQueryCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	queryText, ok := args["query"].(string)
	if !ok || queryText == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 50", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	results := s.coordinator.Query(ctx, queryText, limit)

	items := make([]map[string]interface{}, 0, len(results))
	for _, res := range results {
		items = append(items, map[string]interface{}{
			"name":       res.Unit.Name,
			"kind":       string(res.Unit.Kind),
			"file":       res.Unit.FilePath,
			"start_line": res.Unit.StartLine,
			"end_line":   res.Unit.EndLine,
			"score":      fmt.Sprintf("%.3f", res.Score),
			"summary":    res.Unit.Summary,
		})
	}

	response := map[string]interface{}{
		"state":   s.coordinator.State().String(),
		"count":   len(items),
		"results": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAskCode handles the ask_code tool invocation
func (s *Server) handleAskCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, ok := args["question"].(string)
	if !ok || question == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	if s.coordinator.State() != coordinator.StateReady {
		return mcp.NewToolResultText("The index is not ready. Run index_workspace first."), nil
	}

	answer, err := s.orchestrator.Ask(ctx, question, nil)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "answer generation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(answer), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"state": s.coordinator.State().String(),
		"statistics": map[string]interface{}{
			"units_indexed": s.coordinator.UnitCount(),
			"files_tracked": s.coordinator.FileCount(),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearIndex handles the clear_index tool invocation
func (s *Server) handleClearIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.coordinator.ClearIndex(); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to clear index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"cleared": true,
		"state":   s.coordinator.State().String(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// extractFolders pulls and validates the folders argument shared by the
// indexing tools.
func extractFolders(request mcp.CallToolRequest) ([]string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, ok := args["folders"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "folders parameter is required", map[string]interface{}{
			"param":  "folders",
			"reason": "missing or empty",
		})
	}

	folders := make([]string, 0, len(raw))
	for _, v := range raw {
		folder, ok := v.(string)
		if !ok || folder == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "folders must be non-empty strings", map[string]interface{}{
				"param": "folders",
			})
		}
		if err := validateFolder(folder); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid folder", map[string]interface{}{
				"param":  "folders",
				"value":  folder,
				"reason": err.Error(),
			})
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

// statsResponse formats pass statistics for tool output.
func statsResponse(stats *coordinator.Statistics) map[string]interface{} {
	response := map[string]interface{}{
		"indexed":       true,
		"files_scanned": stats.FilesScanned,
		"files_indexed": stats.FilesIndexed,
		"files_skipped": stats.FilesSkipped,
		"files_failed":  stats.FilesFailed,
		"files_removed": stats.FilesRemoved,
		"units_indexed": stats.UnitsIndexed,
		"duration_ms":   stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return response
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateFolder checks if a folder exists and is an accessible directory
func validateFolder(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
