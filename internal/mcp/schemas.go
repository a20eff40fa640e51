package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexWorkspaceTool returns the tool definition for index_workspace
func indexWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_workspace",
		Description: "Rebuild the semantic code index for the given workspace folders from scratch",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"folders": map[string]interface{}{
					"type":        "array",
					"description": "Absolute paths of source folders to index",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"folders"},
		},
	}
}

// updateIndexTool returns the tool definition for update_index
func updateIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_index",
		Description: "Incrementally update the index: reprocess changed files, remove deleted ones",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"folders": map[string]interface{}{
					"type":        "array",
					"description": "Absolute paths of source folders to rescan",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"folders"},
		},
	}
}

// queryCodeTool returns the tool definition for query_code
func queryCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_code",
		Description: "Search the indexed codebase with a natural language or keyword query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-50)",
					"default":     10,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"query"},
		},
	}
}

// askCodeTool returns the tool definition for ask_code
func askCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask_code",
		Description: "Ask a question about the indexed codebase and get an answer grounded in retrieved code",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question about the code",
				},
			},
			Required: []string{"question"},
		},
	}
}

// indexStatusTool returns the tool definition for index_status
func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Report the index state and size statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// clearIndexTool returns the tool definition for clear_index
func clearIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_index",
		Description: "Remove all indexed data, in memory and on disk",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
