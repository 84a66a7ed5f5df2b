package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Index a TypeScript/JavaScript project into semantic code chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to project root (must contain .ts/.tsx/.js files)",
				},
				"include_tests": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index *.test.* and *.spec.* files",
					"default":     true,
				},
				"skip_embeddings": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, extract and diff chunks without generating embeddings",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// reindexFileTool returns the tool definition for reindex_file
func reindexFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex_file",
		Description: "Re-index a single file and report which chunks were added, modified, deleted or unchanged",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to indexed project root",
				},
				"file": map[string]interface{}{
					"type":        "string",
					"description": "File path relative to the project root",
				},
			},
			Required: []string{"path", "file"},
		},
	}
}

// listChunksTool returns the tool definition for list_chunks
func listChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_chunks",
		Description: "List the chunks extracted from an indexed file, in document order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to indexed project root",
				},
				"file": map[string]interface{}{
					"type":        "string",
					"description": "File path relative to the project root",
				},
			},
			Required: []string{"path", "file"},
		},
	}
}

// getChunkTool returns the tool definition for get_chunk
func getChunkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_chunk",
		Description: "Fetch a single chunk by ID, including its source text and metadata",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"chunk_id": map[string]interface{}{
					"type":        "string",
					"description": "Chunk UUID as returned by list_chunks or reindex_file",
				},
			},
			Required: []string{"chunk_id"},
		},
	}
}

// watchProjectTool returns the tool definition for watch_project
func watchProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "watch_project",
		Description: "Start or stop watching a project for file changes with automatic incremental reindexing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to indexed project root",
				},
				"enabled": map[string]interface{}{
					"type":        "boolean",
					"description": "true to start watching, false to stop",
					"default":     true,
				},
			},
			Required: []string{"path"},
		},
	}
}

// statusTool returns the tool definition for status
func statusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "status",
		Description: "Query indexing status and statistics for a TypeScript/JavaScript project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to project root",
				},
			},
			Required: []string{"path"},
		},
	}
}
