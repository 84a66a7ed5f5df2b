package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tscontext/tscontext-mcp/internal/indexer"
	"github.com/tscontext/tscontext-mcp/internal/parser"
	"github.com/tscontext/tscontext-mcp/internal/storage"
	"github.com/tscontext/tscontext-mcp/internal/watcher"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Specified path does not contain a TS/JS project
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Project not indexed
	ErrorCodeChunkNotFound      = -32004 // Chunk ID does not exist
)

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	includeTests := getBoolDefault(args, "include_tests", true)
	skipEmbeddings := getBoolDefault(args, "skip_embeddings", false)

	// Only one project-wide run at a time
	if !s.indexLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is in progress", nil)
	}
	defer s.indexLock.Release()

	config := &indexer.Config{
		IncludeTests:   includeTests,
		SkipEmbeddings: skipEmbeddings,
	}

	stats, err := s.indexer.IndexProject(ctx, path, config)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":          true,
		"files_indexed":    stats.FilesIndexed,
		"files_skipped":    stats.FilesSkipped,
		"files_failed":     stats.FilesFailed,
		"files_removed":    stats.FilesRemoved,
		"chunks_added":     stats.ChunksAdded,
		"chunks_modified":  stats.ChunksModified,
		"chunks_deleted":   stats.ChunksDeleted,
		"chunks_unchanged": stats.ChunksUnchanged,
		"chunks_embedded":  stats.ChunksEmbedded,
		"duration_ms":      stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReindexFile handles the reindex_file tool invocation
func (s *Server) handleReindexFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	file, ok := args["file"].(string)
	if !ok || file == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file parameter is required", map[string]interface{}{
			"param":  "file",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	absFile := filepath.Join(path, file)
	if !parser.Supported(absFile) {
		return nil, newMCPError(ErrorCodeInvalidParams, "unsupported file type", map[string]interface{}{
			"param": "file",
			"value": file,
		})
	}
	if _, err := os.Stat(absFile); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "file does not exist", map[string]interface{}{
			"param": "file",
			"value": file,
		})
	}

	summary, err := s.indexer.ReindexFile(ctx, path, file)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "reindex failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"file":              file,
		"added":             summary.Added,
		"modified":          summary.Modified,
		"deleted":           summary.Deleted,
		"unchanged":         summary.Unchanged,
		"needs_reembedding": summary.NeedsReembedding,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListChunks handles the list_chunks tool invocation
func (s *Server) handleListChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	file, ok := args["file"].(string)
	if !ok || file == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file parameter is required", map[string]interface{}{
			"param":  "file",
			"reason": "missing or empty",
		})
	}

	project, err := s.storage.GetProject(ctx, path)
	if err == storage.ErrNotFound {
		return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	fileRecord, err := s.storage.GetFile(ctx, project.ID, file)
	if err == storage.ErrNotFound {
		return nil, newMCPError(ErrorCodeNotIndexed, "file not indexed", map[string]interface{}{
			"file": file,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load file", map[string]interface{}{
			"error": err.Error(),
		})
	}

	chunks, err := s.storage.ListChunksByFile(ctx, fileRecord.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list chunks", map[string]interface{}{
			"error": err.Error(),
		})
	}

	chunkList := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		cc := c.ToCodeChunk(file)
		chunkList = append(chunkList, map[string]interface{}{
			"chunk_id":      cc.ID,
			"kind":          string(cc.Kind),
			"name":          cc.Name,
			"scope_path":    cc.ScopePath,
			"nesting_level": cc.NestingLevel,
			"start_line":    cc.StartLine,
			"end_line":      cc.EndLine,
			"is_exported":   cc.Metadata.IsExported,
			"is_async":      cc.Metadata.IsAsync,
			"signature":     cc.Metadata.Signature,
		})
	}

	response := map[string]interface{}{
		"file":           file,
		"extract_status": fileRecord.ExtractStatus,
		"chunk_count":    len(chunkList),
		"chunks":         chunkList,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetChunk handles the get_chunk tool invocation
func (s *Server) handleGetChunk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	chunkID, ok := args["chunk_id"].(string)
	if !ok || chunkID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "chunk_id parameter is required", map[string]interface{}{
			"param":  "chunk_id",
			"reason": "missing or empty",
		})
	}

	chunk, err := s.storage.GetChunk(ctx, chunkID)
	if err == storage.ErrNotFound {
		return nil, newMCPError(ErrorCodeChunkNotFound, "chunk not found", map[string]interface{}{
			"chunk_id": chunkID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load chunk", map[string]interface{}{
			"error": err.Error(),
		})
	}

	filePath := ""
	if fileRecord, err := s.storage.GetFileByID(ctx, chunk.FileID); err == nil {
		filePath = fileRecord.FilePath
	}

	cc := chunk.ToCodeChunk(filePath)
	hasEmbedding := false
	if _, err := s.storage.GetEmbedding(ctx, chunkID); err == nil {
		hasEmbedding = true
	}

	response := map[string]interface{}{
		"chunk_id":           cc.ID,
		"file":               filePath,
		"kind":               string(cc.Kind),
		"name":               cc.Name,
		"scope_path":         cc.ScopePath,
		"nesting_level":      cc.NestingLevel,
		"parent_chunk_id":    cc.ParentChunkID,
		"start_line":         cc.StartLine,
		"end_line":           cc.EndLine,
		"content_start_line": cc.ContentStartLine,
		"content_end_line":   cc.ContentEndLine,
		"code":               cc.Code,
		"is_exported":        cc.Metadata.IsExported,
		"is_async":           cc.Metadata.IsAsync,
		"parameters":         cc.Metadata.Parameters,
		"signature":          cc.Metadata.Signature,
		"doc_comment":        cc.Metadata.DocComment,
		"has_embedding":      hasEmbedding,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleWatchProject handles the watch_project tool invocation
func (s *Server) handleWatchProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	enabled := getBoolDefault(args, "enabled", true)

	if !enabled {
		stopped := s.stopWatcher(path)
		response := map[string]interface{}{
			"path":     path,
			"watching": false,
			"stopped":  stopped,
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	if err := s.startWatcher(path); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start watcher", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"path":     path,
		"watching": true,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// startWatcher starts a watcher for a project root if one isn't running
func (s *Server) startWatcher(root string) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if _, ok := s.watchers[root]; ok {
		return nil
	}

	onIndex := func(path string) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return
		}
		if _, err := s.indexer.ReindexFile(context.Background(), root, rel); err != nil {
			log.Printf("watch reindex %s: %v", rel, err)
		}
	}
	onRemove := func(path string) {
		if err := s.indexer.RemoveFile(context.Background(), root, path); err != nil {
			log.Printf("watch remove %s: %v", path, err)
		}
	}

	w := watcher.New(root, parser.Extensions(), onIndex, onRemove)
	if err := w.Start(context.Background()); err != nil {
		return err
	}
	s.watchers[root] = w
	return nil
}

// stopWatcher stops the watcher for a root, reporting whether one was running
func (s *Server) stopWatcher(root string) bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	w, ok := s.watchers[root]
	if !ok {
		return false
	}
	w.Stop()
	delete(s.watchers, root)
	return true
}

// handleStatus handles the status tool invocation
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	project, err := s.storage.GetProject(ctx, path)
	if err == storage.ErrNotFound {
		response := map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Project not indexed. Use index_project tool to index this project.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get project status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, project.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.watchMu.Lock()
	_, watching := s.watchers[path]
	s.watchMu.Unlock()

	response := map[string]interface{}{
		"indexed": true,
		"project": map[string]interface{}{
			"path":            project.RootPath,
			"name":            project.Name,
			"last_indexed_at": project.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
		"statistics": map[string]interface{}{
			"files_count":      status.FilesCount,
			"chunks_count":     status.ChunksCount,
			"embeddings_count": status.EmbeddingsCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
		},
		"watching": watching,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

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

// validatePath checks if a path is an accessible TS/JS project directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

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

	// Check for at least one TS/JS source file
	hasSourceFiles := false
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == "node_modules" && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.Supported(p) {
			hasSourceFiles = true
		}
		return nil
	})

	if !hasSourceFiles {
		return ErrNoSourceFiles
	}

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

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNoSourceFiles   = errors.New("directory does not contain TypeScript or JavaScript files")
)
