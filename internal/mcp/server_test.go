package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mathSource = `/**
 * Adds two numbers together.
 */
export function add(a: number, b: number): number {
  const sum = a + b;
  if (!Number.isFinite(sum)) {
    throw new RangeError("sum overflow");
  }
  return sum;
}

/**
 * Multiplies two numbers.
 */
export function multiply(a: number, b: number): number {
  const product = a * b;
  if (!Number.isFinite(product)) {
    throw new RangeError("product overflow");
  }
  return product;
}
`

// newTestServer creates a server with a temp database and a sample project
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	t.Setenv("TSCONTEXT_EMBEDDING_PROVIDER", "local")

	server, err := NewServer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { server.shutdown() })

	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "package.json", `{"name": "sample-app", "version": "1.0.0"}`)
	writeProjectFile(t, projectDir, "src/math.ts", mathSource)

	return server, projectDir
}

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// toolRequest builds a CallToolRequest for direct handler invocation
func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultJSON decodes the text content of a tool result into a map
func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

func TestNewServer(t *testing.T) {
	t.Setenv("TSCONTEXT_EMBEDDING_PROVIDER", "local")

	server, err := NewServer(t.TempDir())
	require.NoError(t, err)
	defer server.shutdown()

	assert.NotNil(t, server.mcp)
	assert.NotNil(t, server.storage)
	assert.NotNil(t, server.indexer)
	assert.NotNil(t, server.watchers)
}

func TestHandleIndexProject(t *testing.T) {
	server, projectDir := newTestServer(t)
	ctx := context.Background()

	result, err := server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{
		"path": projectDir,
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, true, response["indexed"])
	assert.Equal(t, float64(1), response["files_indexed"])
	assert.Equal(t, float64(2), response["chunks_added"])
	assert.Equal(t, response["chunks_added"], response["chunks_embedded"])

	// Second run over an unchanged tree skips everything
	result, err = server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{
		"path": projectDir,
	}))
	require.NoError(t, err)

	response = resultJSON(t, result)
	assert.Equal(t, float64(0), response["files_indexed"])
	assert.Equal(t, float64(1), response["files_skipped"])
}

func TestHandleIndexProject_InvalidParams(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{
		"path": "relative/path",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{
		"path": "/nonexistent/project/root",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleIndexProject_LockHeld(t *testing.T) {
	server, projectDir := newTestServer(t)
	ctx := context.Background()

	require.True(t, server.indexLock.TryAcquire())
	defer server.indexLock.Release()

	_, err := server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{
		"path": projectDir,
	}))
	requireMCPError(t, err, ErrorCodeIndexingInProgress)
}

func TestHandleReindexFile(t *testing.T) {
	server, projectDir := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{
		"path": projectDir,
	}))
	require.NoError(t, err)

	// Unchanged file reports an all-zero summary
	result, err := server.handleReindexFile(ctx, toolRequest("reindex_file", map[string]interface{}{
		"path": projectDir,
		"file": "src/math.ts",
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, float64(0), response["added"])
	assert.Equal(t, float64(0), response["modified"])
	assert.Equal(t, float64(0), response["needs_reembedding"])

	// Change one function body, leave the other alone
	modified := `/**
 * Adds two numbers together.
 */
export function add(a: number, b: number): number {
  const sum = a + b;
  if (!Number.isFinite(sum)) {
    throw new RangeError("sum overflow");
  }
  return sum;
}

/**
 * Multiplies two numbers.
 */
export function multiply(a: number, b: number): number {
  const product = a * b;
  if (!Number.isFinite(product)) {
    throw new RangeError("multiply overflow");
  }
  return product;
}
`
	writeProjectFile(t, projectDir, "src/math.ts", modified)

	result, err = server.handleReindexFile(ctx, toolRequest("reindex_file", map[string]interface{}{
		"path": projectDir,
		"file": "src/math.ts",
	}))
	require.NoError(t, err)

	response = resultJSON(t, result)
	assert.Equal(t, float64(1), response["modified"])
	assert.Equal(t, float64(1), response["unchanged"])
	assert.Equal(t, float64(1), response["needs_reembedding"])
}

func TestHandleReindexFile_InvalidParams(t *testing.T) {
	server, projectDir := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleReindexFile(ctx, toolRequest("reindex_file", map[string]interface{}{
		"path": projectDir,
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = server.handleReindexFile(ctx, toolRequest("reindex_file", map[string]interface{}{
		"path": projectDir,
		"file": "README.md",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = server.handleReindexFile(ctx, toolRequest("reindex_file", map[string]interface{}{
		"path": projectDir,
		"file": "src/missing.ts",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleListChunks(t *testing.T) {
	server, projectDir := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleListChunks(ctx, toolRequest("list_chunks", map[string]interface{}{
		"path": projectDir,
		"file": "src/math.ts",
	}))
	requireMCPError(t, err, ErrorCodeNotIndexed)

	_, err = server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{
		"path": projectDir,
	}))
	require.NoError(t, err)

	result, err := server.handleListChunks(ctx, toolRequest("list_chunks", map[string]interface{}{
		"path": projectDir,
		"file": "src/math.ts",
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, float64(2), response["chunk_count"])
	assert.Equal(t, "ok", response["extract_status"])

	chunks, ok := response["chunks"].([]interface{})
	require.True(t, ok)
	require.Len(t, chunks, 2)

	first, ok := chunks[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "add", first["name"])
	assert.Equal(t, "function", first["kind"])
	assert.Equal(t, true, first["is_exported"])
	assert.NotEmpty(t, first["chunk_id"])
}

func TestHandleGetChunk(t *testing.T) {
	server, projectDir := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleGetChunk(ctx, toolRequest("get_chunk", map[string]interface{}{
		"chunk_id": "00000000-0000-0000-0000-000000000000",
	}))
	requireMCPError(t, err, ErrorCodeChunkNotFound)

	_, err = server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{
		"path": projectDir,
	}))
	require.NoError(t, err)

	listResult, err := server.handleListChunks(ctx, toolRequest("list_chunks", map[string]interface{}{
		"path": projectDir,
		"file": "src/math.ts",
	}))
	require.NoError(t, err)

	listed := resultJSON(t, listResult)
	chunks := listed["chunks"].([]interface{})
	chunkID := chunks[0].(map[string]interface{})["chunk_id"].(string)

	result, err := server.handleGetChunk(ctx, toolRequest("get_chunk", map[string]interface{}{
		"chunk_id": chunkID,
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, chunkID, response["chunk_id"])
	assert.Equal(t, "src/math.ts", response["file"])
	assert.Equal(t, "add", response["name"])
	assert.Contains(t, response["code"], "export function add")
	assert.Contains(t, response["code"], "Adds two numbers")
	assert.Equal(t, true, response["has_embedding"])
}

func TestHandleStatus(t *testing.T) {
	server, projectDir := newTestServer(t)
	ctx := context.Background()

	result, err := server.handleStatus(ctx, toolRequest("status", map[string]interface{}{
		"path": projectDir,
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, false, response["indexed"])

	_, err = server.handleIndexProject(ctx, toolRequest("index_project", map[string]interface{}{
		"path": projectDir,
	}))
	require.NoError(t, err)

	result, err = server.handleStatus(ctx, toolRequest("status", map[string]interface{}{
		"path": projectDir,
	}))
	require.NoError(t, err)

	response = resultJSON(t, result)
	assert.Equal(t, true, response["indexed"])

	project, ok := response["project"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sample-app", project["name"])

	statistics, ok := response["statistics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), statistics["files_count"])
	assert.Equal(t, float64(2), statistics["chunks_count"])
	assert.Equal(t, float64(2), statistics["embeddings_count"])

	health, ok := response["health"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, health["database_accessible"])
	assert.Equal(t, false, response["watching"])
}

func TestHandleWatchProject(t *testing.T) {
	server, projectDir := newTestServer(t)
	ctx := context.Background()

	result, err := server.handleWatchProject(ctx, toolRequest("watch_project", map[string]interface{}{
		"path": projectDir,
	}))
	require.NoError(t, err)
	response := resultJSON(t, result)
	assert.Equal(t, true, response["watching"])

	// Starting again is a no-op
	result, err = server.handleWatchProject(ctx, toolRequest("watch_project", map[string]interface{}{
		"path":    projectDir,
		"enabled": true,
	}))
	require.NoError(t, err)
	response = resultJSON(t, result)
	assert.Equal(t, true, response["watching"])

	result, err = server.handleWatchProject(ctx, toolRequest("watch_project", map[string]interface{}{
		"path":    projectDir,
		"enabled": false,
	}))
	require.NoError(t, err)
	response = resultJSON(t, result)
	assert.Equal(t, false, response["watching"])
	assert.Equal(t, true, response["stopped"])

	result, err = server.handleWatchProject(ctx, toolRequest("watch_project", map[string]interface{}{
		"path":    projectDir,
		"enabled": false,
	}))
	require.NoError(t, err)
	response = resultJSON(t, result)
	assert.Equal(t, false, response["stopped"])
}

func TestValidatePath(t *testing.T) {
	_, projectDir := newTestServer(t)

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid project", projectDir, nil},
		{"empty path", "", ErrPathRequired},
		{"relative path", "some/relative/path", ErrPathNotAbsolute},
		{"missing path", "/nonexistent/tscontext/test", ErrPathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	t.Run("not a directory", func(t *testing.T) {
		file := filepath.Join(projectDir, "package.json")
		assert.ErrorIs(t, validatePath(file), ErrNotDirectory)
	})

	t.Run("no source files", func(t *testing.T) {
		empty := t.TempDir()
		writeProjectFile(t, empty, "README.md", "# empty")
		assert.ErrorIs(t, validatePath(empty), ErrNoSourceFiles)
	})
}

func TestHelpers(t *testing.T) {
	args := map[string]interface{}{
		"flag":  true,
		"other": "text",
	}

	assert.True(t, getBoolDefault(args, "flag", false))
	assert.False(t, getBoolDefault(args, "missing", false))
	assert.True(t, getBoolDefault(args, "other", true))

	out := formatJSON(map[string]interface{}{"key": "value"})
	assert.Contains(t, out, `"key": "value"`)
}
