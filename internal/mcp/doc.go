// Package mcp implements the Model Context Protocol (MCP) server for TSContext.
//
// The MCP server exposes six tools to AI coding assistants:
//   - index_project: Index a TypeScript/JavaScript project into semantic chunks
//   - reindex_file: Incrementally re-index a single file and report the chunk diff
//   - list_chunks: List the chunks stored for an indexed file
//   - get_chunk: Fetch a single chunk with its full source text
//   - watch_project: Start or stop filesystem watching for a project
//   - status: Check indexing status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output. All
// logging goes to stderr since stdout is reserved for protocol messages.
//
// # Tool: index_project
//
// Index a project so its chunks can be served:
//
//	Request:
//	{
//	  "name": "index_project",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "include_tests": true,
//	    "skip_embeddings": false
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "files_indexed": 142,
//	  "chunks_added": 890,
//	  "chunks_unchanged": 0,
//	  "chunks_embedded": 890,
//	  "duration_ms": 2150
//	}
//
// Repeated runs are incremental: files whose content hash is unchanged are
// skipped, and within changed files only added or modified chunks are
// re-embedded.
//
// # Tool: reindex_file
//
// Re-index one file and report what changed:
//
//	Request:
//	{
//	  "name": "reindex_file",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "file": "src/auth/service.ts"
//	  }
//	}
//
//	Response:
//	{
//	  "file": "src/auth/service.ts",
//	  "added": 1,
//	  "modified": 2,
//	  "deleted": 0,
//	  "unchanged": 7,
//	  "needs_reembedding": 3
//	}
//
// # Error Handling
//
// Handlers return standard JSON-RPC error responses. Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Project not found
//   - -32002: Indexing in progress
//   - -32003: Project or file not indexed
//   - -32004: Chunk not found
//
// # MCP Client Configuration
//
// Configure in an MCP client's settings:
//
//	{
//	  "mcpServers": {
//	    "tscontext": {
//	      "command": "/usr/local/bin/tscontext",
//	      "env": {
//	        "TSCONTEXT_EMBEDDING_PROVIDER": "openai",
//	        "OPENAI_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
package mcp
