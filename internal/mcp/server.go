package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tscontext/tscontext-mcp/internal/embedder"
	"github.com/tscontext/tscontext-mcp/internal/indexer"
	"github.com/tscontext/tscontext-mcp/internal/storage"
	"github.com/tscontext/tscontext-mcp/internal/watcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "tscontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.tscontext/indices"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	storage storage.Storage
	indexer *indexer.Indexer

	indexLock indexer.IndexLock

	// Active watchers per project root
	watchMu  sync.Mutex
	watchers map[string]*watcher.Watcher
}

// NewServer creates a new MCP server instance
func NewServer(dbPath string) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".tscontext", "indices")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// For now, use a single database file
	// In future, we could have per-project databases
	dbFile := filepath.Join(dbPath, "tscontext.db")

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Create embedder
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// Create indexer
	idx := indexer.New(store, emb)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		indexer:  idx,
		watchers: make(map[string]*watcher.Watcher),
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer s.shutdown()
	return server.ServeStdio(s.mcp)
}

// shutdown stops all watchers and closes storage
func (s *Server) shutdown() {
	s.watchMu.Lock()
	for root, w := range s.watchers {
		w.Stop()
		delete(s.watchers, root)
	}
	s.watchMu.Unlock()
	if err := s.storage.Close(); err != nil {
		log.Printf("failed to close storage: %v", err)
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(reindexFileTool(), s.handleReindexFile)
	s.mcp.AddTool(listChunksTool(), s.handleListChunks)
	s.mcp.AddTool(getChunkTool(), s.handleGetChunk)
	s.mcp.AddTool(watchProjectTool(), s.handleWatchProject)
	s.mcp.AddTool(statusTool(), s.handleStatus)

	return nil
}
