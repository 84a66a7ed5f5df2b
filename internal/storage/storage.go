package storage

import (
	"context"
	"strings"
	"time"

	"github.com/tscontext/tscontext-mcp/pkg/types"
)

// Storage defines the interface for persisting indexed chunk data.
// It is the caller-held chunk store the diff engine is built against: the
// chunks persisted for a file's last extraction are what the next
// extraction's result gets diffed with.
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, rootPath string) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, projectID int64, filePath string) (*File, error)
	GetFileByID(ctx context.Context, fileID int64) (*File, error)
	ListFiles(ctx context.Context, projectID int64) ([]*File, error)
	DeleteFile(ctx context.Context, fileID int64) error

	// Chunk operations
	UpsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*Chunk, error)
	ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error)
	DeleteChunk(ctx context.Context, chunkID string) error
	DeleteChunksByFile(ctx context.Context, fileID int64) error

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID string) (*Embedding, error)
	DeleteEmbedding(ctx context.Context, chunkID string) error

	// Status operations
	GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Project represents an indexed TypeScript/JavaScript codebase
type Project struct {
	ID            int64
	RootPath      string
	Name          string // package name from package.json when present
	TotalFiles    int
	TotalChunks   int
	IndexVersion  string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// File represents a tracked source file
type File struct {
	ID            int64
	ProjectID     int64
	FilePath      string // Relative to project root
	Language      string
	ContentHash   [32]byte
	ModTime       time.Time
	SizeBytes     int64
	ParseError    *string // Nullable
	ExtractStatus string  // ok | fallback | empty | unparsable
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// scopeSep joins scope path elements for storage; it cannot occur in
// identifiers
const scopeSep = "\x1f"

// paramSep joins parameter texts for storage
const paramSep = "\x1e"

// Chunk is the persisted form of a types.CodeChunk
type Chunk struct {
	ChunkID          string // UUID assigned by the extractor
	FileID           int64
	IdentityKey      string // (name, scope path, kind) matching key
	Kind             string
	Name             string
	ScopePath        string // joined with scopeSep
	NestingLevel     int
	ParentChunkID    string
	StartLine        int
	EndLine          int
	ContentStartLine int
	ContentEndLine   int
	Code             string
	ContentHash      [32]byte
	IsExported       bool
	IsAsync          bool
	Parameters       string // joined with paramSep
	Signature        string
	DocComment       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	ID        int64
	ChunkID   string
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// ProjectStatus contains statistics about an indexed project
type ProjectStatus struct {
	Project         *Project
	FilesCount      int
	ChunksCount     int
	EmbeddingsCount int
	IndexSizeMB     float64
	LastIndexedAt   time.Time
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
}

// FromCodeChunk converts an extractor chunk to its persisted form
func FromCodeChunk(c *types.CodeChunk, fileID int64) *Chunk {
	return &Chunk{
		ChunkID:          c.ID,
		FileID:           fileID,
		IdentityKey:      c.IdentityKey(),
		Kind:             string(c.Kind),
		Name:             c.Name,
		ScopePath:        strings.Join(c.ScopePath, scopeSep),
		NestingLevel:     c.NestingLevel,
		ParentChunkID:    c.ParentChunkID,
		StartLine:        c.StartLine,
		EndLine:          c.EndLine,
		ContentStartLine: c.ContentStartLine,
		ContentEndLine:   c.ContentEndLine,
		Code:             c.Code,
		ContentHash:      c.ContentHash,
		IsExported:       c.Metadata.IsExported,
		IsAsync:          c.Metadata.IsAsync,
		Parameters:       strings.Join(c.Metadata.Parameters, paramSep),
		Signature:        c.Metadata.Signature,
		DocComment:       c.Metadata.DocComment,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// ToCodeChunk converts a persisted chunk back to the extractor's form
func (c *Chunk) ToCodeChunk(filePath string) *types.CodeChunk {
	scopePath := strings.Split(c.ScopePath, scopeSep)

	params := []string{}
	if c.Parameters != "" {
		params = strings.Split(c.Parameters, paramSep)
	}

	return &types.CodeChunk{
		ID:               c.ChunkID,
		FilePath:         filePath,
		Kind:             types.ChunkKind(c.Kind),
		Name:             c.Name,
		StartLine:        c.StartLine,
		EndLine:          c.EndLine,
		ContentStartLine: c.ContentStartLine,
		ContentEndLine:   c.ContentEndLine,
		Code:             c.Code,
		ContentHash:      c.ContentHash,
		NestingLevel:     c.NestingLevel,
		ScopePath:        scopePath,
		ParentChunkID:    c.ParentChunkID,
		Metadata: types.ChunkMetadata{
			IsExported: c.IsExported,
			IsAsync:    c.IsAsync,
			Parameters: params,
			Signature:  c.Signature,
			DocComment: c.DocComment,
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
