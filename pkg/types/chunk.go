package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ChunkKind represents the syntactic kind of a code chunk
type ChunkKind string

const (
	ChunkFunction  ChunkKind = "function"
	ChunkClosure   ChunkKind = "closure"
	ChunkClass     ChunkKind = "class"
	ChunkMethod    ChunkKind = "method"
	ChunkInterface ChunkKind = "interface"
	ChunkTypeAlias ChunkKind = "type_alias"
	ChunkEnum      ChunkKind = "enum"
	ChunkFile      ChunkKind = "file"
)

// ChunkMetadata carries declaration-level metadata for a chunk
type ChunkMetadata struct {
	IsExported bool
	IsAsync    bool
	Parameters []string
	Signature  string
	DocComment string // JSDoc text when present
}

// CodeChunk represents an independently re-embeddable unit of source code.
//
// A chunk's logical identity is (Name, ScopePath, Kind); the ID is assigned
// fresh on every extraction run and is never stable across runs. Chunks are
// immutable once produced by the extractor.
type CodeChunk struct {
	// Identification
	ID       string // UUID, fresh per extraction run
	FilePath string
	Kind     ChunkKind
	Name     string

	// Location
	StartLine        int // Envelope start, includes leading doc/comment lines
	EndLine          int // Envelope end
	ContentStartLine int // Declaration start, without the comment envelope
	ContentEndLine   int // Declaration end

	// Content
	Code        string   // Exact source text spanned by [StartLine, EndLine]
	ContentHash [32]byte // SHA-256 of Code, used for change detection

	// Structure
	NestingLevel  int      // Count of kept ancestor chunks, not raw AST depth
	ScopePath     []string // Outermost kept ancestor .. self; len == NestingLevel+1
	ParentChunkID string   // Weak back-reference to the nearest kept ancestor; "" at top level

	// Metadata
	Metadata ChunkMetadata

	// Timestamps (informational only)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// identity key separators; chosen to never appear in identifiers
const (
	keyFieldSep = "\x1e"
	keyScopeSep = "\x1f"
)

// IdentityKey returns the matching key used by the differ: the chunk's name,
// ordered scope path, and kind. Two chunks from different extraction runs are
// the same logical chunk iff their identity keys are equal.
func (c *CodeChunk) IdentityKey() string {
	return c.Name + keyFieldSep + strings.Join(c.ScopePath, keyScopeSep) + keyFieldSep + string(c.Kind)
}

// ComputeContentHash computes the SHA-256 hash of the chunk code
func (c *CodeChunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Code))
}

// LineCount returns the number of lines spanned by the envelope
func (c *CodeChunk) LineCount() int {
	return c.EndLine - c.StartLine + 1
}

// ValidateKind checks if the chunk kind is valid
func (c *CodeChunk) ValidateKind() error {
	switch c.Kind {
	case ChunkFunction, ChunkClosure, ChunkClass, ChunkMethod,
		ChunkInterface, ChunkTypeAlias, ChunkEnum, ChunkFile:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidChunkKind, c.Kind)
	}
}

// Validate performs comprehensive validation of the chunk
func (c *CodeChunk) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: ID is required", ErrInvalidChunkID)
	}

	if c.Name == "" {
		return errors.New("chunk name is required")
	}

	if err := c.ValidateKind(); err != nil {
		return err
	}

	if c.Code == "" {
		return ErrEmptyCode
	}

	// Envelope ordering: 1 <= start <= contentStart <= contentEnd <= end
	if c.StartLine < 1 {
		return fmt.Errorf("%w: start line must be positive", ErrInvalidEnvelope)
	}
	if c.ContentStartLine < c.StartLine {
		return fmt.Errorf("%w: content start precedes envelope start", ErrInvalidEnvelope)
	}
	if c.ContentEndLine < c.ContentStartLine {
		return fmt.Errorf("%w: content end precedes content start", ErrInvalidEnvelope)
	}
	if c.EndLine < c.ContentEndLine {
		return fmt.Errorf("%w: envelope end precedes content end", ErrInvalidEnvelope)
	}

	if len(c.ScopePath) != c.NestingLevel+1 {
		return errors.New("scope path length must equal nesting level + 1")
	}

	// Verify content hash is computed
	var zeroHash [32]byte
	if c.ContentHash == zeroHash {
		return errors.New("content hash must be computed")
	}

	return nil
}
