// Package types provides shared type definitions for the TSContext MCP server.
//
// This package defines the domain types used across components: chunks, chunk
// changes, and the structural parse representation handed from the parser to
// the extractor.
//
// # Core Types
//
// CodeChunk represents an independently re-embeddable unit of source text:
//
//	chunk := &types.CodeChunk{
//	    Name:      "createUser",
//	    Kind:      types.ChunkFunction,
//	    ScopePath: []string{"createUser"},
//	    Code:      sourceText,
//	}
//	chunk.ComputeContentHash()
//
// A chunk's logical identity is the triple (Name, ScopePath, Kind), exposed
// through IdentityKey. IDs are fresh UUIDs on every extraction run, so the
// differ never matches on them.
//
// ChunkChange is the differ's verdict for one logical chunk:
//
//	change := types.ChunkChange{
//	    Kind:             types.ChangeModified,
//	    OldChunk:         old,
//	    NewChunk:         new,
//	    NeedsReembedding: true,
//	}
//
// # Envelope Invariants
//
// Every chunk satisfies:
//
//	1 <= StartLine <= ContentStartLine <= ContentEndLine <= EndLine
//	len(ScopePath) == NestingLevel + 1
//
// StartLine/EndLine bound the envelope including leading doc comments, while
// ContentStartLine/ContentEndLine bound the declaration itself.
//
// # Validation
//
// Domain types implement validation methods to ensure data integrity:
//
//	if err := chunk.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package types
