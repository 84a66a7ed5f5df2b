package embedder

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tscontext/tscontext-mcp/pkg/types"
)

// Common errors
var (
	ErrNoChunks        = errors.New("no chunks to embed")
	ErrEmptyChunk      = errors.New("chunk has no code")
	ErrProvider        = errors.New("embedding provider failed")
	ErrUnknownProvider = errors.New("unknown embedding provider")
	ErrNotConfigured   = errors.New("embedding provider not configured")
)

// ChunkVector is an embedding produced for one chunk. The vector is keyed
// by the chunk's run-assigned UUID; the content hash only drives caching.
type ChunkVector struct {
	ChunkID   string
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
}

// Embedder turns the code chunks the diff engine marked for re-embedding
// into vectors. Implementations batch and cache internally; callers pass
// the full set of chunks in one call.
type Embedder interface {
	// EmbedChunks returns one vector per chunk, in input order.
	EmbedChunks(ctx context.Context, chunks []*types.CodeChunk) ([]ChunkVector, error)

	// Dimension returns the vector width this provider produces.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// validateChunks rejects inputs the providers cannot embed
func validateChunks(chunks []*types.CodeChunk) error {
	if len(chunks) == 0 {
		return ErrNoChunks
	}
	for i, c := range chunks {
		if c == nil || c.Code == "" {
			return fmt.Errorf("%w: index %d", ErrEmptyChunk, i)
		}
	}
	return nil
}

// defaultCacheSize bounds the per-process vector cache
const defaultCacheSize = 10000

// vectorCache is an LRU of vectors keyed by chunk content hash, so a chunk
// whose text reappears (same file re-indexed, copy-pasted code) is not sent
// to the provider again. Reads return a copy; cached vectors are never
// handed out mutable.
type vectorCache struct {
	lru *lru.Cache[[32]byte, []float32]
}

func newVectorCache(size int) *vectorCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[[32]byte, []float32](size)
	if err != nil {
		c, _ = lru.New[[32]byte, []float32](defaultCacheSize)
	}
	return &vectorCache{lru: c}
}

func (c *vectorCache) get(hash [32]byte) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

func (c *vectorCache) put(hash [32]byte, v []float32) {
	if c == nil {
		return
	}
	c.lru.Add(hash, v)
}

func (c *vectorCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
