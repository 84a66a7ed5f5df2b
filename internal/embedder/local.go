package embedder

import (
	"context"
	"crypto/sha256"

	"github.com/tscontext/tscontext-mcp/pkg/types"
)

const (
	localModel     = "hash-projection"
	localDimension = 384
)

// Local derives vectors from each chunk's content hash instead of calling
// a model: the hash is stretched over the vector width by repeated SHA-256
// and the result normalized to unit length. Identical chunk text always
// yields an identical vector across processes, which is what incremental
// runs and tests rely on; the vectors carry no semantic signal.
type Local struct {
	cache *vectorCache
}

// NewLocal creates the offline embedder.
func NewLocal(cacheSize int) *Local {
	return &Local{cache: newVectorCache(cacheSize)}
}

func (l *Local) EmbedChunks(ctx context.Context, chunks []*types.CodeChunk) ([]ChunkVector, error) {
	if err := validateChunks(chunks); err != nil {
		return nil, err
	}

	out := make([]ChunkVector, len(chunks))
	for i, c := range chunks {
		v, ok := l.cache.get(c.ContentHash)
		if !ok {
			v = projectHash(c.ContentHash)
			l.cache.put(c.ContentHash, v)
		}
		out[i] = ChunkVector{
			ChunkID:   c.ID,
			Vector:    v,
			Dimension: localDimension,
			Provider:  ProviderLocal,
			Model:     localModel,
		}
	}
	return out, nil
}

// projectHash stretches a 32-byte digest across localDimension components
// in [-1, 1], then normalizes.
func projectHash(hash [32]byte) []float32 {
	v := make([]float32, localDimension)
	block := hash
	for i := 0; i < localDimension; i++ {
		if i > 0 && i%len(block) == 0 {
			block = sha256.Sum256(block[:])
		}
		v[i] = float32(block[i%len(block)])/127.5 - 1
	}
	return NormalizeVector(v)
}

func (l *Local) Dimension() int {
	return localDimension
}

func (l *Local) Provider() string {
	return ProviderLocal
}

func (l *Local) Model() string {
	return localModel
}

func (l *Local) Close() error {
	return nil
}
