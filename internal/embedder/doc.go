// Package embedder generates vector embeddings for code chunks.
//
// The re-embedding pipeline only sees chunks whose content changed: the
// diff engine marks added and modified chunks for re-embedding, and
// unchanged chunks keep their stored vectors.
//
// # Providers
//
// Two providers are supported:
//   - openai: OpenAI embeddings API (text-embedding-3-small, 1536 dims)
//   - local: deterministic vectors projected from the chunk content hash,
//     for offline and test use (384 dims)
//
// Provider selection is environment-driven:
//
//	TSCONTEXT_EMBEDDING_PROVIDER=openai|local
//	OPENAI_API_KEY=sk-...
//
// With no configuration the local provider is used.
//
// # Caching
//
// Vectors are cached in an LRU keyed by the chunk's SHA-256 content hash,
// so re-indexing a project does not re-embed identical chunk text. The
// OpenAI provider resolves cache hits locally and batches only the misses
// onto the wire.
//
// # Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	vectors, err := emb.EmbedChunks(ctx, toEmbed)
package embedder
