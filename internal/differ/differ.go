package differ

import (
	"github.com/tscontext/tscontext-mcp/pkg/types"
)

// Diff compares two chunk sets for the same file and classifies every
// logical chunk as added, modified, deleted, or unchanged.
//
// Chunks match on identity (Name, ScopePath, Kind) only; content similarity
// is irrelevant. A renamed declaration is therefore deleted+added, never
// modified, and so is one whose syntactic kind changed. The pass is linear
// in the number of chunks.
func Diff(oldChunks, newChunks []*types.CodeChunk) []types.ChunkChange {
	// Duplicate identity keys collapse to the last occurrence. Storage
	// enforces one row per (file, identity) anyway, so an extraction that
	// produced duplicates already kept only one of them; earlier
	// occurrences are neither matched nor reported as deleted.
	remaining := make(map[string]*types.CodeChunk, len(oldChunks))
	for _, chunk := range oldChunks {
		remaining[chunk.IdentityKey()] = chunk
	}

	changes := make([]types.ChunkChange, 0, len(oldChunks)+len(newChunks))

	for _, chunk := range newChunks {
		key := chunk.IdentityKey()
		old, ok := remaining[key]
		if !ok {
			changes = append(changes, types.ChunkChange{
				Kind:             types.ChangeAdded,
				NewChunk:         chunk,
				NeedsReembedding: true,
			})
			continue
		}

		delete(remaining, key)

		if old.ContentHash != chunk.ContentHash {
			changes = append(changes, types.ChunkChange{
				Kind:             types.ChangeModified,
				OldChunk:         old,
				NewChunk:         chunk,
				NeedsReembedding: true,
			})
		} else {
			changes = append(changes, types.ChunkChange{
				Kind:             types.ChangeUnchanged,
				OldChunk:         old,
				NewChunk:         chunk,
				NeedsReembedding: false,
			})
		}
	}

	// Unconsumed old chunks were removed; emit them in document order
	// rather than map order.
	for _, chunk := range oldChunks {
		if _, ok := remaining[chunk.IdentityKey()]; !ok {
			continue
		}
		delete(remaining, chunk.IdentityKey())
		changes = append(changes, types.ChunkChange{
			Kind:             types.ChangeDeleted,
			OldChunk:         chunk,
			NeedsReembedding: false,
		})
	}

	return changes
}

// Summary aggregates a change list into per-kind counts
type Summary struct {
	Added            int
	Modified         int
	Deleted          int
	Unchanged        int
	NeedsReembedding int
}

// Summarize counts the changes by kind
func Summarize(changes []types.ChunkChange) Summary {
	var s Summary
	for _, change := range changes {
		switch change.Kind {
		case types.ChangeAdded:
			s.Added++
		case types.ChangeModified:
			s.Modified++
		case types.ChangeDeleted:
			s.Deleted++
		case types.ChangeUnchanged:
			s.Unchanged++
		}
		if change.NeedsReembedding {
			s.NeedsReembedding++
		}
	}
	return s
}
