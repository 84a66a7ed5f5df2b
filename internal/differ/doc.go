// Package differ determines which chunks of a file must be re-embedded,
// removed, or left untouched between two extraction runs.
//
// Matching is by logical identity (Name, ScopePath, Kind), never by chunk ID
// (fresh each run) and never by content similarity. The algorithm builds a
// lookup over the old chunks and probes it once per new chunk, so diffing is
// linear in the number of chunks:
//
//	changes := differ.Diff(oldChunks, newChunks)
//	for _, change := range changes {
//	    if change.NeedsReembedding {
//	        // embed change.NewChunk
//	    }
//	}
//
// Consequences of identity matching: a rename is deleted+added even when the
// body is untouched, as is a declaration whose kind changed. The differ
// optimizes for correct re-embedding decisions, not minimal edit distance.
//
// Diff is a pure function with no error states; any two chunk lists,
// including empty ones, produce a well-defined change list.
package differ
