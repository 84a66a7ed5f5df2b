// Package indexer orchestrates the incremental indexing pipeline.
//
// For each discovered TypeScript/JavaScript file the pipeline runs:
//
//	hash gate -> parse -> extract -> diff -> persist -> embed
//
// The hash gate skips files whose content hash matches the stored one.
// For changed files the extraction result is diffed against the chunks
// persisted for the previous run, and only added and modified chunks are
// re-embedded; unchanged chunks keep their stored UUIDs and vectors, and
// deleted chunks take their embeddings with them.
//
// # Usage
//
//	idx := indexer.New(store, emb)
//	stats, err := idx.IndexProject(ctx, "/path/to/project", nil)
//
// Single-file reindexing (used by the file watcher and the reindex_file
// tool) returns the per-kind change summary:
//
//	summary, err := idx.ReindexFile(ctx, rootPath, "src/api.ts")
//
// # Concurrency
//
// Files are processed by a bounded worker pool (errgroup plus a semaphore),
// with per-file transactions so a crash never leaves a file's chunk set
// half replaced. IndexLock serializes whole-project runs.
//
// # File discovery
//
// Discovery walks the project root, skipping node_modules, build output,
// hidden directories and .d.ts declaration files. Test files (*.test.ts,
// *.spec.ts and friends) are indexed unless Config.IncludeTests is false.
package indexer
