// Package storage provides SQLite-based persistence for indexed code data.
//
// The storage layer manages:
//   - Project metadata
//   - File information and content hashes
//   - Extracted code chunks and their (name, scope path, kind) identity keys
//   - Vector embeddings keyed by chunk UUID
//
// # Database Schema
//
// Tables:
//   - projects: Project metadata (root path, package name)
//   - files: File paths, SHA-256 hashes, extraction status
//   - chunks: The latest extraction of each file, one row per kept chunk
//   - embeddings: Vector embeddings for chunks
//
// The chunks table is the diff baseline: the rows stored for a file are
// what the next extraction of that file gets compared against. Each row
// carries both the extractor-assigned UUID (chunk_id) and the identity
// key used for matching; UNIQUE(file_id, identity_key) guarantees one
// row per identity.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.tscontext/indices/project.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// # Transactions
//
// Use transactions for atomic per-file updates:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.UpsertFile(ctx, file)
//	for _, chunk := range chunks {
//	    _ = tx.UpsertChunk(ctx, chunk)
//	}
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// CGO Build (cgo_sqlite tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "cgo_sqlite"
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build
package storage
