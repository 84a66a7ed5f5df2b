package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tscontext/tscontext-mcp/internal/differ"
	"github.com/tscontext/tscontext-mcp/internal/embedder"
	"github.com/tscontext/tscontext-mcp/internal/extractor"
	"github.com/tscontext/tscontext-mcp/internal/parser"
	"github.com/tscontext/tscontext-mcp/internal/storage"
	"github.com/tscontext/tscontext-mcp/pkg/types"
)

// Indexer coordinates the indexing pipeline: parse -> extract -> diff -> store -> embed
type Indexer struct {
	parser    *parser.Parser
	extractor *extractor.Extractor
	storage   storage.Storage
	embedder  embedder.Embedder

	// Worker pool configuration
	workers int
}

// Config contains configuration for the indexer
type Config struct {
	Workers        int  // Number of concurrent workers (default: runtime.NumCPU())
	BatchSize      int  // Number of files to commit per transaction (default: 20)
	IncludeTests   bool // Whether to index test/spec files (default: true)
	SkipEmbeddings bool // Skip embedding generation entirely (default: false)
}

// Statistics contains statistics about an indexing operation
type Statistics struct {
	FilesIndexed    int
	FilesSkipped    int
	FilesFailed     int
	FilesRemoved    int
	ChunksAdded     int
	ChunksModified  int
	ChunksDeleted   int
	ChunksUnchanged int
	ChunksEmbedded  int
	Duration        time.Duration
	ErrorMessages   []string
}

// fileOutcome is what indexing one file produced
type fileOutcome struct {
	summary differ.Summary
	toEmbed []*types.CodeChunk
}

// New creates a new Indexer instance
func New(store storage.Storage, emb embedder.Embedder) *Indexer {
	p := parser.New()
	return &Indexer{
		parser:    p,
		extractor: extractor.New(p, extractor.DefaultOptions()),
		storage:   store,
		embedder:  emb,
		workers:   runtime.NumCPU(),
	}
}

// IndexProject indexes an entire TypeScript/JavaScript project
func (idx *Indexer) IndexProject(ctx context.Context, rootPath string, config *Config) (*Statistics, error) {
	if config == nil {
		config = &Config{
			Workers:      runtime.NumCPU(),
			BatchSize:    20,
			IncludeTests: true,
		}
	}

	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	idx.workers = config.Workers

	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	// Get or create project
	project, err := idx.getOrCreateProject(ctx, rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}

	// Discover source files
	files, err := idx.discoverFiles(rootPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	// Index files concurrently
	if err := idx.indexFiles(ctx, project, files, config, stats); err != nil {
		return nil, fmt.Errorf("failed to index files: %w", err)
	}

	// Drop records for files no longer on disk
	if err := idx.removeStaleFiles(ctx, project, files, stats); err != nil {
		return nil, fmt.Errorf("failed to remove stale files: %w", err)
	}

	// Update project statistics
	if err := idx.updateProjectStats(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project stats: %w", err)
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// ReindexFile re-indexes a single file and returns the change summary.
// The file path may be absolute or relative to the project root.
func (idx *Indexer) ReindexFile(ctx context.Context, rootPath, filePath string) (*differ.Summary, error) {
	project, err := idx.getOrCreateProject(ctx, rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}

	absPath := filePath
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(rootPath, filePath)
	}

	outcome, err := idx.indexFile(ctx, idx.storage, project, absPath, false)
	if err != nil {
		return nil, err
	}

	if outcome != nil && len(outcome.toEmbed) > 0 {
		if _, err := idx.embedChunks(ctx, outcome.toEmbed); err != nil {
			return nil, err
		}
	}

	if err := idx.updateProjectStats(ctx, project); err != nil {
		return nil, err
	}

	if outcome == nil {
		// File unchanged
		return &differ.Summary{}, nil
	}
	return &outcome.summary, nil
}

// RemoveFile deletes a file's record, chunks and embeddings. Used when a
// watched file disappears from disk.
func (idx *Indexer) RemoveFile(ctx context.Context, rootPath, filePath string) error {
	project, err := idx.storage.GetProject(ctx, rootPath)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	relPath := filePath
	if filepath.IsAbs(relPath) {
		relPath, err = filepath.Rel(rootPath, filePath)
		if err != nil {
			return err
		}
	}

	file, err := idx.storage.GetFile(ctx, project.ID, relPath)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if err := idx.storage.DeleteFile(ctx, file.ID); err != nil {
		return err
	}
	return idx.updateProjectStats(ctx, project)
}

// getOrCreateProject retrieves an existing project or creates a new one
func (idx *Indexer) getOrCreateProject(ctx context.Context, rootPath string) (*storage.Project, error) {
	project, err := idx.storage.GetProject(ctx, rootPath)
	if err == nil {
		return project, nil
	}

	if err != storage.ErrNotFound {
		return nil, err
	}

	project = &storage.Project{
		RootPath:     rootPath,
		IndexVersion: storage.CurrentSchemaVersion,
	}

	// Try to extract project name from package.json
	pkgPath := filepath.Join(rootPath, "package.json")
	if name, err := packageName(pkgPath); err == nil {
		project.Name = name
	}

	if err := idx.storage.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// discoverFiles finds all TypeScript/JavaScript files in the project
func (idx *Indexer) discoverFiles(rootPath string, config *Config) ([]string, error) {
	var files []string

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip dependency and build output directories
			switch info.Name() {
			case "node_modules", "dist", "build", "coverage":
				if path != rootPath {
					return filepath.SkipDir
				}
			}
			// Skip hidden directories
			if strings.HasPrefix(info.Name(), ".") && path != rootPath {
				return filepath.SkipDir
			}
			return nil
		}

		if !parser.Supported(path) {
			return nil
		}

		// Skip declaration files; they carry no runtime code
		if strings.HasSuffix(path, ".d.ts") {
			return nil
		}

		// Skip test files unless explicitly included
		if !config.IncludeTests && isTestFile(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// isTestFile reports whether a path follows common TS/JS test naming
func isTestFile(path string) bool {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return strings.HasSuffix(name, ".test") || strings.HasSuffix(name, ".spec")
}

// indexFiles indexes a batch of files concurrently
func (idx *Indexer) indexFiles(ctx context.Context, project *storage.Project, files []string, config *Config, stats *Statistics) error {
	semaphore := make(chan struct{}, idx.workers)

	var (
		indexed   int32
		skipped   int32
		failed    int32
		added     int32
		modified  int32
		deleted   int32
		unchanged int32
		embedded  int32
	)

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex // Protect stats.ErrorMessages

	for i := 0; i < len(files); i += batchSize {
		end := i + batchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[i:end]

		g.Go(func() error {
			toEmbed := make([]*types.CodeChunk, 0)

			for _, filePath := range batch {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case semaphore <- struct{}{}:
					// Acquire semaphore
				}

				outcome, err := idx.indexFile(gctx, idx.storage, project, filePath, config.SkipEmbeddings)
				<-semaphore // Release semaphore

				if err != nil {
					atomic.AddInt32(&failed, 1)
					mu.Lock()
					stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", filePath, err))
					mu.Unlock()
					continue
				}

				if outcome == nil {
					atomic.AddInt32(&skipped, 1)
					continue
				}

				atomic.AddInt32(&indexed, 1)
				atomic.AddInt32(&added, int32(outcome.summary.Added))
				atomic.AddInt32(&modified, int32(outcome.summary.Modified))
				atomic.AddInt32(&deleted, int32(outcome.summary.Deleted))
				atomic.AddInt32(&unchanged, int32(outcome.summary.Unchanged))
				toEmbed = append(toEmbed, outcome.toEmbed...)
			}

			if len(toEmbed) > 0 {
				n, err := idx.embedChunks(gctx, toEmbed)
				if err != nil {
					mu.Lock()
					stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("embedding: %v", err))
					mu.Unlock()
				}
				atomic.AddInt32(&embedded, int32(n))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.FilesIndexed = int(indexed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.ChunksAdded = int(added)
	stats.ChunksModified = int(modified)
	stats.ChunksDeleted = int(deleted)
	stats.ChunksUnchanged = int(unchanged)
	stats.ChunksEmbedded = int(embedded)

	return nil
}

// indexFile indexes a single file. A nil outcome with nil error means the
// file was unchanged since the last run.
func (idx *Indexer) indexFile(ctx context.Context, store storage.Storage, project *storage.Project,
	filePath string, skipEmbeddings bool) (*fileOutcome, error) {

	relPath, err := filepath.Rel(project.RootPath, filePath)
	if err != nil {
		return nil, err
	}

	content, modTime, sizeBytes, err := readFile(filePath)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(content)

	// Hash gate: skip unchanged files
	existingFile, err := store.GetFile(ctx, project.ID, relPath)
	if err != nil && err != storage.ErrNotFound {
		return nil, err
	}
	if existingFile != nil && existingFile.ContentHash == hash {
		return nil, nil
	}

	// Parse and extract
	parseResult := idx.parser.ParseSource(content, relPath)
	result := idx.extractor.ExtractParsed(string(content), relPath, parseResult)

	// Load the previous extraction as the diff baseline
	oldChunks := make([]*types.CodeChunk, 0)
	if existingFile != nil {
		stored, err := store.ListChunksByFile(ctx, existingFile.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range stored {
			oldChunks = append(oldChunks, c.ToCodeChunk(relPath))
		}
	}

	changes := differ.Diff(oldChunks, result.Chunks)

	// Persist file record
	file := &storage.File{
		ProjectID:     project.ID,
		FilePath:      relPath,
		Language:      parseResult.Language,
		ContentHash:   hash,
		ModTime:       modTime,
		SizeBytes:     sizeBytes,
		ExtractStatus: string(result.Status),
	}
	if parseResult.HasErrors() {
		errMsg := parseResult.Errors[0].Message
		file.ParseError = &errMsg
	}

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.UpsertFile(ctx, file); err != nil {
		return nil, err
	}

	outcome := &fileOutcome{
		summary: differ.Summarize(changes),
		toEmbed: make([]*types.CodeChunk, 0),
	}

	// Unchanged chunks keep their stored UUID, so parent references taken
	// from this run's extraction must be remapped to the UUIDs actually
	// persisted. The extractor emits parents before their children and the
	// differ preserves that order, so a child's parent is always resolved
	// before the child is written.
	persisted := make(map[string]string, len(changes))

	for _, change := range changes {
		switch change.Kind {
		case types.ChangeAdded:
			row := storage.FromCodeChunk(change.NewChunk, file.ID)
			row.ParentChunkID = persisted[change.NewChunk.ParentChunkID]
			if err := tx.UpsertChunk(ctx, row); err != nil {
				return nil, err
			}
			persisted[change.NewChunk.ID] = row.ChunkID
		case types.ChangeModified:
			// The replacement row carries the new chunk's UUID; the old
			// embedding dies with the old UUID
			if err := tx.DeleteEmbedding(ctx, change.OldChunk.ID); err != nil {
				return nil, err
			}
			row := storage.FromCodeChunk(change.NewChunk, file.ID)
			row.ParentChunkID = persisted[change.NewChunk.ParentChunkID]
			if err := tx.UpsertChunk(ctx, row); err != nil {
				return nil, err
			}
			persisted[change.NewChunk.ID] = row.ChunkID
		case types.ChangeUnchanged:
			// Content is identical but line positions may have shifted.
			// Keep the stored UUID so the existing embedding stays valid.
			row := storage.FromCodeChunk(change.NewChunk, file.ID)
			row.ChunkID = change.OldChunk.ID
			row.ParentChunkID = persisted[change.NewChunk.ParentChunkID]
			if err := tx.UpsertChunk(ctx, row); err != nil {
				return nil, err
			}
			persisted[change.NewChunk.ID] = row.ChunkID
		case types.ChangeDeleted:
			if err := tx.DeleteChunk(ctx, change.OldChunk.ID); err != nil {
				return nil, err
			}
		}

		if change.NeedsReembedding && !skipEmbeddings {
			outcome.toEmbed = append(outcome.toEmbed, change.NewChunk)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return outcome, nil
}

// embedChunks generates and stores embeddings for re-embeddable chunks.
// Returns the number of chunks embedded.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*types.CodeChunk) (int, error) {
	if idx.embedder == nil {
		return 0, nil
	}

	vectors, err := idx.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	count := 0
	for _, v := range vectors {
		record := &storage.Embedding{
			ChunkID:   v.ChunkID,
			Vector:    embedder.EncodeVector(v.Vector),
			Dimension: v.Dimension,
			Provider:  v.Provider,
			Model:     v.Model,
		}
		if err := idx.storage.UpsertEmbedding(ctx, record); err != nil {
			return count, fmt.Errorf("failed to store embedding: %w", err)
		}
		count++
	}

	return count, nil
}

// removeStaleFiles deletes records for files that are gone from disk
func (idx *Indexer) removeStaleFiles(ctx context.Context, project *storage.Project, discovered []string, stats *Statistics) error {
	onDisk := make(map[string]struct{}, len(discovered))
	for _, path := range discovered {
		relPath, err := filepath.Rel(project.RootPath, path)
		if err != nil {
			return err
		}
		onDisk[relPath] = struct{}{}
	}

	files, err := idx.storage.ListFiles(ctx, project.ID)
	if err != nil {
		return err
	}

	for _, file := range files {
		if _, ok := onDisk[file.FilePath]; ok {
			continue
		}
		if err := idx.storage.DeleteFile(ctx, file.ID); err != nil {
			return err
		}
		stats.FilesRemoved++
	}
	return nil
}

// updateProjectStats updates the project's file and chunk counts
func (idx *Indexer) updateProjectStats(ctx context.Context, project *storage.Project) error {
	files, err := idx.storage.ListFiles(ctx, project.ID)
	if err != nil {
		return err
	}

	totalChunks := 0
	for _, file := range files {
		chunks, err := idx.storage.ListChunksByFile(ctx, file.ID)
		if err != nil {
			return err
		}
		totalChunks += len(chunks)
	}

	project.TotalFiles = len(files)
	project.TotalChunks = totalChunks
	project.LastIndexedAt = time.Now()

	return idx.storage.UpdateProject(ctx, project)
}

// readFile reads a file and returns its content, mod time and size
func readFile(filePath string) ([]byte, time.Time, int64, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, time.Time{}, 0, err
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, time.Time{}, 0, err
	}

	return content, info.ModTime(), info.Size(), nil
}

// packageName extracts the name field from a package.json file
func packageName(pkgPath string) (string, error) {
	content, err := os.ReadFile(pkgPath)
	if err != nil {
		return "", err
	}

	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(content, &pkg); err != nil {
		return "", err
	}
	return pkg.Name, nil
}
