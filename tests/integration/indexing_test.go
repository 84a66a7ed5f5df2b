package integration

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tscontext/tscontext-mcp/internal/embedder"
	"github.com/tscontext/tscontext-mcp/internal/indexer"
	"github.com/tscontext/tscontext-mcp/internal/storage"
)

// IndexingTestSuite contains tests for the indexing pipeline
type IndexingTestSuite struct {
	suite.Suite
	storage     storage.Storage
	indexer     *indexer.Indexer
	fixturesDir string
	ctx         context.Context
}

// SetupSuite runs once before all tests
func (s *IndexingTestSuite) SetupSuite() {
	s.ctx = context.Background()

	wd, err := os.Getwd()
	s.Require().NoError(err)
	s.fixturesDir = filepath.Join(filepath.Dir(wd), "testdata", "fixtures")

	_, err = os.Stat(s.fixturesDir)
	s.Require().NoError(err, "fixtures directory should exist")
}

// SetupTest runs before each test
func (s *IndexingTestSuite) SetupTest() {
	store, err := storage.NewSQLiteStorage(":memory:")
	s.Require().NoError(err)
	s.storage = store

	s.indexer = indexer.New(s.storage, embedder.NewLocal(0))
}

// TearDownTest runs after each test
func (s *IndexingTestSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

// copyFixtures clones the fixture tree into a temp directory so tests can
// mutate files without touching the shared fixtures.
func (s *IndexingTestSuite) copyFixtures() string {
	dst := s.T().TempDir()
	err := filepath.Walk(s.fixturesDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.fixturesDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	s.Require().NoError(err)
	return dst
}

// TestFullIndexing tests the complete indexing pipeline
func (s *IndexingTestSuite) TestFullIndexing() {
	config := &indexer.Config{
		IncludeTests: true,
		Workers:      2,
	}

	stats, err := s.indexer.IndexProject(s.ctx, s.fixturesDir, config)
	s.Require().NoError(err, "indexing should succeed")
	s.NotNil(stats)

	s.T().Logf("Indexing stats: %+v", stats)

	// Fixtures: service.ts, repository.ts, utils.js, Button.tsx, broken.ts
	s.Equal(5, stats.FilesIndexed)
	s.Equal(0, stats.FilesSkipped)
	s.Greater(stats.ChunksAdded, 5, "each fixture contributes multiple chunks")
	s.Equal(stats.ChunksAdded, stats.ChunksEmbedded)

	project, err := s.storage.GetProject(s.ctx, s.fixturesDir)
	s.Require().NoError(err)
	s.Equal("fixtures-app", project.Name)
	s.Equal(stats.ChunksAdded, project.TotalChunks)
}

// TestIncrementalNoChanges verifies a second run skips unchanged files
func (s *IndexingTestSuite) TestIncrementalNoChanges() {
	first, err := s.indexer.IndexProject(s.ctx, s.fixturesDir, nil)
	s.Require().NoError(err)

	second, err := s.indexer.IndexProject(s.ctx, s.fixturesDir, nil)
	s.Require().NoError(err)

	s.Equal(0, second.FilesIndexed)
	s.Equal(first.FilesIndexed, second.FilesSkipped)
	s.Equal(0, second.ChunksAdded)
	s.Equal(0, second.ChunksEmbedded)
}

// TestIncrementalModification verifies that only changed chunks are
// rewritten and re-embedded when one file changes.
func (s *IndexingTestSuite) TestIncrementalModification() {
	root := s.copyFixtures()

	_, err := s.indexer.IndexProject(s.ctx, root, nil)
	s.Require().NoError(err)

	project, err := s.storage.GetProject(s.ctx, root)
	s.Require().NoError(err)
	file, err := s.storage.GetFile(s.ctx, project.ID, filepath.Join("src", "users", "repository.ts"))
	s.Require().NoError(err)

	before, err := s.storage.ListChunksByFile(s.ctx, file.ID)
	s.Require().NoError(err)

	beforeIDs := make(map[string]string)
	for _, c := range before {
		beforeIDs[c.IdentityKey] = c.ChunkID
	}

	// Rewrite one method body
	target := filepath.Join(root, "src", "users", "repository.ts")
	data, err := os.ReadFile(target)
	s.Require().NoError(err)
	updated := strings.Replace(string(data),
		"return this.byID.delete(id);",
		"const existed = this.byID.has(id);\n    this.byID.delete(id);\n    return existed;", 1)
	s.Require().NotEqual(string(data), updated)
	s.Require().NoError(os.WriteFile(target, []byte(updated), 0o644))

	stats, err := s.indexer.IndexProject(s.ctx, root, nil)
	s.Require().NoError(err)

	s.Equal(1, stats.FilesIndexed, "only the modified file is re-indexed")
	s.GreaterOrEqual(stats.ChunksModified, 1)
	s.GreaterOrEqual(stats.ChunksUnchanged, 1)
	s.Equal(stats.ChunksAdded+stats.ChunksModified, stats.ChunksEmbedded)

	after, err := s.storage.ListChunksByFile(s.ctx, file.ID)
	s.Require().NoError(err)

	for _, c := range after {
		oldID, known := beforeIDs[c.IdentityKey]
		if !known {
			continue
		}
		if strings.Contains(c.Code, "const existed") {
			s.NotEqual(oldID, c.ChunkID, "modified chunk gets a new ID")
		} else if !strings.Contains(c.Code, "class UserRepository") {
			// Untouched chunks keep their IDs so embeddings stay valid
			s.Equal(oldID, c.ChunkID, "unchanged chunk %s keeps its ID", c.Name)
			_, err := s.storage.GetEmbedding(s.ctx, c.ChunkID)
			s.NoError(err, "unchanged chunk %s keeps its embedding", c.Name)
		}
	}
}

// TestFileRemoval verifies stale files are dropped on reindex
func (s *IndexingTestSuite) TestFileRemoval() {
	root := s.copyFixtures()

	first, err := s.indexer.IndexProject(s.ctx, root, nil)
	s.Require().NoError(err)
	s.Equal(5, first.FilesIndexed)

	s.Require().NoError(os.Remove(filepath.Join(root, "src", "utils.js")))

	second, err := s.indexer.IndexProject(s.ctx, root, nil)
	s.Require().NoError(err)
	s.Equal(1, second.FilesRemoved)

	project, err := s.storage.GetProject(s.ctx, root)
	s.Require().NoError(err)
	_, err = s.storage.GetFile(s.ctx, project.ID, filepath.Join("src", "utils.js"))
	s.ErrorIs(err, storage.ErrNotFound)
}

// TestFallbackExtraction verifies unparsable files get a whole-file chunk
func (s *IndexingTestSuite) TestFallbackExtraction() {
	_, err := s.indexer.IndexProject(s.ctx, s.fixturesDir, nil)
	s.Require().NoError(err)

	project, err := s.storage.GetProject(s.ctx, s.fixturesDir)
	s.Require().NoError(err)
	file, err := s.storage.GetFile(s.ctx, project.ID, filepath.Join("src", "broken.ts"))
	s.Require().NoError(err)

	s.Equal("fallback", file.ExtractStatus)

	chunks, err := s.storage.ListChunksByFile(s.ctx, file.ID)
	s.Require().NoError(err)
	s.Require().Len(chunks, 1)
	s.Equal("file", chunks[0].Kind)
	s.Contains(chunks[0].Code, ">>>>>>> feature/refactor")
}

// TestSkipEmbeddings verifies the embedding stage can be disabled
func (s *IndexingTestSuite) TestSkipEmbeddings() {
	config := &indexer.Config{SkipEmbeddings: true}

	stats, err := s.indexer.IndexProject(s.ctx, s.fixturesDir, config)
	s.Require().NoError(err)

	s.Greater(stats.ChunksAdded, 0)
	s.Equal(0, stats.ChunksEmbedded)

	project, err := s.storage.GetProject(s.ctx, s.fixturesDir)
	s.Require().NoError(err)

	status, err := s.storage.GetStatus(s.ctx, project.ID)
	s.Require().NoError(err)
	s.Equal(0, status.EmbeddingsCount)
}

// TestIndexingSuite runs the indexing test suite
func TestIndexingSuite(t *testing.T) {
	suite.Run(t, new(IndexingTestSuite))
}
