package extractor

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tscontext/tscontext-mcp/pkg/types"
)

const (
	// DefaultMaxNestingDepth is the deepest level at which nested
	// declarations may still become their own chunks
	DefaultMaxNestingDepth = 3

	// DefaultMinLinesForNestedChunk is the smallest nested declaration
	// worth chunking on its own; anything shorter merges into its ancestor
	DefaultMinLinesForNestedChunk = 5
)

// Options controls chunk boundary decisions
type Options struct {
	MaxNestingDepth        int
	MinLinesForNestedChunk int
	FallbackToWholeFile    bool
}

// DefaultOptions returns the standard extraction options
func DefaultOptions() Options {
	return Options{
		MaxNestingDepth:        DefaultMaxNestingDepth,
		MinLinesForNestedChunk: DefaultMinLinesForNestedChunk,
		FallbackToWholeFile:    true,
	}
}

// Status reports how an extraction concluded. The chunk list alone cannot
// distinguish "parse failed, fallback emitted" from "file legitimately
// empty"; Status makes that explicit for callers that want to log or count
// parse failures.
type Status string

const (
	// StatusOK means the source parsed and chunks reflect its structure
	StatusOK Status = "ok"
	// StatusFallback means parsing failed and a whole-file chunk was emitted
	StatusFallback Status = "fallback"
	// StatusEmpty means the source was empty or whitespace-only
	StatusEmpty Status = "empty"
	// StatusUnparsable means parsing failed and fallback was disabled
	StatusUnparsable Status = "unparsable"
)

// Result is the outcome of one extraction run
type Result struct {
	Chunks []*types.CodeChunk
	Status Status
}

// SourceParser supplies the structural representation of source text.
// A nil result or a result with Failed set signals parse failure.
type SourceParser interface {
	ParseSource(content []byte, filePath string) *types.ParseResult
}

// Extractor converts source text into a bounded set of semantically
// meaningful, independently re-embeddable chunks.
//
// Extraction is a pure, synchronous transformation with no I/O and no shared
// mutable state; one Extractor may be used concurrently across files.
type Extractor struct {
	parser SourceParser
	opts   Options
}

// New creates an Extractor around a parser collaborator
func New(parser SourceParser, opts Options) *Extractor {
	if opts.MaxNestingDepth <= 0 {
		opts.MaxNestingDepth = DefaultMaxNestingDepth
	}
	if opts.MinLinesForNestedChunk <= 0 {
		opts.MinLinesForNestedChunk = DefaultMinLinesForNestedChunk
	}
	return &Extractor{parser: parser, opts: opts}
}

// Extract parses sourceText and produces its chunk set. It never fails for
// malformed input; parse failure degrades to the whole-file fallback chunk
// or an empty result depending on options.
func (e *Extractor) Extract(sourceText, filePath string) *Result {
	if strings.TrimSpace(sourceText) == "" {
		return &Result{Chunks: []*types.CodeChunk{}, Status: StatusEmpty}
	}

	var parse *types.ParseResult
	if e.parser != nil {
		parse = e.parser.ParseSource([]byte(sourceText), filePath)
	}

	return e.ExtractParsed(sourceText, filePath, parse)
}

// ExtractParsed produces the chunk set for source text whose parse result
// the caller already holds
func (e *Extractor) ExtractParsed(sourceText, filePath string, parse *types.ParseResult) *Result {
	if strings.TrimSpace(sourceText) == "" {
		return &Result{Chunks: []*types.CodeChunk{}, Status: StatusEmpty}
	}

	lines := strings.Split(sourceText, "\n")

	if parse == nil || parse.Failed {
		if !e.opts.FallbackToWholeFile {
			return &Result{Chunks: []*types.CodeChunk{}, Status: StatusUnparsable}
		}
		return &Result{
			Chunks: []*types.CodeChunk{e.fallbackChunk(filePath, lines)},
			Status: StatusFallback,
		}
	}

	w := &walker{
		extractor: e,
		filePath:  filePath,
		lines:     lines,
		now:       time.Now(),
	}

	for _, decl := range parse.Declarations {
		w.visit(decl)
	}

	if w.chunks == nil {
		w.chunks = []*types.CodeChunk{}
	}
	return &Result{Chunks: w.chunks, Status: StatusOK}
}

// walker carries the traversal state for a single extraction run. The
// ancestor stack is function-local to the run, keeping Extract reentrant.
type walker struct {
	extractor *Extractor
	filePath  string
	lines     []string
	now       time.Time

	ancestors []*types.CodeChunk
	chunks    []*types.CodeChunk
}

// visit applies the keep/merge rule to one declaration and recurses into the
// subtree of kept declarations
func (w *walker) visit(decl *types.Declaration) {
	kind, ok := decl.Kind.ChunkKind()
	if !ok {
		// No chunk mapping: skipped outright, subtree included. Its text
		// still sits inside whatever ancestor spans those lines.
		return
	}

	nestingLevel := len(w.ancestors)
	if !w.keep(decl, nestingLevel) {
		// Merged: the declaration's text stays part of the nearest kept
		// ancestor's code and its descendants are never evaluated.
		return
	}

	chunk := w.buildChunk(decl, kind, nestingLevel)
	w.chunks = append(w.chunks, chunk)

	w.ancestors = append(w.ancestors, chunk)
	for _, child := range decl.Children {
		w.visit(child)
	}
	w.ancestors = w.ancestors[:len(w.ancestors)-1]
}

// keep decides whether a declaration becomes its own chunk. Top-level
// declarations always do; nested ones must sit within the depth limit and
// meet the minimum line span.
func (w *walker) keep(decl *types.Declaration, nestingLevel int) bool {
	if nestingLevel == 0 {
		return true
	}
	return nestingLevel <= w.extractor.opts.MaxNestingDepth &&
		decl.LineSpan() >= w.extractor.opts.MinLinesForNestedChunk
}

// buildChunk assembles the chunk for a kept declaration, expanding the
// envelope backward over the leading comment block
func (w *walker) buildChunk(decl *types.Declaration, kind types.ChunkKind, nestingLevel int) *types.CodeChunk {
	startLine := decl.StartLine
	if decl.DocStartLine > 0 && decl.DocStartLine < startLine {
		startLine = decl.DocStartLine
	}

	scopePath := make([]string, 0, nestingLevel+1)
	for _, ancestor := range w.ancestors {
		scopePath = append(scopePath, ancestor.Name)
	}
	scopePath = append(scopePath, decl.Name)

	parentID := ""
	if nestingLevel > 0 {
		parentID = w.ancestors[nestingLevel-1].ID
	}

	params := decl.Parameters
	if params == nil {
		params = []string{}
	}

	chunk := &types.CodeChunk{
		ID:               uuid.NewString(),
		FilePath:         w.filePath,
		Kind:             kind,
		Name:             decl.Name,
		StartLine:        startLine,
		EndLine:          decl.EndLine,
		ContentStartLine: decl.StartLine,
		ContentEndLine:   decl.EndLine,
		Code:             w.sliceLines(startLine, decl.EndLine),
		NestingLevel:     nestingLevel,
		ScopePath:        scopePath,
		ParentChunkID:    parentID,
		Metadata: types.ChunkMetadata{
			IsExported: decl.IsExported,
			IsAsync:    decl.IsAsync,
			Parameters: params,
			Signature:  decl.Signature,
			DocComment: decl.DocComment,
		},
		CreatedAt: w.now,
		UpdatedAt: w.now,
	}
	chunk.ComputeContentHash()

	return chunk
}

// sliceLines extracts the exact source text for an inclusive 1-based range
func (w *walker) sliceLines(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(w.lines) {
		end = len(w.lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(w.lines[start-1:end], "\n")
}

// fallbackChunk builds the single whole-file chunk emitted when parsing
// fails and fallback is enabled
func (e *Extractor) fallbackChunk(filePath string, lines []string) *types.CodeChunk {
	base := filepath.Base(filePath)
	now := time.Now()

	chunk := &types.CodeChunk{
		ID:               uuid.NewString(),
		FilePath:         filePath,
		Kind:             types.ChunkFile,
		Name:             base,
		StartLine:        1,
		EndLine:          len(lines),
		ContentStartLine: 1,
		ContentEndLine:   len(lines),
		Code:             strings.Join(lines, "\n"),
		NestingLevel:     0,
		ScopePath:        []string{base},
		Metadata: types.ChunkMetadata{
			Parameters: []string{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	chunk.ComputeContentHash()

	return chunk
}
