package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tscontext/tscontext-mcp/pkg/types"
)

// fakeParser returns a canned parse result regardless of input
type fakeParser struct {
	result *types.ParseResult
}

func (f *fakeParser) ParseSource(content []byte, filePath string) *types.ParseResult {
	return f.result
}

// numberedSource builds a source text with the given number of lines
func numberedSource(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("// line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func decl(kind types.DeclKind, name string, start, end int, children ...*types.Declaration) *types.Declaration {
	return &types.Declaration{
		Kind:      kind,
		Name:      name,
		StartLine: start,
		EndLine:   end,
		Children:  children,
	}
}

func parseOK(decls ...*types.Declaration) *types.ParseResult {
	return &types.ParseResult{Declarations: decls}
}

func TestExtract_SingleTopLevelFunction(t *testing.T) {
	src := numberedSource(3)
	parse := parseOK(decl(types.DeclFunction, "alpha", 1, 3))

	ex := New(&fakeParser{result: parse}, DefaultOptions())
	result := ex.Extract(src, "alpha.ts")

	require.Equal(t, StatusOK, result.Status)
	require.Len(t, result.Chunks, 1)

	chunk := result.Chunks[0]
	assert.Equal(t, types.ChunkFunction, chunk.Kind)
	assert.Equal(t, "alpha", chunk.Name)
	assert.Equal(t, 0, chunk.NestingLevel)
	assert.Equal(t, []string{"alpha"}, chunk.ScopePath)
	assert.Empty(t, chunk.ParentChunkID)
	require.NoError(t, chunk.Validate())
}

func TestExtract_SmallNestedHelperMerges(t *testing.T) {
	// 3-line helper nested one level down, below the 5-line minimum
	src := numberedSource(10)
	parse := parseOK(
		decl(types.DeclFunction, "outer", 1, 10,
			decl(types.DeclFunction, "helper", 3, 5)),
	)

	ex := New(&fakeParser{result: parse}, DefaultOptions())
	result := ex.Extract(src, "outer.ts")

	require.Equal(t, StatusOK, result.Status)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "outer", result.Chunks[0].Name)
	// The helper's text still lives inside the outer chunk
	assert.Contains(t, result.Chunks[0].Code, "// line 4")
}

func TestExtract_NestedHelperAtMinimumKept(t *testing.T) {
	src := numberedSource(12)
	parse := parseOK(
		decl(types.DeclFunction, "outer", 1, 12,
			decl(types.DeclFunction, "helper", 3, 7)), // exactly 5 lines
	)

	ex := New(&fakeParser{result: parse}, DefaultOptions())
	result := ex.Extract(src, "outer.ts")

	require.Len(t, result.Chunks, 2)
	helper := result.Chunks[1]
	assert.Equal(t, "helper", helper.Name)
	assert.Equal(t, 1, helper.NestingLevel)
	assert.Equal(t, []string{"outer", "helper"}, helper.ScopePath)
	assert.Equal(t, result.Chunks[0].ID, helper.ParentChunkID)
}

func TestExtract_MaxNestingDepthCutoff(t *testing.T) {
	// Five levels of named functions; defaults keep levels 0-3 only.
	const total = 40
	src := numberedSource(total)

	level4 := decl(types.DeclFunction, "f4", 9, 9+7)
	level3 := decl(types.DeclFunction, "f3", 7, total-6, level4)
	level2 := decl(types.DeclFunction, "f2", 5, total-4, level3)
	level1 := decl(types.DeclFunction, "f1", 3, total-2, level2)
	level0 := decl(types.DeclFunction, "f0", 1, total, level1)

	ex := New(&fakeParser{result: parseOK(level0)}, DefaultOptions())
	result := ex.Extract(src, "deep.ts")

	require.Len(t, result.Chunks, 4)
	names := make([]string, 0, 4)
	for i, chunk := range result.Chunks {
		names = append(names, chunk.Name)
		assert.Equal(t, i, chunk.NestingLevel)
	}
	assert.Equal(t, []string{"f0", "f1", "f2", "f3"}, names)

	// Level-4 text appears inside level-3's code
	f3 := result.Chunks[3]
	assert.Contains(t, f3.Code, "// line 9")
}

func TestExtract_MergedSubtreeIsOpaque(t *testing.T) {
	// A merged declaration's large descendant must not resurface as a chunk
	src := numberedSource(30)
	big := decl(types.DeclFunction, "bigInsideSmall", 12, 28)
	small := decl(types.DeclFunction, "small", 11, 13, big) // 3 lines, merged
	outer := decl(types.DeclFunction, "outer", 1, 30, small)

	ex := New(&fakeParser{result: parseOK(outer)}, DefaultOptions())
	result := ex.Extract(src, "opaque.ts")

	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "outer", result.Chunks[0].Name)
}

func TestExtract_FallbackWholeFile(t *testing.T) {
	src := "this is not any kind of program {{{"
	parse := &types.ParseResult{Failed: true}

	ex := New(&fakeParser{result: parse}, DefaultOptions())
	result := ex.Extract(src, "/tmp/project/broken.ts")

	require.Equal(t, StatusFallback, result.Status)
	require.Len(t, result.Chunks, 1)

	chunk := result.Chunks[0]
	assert.Equal(t, types.ChunkFile, chunk.Kind)
	assert.Equal(t, "broken.ts", chunk.Name)
	assert.Equal(t, []string{"broken.ts"}, chunk.ScopePath)
	assert.Equal(t, 0, chunk.NestingLevel)
	assert.Equal(t, 1, chunk.StartLine)
	assert.Equal(t, src, chunk.Code)
	assert.False(t, chunk.Metadata.IsExported)
	assert.False(t, chunk.Metadata.IsAsync)
	assert.Empty(t, chunk.Metadata.Parameters)
	require.NoError(t, chunk.Validate())
}

func TestExtract_FallbackDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.FallbackToWholeFile = false

	ex := New(&fakeParser{result: &types.ParseResult{Failed: true}}, opts)
	result := ex.Extract("garbage content", "bad.ts")

	assert.Equal(t, StatusUnparsable, result.Status)
	assert.Empty(t, result.Chunks)
}

func TestExtract_EmptyInput(t *testing.T) {
	ex := New(&fakeParser{result: &types.ParseResult{Failed: true}}, DefaultOptions())

	for _, src := range []string{"", "   ", "\n\n\t\n"} {
		result := ex.Extract(src, "empty.ts")
		assert.Equal(t, StatusEmpty, result.Status)
		assert.Empty(t, result.Chunks)
	}
}

func TestExtract_UnknownKindSkipped(t *testing.T) {
	src := numberedSource(10)
	parse := parseOK(
		&types.Declaration{Kind: types.DeclUnknown, Name: "Legacy", StartLine: 1, EndLine: 10},
	)

	ex := New(&fakeParser{result: parse}, DefaultOptions())
	result := ex.Extract(src, "ns.ts")

	// Not merged, not emitted: an empty result is a valid non-error outcome
	assert.Equal(t, StatusOK, result.Status)
	assert.Empty(t, result.Chunks)
}

func TestExtract_EnvelopeIncludesLeadingComments(t *testing.T) {
	src := strings.Join([]string{
		"/**",
		" * Greets a user.",
		" */",
		"function greet(name: string) {",
		"  return 'hi ' + name;",
		"}",
	}, "\n")

	d := &types.Declaration{
		Kind:         types.DeclFunction,
		Name:         "greet",
		StartLine:    4,
		EndLine:      6,
		DocStartLine: 1,
		DocComment:   "/**\n * Greets a user.\n */",
		Parameters:   []string{"name: string"},
	}

	ex := New(&fakeParser{result: parseOK(d)}, DefaultOptions())
	result := ex.Extract(src, "greet.ts")

	require.Len(t, result.Chunks, 1)
	chunk := result.Chunks[0]
	assert.Equal(t, 1, chunk.StartLine)
	assert.Equal(t, 4, chunk.ContentStartLine)
	assert.Equal(t, 6, chunk.ContentEndLine)
	assert.Equal(t, 6, chunk.EndLine)
	assert.Equal(t, src, chunk.Code)
	assert.Contains(t, chunk.Metadata.DocComment, "Greets a user")
	require.NoError(t, chunk.Validate())
}

func TestExtract_MetadataFromDeclaration(t *testing.T) {
	src := numberedSource(5)
	d := &types.Declaration{
		Kind:       types.DeclFunction,
		Name:       "fetchUsers",
		StartLine:  1,
		EndLine:    5,
		IsExported: true,
		IsAsync:    true,
		Parameters: []string{"limit: number", "offset: number"},
		Signature:  "function fetchUsers(limit: number, offset: number)",
	}

	ex := New(&fakeParser{result: parseOK(d)}, DefaultOptions())
	result := ex.Extract(src, "users.ts")

	require.Len(t, result.Chunks, 1)
	meta := result.Chunks[0].Metadata
	assert.True(t, meta.IsExported)
	assert.True(t, meta.IsAsync)
	assert.Equal(t, []string{"limit: number", "offset: number"}, meta.Parameters)
	assert.Equal(t, "function fetchUsers(limit: number, offset: number)", meta.Signature)
}

func TestExtract_DocumentOrder(t *testing.T) {
	src := numberedSource(40)
	parse := parseOK(
		decl(types.DeclClass, "Zebra", 1, 12,
			decl(types.DeclMethod, "run", 2, 8)),
		decl(types.DeclFunction, "apple", 14, 20),
		decl(types.DeclEnum, "Color", 22, 30),
	)

	ex := New(&fakeParser{result: parse}, DefaultOptions())
	result := ex.Extract(src, "ordered.ts")

	names := make([]string, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		names = append(names, chunk.Name)
	}
	assert.Equal(t, []string{"Zebra", "run", "apple", "Color"}, names)
}

func TestExtract_ParentExistsEarlierInResult(t *testing.T) {
	src := numberedSource(30)
	parse := parseOK(
		decl(types.DeclClass, "Service", 1, 30,
			decl(types.DeclMethod, "start", 2, 10,
				decl(types.DeclFunction, "retry", 3, 9))),
	)

	ex := New(&fakeParser{result: parse}, DefaultOptions())
	result := ex.Extract(src, "service.ts")

	seen := make(map[string]bool)
	for _, chunk := range result.Chunks {
		if chunk.ParentChunkID != "" {
			assert.True(t, seen[chunk.ParentChunkID],
				"parent of %s must appear earlier in the result", chunk.Name)
		}
		seen[chunk.ID] = true
		require.NoError(t, chunk.Validate())
	}
}

func TestExtract_Determinism(t *testing.T) {
	src := numberedSource(25)
	parse := parseOK(
		decl(types.DeclFunction, "first", 1, 10,
			decl(types.DeclFunction, "inner", 2, 8)),
		decl(types.DeclInterface, "Config", 12, 20),
	)

	ex := New(&fakeParser{result: parse}, DefaultOptions())
	a := ex.Extract(src, "same.ts")
	b := ex.Extract(src, "same.ts")

	require.Equal(t, len(a.Chunks), len(b.Chunks))
	for i := range a.Chunks {
		assert.Equal(t, a.Chunks[i].Kind, b.Chunks[i].Kind)
		assert.Equal(t, a.Chunks[i].Name, b.Chunks[i].Name)
		assert.Equal(t, a.Chunks[i].ScopePath, b.Chunks[i].ScopePath)
		assert.Equal(t, a.Chunks[i].ContentHash, b.Chunks[i].ContentHash)
		// IDs are fresh every run
		assert.NotEqual(t, a.Chunks[i].ID, b.Chunks[i].ID)
	}
}

func TestExtract_NilParser(t *testing.T) {
	ex := New(nil, DefaultOptions())
	result := ex.Extract("function f() {}", "f.ts")

	// No parser behaves as a parse failure
	require.Equal(t, StatusFallback, result.Status)
	require.Len(t, result.Chunks, 1)
}
