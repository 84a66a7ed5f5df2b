// Package extractor converts parsed source text into a bounded set of
// semantically meaningful, independently re-embeddable chunks.
//
// The extractor walks the declaration tree top-down and decides, per
// declaration, whether it deserves its own chunk or should be folded into an
// ancestor's text:
//
//   - top-level declarations are always kept
//   - nested declarations are kept only within MaxNestingDepth and when they
//     span at least MinLinesForNestedChunk lines
//   - merged declarations stay opaque text inside the nearest kept ancestor;
//     their descendants are never evaluated
//
// NestingLevel counts kept ancestors only, so a tiny helper merged into its
// parent does not push its siblings a level deeper.
//
// # Envelope
//
// Each kept chunk's envelope extends backward over the contiguous comment
// block directly above the declaration. StartLine/EndLine bound the envelope;
// ContentStartLine/ContentEndLine bound the declaration itself.
//
// # Fallback
//
// Unparsable input never raises. With FallbackToWholeFile enabled the whole
// file becomes a single chunk named after the file; disabled, the result is
// empty. Empty or whitespace-only input always yields an empty result. The
// Result's Status field tells these outcomes apart.
//
// # Basic Usage
//
//	ex := extractor.New(parser.New(), extractor.DefaultOptions())
//	result := ex.Extract(sourceText, "src/auth.ts")
//	for _, chunk := range result.Chunks {
//	    fmt.Printf("%s %s lines %d-%d\n", chunk.Kind, chunk.Name, chunk.StartLine, chunk.EndLine)
//	}
//
// Extraction is deterministic: the same source and options always produce
// the same chunks under the (Kind, Name, ScopePath, ContentHash) projection.
// Only the IDs differ between runs, which the differ is built to tolerate.
package extractor
