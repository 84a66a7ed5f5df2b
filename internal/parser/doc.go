// Package parser turns TypeScript and JavaScript source into the structural
// declaration tree the extractor consumes.
//
// Parsing uses tree-sitter grammars selected by file extension (.ts/.mts/.cts,
// .tsx, and the JavaScript variants). The parser recognizes the declaration
// forms that can become chunks:
//
//   - function declarations (including generators)
//   - arrow/function expressions bound to const/let/var names
//   - class declarations and their members (methods, accessors,
//     function-valued fields)
//   - interface declarations
//   - type alias declarations
//   - enum declarations (const enums included)
//
// Namespaces and ambient declarations are surfaced with DeclUnknown so the
// extractor can skip them uniformly.
//
// # Failure Semantics
//
// ParseSource never returns an error for malformed source. A file where
// tree-sitter recovers nothing useful is marked Failed; a file with syntax
// errors but recoverable declarations records the errors and returns the
// partial tree, mirroring how the extractor's fallback policy expects to be
// driven.
//
// # Basic Usage
//
//	p := parser.New()
//	result := p.ParseSource(content, "src/service.ts")
//	if result.Failed {
//	    // extractor will emit a whole-file fallback chunk
//	}
//	for _, decl := range result.Declarations {
//	    fmt.Printf("%s %s lines %d-%d\n", decl.Kind, decl.Name, decl.StartLine, decl.EndLine)
//	}
package parser
