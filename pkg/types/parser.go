package types

// DeclKind represents the kind of a declaration found by the parser
type DeclKind string

const (
	DeclFunction  DeclKind = "function"   // function declaration
	DeclClosure   DeclKind = "closure"    // arrow/function expression bound to a const/let/var name
	DeclClass     DeclKind = "class"      // class declaration, including abstract classes
	DeclMethod    DeclKind = "method"     // class member: method or accessor, static or instance
	DeclInterface DeclKind = "interface"  // interface declaration
	DeclTypeAlias DeclKind = "type_alias" // type alias declaration
	DeclEnum      DeclKind = "enum"       // enum declaration, including const enum
	DeclUnknown   DeclKind = "unknown"    // recognized syntax with no chunk mapping (e.g. namespaces)
)

// ChunkKind maps a declaration kind to the corresponding chunk kind.
// Unknown declarations have no mapping and the second result is false.
func (k DeclKind) ChunkKind() (ChunkKind, bool) {
	switch k {
	case DeclFunction:
		return ChunkFunction, true
	case DeclClosure:
		return ChunkClosure, true
	case DeclClass:
		return ChunkClass, true
	case DeclMethod:
		return ChunkMethod, true
	case DeclInterface:
		return ChunkInterface, true
	case DeclTypeAlias:
		return ChunkTypeAlias, true
	case DeclEnum:
		return ChunkEnum, true
	default:
		return "", false
	}
}

// Declaration is one node of the structural representation the parser hands
// to the extractor. Children are the declarations nested inside this one, in
// document order, regardless of how deep inside the body they sit.
type Declaration struct {
	Kind DeclKind
	Name string

	// Location (1-based, inclusive)
	StartLine int
	EndLine   int

	// DocStartLine is the first line of the contiguous comment block
	// immediately preceding the declaration; 0 when there is none.
	DocStartLine int
	// DocComment holds the JSDoc text when the leading block is a JSDoc
	// comment; plain comments extend the envelope but carry no doc text.
	DocComment string

	// Modifiers of this declaration only, never inherited
	IsExported bool
	IsAsync    bool

	// Populated for callable declarations
	Parameters []string
	Signature  string

	Children []*Declaration
}

// LineSpan returns the number of source lines the declaration covers
func (d *Declaration) LineSpan() int {
	return d.EndLine - d.StartLine + 1
}

// ParseError represents an error that occurred during parsing
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	return pe.Message
}

// ParseResult represents the output of parsing a source file.
//
// Failed signals that no structural representation could be recovered; the
// extractor resolves that via its whole-file fallback policy. A successful
// parse may still carry Errors (partial syntax errors the parser recovered
// from).
type ParseResult struct {
	FilePath     string
	Language     string
	Declarations []*Declaration
	Failed       bool
	Errors       []ParseError
}

// HasErrors returns true if any parsing errors occurred
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError adds a parsing error to the result
func (pr *ParseResult) AddError(file string, line, col int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{
		File:    file,
		Line:    line,
		Column:  col,
		Message: msg,
	})
}
