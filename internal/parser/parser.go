package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/tscontext/tscontext-mcp/pkg/types"
)

// Parser produces the structural declaration tree the extractor consumes.
// It is safe for concurrent use; each parse creates its own tree-sitter
// parser instance.
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// Extensions returns the file extensions the parser handles
func Extensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}
}

// Supported reports whether the parser handles the given file path
func Supported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, e := range Extensions() {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseFile reads and parses a source file from disk
func (p *Parser) ParseFile(filePath string) (*types.ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.ParseSource(content, filePath), nil
}

// ParseSource parses source content into a declaration tree.
//
// Parse failure is not an error: a result with Failed set signals that no
// structural representation could be recovered, and the extractor resolves
// that through its fallback policy. Partial syntax errors are recorded in
// Errors while the recovered declarations are still returned.
func (p *Parser) ParseSource(content []byte, filePath string) *types.ParseResult {
	lang, langName := languageForPath(filePath)

	result := &types.ParseResult{
		FilePath: filePath,
		Language: langName,
	}

	sp := sitter.NewParser()
	sp.SetLanguage(lang)

	tree, err := sp.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		result.Failed = true
		result.AddError(filePath, 0, 0, fmt.Sprintf("tree-sitter parse failed: %v", err))
		return result
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		result.Failed = true
		result.AddError(filePath, 0, 0, "tree-sitter returned nil root node")
		return result
	}

	if root.HasError() {
		result.AddError(filePath, 0, 0, "source contains syntax errors")
	}

	result.Declarations = p.collectDeclarations(root, content)

	// A tree that is all errors with nothing recoverable counts as a failed
	// parse; a broken file that still yields declarations does not.
	if root.HasError() && len(result.Declarations) == 0 {
		result.Failed = true
	}

	return result
}

// languageForPath selects the tree-sitter grammar by file extension
func languageForPath(filePath string) (*sitter.Language, string) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".tsx":
		return tsx.GetLanguage(), "typescript"
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage(), "javascript"
	default:
		return typescript.GetLanguage(), "typescript"
	}
}

// collectDeclarations scans a subtree for declarations in document order.
// It does not descend into the bodies of declarations it recognizes; those
// are walked by the per-declaration builders so nesting stays explicit.
func (p *Parser) collectDeclarations(node *sitter.Node, content []byte) []*types.Declaration {
	var decls []*types.Declaration

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "export_statement":
			decls = append(decls, p.exportedDeclarations(child, content)...)
		case "function_declaration", "generator_function_declaration":
			if d := p.functionDecl(child, child, content, false); d != nil {
				decls = append(decls, d)
			}
		case "lexical_declaration", "variable_declaration":
			decls = append(decls, p.closureDecls(child, child, content, false)...)
		case "class_declaration", "abstract_class_declaration":
			if d := p.classDecl(child, child, content, false); d != nil {
				decls = append(decls, d)
			}
		case "interface_declaration":
			if d := p.simpleDecl(child, child, content, types.DeclInterface, false); d != nil {
				decls = append(decls, d)
			}
		case "type_alias_declaration":
			if d := p.simpleDecl(child, child, content, types.DeclTypeAlias, false); d != nil {
				decls = append(decls, d)
			}
		case "enum_declaration":
			// const enums classify the same as plain enums
			if d := p.simpleDecl(child, child, content, types.DeclEnum, false); d != nil {
				decls = append(decls, d)
			}
		case "internal_module", "module", "ambient_declaration":
			if d := p.simpleDecl(child, child, content, types.DeclUnknown, false); d != nil {
				decls = append(decls, d)
			}
		case "comment", "import_statement":
			// not declaration material
		default:
			// Descend through statement containers (if/try/loop bodies) so
			// nested named declarations are still found.
			decls = append(decls, p.collectDeclarations(child, content)...)
		}
	}

	return decls
}

// exportedDeclarations unwraps an export statement and marks the inner
// declarations as exported
func (p *Parser) exportedDeclarations(node *sitter.Node, content []byte) []*types.Declaration {
	var decls []*types.Declaration

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_declaration", "generator_function_declaration":
			if d := p.functionDecl(child, node, content, true); d != nil {
				decls = append(decls, d)
			}
		case "lexical_declaration", "variable_declaration":
			decls = append(decls, p.closureDecls(child, node, content, true)...)
		case "class_declaration", "abstract_class_declaration":
			if d := p.classDecl(child, node, content, true); d != nil {
				decls = append(decls, d)
			}
		case "interface_declaration":
			if d := p.simpleDecl(child, node, content, types.DeclInterface, true); d != nil {
				decls = append(decls, d)
			}
		case "type_alias_declaration":
			if d := p.simpleDecl(child, node, content, types.DeclTypeAlias, true); d != nil {
				decls = append(decls, d)
			}
		case "enum_declaration":
			if d := p.simpleDecl(child, node, content, types.DeclEnum, true); d != nil {
				decls = append(decls, d)
			}
		case "internal_module", "module":
			if d := p.simpleDecl(child, node, content, types.DeclUnknown, true); d != nil {
				decls = append(decls, d)
			}
		}
	}

	return decls
}

// functionDecl builds a Declaration for a function declaration.
// wrapper is the outermost node for span and doc purposes (the
// export_statement when the declaration is exported, the node itself
// otherwise).
func (p *Parser) functionDecl(node, wrapper *sitter.Node, content []byte, exported bool) *types.Declaration {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return nil
	}

	d := &types.Declaration{
		Kind:       types.DeclFunction,
		Name:       name,
		StartLine:  startLine(wrapper),
		EndLine:    endLine(wrapper),
		IsExported: exported,
		IsAsync:    hasChildOfType(node, "async"),
	}

	paramsNode := node.ChildByFieldName("parameters")
	d.Parameters = splitParameters(nodeText(paramsNode, content))

	sig := "function " + name + nodeText(paramsNode, content)
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		sig += strings.TrimSpace(nodeText(ret, content))
	}
	d.Signature = sig

	d.DocComment, d.DocStartLine = p.precedingDoc(wrapper, content)

	if body := node.ChildByFieldName("body"); body != nil {
		d.Children = p.collectDeclarations(body, content)
	}

	return d
}

// closureDecls builds Declarations for function expressions and arrow
// functions bound to const/let/var names. Declarators without a function
// value are plain variables and produce no declaration at all.
func (p *Parser) closureDecls(node, wrapper *sitter.Node, content []byte, exported bool) []*types.Declaration {
	var decls []*types.Declaration

	for i := 0; i < int(node.NamedChildCount()); i++ {
		declarator := node.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}

		value := declarator.ChildByFieldName("value")
		if !isFunctionValue(value) {
			continue
		}

		nameNode := declarator.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != "identifier" {
			// destructuring patterns have no single name to chunk under
			continue
		}
		name := nodeText(nameNode, content)

		d := &types.Declaration{
			Kind:       types.DeclClosure,
			Name:       name,
			StartLine:  startLine(wrapper),
			EndLine:    endLine(wrapper),
			IsExported: exported,
			IsAsync:    hasChildOfType(value, "async"),
		}

		if paramsNode := value.ChildByFieldName("parameters"); paramsNode != nil {
			d.Parameters = splitParameters(nodeText(paramsNode, content))
			d.Signature = name + nodeText(paramsNode, content)
		} else if param := value.ChildByFieldName("parameter"); param != nil {
			// single-identifier arrow parameter without parentheses
			d.Parameters = []string{nodeText(param, content)}
			d.Signature = name + "(" + nodeText(param, content) + ")"
		} else {
			d.Parameters = []string{}
			d.Signature = name + "()"
		}

		d.DocComment, d.DocStartLine = p.precedingDoc(wrapper, content)

		if body := value.ChildByFieldName("body"); body != nil && body.Type() == "statement_block" {
			d.Children = p.collectDeclarations(body, content)
		}

		decls = append(decls, d)
	}

	return decls
}

// classDecl builds a Declaration for a class and its members
func (p *Parser) classDecl(node, wrapper *sitter.Node, content []byte, exported bool) *types.Declaration {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return nil
	}

	d := &types.Declaration{
		Kind:       types.DeclClass,
		Name:       name,
		StartLine:  startLine(wrapper),
		EndLine:    endLine(wrapper),
		IsExported: exported,
		Signature:  "class " + name,
	}
	d.DocComment, d.DocStartLine = p.precedingDoc(wrapper, content)

	body := node.ChildByFieldName("body")
	if body == nil {
		return d
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_definition":
			if m := p.methodDecl(member, content); m != nil {
				d.Children = append(d.Children, m)
			}
		case "public_field_definition", "field_definition":
			// fields bound to arrow/function values count as class members
			if value := member.ChildByFieldName("value"); isFunctionValue(value) {
				if m := p.fieldMethodDecl(member, value, content); m != nil {
					d.Children = append(d.Children, m)
				}
			}
		}
	}

	return d
}

// methodDecl builds a Declaration for a method or accessor definition
func (p *Parser) methodDecl(node *sitter.Node, content []byte) *types.Declaration {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return nil
	}

	d := &types.Declaration{
		Kind:      types.DeclMethod,
		Name:      name,
		StartLine: startLine(node),
		EndLine:   endLine(node),
		IsAsync:   hasChildOfType(node, "async"),
	}

	paramsNode := node.ChildByFieldName("parameters")
	d.Parameters = splitParameters(nodeText(paramsNode, content))
	d.Signature = name + nodeText(paramsNode, content)

	d.DocComment, d.DocStartLine = p.precedingDoc(node, content)

	if body := node.ChildByFieldName("body"); body != nil {
		d.Children = p.collectDeclarations(body, content)
	}

	return d
}

// fieldMethodDecl builds a Declaration for a class field bound to a function
func (p *Parser) fieldMethodDecl(node, value *sitter.Node, content []byte) *types.Declaration {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return nil
	}

	d := &types.Declaration{
		Kind:      types.DeclMethod,
		Name:      name,
		StartLine: startLine(node),
		EndLine:   endLine(node),
		IsAsync:   hasChildOfType(value, "async"),
	}

	if paramsNode := value.ChildByFieldName("parameters"); paramsNode != nil {
		d.Parameters = splitParameters(nodeText(paramsNode, content))
		d.Signature = name + nodeText(paramsNode, content)
	} else {
		d.Parameters = []string{}
		d.Signature = name + "()"
	}

	d.DocComment, d.DocStartLine = p.precedingDoc(node, content)

	if body := value.ChildByFieldName("body"); body != nil && body.Type() == "statement_block" {
		d.Children = p.collectDeclarations(body, content)
	}

	return d
}

// simpleDecl builds a Declaration for kinds without nested candidates
// (interfaces, type aliases, enums, and unknown constructs)
func (p *Parser) simpleDecl(node, wrapper *sitter.Node, content []byte, kind types.DeclKind, exported bool) *types.Declaration {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return nil
	}

	d := &types.Declaration{
		Kind:       kind,
		Name:       name,
		StartLine:  startLine(wrapper),
		EndLine:    endLine(wrapper),
		IsExported: exported,
	}
	d.DocComment, d.DocStartLine = p.precedingDoc(wrapper, content)

	return d
}

// precedingDoc finds the contiguous comment block immediately above a node.
// It returns the JSDoc text (empty for plain comments) and the first line of
// the block (0 when there is no block). The whole contiguous block extends
// the chunk envelope; only a JSDoc comment contributes doc text.
func (p *Parser) precedingDoc(node *sitter.Node, content []byte) (string, int) {
	prev := node.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return "", 0
	}

	// The comment must sit directly above the declaration
	if startLine(node)-endLine(prev) > 1 {
		return "", 0
	}

	doc := ""
	if text := nodeText(prev, content); strings.HasPrefix(text, "/**") {
		doc = text
	}

	// Extend upward over the contiguous block
	first := prev
	for {
		above := first.PrevSibling()
		if above == nil || above.Type() != "comment" {
			break
		}
		if startLine(first)-endLine(above) > 1 {
			break
		}
		first = above
	}

	return doc, startLine(first)
}

// isFunctionValue reports whether an expression node is a function literal
func isFunctionValue(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	default:
		return false
	}
}

// hasChildOfType scans a node's direct children for a given node type
func hasChildOfType(node *sitter.Node, nodeType string) bool {
	if node == nil {
		return false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == nodeType {
			return true
		}
	}
	return false
}

// nodeText returns the exact source text a node spans
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}

// startLine returns a node's 1-based start line
func startLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// endLine returns a node's 1-based end line
func endLine(node *sitter.Node) int {
	return int(node.EndPoint().Row) + 1
}

// splitParameters splits a formal parameter list into individual parameter
// texts, respecting nested brackets and generics
func splitParameters(params string) []string {
	params = strings.TrimSpace(params)
	params = strings.TrimPrefix(params, "(")
	params = strings.TrimSuffix(params, ")")
	if strings.TrimSpace(params) == "" {
		return []string{}
	}

	var parts []string
	depth := 0
	start := 0
	for i, r := range params {
		switch r {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(params[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(params[start:]); last != "" {
		parts = append(parts, last)
	}

	return parts
}
