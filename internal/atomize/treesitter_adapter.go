package atomize

import (
	"context"
	"strings"
	"unicode"
)

// treeSitterAdapter extracts atoms from a single language by running a
// tree-sitter parse and walking the resulting tree, matching against
// that language's nodeKinds table.
type treeSitterAdapter struct {
	language string
	kinds    *nodeKinds
	parser   *treeSitterParser
}

func newTreeSitterAdapter(language string, kinds *nodeKinds, registry *languageRegistry) *treeSitterAdapter {
	return &treeSitterAdapter{
		language: language,
		kinds:    kinds,
		parser:   newTreeSitterParser(registry),
	}
}

func (a *treeSitterAdapter) Language() string { return a.language }

func (a *treeSitterAdapter) Capabilities() CapabilitySet {
	caps := CapabilitySet{
		CapParseNames:       true,
		CapParseBodies:      true,
		CapResolveVisibility: true,
	}
	switch a.language {
	case "rust":
		caps[CapExtractDecorators] = true // #[attributes]
	case "typescript", "tsx", "javascript", "jsx", "csharp":
		caps[CapExtractDecorators] = true
	}
	if alphaRenameCapableLanguage(a.language) {
		caps[CapAlphaRenameForNormalize] = true
	}
	return caps
}

// alphaRenameCapableLanguage mirrors normalize package's declared set;
// duplicated here (rather than imported) to keep atomize capability
// declarations self-contained and reviewable without a cross-package
// hop — the two must be kept in sync by hand.
func alphaRenameCapableLanguage(lang string) bool {
	switch lang {
	case "typescript", "tsx", "javascript", "jsx", "go":
		return true
	default:
		return false
	}
}

func (a *treeSitterAdapter) Extract(source []byte) ([]RawAtom, error) {
	t, err := a.parser.parse(context.Background(), source, a.language)
	if err != nil {
		return nil, err
	}

	var atoms []RawAtom
	a.walkWithParent(t.Root, source, "", nil, 0, &atoms)
	return atoms, nil
}

// kindForNodeType reports the atom.Kind string for a matching node type,
// or "" if the node isn't one this language's table recognizes.
func (a *treeSitterAdapter) kindForNodeType(nodeType string) string {
	check := func(list []string, kind string) string {
		for _, t := range list {
			if t == nodeType {
				return kind
			}
		}
		return ""
	}
	if k := check(a.kinds.Function, "function"); k != "" {
		return k
	}
	if k := check(a.kinds.Method, "method"); k != "" {
		return k
	}
	if k := check(a.kinds.Class, "class"); k != "" {
		return k
	}
	if k := check(a.kinds.Struct, "struct"); k != "" {
		return k
	}
	if k := check(a.kinds.Enum, "enum"); k != "" {
		return k
	}
	if k := check(a.kinds.Interface, "interface"); k != "" {
		return k
	}
	if k := check(a.kinds.TypeAlias, "type-alias"); k != "" {
		return k
	}
	if k := check(a.kinds.Constant, "constant"); k != "" {
		return k
	}
	if k := check(a.kinds.Variable, "constant"); k != "" {
		return k
	}
	if k := check(a.kinds.Import, "import"); k != "" {
		return k
	}
	return ""
}

// walkWithParent recurses the tree, emitting one RawAtom per recognized
// node and tracking the nearest enclosing recognized node's name as
// Parent, satisfying the boundary rule that nested atoms carry their
// enclosing construct. decoratorParent/index identify n's position
// among its tree siblings so immediately preceding attribute/annotation
// nodes can be folded into n's Decorators instead of emitted standalone.
func (a *treeSitterAdapter) walkWithParent(n *node, source []byte, atomParent string, decoratorParent *node, index int, out *[]RawAtom) {
	if n == nil {
		return
	}

	kind := a.kindForNodeType(n.Type)
	nextAtomParent := atomParent

	if kind != "" {
		name := a.extractName(n, source)
		if name != "" {
			atom := RawAtom{
				Name:       name,
				Kind:       kind,
				StartByte:  int(n.StartByte),
				EndByte:    int(n.EndByte),
				StartLine:  int(n.StartPoint.Row) + 1,
				EndLine:    int(n.EndPoint.Row) + 1,
				DocComment: a.extractDocComment(n, source),
				Visibility: a.extractVisibility(n, source),
				Decorators: a.collectDecorators(decoratorParent, index, source),
				Parent:     atomParent,
			}
			atom.Defines = []string{name}
			atom.References = a.extractReferences(n, source, name)
			*out = append(*out, atom)
			nextAtomParent = name
		}
	}

	for i, c := range n.Children {
		a.walkWithParent(c, source, nextAtomParent, n, i, out)
	}
}

// decoratorNodeTypes lists, per language, the node types immediately
// preceding a construct that should be folded into that construct's
// Decorators rather than emitted as their own atom.
var decoratorNodeTypes = map[string]map[string]bool{
	"rust":       setOf("attribute_item"),
	"typescript": setOf("decorator"),
	"tsx":        setOf("decorator"),
	"javascript": setOf("decorator"),
	"jsx":        setOf("decorator"),
	"csharp":     setOf("attribute_list"),
}

// collectDecorators scans n's elder siblings within parent for
// attribute/annotation nodes immediately adjacent (no intervening
// non-decorator node), returning their verbatim text.
func (a *treeSitterAdapter) collectDecorators(parent *node, index int, source []byte) []string {
	types := decoratorNodeTypes[a.language]
	if types == nil || parent == nil {
		return nil
	}
	var decs []string
	for i := index - 1; i >= 0; i-- {
		sib := parent.Children[i]
		if !types[sib.Type] {
			break
		}
		decs = append([]string{sib.content(source)}, decs...)
	}
	return decs
}

func (a *treeSitterAdapter) extractName(n *node, source []byte) string {
	switch a.language {
	case "go":
		return goName(n, source)
	case "typescript", "tsx", "javascript", "jsx":
		return jsName(n, source)
	case "python":
		return firstIdentifier(n, source)
	case "rust":
		return rustName(n, source)
	case "c":
		return cName(n, source)
	case "csharp":
		return firstIdentifier(n, source)
	default:
		return firstIdentifier(n, source)
	}
}

func firstIdentifier(n *node, source []byte) string {
	for _, c := range n.Children {
		if c.Type == "identifier" || c.Type == "type_identifier" || c.Type == "field_identifier" {
			return c.content(source)
		}
	}
	return ""
}

func goName(n *node, source []byte) string {
	switch n.Type {
	case "function_declaration", "import_declaration":
		return firstIdentifier(n, source)
	case "method_declaration":
		for _, c := range n.Children {
			if c.Type == "field_identifier" {
				return c.content(source)
			}
		}
	case "type_declaration":
		if spec := n.childByType("type_spec"); spec != nil {
			if id := spec.childByType("type_identifier"); id != nil {
				return id.content(source)
			}
		}
	case "const_declaration":
		for _, spec := range n.childrenByType("const_spec") {
			if id := spec.childByType("identifier"); id != nil {
				return id.content(source)
			}
		}
	case "var_declaration":
		for _, spec := range n.childrenByType("var_spec") {
			if id := spec.childByType("identifier"); id != nil {
				return id.content(source)
			}
		}
	}
	return ""
}

func jsName(n *node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		for _, decl := range n.childrenByType("variable_declarator") {
			if id := decl.childByType("identifier"); id != nil {
				return id.content(source)
			}
		}
		return ""
	}
	return firstIdentifier(n, source)
}

func rustName(n *node, source []byte) string {
	switch n.Type {
	case "const_item", "static_item", "type_item":
		return firstIdentifier(n, source)
	default:
		return firstIdentifier(n, source)
	}
}

func cName(n *node, source []byte) string {
	if n.Type == "function_definition" {
		if decl := n.childByType("function_declarator"); decl != nil {
			return firstIdentifier(decl, source)
		}
	}
	return firstIdentifier(n, source)
}

// extractDocComment looks for a comment on the immediately preceding
// line, with no blank-line gap, per the atomizer's boundary rule.
func (a *treeSitterAdapter) extractDocComment(n *node, source []byte) string {
	if n.StartPoint.Row == 0 {
		return ""
	}
	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}
	prevLineEnd := lineStart - 1
	prevLineStart := prevLineEnd - 1
	for prevLineStart > 0 && source[prevLineStart-1] != '\n' {
		prevLineStart--
	}
	prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))
	if prevLine == "" {
		return "" // blank-line gap breaks doc-comment association
	}
	switch a.language {
	case "python":
		return ""
	case "rust", "c", "csharp":
		if strings.HasPrefix(prevLine, "///") {
			return strings.TrimPrefix(prevLine, "///")
		}
		if strings.HasPrefix(prevLine, "//") {
			return strings.TrimPrefix(prevLine, "//")
		}
	default:
		if strings.HasPrefix(prevLine, "//") {
			return strings.TrimPrefix(prevLine, "//")
		}
	}
	return ""
}

// extractVisibility derives public/crate/module/private from the
// language's own visibility markers, defaulting to public when the
// language (or this adapter) can't observe a distinction.
func (a *treeSitterAdapter) extractVisibility(n *node, source []byte) string {
	content := n.content(source)
	switch a.language {
	case "rust":
		trimmed := strings.TrimLeft(content, " \t\n")
		if strings.HasPrefix(trimmed, "pub(crate)") {
			return "crate"
		}
		if strings.HasPrefix(trimmed, "pub") {
			return "public"
		}
		return "private"
	case "go":
		name := a.extractName(n, source)
		if name != "" && unicode.IsUpper([]rune(name)[0]) {
			return "public"
		}
		return "private"
	case "csharp":
		trimmed := strings.TrimLeft(content, " \t\n")
		switch {
		case strings.HasPrefix(trimmed, "private"):
			return "private"
		case strings.HasPrefix(trimmed, "internal"):
			return "module"
		default:
			return "public"
		}
	default:
		return "public"
	}
}

// extractReferences collects candidate identifier references within an
// atom's body, excluding its own name. Resolution against the symbol
// index is deferred to the graph importer.
func (a *treeSitterAdapter) extractReferences(n *node, source []byte, ownName string) []string {
	seen := map[string]bool{ownName: true}
	var refs []string
	n.walk(func(child *node) bool {
		if child.Type == "identifier" || child.Type == "type_identifier" || child.Type == "field_identifier" {
			name := child.content(source)
			if name != "" && !seen[name] && !isKeyword(a.language, name) {
				seen[name] = true
				refs = append(refs, name)
			}
		}
		return true
	})
	return refs
}

var keywordsByLanguage = map[string]map[string]bool{
	"go":     setOf("func", "package", "import", "var", "const", "type", "struct", "interface", "return", "if", "else", "for", "range", "go", "defer", "chan", "select", "switch", "case"),
	"python": setOf("def", "class", "import", "from", "return", "if", "elif", "else", "for", "while", "with", "as", "pass", "lambda", "self"),
	"rust":   setOf("fn", "pub", "struct", "enum", "trait", "impl", "let", "mut", "return", "use", "mod", "match", "if", "else", "for", "while", "loop", "self", "Self"),
}

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func isKeyword(language, name string) bool {
	kw, ok := keywordsByLanguage[language]
	if !ok {
		return false
	}
	return kw[name]
}
