package atomize

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// nodeKinds maps the tree-sitter node types for one language onto the
// atom.Kind categories the extractor recognizes. A language that has no
// construct for a category simply leaves that slice empty.
type nodeKinds struct {
	Function  []string
	Method    []string
	Class     []string
	Struct    []string
	Enum      []string
	Interface []string
	TypeAlias []string
	Constant  []string
	Variable  []string
	Import    []string
	NameField string // generic identifier child type, language-dependent
}

// languageRegistry holds the closed set of language tags the atomizer
// recognizes and, for the subset with a real grammar binding, the
// tree-sitter language plus its node-kind mapping.
type languageRegistry struct {
	mu       sync.RWMutex
	kinds    map[string]*nodeKinds
	tsLangs  map[string]*sitter.Language
	extToTag map[string]string
}

// SupportedLanguages is the closed enumeration from the atomizer's
// input contract, in the order the external interface documents them.
var SupportedLanguages = []string{
	"rust", "c", "csharp", "css", "glsl", "hlsl", "html",
	"javascript", "jsx", "python", "tsx", "typescript", "wgsl", "go",
}

// astBacked is the subset of SupportedLanguages with a real tree-sitter
// grammar available; the rest fall back to the structural adapter.
var astBacked = map[string]bool{
	"go": true, "javascript": true, "jsx": true, "python": true,
	"typescript": true, "tsx": true, "rust": true, "c": true, "csharp": true,
}

func newLanguageRegistry() *languageRegistry {
	r := &languageRegistry{
		kinds:    make(map[string]*nodeKinds),
		tsLangs:  make(map[string]*sitter.Language),
		extToTag: make(map[string]string),
	}
	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	r.registerRust()
	r.registerC()
	r.registerCSharp()
	return r
}

func (r *languageRegistry) register(tag string, k *nodeKinds, tsLang *sitter.Language, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[tag] = k
	if tsLang != nil {
		r.tsLangs[tag] = tsLang
	}
	for _, ext := range exts {
		r.extToTag[ext] = tag
	}
}

func (r *languageRegistry) nodeKindsFor(tag string) (*nodeKinds, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[tag]
	return k, ok
}

func (r *languageRegistry) treeSitterLanguage(tag string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.tsLangs[tag]
	return l, ok
}

// Extensions returns every file extension (with leading dot) the
// registry maps to a language tag. Order is unspecified.
func (r *languageRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extToTag))
	for ext := range r.extToTag {
		exts = append(exts, ext)
	}
	return exts
}

// TagFromExtension resolves a file extension (with or without leading
// dot) to a language tag, or "" if unrecognized.
func (r *languageRegistry) TagFromExtension(ext string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return r.extToTag[ext]
}

func (r *languageRegistry) registerGo() {
	r.register("go", &nodeKinds{
		Function:  []string{"function_declaration"},
		Method:    []string{"method_declaration"},
		TypeAlias: []string{"type_declaration"},
		Constant:  []string{"const_declaration"},
		Variable:  []string{"var_declaration"},
		Import:    []string{"import_declaration"},
		NameField: "identifier",
	}, golang.GetLanguage(), ".go")
}

func (r *languageRegistry) registerTypeScript() {
	ts := &nodeKinds{
		Function:  []string{"function_declaration"},
		Method:    []string{"method_definition"},
		Class:     []string{"class_declaration"},
		Interface: []string{"interface_declaration"},
		TypeAlias: []string{"type_alias_declaration"},
		Constant:  []string{"lexical_declaration"},
		Variable:  []string{"variable_declaration"},
		Import:    []string{"import_statement"},
		NameField: "identifier",
	}
	r.register("typescript", ts, typescript.GetLanguage(), ".ts")
	r.register("tsx", ts, tsx.GetLanguage(), ".tsx")
}

func (r *languageRegistry) registerJavaScript() {
	js := &nodeKinds{
		Function: []string{"function_declaration", "function"},
		Method:   []string{"method_definition"},
		Class:    []string{"class_declaration"},
		Constant:  []string{"lexical_declaration"},
		Variable:  []string{"variable_declaration"},
		Import:    []string{"import_statement"},
		NameField: "identifier",
	}
	r.register("javascript", js, javascript.GetLanguage(), ".js", ".mjs")
	r.register("jsx", js, javascript.GetLanguage(), ".jsx")
}

func (r *languageRegistry) registerPython() {
	r.register("python", &nodeKinds{
		Function:  []string{"function_definition"},
		Class:     []string{"class_definition"},
		Variable:  []string{"assignment"},
		Import:    []string{"import_statement", "import_from_statement"},
		NameField: "identifier",
	}, python.GetLanguage(), ".py")
}

func (r *languageRegistry) registerRust() {
	r.register("rust", &nodeKinds{
		Function:  []string{"function_item"},
		Struct:    []string{"struct_item"},
		Enum:      []string{"enum_item"},
		Interface: []string{"trait_item"},
		TypeAlias: []string{"type_item"},
		Constant:  []string{"const_item", "static_item"},
		Import:    []string{"use_declaration"},
		NameField: "identifier",
	}, rust.GetLanguage(), ".rs")
}

func (r *languageRegistry) registerC() {
	r.register("c", &nodeKinds{
		Function:  []string{"function_definition"},
		Struct:    []string{"struct_specifier"},
		Enum:      []string{"enum_specifier"},
		TypeAlias: []string{"type_definition"},
		Variable:  []string{"declaration"},
		Import:    []string{"preproc_include"},
		NameField: "identifier",
	}, c.GetLanguage(), ".c", ".h")
}

func (r *languageRegistry) registerCSharp() {
	r.register("csharp", &nodeKinds{
		Method:    []string{"method_declaration"},
		Class:     []string{"class_declaration"},
		Struct:    []string{"struct_declaration"},
		Enum:      []string{"enum_declaration"},
		Interface: []string{"interface_declaration"},
		Constant:  []string{"field_declaration"},
		Import:    []string{"using_directive"},
		NameField: "identifier",
	}, csharp.GetLanguage(), ".cs")
}
