// Package atom defines the extracted-unit and persisted-chunk entities
// shared across the atomizer, graph store, and rehydration engine.
package atom

// Kind is the closed set of constructs an atomizer adapter can emit.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindInterface Kind = "interface"
	KindTypeAlias Kind = "type-alias"
	KindConstant  Kind = "constant"
	KindModule    Kind = "module"
	KindImport    Kind = "import"
	KindBlock     Kind = "block-of-statements"
	KindRule      Kind = "rule"
)

// Visibility mirrors the closed visibility scale used across the adapters.
// Not every language distinguishes all four; adapters that can't observe
// a distinction default to VisibilityPublic.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityCrate   Visibility = "crate"
	VisibilityModule  Visibility = "module"
	VisibilityPrivate Visibility = "private"
)

// Atom is the parser's output: a bounded, named construct extracted from
// one source file. Atoms are never persisted directly — the atomizer
// produces them, and the importer hashes each into a Chunk.
type Atom struct {
	Name       string
	Kind       Kind
	Source     string
	StartByte  int
	EndByte    int
	StartLine  int // 1-indexed
	EndLine    int // inclusive
	Defines    []string
	References []string
	DocComment string
	Visibility Visibility
	Decorators []string
	Parent     string // enclosing atom name, empty if top-level
	Language   string
}

// SourceLocation anchors a chunk back to the file it was extracted from.
type SourceLocation struct {
	FilePath  string
	StartLine int
	EndLine   int
}

// Chunk is the immutable, content-addressed record created by hashing an
// atom's source. Chunk.ID is always of the form chunk:sha256:<64-hex>;
// Chunk.ContentHash is the bare hex digest embedded in ID.
type Chunk struct {
	ID          string
	ContentHash string
	Language    string
	Granularity Kind
	SizeBytes   int
	Provides    []string // == atom.Defines
	Requires    []string // == atom.References
	Aliases     []string
	Location    *SourceLocation // nil if not file-backed
}

// NewChunkFromAtom hashes a's source and builds the persisted-record
// shape for it. The caller is responsible for actually writing the blob
// and node to a GraphStore.
func NewChunkFromAtom(a Atom, id, contentHash string, loc *SourceLocation) *Chunk {
	return &Chunk{
		ID:          id,
		ContentHash: contentHash,
		Language:    a.Language,
		Granularity: a.Kind,
		SizeBytes:   len(a.Source),
		Provides:    append([]string(nil), a.Defines...),
		Requires:    append([]string(nil), a.References...),
		Aliases:     nil,
		Location:    loc,
	}
}

// EdgeKind is the closed set of typed relations between two chunk-ids.
type EdgeKind string

const (
	EdgeImports    EdgeKind = "Imports"
	EdgeCalls      EdgeKind = "Calls"
	EdgeTypeRef    EdgeKind = "TypeRef"
	EdgeImplements EdgeKind = "Implements"
	EdgeExtends    EdgeKind = "Extends"
	EdgeGenericRef EdgeKind = "GenericRef"
	EdgeComposedOf EdgeKind = "ComposedOf"
	EdgeExports    EdgeKind = "Exports"
	EdgeMacroUse   EdgeKind = "MacroUse"
	EdgeTests      EdgeKind = "Tests"
	EdgeDocRef     EdgeKind = "DocRef"
)

// AllEdgeKinds lists the closed edge-kind set in a stable order, used by
// callers that need to enumerate or validate it (e.g. config parsing of
// follow_edges).
var AllEdgeKinds = []EdgeKind{
	EdgeImports, EdgeCalls, EdgeTypeRef, EdgeImplements, EdgeExtends,
	EdgeGenericRef, EdgeComposedOf, EdgeExports, EdgeMacroUse, EdgeTests, EdgeDocRef,
}

// Edge is a directed, typed relation between two chunk-ids.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}
