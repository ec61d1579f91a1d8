package rehydrate

import "strings"

// InclusionReason is the closed set of reasons a fragment ended up in a
// view: a seed is always Requested; a node pulled in by a direct edge
// from a requested atom carries that edge's reason; anything deeper is
// GhostImport.
type InclusionReason string

const (
	ReasonRequested      InclusionReason = "requested"
	ReasonImported       InclusionReason = "imported"
	ReasonTypeDependency InclusionReason = "type-dependency"
	ReasonGhostImport    InclusionReason = "ghost-import"
)

// ViewFragment is one chunk's placement within an assembled view.
type ViewFragment struct {
	ChunkID         string
	Alias           string
	StartLine       int
	EndLine         int
	TokenCount      int
	InclusionReason InclusionReason
	Defines         []string
}

// VirtualView is the rehydration engine's output: an ordered, bounded
// assembly of chunk blobs with bookkeeping about what was included and
// why.
type VirtualView struct {
	Source          string
	Atoms           []string
	GhostAtoms      []string
	TokenEstimate   int
	Language        string
	SymbolLocations map[string]int
	Fragments       []ViewFragment
	Truncated       bool
	Explanation     string
}

// LineCount reports the number of lines in the assembled source.
func (v *VirtualView) LineCount() int {
	if v.Source == "" {
		return 0
	}
	return strings.Count(v.Source, "\n") + 1
}

// DefinedSymbols lists every symbol name defined somewhere in this view.
func (v *VirtualView) DefinedSymbols() []string {
	names := make([]string, 0, len(v.SymbolLocations))
	for name := range v.SymbolLocations {
		names = append(names, name)
	}
	return names
}

// FindSymbol returns the 1-indexed line a symbol is defined on, if any.
func (v *VirtualView) FindSymbol(name string) (int, bool) {
	line, ok := v.SymbolLocations[name]
	return line, ok
}

// ContainsAtom reports whether chunkID appears anywhere in this view.
func (v *VirtualView) ContainsAtom(chunkID string) bool {
	for _, id := range v.Atoms {
		if id == chunkID {
			return true
		}
	}
	return false
}

// IsGhost reports whether chunkID was added automatically rather than
// explicitly requested.
func (v *VirtualView) IsGhost(chunkID string) bool {
	for _, id := range v.GhostAtoms {
		if id == chunkID {
			return true
		}
	}
	return false
}

// SnippetForSymbol returns a bounded window of source around a defined
// symbol's line, contextLines before and after.
func (v *VirtualView) SnippetForSymbol(name string, contextLines int) (string, bool) {
	line, ok := v.FindSymbol(name)
	if !ok {
		return "", false
	}
	lines := strings.Split(v.Source, "\n")

	start := line - contextLines - 1
	if start < 0 {
		start = 0
	}
	end := line + contextLines
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n"), true
}
