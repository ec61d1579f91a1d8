// Package rehydrate implements the Rehydration Engine / Ghost Resolver
// and its Dependency Analyzer: the components that assemble a bounded,
// token-budgeted view of chunks around a seed set.
package rehydrate

import "github.com/ConflictingTheories/cadi/internal/atom"

// Format selects how an assembled view's fragments are rendered.
type Format string

const (
	FormatSource     Format = "source"
	FormatMinimal    Format = "minimal"
	FormatDocumented Format = "documented"
	FormatSignatures Format = "signatures"
	FormatJSON       Format = "json"
)

// ExpansionPolicy controls the rehydration BFS: how far it walks, how
// much it admits, and which edges it is allowed to cross.
type ExpansionPolicy struct {
	MaxDepth           int
	MaxAtoms           int
	MaxTokens          int
	FollowEdges        []atom.EdgeKind
	AlwaysIncludeTypes bool
	IncludeSignatures  bool
	SortByType         bool
	Deduplicate        bool
	Format             Format
}

// DefaultPolicy mirrors the balanced preset: moderate depth and budget,
// following Imports and TypeRef.
func DefaultPolicy() ExpansionPolicy {
	return ExpansionPolicy{
		MaxDepth:           2,
		MaxAtoms:           20,
		MaxTokens:          4000,
		FollowEdges:        []atom.EdgeKind{atom.EdgeImports, atom.EdgeTypeRef},
		AlwaysIncludeTypes: true,
		IncludeSignatures:  true,
		SortByType:         true,
		Deduplicate:        true,
		Format:             FormatSource,
	}
}

// ConservativePolicy is the required minimal-context preset.
func ConservativePolicy() ExpansionPolicy {
	return ExpansionPolicy{
		MaxDepth:           1,
		MaxAtoms:           10,
		MaxTokens:          2000,
		FollowEdges:        []atom.EdgeKind{atom.EdgeImports},
		AlwaysIncludeTypes: false,
		IncludeSignatures:  false,
		SortByType:         true,
		Deduplicate:        true,
		Format:             FormatMinimal,
	}
}

// AggressivePolicy is the required comprehensive-context preset.
func AggressivePolicy() ExpansionPolicy {
	return ExpansionPolicy{
		MaxDepth:           3,
		MaxAtoms:           50,
		MaxTokens:          8000,
		FollowEdges:        []atom.EdgeKind{atom.EdgeImports, atom.EdgeTypeRef, atom.EdgeCalls},
		AlwaysIncludeTypes: true,
		IncludeSignatures:  true,
		SortByType:         true,
		Deduplicate:        true,
		Format:             FormatSource,
	}
}

func (p ExpansionPolicy) follows(kind atom.EdgeKind) bool {
	for _, k := range p.FollowEdges {
		if k == kind {
			return true
		}
	}
	return false
}
