package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/ConflictingTheories/cadi/internal/atom"
)

// AliasRegistry maps an import alias (the name a caller writes at a call
// site) to the chunk-id that alias resolves to, populated by whatever
// language-specific import-resolution pass runs ahead of the importer.
type AliasRegistry struct {
	mu      sync.RWMutex
	aliases map[string]string
}

// NewAliasRegistry builds an empty registry.
func NewAliasRegistry() *AliasRegistry {
	return &AliasRegistry{aliases: make(map[string]string)}
}

// Register records that alias resolves to chunkID.
func (r *AliasRegistry) Register(alias, chunkID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = chunkID
}

// Resolve looks up alias, reporting whether it is known.
func (r *AliasRegistry) Resolve(alias string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.aliases[alias]
	return id, ok
}

// Importer performs the two-pass batch import: insert every node, then
// resolve each node's Requires into Imports edges.
type Importer struct {
	store Store
}

// NewImporter builds an Importer over store.
func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

// Import inserts chunks and wires their dependency edges. registry may
// be nil, in which case every requirement is resolved purely via
// symbol lookup in the store.
func (imp *Importer) Import(ctx context.Context, chunks []*atom.Chunk, registry *AliasRegistry) error {
	for _, chunk := range chunks {
		if err := imp.store.InsertNode(ctx, chunk); err != nil {
			return err
		}
	}

	for _, chunk := range chunks {
		for _, required := range chunk.Requires {
			if err := imp.resolveOne(ctx, chunk, required, registry); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveOne resolves a single required symbol name to a target chunk
// and adds the Imports edge, never creating a self-edge. Registry aliases
// take priority; otherwise resolution falls back to the store's symbol
// index, preferring a same-language definition when more than one chunk
// defines the symbol (Scenario S6).
func (imp *Importer) resolveOne(ctx context.Context, chunk *atom.Chunk, required string, registry *AliasRegistry) error {
	if registry != nil {
		if targetID, ok := registry.Resolve(required); ok {
			if targetID == chunk.ID {
				return nil
			}
			return imp.store.AddDependency(ctx, chunk.ID, targetID, atom.EdgeImports)
		}
	}

	candidates, err := imp.store.FindSymbolCandidates(ctx, required)
	if err != nil {
		return err
	}
	targetID, err := imp.pickByLanguagePreference(ctx, candidates, chunk.Language)
	if err != nil {
		return err
	}
	if targetID == "" || targetID == chunk.ID {
		return nil
	}
	return imp.store.AddDependency(ctx, chunk.ID, targetID, atom.EdgeImports)
}

// pickByLanguagePreference chooses a same-language chunk if one exists
// among candidates (lexicographically smallest among those), otherwise
// falls back to the lexicographically smallest of all candidates.
func (imp *Importer) pickByLanguagePreference(ctx context.Context, candidates []string, language string) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	if language == "" {
		return sorted[0], nil
	}

	var sameLanguage []string
	for _, id := range sorted {
		node, ok, err := imp.store.GetNode(ctx, id)
		if err != nil {
			return "", err
		}
		if ok && node.Language == language {
			sameLanguage = append(sameLanguage, id)
		}
	}
	if len(sameLanguage) > 0 {
		return sameLanguage[0], nil
	}
	return sorted[0], nil
}
