// Package graph implements the content-addressed node/edge store: the
// single shared resource the atomizer writes into and the rehydration
// engine reads from.
package graph

import (
	"context"

	"github.com/ConflictingTheories/cadi/internal/atom"
)

// Store is the graph store's public operation set. Every implementation
// (in-memory, persistent) must satisfy the same atomicity and visibility
// guarantees: insert_node is indivisible; a node is visible to FindSymbol
// as soon as InsertNode returns; edges are visible before AddDependency
// returns.
type Store interface {
	InsertNode(ctx context.Context, chunk *atom.Chunk) error
	StoreContent(ctx context.Context, chunkID string, content []byte) error
	GetNode(ctx context.Context, chunkID string) (*atom.Chunk, bool, error)
	GetContent(ctx context.Context, chunkID string) ([]byte, bool, error)
	AddDependency(ctx context.Context, from, to string, kind atom.EdgeKind) error
	GetDependencies(ctx context.Context, chunkID string) ([]atom.Edge, error)
	GetDependents(ctx context.Context, chunkID string) ([]atom.Edge, error)
	FindSymbol(ctx context.Context, name string) (string, bool, error)
	// FindSymbolCandidates returns every chunk-id defining name, sorted
	// lexicographically. Used by the batch importer to apply the
	// same-language preference before falling back to FindSymbol's
	// plain lexicographic tie-break.
	FindSymbolCandidates(ctx context.Context, name string) ([]string, error)
	FindPath(ctx context.Context, from, to string) ([]string, bool, error)
	GetTokenEstimate(ctx context.Context, chunkID string) (int, error)
	Close() error
}
