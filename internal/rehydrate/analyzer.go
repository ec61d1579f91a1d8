package rehydrate

import (
	"context"

	"github.com/ConflictingTheories/cadi/internal/atom"
	"github.com/ConflictingTheories/cadi/internal/graph"
)

// DependencyPriority ranks an edge kind by how essential it is to
// include when a rehydration budget is tight.
type DependencyPriority int

const (
	PriorityCritical DependencyPriority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

func (p DependencyPriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// EdgePriority maps an edge kind to its fixed priority tier.
func EdgePriority(kind atom.EdgeKind) DependencyPriority {
	switch kind {
	case atom.EdgeImports:
		return PriorityCritical
	case atom.EdgeTypeRef, atom.EdgeImplements, atom.EdgeExtends, atom.EdgeGenericRef:
		return PriorityHigh
	case atom.EdgeCalls, atom.EdgeMacroUse:
		return PriorityMedium
	default: // ComposedOf, Exports, Tests, DocRef
		return PriorityLow
	}
}

// DependencyEdge is one outgoing edge annotated with its priority.
type DependencyEdge struct {
	Target   string
	Kind     atom.EdgeKind
	Priority DependencyPriority
}

// DependencyInfo is per-chunk dependency metadata: its outgoing edges
// (with priority) and its token estimate.
type DependencyInfo struct {
	ChunkID       string
	Dependencies  []DependencyEdge
	TokenEstimate int
}

// ExpansionSimulation is the dry-run result of a rehydration BFS: which
// atoms would be admitted, without ever reading blob content.
type ExpansionSimulation struct {
	IncludedAtoms   []string
	TotalTokens     int
	MaxDepthReached int
	Truncated       bool
}

// Analyzer is the read-only Dependency Analyzer: it reports per-chunk
// metadata and dry-runs the rehydration BFS without ever touching blob
// content, only node and edge metadata already in the store.
type Analyzer struct {
	store graph.Store
}

// NewAnalyzer builds an Analyzer over store.
func NewAnalyzer(store graph.Store) *Analyzer {
	return &Analyzer{store: store}
}

// AnalyzeDependencies reports the outgoing edges and token estimate for
// each chunk in chunkIDs.
func (a *Analyzer) AnalyzeDependencies(ctx context.Context, chunkIDs []string) ([]DependencyInfo, error) {
	infos := make([]DependencyInfo, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		edges, err := a.store.GetDependencies(ctx, id)
		if err != nil {
			return nil, err
		}
		tokens, err := a.store.GetTokenEstimate(ctx, id)
		if err != nil {
			return nil, err
		}

		depEdges := make([]DependencyEdge, 0, len(edges))
		for _, e := range edges {
			depEdges = append(depEdges, DependencyEdge{Target: e.To, Kind: e.Kind, Priority: EdgePriority(e.Kind)})
		}
		infos = append(infos, DependencyInfo{ChunkID: id, Dependencies: depEdges, TokenEstimate: tokens})
	}
	return infos, nil
}

// SimulateExpansion dry-runs the rehydration BFS: it reports which atoms
// would be admitted under policy, without reading any blob content.
//
// This walks the frontier as a true FIFO queue (breadth-first), not the
// LIFO stack the original implementation used despite calling itself
// "BFS expansion" — a stack pop explores the most recently discovered
// branch to exhaustion before returning to siblings, which is
// depth-first in practice and makes depth-cutoff behavior
// order-dependent. A plain queue makes the depth cutoff behave exactly
// as documented: every depth-N node is considered before any depth-N+1
// node.
func (a *Analyzer) SimulateExpansion(ctx context.Context, seeds []string, policy ExpansionPolicy) (*ExpansionSimulation, error) {
	included := make(map[string]bool, len(seeds))
	var order []string
	totalTokens := 0
	maxDepthReached := 0

	type frame struct {
		id    string
		depth int
	}
	queue := make([]frame, 0, len(seeds))

	for _, id := range seeds {
		if included[id] {
			continue
		}
		included[id] = true
		order = append(order, id)
		tokens, err := a.store.GetTokenEstimate(ctx, id)
		if err != nil {
			return nil, err
		}
		totalTokens += tokens
		queue = append(queue, frame{id: id, depth: 0})
	}

	truncated := false

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= policy.MaxDepth {
			if cur.depth > maxDepthReached {
				maxDepthReached = cur.depth
			}
			continue
		}
		if len(included) >= policy.MaxAtoms || totalTokens >= policy.MaxTokens {
			truncated = true
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		deps, err := a.store.GetDependencies(ctx, cur.id)
		if err != nil {
			return nil, err
		}
		for _, e := range deps {
			if !policy.follows(e.Kind) || included[e.To] {
				continue
			}
			if len(included) >= policy.MaxAtoms {
				truncated = true
				continue
			}
			depTokens, err := a.store.GetTokenEstimate(ctx, e.To)
			if err != nil {
				return nil, err
			}
			if totalTokens+depTokens > policy.MaxTokens {
				truncated = true
				continue
			}
			included[e.To] = true
			order = append(order, e.To)
			totalTokens += depTokens
			if cur.depth+1 > maxDepthReached {
				maxDepthReached = cur.depth + 1
			}
			queue = append(queue, frame{id: e.To, depth: cur.depth + 1})
		}
	}

	if len(included) >= policy.MaxAtoms || totalTokens >= policy.MaxTokens {
		truncated = true
	}

	return &ExpansionSimulation{
		IncludedAtoms:   order,
		TotalTokens:     totalTokens,
		MaxDepthReached: maxDepthReached,
		Truncated:       truncated,
	}, nil
}
