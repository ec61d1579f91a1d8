package rehydrate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ConflictingTheories/cadi/internal/atom"
	"github.com/ConflictingTheories/cadi/internal/cerr"
	"github.com/ConflictingTheories/cadi/internal/graph"
)

// Engine is the Rehydration Engine / Ghost Resolver: given a seed set
// and a policy, it produces a VirtualView. It is stateless — every call
// reads the store fresh, so concurrent callers see a linearizable view
// with respect to node insertion order.
type Engine struct {
	store    graph.Store
	analyzer *Analyzer
}

// NewEngine builds an Engine over store.
func NewEngine(store graph.Store) *Engine {
	return &Engine{store: store, analyzer: NewAnalyzer(store)}
}

// assembledFragment pairs a ViewFragment with the rendered body and the
// originating atom's kind, the last needed only to apply sort_by_type.
type assembledFragment struct {
	fragment ViewFragment
	content  string
	kind     atom.Kind
}

// CreateView runs the bounded BFS and assembles the admitted chunks into
// a VirtualView. A seed that does not exist in the store surfaces
// ChunkNotFound and produces no partial view.
func (e *Engine) CreateView(ctx context.Context, seeds []string, policy ExpansionPolicy) (*VirtualView, error) {
	seedSet := make(map[string]bool, len(seeds))
	var language string
	for _, id := range seeds {
		node, ok, err := e.store.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, cerr.ChunkNotFound(id)
		}
		seedSet[id] = true
		if language == "" {
			language = node.Language
		}
	}

	simulation, err := e.analyzer.SimulateExpansion(ctx, seeds, policy)
	if err != nil {
		return nil, err
	}

	items := make([]assembledFragment, 0, len(simulation.IncludedAtoms))
	var ghostAtoms []string

	for _, id := range simulation.IncludedAtoms {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		node, ok, err := e.store.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue // evicted between simulation and assembly; skip rather than fail the whole view
		}
		content, ok, err := e.store.GetContent(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			content = []byte("")
		}
		tokens, err := e.store.GetTokenEstimate(ctx, id)
		if err != nil {
			return nil, err
		}

		isSeed := seedSet[id]
		reason := ReasonRequested
		if !isSeed {
			reason, err = e.classifyReason(ctx, id, seeds, policy)
			if err != nil {
				return nil, err
			}
			ghostAtoms = append(ghostAtoms, id)
		}

		rendered := renderContent(string(content), policy.Format, !isSeed, policy.IncludeSignatures)
		items = append(items, assembledFragment{
			fragment: ViewFragment{
				ChunkID:         id,
				TokenCount:      tokens,
				InclusionReason: reason,
				Defines:         append([]string(nil), node.Provides...),
			},
			content: rendered,
			kind:    node.Granularity,
		})
	}

	if policy.SortByType {
		sortByGranularity(items)
	}

	orderedAtoms := make([]string, len(items))
	for i, it := range items {
		orderedAtoms[i] = it.fragment.ChunkID
	}

	view := &VirtualView{
		Atoms:           orderedAtoms,
		GhostAtoms:      ghostAtoms,
		TokenEstimate:   simulation.TotalTokens,
		Language:        language,
		SymbolLocations: make(map[string]int),
		Truncated:       simulation.Truncated,
	}

	var sb strings.Builder
	currentLine := 1
	for i, it := range items {
		if i > 0 && policy.Format != FormatJSON {
			sep := fmt.Sprintf("// ---- %s ----\n", it.fragment.ChunkID)
			sb.WriteString(sep)
			currentLine += strings.Count(sep, "\n")
		}
		it.fragment.StartLine = currentLine
		lines := strings.Split(it.content, "\n")
		for _, name := range it.fragment.Defines {
			if _, exists := view.SymbolLocations[name]; !exists {
				view.SymbolLocations[name] = currentLine
			}
		}
		sb.WriteString(it.content)
		if !strings.HasSuffix(it.content, "\n") {
			sb.WriteString("\n")
		}
		currentLine += len(lines)
		it.fragment.EndLine = currentLine - 1
		view.Fragments = append(view.Fragments, it.fragment)
	}
	view.Source = sb.String()

	explanations := make([]string, 0, len(ghostAtoms))
	for _, id := range ghostAtoms {
		text, err := e.explainInclusion(ctx, id, seeds, policy)
		if err != nil {
			return nil, err
		}
		if text != "" {
			explanations = append(explanations, text)
		}
	}
	view.Explanation = strings.Join(explanations, "\n")

	return view, nil
}

// classifyReason determines a ghost atom's InclusionReason: the reason
// label of the first followed edge directly from a seed, or
// ReasonGhostImport if no seed directly points at it.
func (e *Engine) classifyReason(ctx context.Context, chunkID string, seeds []string, policy ExpansionPolicy) (InclusionReason, error) {
	for _, seed := range seeds {
		edges, err := e.store.GetDependencies(ctx, seed)
		if err != nil {
			return "", err
		}
		for _, edge := range edges {
			if edge.To == chunkID && policy.follows(edge.Kind) {
				return reasonForEdge(edge.Kind), nil
			}
		}
	}
	return ReasonGhostImport, nil
}

func reasonForEdge(kind atom.EdgeKind) InclusionReason {
	if kind == atom.EdgeTypeRef {
		return ReasonTypeDependency
	}
	return ReasonImported
}

// explainInclusion renders the narrative trace for one ghost addition:
// the direct edge that caused it, or the dependency chain otherwise.
func (e *Engine) explainInclusion(ctx context.Context, chunkID string, seeds []string, policy ExpansionPolicy) (string, error) {
	for _, seed := range seeds {
		edges, err := e.store.GetDependencies(ctx, seed)
		if err != nil {
			return "", err
		}
		for _, edge := range edges {
			if edge.To == chunkID && policy.follows(edge.Kind) {
				return fmt.Sprintf("Added %q because %q references it via %s", chunkID, seed, edge.Kind), nil
			}
		}
	}

	for _, seed := range seeds {
		path, found, err := e.store.FindPath(ctx, seed, chunkID)
		if err != nil {
			return "", err
		}
		if found && len(path) > 2 {
			return fmt.Sprintf("Added %q through dependency chain: %s", chunkID, strings.Join(path, " -> ")), nil
		}
	}
	return fmt.Sprintf("Added %q as a transitive dependency", chunkID), nil
}

// SuggestPolicy recommends a named preset based on the seed set's
// average out-degree and combined token estimate.
func (e *Engine) SuggestPolicy(ctx context.Context, seeds []string) (ExpansionPolicy, error) {
	infos, err := e.analyzer.AnalyzeDependencies(ctx, seeds)
	if err != nil {
		return ExpansionPolicy{}, err
	}
	if len(infos) == 0 {
		return DefaultPolicy(), nil
	}

	totalDeps, totalTokens := 0, 0
	for _, info := range infos {
		totalDeps += len(info.Dependencies)
		totalTokens += info.TokenEstimate
	}
	avgDeps := float64(totalDeps) / float64(len(infos))

	switch {
	case avgDeps < 2.0 && totalTokens < 1000:
		return ConservativePolicy(), nil
	case avgDeps > 5.0 || totalTokens > 5000:
		policy := DefaultPolicy()
		policy.MaxDepth = 3
		policy.MaxAtoms = 30
		policy.MaxTokens = 6000
		return policy, nil
	default:
		return DefaultPolicy(), nil
	}
}

// renderContent returns a fragment's rendered body: the full blob, or
// (when the format demands signatures, or the fragment is a ghost
// addition under an include_signatures policy) just its first
// non-blank line.
func renderContent(content string, format Format, isGhost, includeSignatures bool) string {
	if format == FormatSignatures || (isGhost && includeSignatures) {
		return firstNonBlankLine(content)
	}
	return content
}

func firstNonBlankLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// granularityOrder groups fragment kinds into the imports -> types ->
// functions ordering sort_by_type requires. Kinds absent from the map
// sort last, alongside module/block/rule granularities.
var granularityOrder = map[atom.Kind]int{
	atom.KindImport:    0,
	atom.KindTypeAlias: 1,
	atom.KindInterface: 1,
	atom.KindStruct:    1,
	atom.KindClass:     1,
	atom.KindEnum:      1,
	atom.KindConstant:  2,
	atom.KindFunction:  3,
	atom.KindMethod:    3,
}

func sortByGranularity(items []assembledFragment) {
	rankOf := func(k atom.Kind) int {
		if r, ok := granularityOrder[k]; ok {
			return r
		}
		return 4
	}
	sort.SliceStable(items, func(i, j int) bool {
		return rankOf(items[i].kind) < rankOf(items[j].kind)
	})
}
