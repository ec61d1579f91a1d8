package normalize

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// TrigramDimensions is the default feature-hashed vector width used by
// ApproxIndex. Large enough that unrelated trigram sets rarely collide,
// small enough that the HNSW graph stays cheap to build per chunk.
const TrigramDimensions = 256

// TrigramVector feature-hashes the character trigrams of s into a fixed
// dims-length vector: each trigram increments the bucket its hash lands
// in, and the result is L2-normalized so cosine distance behaves like a
// Jaccard-ish similarity over the trigram set. Two canonical forms that
// share most trigrams land close together in this space even before any
// exact comparison runs.
func TrigramVector(s string, dims int) []float32 {
	v := make([]float32, dims)
	runes := []rune(s)
	if len(runes) < 3 {
		if len(runes) > 0 {
			v[fnv1a(string(runes))%uint32(dims)] += 1
		}
		normalizeInPlace(v)
		return v
	}
	for i := 0; i+3 <= len(runes); i++ {
		trigram := string(runes[i : i+3])
		v[fnv1a(trigram)%uint32(dims)] += 1
	}
	normalizeInPlace(v)
	return v
}

func fnv1a(s string) uint32 {
	const offset = 2166136261
	const prime = 16777619
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// CandidateMatch is one approximate neighbor surfaced by ApproxIndex.
type CandidateMatch struct {
	ChunkID string
	Score   float32 // 1 - cosine distance/2, in [0, 1], higher is closer
}

// ApproxIndex accelerates near-duplicate discovery over canonical forms:
// instead of the Levenshtein-based Similarity comparing a new chunk
// against every previously seen one, it first narrows the search to the
// handful of chunks whose trigram-hash vectors already landed nearby.
// It is advisory, same as Similarity itself — a hit here still needs
// Similarity (or exact semantic-hash equality) to confirm.
type ApproxIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	idOf  map[string]uint64
	keyOf map[uint64]string
	next  uint64
}

// NewApproxIndex builds an empty index over dims-dimensional trigram
// vectors (TrigramDimensions if dims <= 0).
func NewApproxIndex(dims int) *ApproxIndex {
	if dims <= 0 {
		dims = TrigramDimensions
	}
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return &ApproxIndex{
		graph: g,
		dims:  dims,
		idOf:  make(map[string]uint64),
		keyOf: make(map[uint64]string),
	}
}

// Add indexes chunkID under the trigram vector of its canonical form.
// Re-adding the same chunkID replaces its prior vector.
func (idx *ApproxIndex) Add(_ context.Context, chunkID, canonical string) error {
	vec := TrigramVector(canonical, idx.dims)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if existing, ok := idx.idOf[chunkID]; ok {
		delete(idx.keyOf, existing)
	}
	key := idx.next
	idx.next++
	idx.graph.Add(hnsw.MakeNode(key, vec))
	idx.idOf[chunkID] = key
	idx.keyOf[key] = chunkID
	return nil
}

// Query returns up to k chunk-ids whose canonical forms are closest to
// canonical in trigram-hash space, ranked by descending similarity.
func (idx *ApproxIndex) Query(_ context.Context, canonical string, k int) ([]CandidateMatch, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph.Len() == 0 {
		return nil, nil
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	vec := TrigramVector(canonical, idx.dims)
	nodes := idx.graph.Search(vec, k)

	matches := make([]CandidateMatch, 0, len(nodes))
	for _, n := range nodes {
		id, ok := idx.keyOf[n.Key]
		if !ok {
			continue
		}
		dist := idx.graph.Distance(vec, n.Value)
		matches = append(matches, CandidateMatch{ChunkID: id, Score: 1 - dist/2})
	}
	return matches, nil
}

// Len reports how many chunks are currently indexed.
func (idx *ApproxIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.idOf)
}
