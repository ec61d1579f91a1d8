// Package dedup implements the in-memory semantic-hash deduplication
// index: an append-only mapping from semantic hash to the ordered list
// of chunk-ids that share it, plus an approximate near-duplicate lookup
// over canonical forms for matches that fall short of an exact hash.
package dedup

import (
	"context"
	"sync"

	"github.com/ConflictingTheories/cadi/internal/normalize"
)

// Index is the deduplication index. Zero value is not usable; use New.
// Safe for concurrent use: Register is linearizable under a single
// mutex, so two concurrent registrations of the same hash from
// different callers still observe a correct (is_first, previous_members)
// pair.
type Index struct {
	mu      sync.RWMutex
	buckets map[string][]string
	canonOf map[string]string
	approx  *normalize.ApproxIndex
}

// New creates an empty deduplication index.
func New() *Index {
	return &Index{
		buckets: make(map[string][]string),
		canonOf: make(map[string]string),
		approx:  normalize.NewApproxIndex(normalize.TrigramDimensions),
	}
}

// Register appends chunkID to the bucket for semanticHash and reports
// whether this was the first registration for that hash, along with the
// bucket's members before this append. Registering the same
// (chunkID, semanticHash) pair twice is idempotent beyond the second
// call reporting isFirst=false.
func (idx *Index) Register(chunkID, semanticHash string) (isFirst bool, previous []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	bucket := idx.buckets[semanticHash]
	previous = append([]string(nil), bucket...)
	isFirst = len(bucket) == 0

	for _, existing := range bucket {
		if existing == chunkID {
			return isFirst, previous
		}
	}
	idx.buckets[semanticHash] = append(bucket, chunkID)
	return isFirst, previous
}

// RegisterCanonical does everything Register does, and additionally
// indexes canonical (the chunk's normalized source) for later
// FindNearEquivalents lookups. Exact semantic-hash duplicates are
// already caught by Register; this is for the case isFirst reports true
// but the chunk may still be a near-miss of something already seen —
// different enough to hash differently, close enough to be worth a
// human look.
func (idx *Index) RegisterCanonical(ctx context.Context, chunkID, semanticHash, canonical string) (isFirst bool, previous []string, err error) {
	isFirst, previous = idx.Register(chunkID, semanticHash)

	idx.mu.Lock()
	idx.canonOf[chunkID] = canonical
	idx.mu.Unlock()

	if err := idx.approx.Add(ctx, chunkID, canonical); err != nil {
		return isFirst, previous, err
	}
	return isFirst, previous, nil
}

// NearMatch is an advisory near-duplicate candidate surfaced by
// FindNearEquivalents: a previously registered chunk whose canonical
// form is close to the one queried, confirmed by an exact
// Levenshtein-based similarity score. Never an equality test — a
// NearMatch is a hint to look closer, not a dedup decision.
type NearMatch struct {
	ChunkID    string
	Similarity float64
}

// FindNearEquivalents narrows the search for near-duplicates of
// canonical to the k chunks whose trigram-hash vectors already land
// nearby in the approximate index, then confirms each with the
// Semantic Normalizer's exact Levenshtein-based Similarity. This is the
// path the approximate index accelerates: without it, finding
// near-duplicates at scale means comparing canonical against every
// previously registered chunk instead of a handful of candidates.
func (idx *Index) FindNearEquivalents(ctx context.Context, canonical string, k int) ([]NearMatch, error) {
	candidates, err := idx.approx.Query(ctx, canonical, k)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]NearMatch, 0, len(candidates))
	for _, c := range candidates {
		other, ok := idx.canonOf[c.ChunkID]
		if !ok {
			continue
		}
		matches = append(matches, NearMatch{
			ChunkID:    c.ChunkID,
			Similarity: normalize.Similarity(canonical, other),
		})
	}
	return matches, nil
}

// FindEquivalents returns every chunk-id registered under semanticHash,
// or an empty slice if none are registered.
func (idx *Index) FindEquivalents(semanticHash string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bucket := idx.buckets[semanticHash]
	if len(bucket) == 0 {
		return []string{}
	}
	return append([]string(nil), bucket...)
}
