package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/ConflictingTheories/cadi/internal/atom"
	"github.com/ConflictingTheories/cadi/internal/cerr"
	"github.com/ConflictingTheories/cadi/internal/chunkid"
)

// MemoryStore is the pure in-memory Store implementation the spec
// requires to exist for testing. It also backs short-lived CLI
// invocations that atomize-and-inspect a single tree without persisting
// anything.
type MemoryStore struct {
	mu      sync.RWMutex
	nodes   map[string]*atom.Chunk
	blobs   map[string][]byte
	out     map[string][]atom.Edge
	in      map[string][]atom.Edge
	edgeSet map[string]bool // from+"\x00"+to+"\x00"+kind, de-dupes AddDependency
	symbols map[string][]string
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:   make(map[string]*atom.Chunk),
		blobs:   make(map[string][]byte),
		out:     make(map[string][]atom.Edge),
		in:      make(map[string][]atom.Edge),
		edgeSet: make(map[string]bool),
		symbols: make(map[string][]string),
	}
}

func (s *MemoryStore) Close() error { return nil }

// InsertNode is idempotent: re-inserting the same chunk-id unions
// Provides, Requires, and Aliases into the existing node rather than
// overwriting it.
func (s *MemoryStore) InsertNode(_ context.Context, chunk *atom.Chunk) error {
	if _, err := chunkid.Parse(chunk.ID); err != nil {
		return cerr.InvalidChunkID(chunk.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.nodes[chunk.ID]
	if !ok {
		cp := *chunk
		s.nodes[chunk.ID] = &cp
		for _, name := range chunk.Provides {
			s.addSymbolLocked(name, chunk.ID)
		}
		return nil
	}

	newNames := unionStrings(existing.Provides, chunk.Provides)
	existing.Provides = newNames
	existing.Requires = unionStrings(existing.Requires, chunk.Requires)
	existing.Aliases = unionStrings(existing.Aliases, chunk.Aliases)
	for _, name := range chunk.Provides {
		s.addSymbolLocked(name, chunk.ID)
	}
	return nil
}

func (s *MemoryStore) addSymbolLocked(name, chunkID string) {
	for _, id := range s.symbols[name] {
		if id == chunkID {
			return
		}
	}
	s.symbols[name] = append(s.symbols[name], chunkID)
	sort.Strings(s.symbols[name])
}

// StoreContent verifies chunk_id == hash(bytes) before accepting.
func (s *MemoryStore) StoreContent(_ context.Context, chunkID string, content []byte) error {
	if !chunkid.Verify(chunkID, content) {
		digest, _ := chunkid.Parse(chunkID)
		return cerr.HashMismatch(digest, chunkid.Sha256Bytes(content))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[chunkID] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) GetNode(_ context.Context, chunkID string) (*atom.Chunk, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[chunkID]
	if !ok {
		return nil, false, nil
	}
	cp := *n
	return &cp, true, nil
}

// GetContent verifies the stored blob's hash on every read; a corrupted
// blob is evicted and reported as a miss, while the node itself survives.
func (s *MemoryStore) GetContent(_ context.Context, chunkID string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[chunkID]
	if !ok {
		return nil, false, nil
	}
	if !chunkid.Verify(chunkID, blob) {
		delete(s.blobs, chunkID)
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

// AddDependency requires both endpoints to already exist; duplicate
// (from, to, kind) triples collapse into one edge.
func (s *MemoryStore) AddDependency(_ context.Context, from, to string, kind atom.EdgeKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[from]; !ok {
		return cerr.ChunkNotFound(from)
	}
	if _, ok := s.nodes[to]; !ok {
		return cerr.ChunkNotFound(to)
	}

	key := from + "\x00" + to + "\x00" + string(kind)
	if s.edgeSet[key] {
		return nil
	}
	s.edgeSet[key] = true

	edge := atom.Edge{From: from, To: to, Kind: kind}
	s.out[from] = append(s.out[from], edge)
	s.in[to] = append(s.in[to], edge)
	return nil
}

func (s *MemoryStore) GetDependencies(_ context.Context, chunkID string) ([]atom.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]atom.Edge(nil), s.out[chunkID]...), nil
}

func (s *MemoryStore) GetDependents(_ context.Context, chunkID string) ([]atom.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]atom.Edge(nil), s.in[chunkID]...), nil
}

// FindSymbol breaks ties deterministically: lexicographically smallest
// chunk-id among all chunks that define name.
func (s *MemoryStore) FindSymbol(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.symbols[name]
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil // kept sorted by addSymbolLocked
}

// FindSymbolCandidates returns every chunk-id defining name.
func (s *MemoryStore) FindSymbolCandidates(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.symbols[name]...), nil
}

// FindPath runs a breadth-first search for the shortest directed path,
// returning the node sequence from -> ... -> to inclusive.
func (s *MemoryStore) FindPath(_ context.Context, from, to string) ([]string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from == to {
		if _, ok := s.nodes[from]; !ok {
			return nil, false, nil
		}
		return []string{from}, true, nil
	}

	type frame struct {
		id   string
		path []string
	}
	visited := map[string]bool{from: true}
	queue := []frame{{id: from, path: []string{from}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range s.out[cur.id] {
			if e.To == to {
				return append(append([]string(nil), cur.path...), to), true, nil
			}
			if !visited[e.To] {
				visited[e.To] = true
				next := append(append([]string(nil), cur.path...), e.To)
				queue = append(queue, frame{id: e.To, path: next})
			}
		}
	}
	return nil, false, nil
}

// GetTokenEstimate uses the byte-size/4 fallback approximation; no
// tokenizer dependency is wired for this, since the contract defines the
// estimate as this literal heuristic rather than a model-specific count.
func (s *MemoryStore) GetTokenEstimate(_ context.Context, chunkID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[chunkID]
	if !ok {
		return 0, cerr.ChunkNotFound(chunkID)
	}
	return n.SizeBytes / 4, nil
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
