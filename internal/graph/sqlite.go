package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/ConflictingTheories/cadi/internal/atom"
	"github.com/ConflictingTheories/cadi/internal/cache"
	"github.com/ConflictingTheories/cadi/internal/cerr"
	"github.com/ConflictingTheories/cadi/internal/chunkid"
	"github.com/ConflictingTheories/cadi/internal/storelock"
)

// SQLiteStore is the durable Store implementation: node and edge metadata
// live in a WAL-mode SQLite database, blob bytes live on disk under
// <cacheRoot>/blobs/sha256/<first-2-hex>/<rest>, and a cross-process
// flock guards the whole store directory against concurrent writers.
type SQLiteStore struct {
	mu        sync.RWMutex
	db        *sql.DB
	cacheRoot string
	lock      *storelock.FileLock
	blobCache *cache.BlobCache
	logger    *slog.Logger
}

// Open creates or reuses a persistent store rooted at cacheRoot.
func Open(cacheRoot string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cacheRoot, 0755); err != nil {
		return nil, cerr.IoError(fmt.Errorf("create cache root: %w", err))
	}

	lock := storelock.New(cacheRoot)
	if err := lock.Lock(); err != nil {
		return nil, cerr.IoError(fmt.Errorf("lock store: %w", err))
	}

	dbPath := filepath.Join(cacheRoot, "graph.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, cerr.IoError(fmt.Errorf("open database: %w", err))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, cerr.IoError(fmt.Errorf("set pragma %q: %w", p, err))
		}
	}

	s := &SQLiteStore{
		db:        db,
		cacheRoot: cacheRoot,
		lock:      lock,
		blobCache: cache.New(cache.DefaultBlobCacheSize),
		logger:    logger,
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id             TEXT PRIMARY KEY,
		content_hash   TEXT NOT NULL,
		language       TEXT NOT NULL,
		granularity    TEXT NOT NULL,
		size_bytes     INTEGER NOT NULL,
		provides       TEXT NOT NULL,
		requires       TEXT NOT NULL,
		aliases        TEXT NOT NULL,
		location_path  TEXT,
		location_start INTEGER,
		location_end   INTEGER
	);

	CREATE TABLE IF NOT EXISTS symbols (
		name     TEXT NOT NULL,
		chunk_id TEXT NOT NULL,
		PRIMARY KEY (name, chunk_id)
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

	CREATE TABLE IF NOT EXISTS edges (
		from_id TEXT NOT NULL,
		to_id   TEXT NOT NULL,
		kind    TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id, kind)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id, kind);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id, kind);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return cerr.IoError(fmt.Errorf("init schema: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Close()
	_ = s.lock.Unlock()
	return err
}

func (s *SQLiteStore) blobPath(chunkID string) (string, error) {
	prefix2, rest, err := chunkid.Shard(chunkID)
	if err != nil {
		return "", cerr.InvalidChunkID(chunkID)
	}
	return filepath.Join(s.cacheRoot, "blobs", "sha256", prefix2, rest), nil
}

func (s *SQLiteStore) InsertNode(ctx context.Context, chunk *atom.Chunk) error {
	if _, err := chunkid.Parse(chunk.ID); err != nil {
		return cerr.InvalidChunkID(chunk.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getNodeLocked(ctx, chunk.ID)
	if err != nil {
		return err
	}

	provides := chunk.Provides
	requires := chunk.Requires
	aliases := chunk.Aliases
	if existing != nil {
		provides = unionStrings(existing.Provides, chunk.Provides)
		requires = unionStrings(existing.Requires, chunk.Requires)
		aliases = unionStrings(existing.Aliases, chunk.Aliases)
	}

	var locPath sql.NullString
	var locStart, locEnd sql.NullInt64
	if chunk.Location != nil {
		locPath = sql.NullString{String: chunk.Location.FilePath, Valid: true}
		locStart = sql.NullInt64{Int64: int64(chunk.Location.StartLine), Valid: true}
		locEnd = sql.NullInt64{Int64: int64(chunk.Location.EndLine), Valid: true}
	}

	providesJSON, _ := json.Marshal(provides)
	requiresJSON, _ := json.Marshal(requires)
	aliasesJSON, _ := json.Marshal(aliases)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, content_hash, language, granularity, size_bytes, provides, requires, aliases, location_path, location_start, location_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET provides=excluded.provides, requires=excluded.requires, aliases=excluded.aliases
	`, chunk.ID, chunk.ContentHash, chunk.Language, string(chunk.Granularity), chunk.SizeBytes,
		string(providesJSON), string(requiresJSON), string(aliasesJSON), locPath, locStart, locEnd)
	if err != nil {
		return cerr.IoError(fmt.Errorf("insert node: %w", err))
	}

	for _, name := range provides {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO symbols (name, chunk_id) VALUES (?, ?)`, name, chunk.ID); err != nil {
			return cerr.IoError(fmt.Errorf("insert symbol: %w", err))
		}
	}
	return nil
}

func (s *SQLiteStore) StoreContent(_ context.Context, chunkID string, content []byte) error {
	if !chunkid.Verify(chunkID, content) {
		digest, _ := chunkid.Parse(chunkID)
		return cerr.HashMismatch(digest, chunkid.Sha256Bytes(content))
	}

	path, err := s.blobPath(chunkID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return cerr.IoError(fmt.Errorf("create blob directory: %w", err))
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return cerr.IoError(fmt.Errorf("write blob: %w", err))
	}

	s.blobCache.Put(chunkID, content)
	return nil
}

func (s *SQLiteStore) GetNode(ctx context.Context, chunkID string) (*atom.Chunk, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.getNodeLocked(ctx, chunkID)
	if err != nil {
		return nil, false, err
	}
	if n == nil {
		return nil, false, nil
	}
	return n, true, nil
}

func (s *SQLiteStore) getNodeLocked(ctx context.Context, chunkID string) (*atom.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT content_hash, language, granularity, size_bytes, provides, requires, aliases, location_path, location_start, location_end
		FROM nodes WHERE id = ?
	`, chunkID)

	var contentHash, language, granularity, providesJSON, requiresJSON, aliasesJSON string
	var sizeBytes int
	var locPath sql.NullString
	var locStart, locEnd sql.NullInt64

	err := row.Scan(&contentHash, &language, &granularity, &sizeBytes, &providesJSON, &requiresJSON, &aliasesJSON, &locPath, &locStart, &locEnd)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerr.IoError(fmt.Errorf("get node: %w", err))
	}

	chunk := &atom.Chunk{
		ID:          chunkID,
		ContentHash: contentHash,
		Language:    language,
		Granularity: atom.Kind(granularity),
		SizeBytes:   sizeBytes,
	}
	_ = json.Unmarshal([]byte(providesJSON), &chunk.Provides)
	_ = json.Unmarshal([]byte(requiresJSON), &chunk.Requires)
	_ = json.Unmarshal([]byte(aliasesJSON), &chunk.Aliases)
	if locPath.Valid {
		chunk.Location = &atom.SourceLocation{
			FilePath:  locPath.String,
			StartLine: int(locStart.Int64),
			EndLine:   int(locEnd.Int64),
		}
	}
	return chunk, nil
}

// GetContent checks the LRU cache first, then disk, verifying the hash
// before returning; a hash mismatch evicts the blob from both cache and
// disk and reports a miss while the node remains intact.
func (s *SQLiteStore) GetContent(_ context.Context, chunkID string) ([]byte, bool, error) {
	if cached, ok := s.blobCache.Get(chunkID); ok {
		if chunkid.Verify(chunkID, cached) {
			return cached, true, nil
		}
		s.blobCache.Evict(chunkID)
	}

	path, err := s.blobPath(chunkID)
	if err != nil {
		return nil, false, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, cerr.IoError(fmt.Errorf("read blob: %w", err))
	}

	if !chunkid.Verify(chunkID, content) {
		_ = os.Remove(path)
		s.blobCache.Evict(chunkID)
		s.logger.Warn("evicted corrupted blob", slog.String("chunk_id", chunkID))
		return nil, false, nil
	}

	s.blobCache.Put(chunkID, content)
	return content, true, nil
}

func (s *SQLiteStore) AddDependency(ctx context.Context, from, to string, kind atom.EdgeKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []string{from, to} {
		n, err := s.getNodeLocked(ctx, id)
		if err != nil {
			return err
		}
		if n == nil {
			return cerr.ChunkNotFound(id)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO edges (from_id, to_id, kind) VALUES (?, ?, ?)
	`, from, to, string(kind))
	if err != nil {
		return cerr.IoError(fmt.Errorf("add dependency: %w", err))
	}
	return nil
}

func (s *SQLiteStore) GetDependencies(ctx context.Context, chunkID string) ([]atom.Edge, error) {
	return s.queryEdges(ctx, `SELECT from_id, to_id, kind FROM edges WHERE from_id = ?`, chunkID)
}

func (s *SQLiteStore) GetDependents(ctx context.Context, chunkID string) ([]atom.Edge, error) {
	return s.queryEdges(ctx, `SELECT from_id, to_id, kind FROM edges WHERE to_id = ?`, chunkID)
}

func (s *SQLiteStore) queryEdges(ctx context.Context, query, chunkID string) ([]atom.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, chunkID)
	if err != nil {
		return nil, cerr.IoError(fmt.Errorf("query edges: %w", err))
	}
	defer rows.Close()

	var edges []atom.Edge
	for rows.Next() {
		var e atom.Edge
		var kind string
		if err := rows.Scan(&e.From, &e.To, &kind); err != nil {
			return nil, cerr.IoError(fmt.Errorf("scan edge: %w", err))
		}
		e.Kind = atom.EdgeKind(kind)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *SQLiteStore) FindSymbol(ctx context.Context, name string) (string, bool, error) {
	ids, err := s.FindSymbolCandidates(ctx, name)
	if err != nil {
		return "", false, err
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

// FindSymbolCandidates returns every chunk-id defining name, sorted
// lexicographically.
func (s *SQLiteStore) FindSymbolCandidates(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id FROM symbols WHERE name = ?`, name)
	if err != nil {
		return nil, cerr.IoError(fmt.Errorf("find symbol: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, cerr.IoError(fmt.Errorf("scan symbol: %w", err))
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// FindPath runs the same breadth-first shortest-path search as the
// in-memory store, reading edges from SQLite per step rather than
// holding the whole graph resident.
func (s *SQLiteStore) FindPath(ctx context.Context, from, to string) ([]string, bool, error) {
	if from == to {
		_, ok, err := s.GetNode(ctx, from)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		return []string{from}, true, nil
	}

	visited := map[string]bool{from: true}
	type frame struct {
		id   string
		path []string
	}
	queue := []frame{{id: from, path: []string{from}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		edges, err := s.GetDependencies(ctx, cur.id)
		if err != nil {
			return nil, false, err
		}
		for _, e := range edges {
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

func (s *SQLiteStore) GetTokenEstimate(ctx context.Context, chunkID string) (int, error) {
	n, ok, err := s.GetNode(ctx, chunkID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, cerr.ChunkNotFound(chunkID)
	}
	return n.SizeBytes / 4, nil
}

var _ Store = (*SQLiteStore)(nil)
