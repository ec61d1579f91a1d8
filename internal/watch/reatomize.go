// Package watch drives a file-system watcher over a project tree and
// keeps the graph store in sync: every create/modify event for a
// recognized source file re-runs the Atomizer and re-imports the
// resulting chunks, so a long-lived process never needs a full rescan.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ConflictingTheories/cadi/internal/atom"
	"github.com/ConflictingTheories/cadi/internal/atomize"
	"github.com/ConflictingTheories/cadi/internal/chunkid"
	"github.com/ConflictingTheories/cadi/internal/dedup"
	"github.com/ConflictingTheories/cadi/internal/graph"
	"github.com/ConflictingTheories/cadi/internal/logging"
	"github.com/ConflictingTheories/cadi/internal/normalize"
	"github.com/ConflictingTheories/cadi/internal/watcher"
)

// Reatomizer watches a directory tree and keeps a graph store's chunks
// current as source files change on disk.
type Reatomizer struct {
	store    graph.Store
	atomizer *atomize.Atomizer
	registry *graph.AliasRegistry
	dedup    *dedup.Index
	logger   *slog.Logger
}

// NewReatomizer builds a Reatomizer writing into store. logger defaults
// to slog.Default() if nil.
func NewReatomizer(store graph.Store, logger *slog.Logger) *Reatomizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reatomizer{
		store:    store,
		atomizer: atomize.New(logger),
		registry: graph.NewAliasRegistry(),
		dedup:    dedup.New(),
		logger:   logger,
	}
}

// Result reports what a single re-atomization pass did.
type Result struct {
	Path              string
	ChunksWritten     int
	SemanticDuplicate bool
	NearDuplicateOf   []string
}

// Run starts watching root and blocks, re-atomizing on every relevant
// event, until ctx is cancelled or the watcher fails to start. Errors
// from individual re-atomization attempts are logged, not fatal — a
// syntax error in one file should never stop the watch loop.
func (r *Reatomizer) Run(ctx context.Context, root string, opts watcher.Options) error {
	if len(opts.RelevantExtensions) == 0 {
		opts.RelevantExtensions = r.atomizer.RecognizedExtensions()
	}
	w, err := watcher.NewHybridWatcher(opts)
	if err != nil {
		return err
	}
	defer w.Stop()

	startErr := make(chan error, 1)
	go func() {
		startErr <- w.Start(ctx, root)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-startErr:
			if err != nil && ctx.Err() == nil {
				r.logger.Error("watcher stopped", slog.String("error", err.Error()))
				return err
			}
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			r.handleBatch(ctx, root, batch)
		case err, ok := <-w.Errors():
			if !ok {
				continue
			}
			r.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (r *Reatomizer) handleBatch(ctx context.Context, root string, batch []watcher.FileEvent) {
	for _, ev := range batch {
		if ev.IsDir {
			continue
		}
		switch ev.Operation {
		case watcher.OpCreate, watcher.OpModify, watcher.OpRename:
		default:
			continue
		}

		absPath := ev.Path
		if !filepath.IsAbs(absPath) {
			absPath = filepath.Join(root, ev.Path)
		}

		result, err := r.ReatomizeFile(ctx, absPath)
		if err != nil {
			r.logger.Warn("re-atomization failed",
				slog.String("path", absPath), slog.String("error", err.Error()))
			continue
		}
		if result != nil {
			r.logger.Debug("re-atomized file",
				slog.String("path", result.Path),
				slog.Int("chunks", result.ChunksWritten))
			if result.SemanticDuplicate {
				r.logger.Info("re-atomized file matches an existing semantic hash",
					slog.String("path", result.Path))
			}
			if len(result.NearDuplicateOf) > 0 {
				r.logger.Info("re-atomized file is a near-duplicate candidate",
					slog.String("path", result.Path),
					slog.Any("candidates", result.NearDuplicateOf))
			}
		}
	}
}

// ReatomizeFile extracts atoms from the file at path, writes their
// chunks into the store, and re-imports dependency edges. Returns nil,
// nil for a file whose extension has no registered language adapter.
func (r *Reatomizer) ReatomizeFile(ctx context.Context, path string) (*Result, error) {
	language := r.atomizer.LanguageFromExtension(filepath.Ext(path))
	if language == "" {
		return nil, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	atoms, err := r.atomizer.Extract(ctx, language, source)
	if err != nil {
		return nil, err
	}

	chunks := make([]*atom.Chunk, 0, len(atoms))
	duplicate := false
	var nearDuplicateOf []string
	for _, a := range atoms {
		id := chunkid.FromContent([]byte(a.Source))
		hash := id[len("chunk:sha256:"):]
		loc := &atom.SourceLocation{FilePath: path, StartLine: a.StartLine, EndLine: a.EndLine}
		chunk := atom.NewChunkFromAtom(a, id, hash, loc)
		chunks = append(chunks, chunk)

		if err := r.store.StoreContent(ctx, chunk.ID, []byte(a.Source)); err != nil {
			return nil, err
		}

		canonical := normalize.Canonicalize(a.Language, a.Source)
		isFirst, _, err := r.dedup.RegisterCanonical(ctx, chunk.ID, canonical.SemanticHash, canonical.Canonical)
		if err != nil {
			return nil, err
		}
		if !isFirst {
			duplicate = true
			logging.ForChunk(r.logger, chunk.ID).Debug("re-atomized chunk matches an existing semantic hash")
			continue
		}
		near, err := r.dedup.FindNearEquivalents(ctx, canonical.Canonical, 3)
		if err != nil {
			return nil, err
		}
		for _, m := range near {
			if m.ChunkID != chunk.ID && m.Similarity >= 0.85 {
				nearDuplicateOf = append(nearDuplicateOf, m.ChunkID)
			}
		}
	}

	importer := graph.NewImporter(r.store)
	if err := importer.Import(ctx, chunks, r.registry); err != nil {
		return nil, err
	}

	return &Result{
		Path:              path,
		ChunksWritten:     len(chunks),
		SemanticDuplicate: duplicate,
		NearDuplicateOf:   nearDuplicateOf,
	}, nil
}

// DefaultDebounce matches the interactive edit cadence of a typical
// editor save, short enough that a watch session still feels live.
const DefaultDebounce = 300 * time.Millisecond
