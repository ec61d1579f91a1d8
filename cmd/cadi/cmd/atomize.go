package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ConflictingTheories/cadi/internal/atom"
	"github.com/ConflictingTheories/cadi/internal/atomize"
	"github.com/ConflictingTheories/cadi/internal/chunkid"
	"github.com/ConflictingTheories/cadi/internal/config"
	"github.com/ConflictingTheories/cadi/internal/dedup"
	"github.com/ConflictingTheories/cadi/internal/graph"
	"github.com/ConflictingTheories/cadi/internal/logging"
	"github.com/ConflictingTheories/cadi/internal/normalize"
)

func newAtomizeCmd() *cobra.Command {
	var dataDir string
	var languageOverride string

	cmd := &cobra.Command{
		Use:   "atomize <file>...",
		Short: "Extract atoms from source files and store them in the graph",
		Long: `atomize runs the Atomizer over each given file, hashes every
extracted atom into a content-addressed chunk, and imports the chunks
(and their cross-references) into the graph store.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAtomize(cmd.Context(), cmd, args, dataDir, languageOverride)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "graph store cache root (default: graph.data_dir from config, ~/.cadi)")
	cmd.Flags().StringVar(&languageOverride, "language", "", "force a language tag instead of inferring from extension")

	return cmd
}

func runAtomize(ctx context.Context, cmd *cobra.Command, paths []string, dataDir, languageOverride string) error {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dataDir != "" {
		cfg.Graph.DataDir = dataDir
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening graph store: %w", err)
	}
	defer store.Close()

	atomizer := atomize.New(slog.Default())
	importer := graph.NewImporter(store)
	registry := graph.NewAliasRegistry()
	dedupIndex := dedup.New()

	var chunks []*atom.Chunk
	totalAtoms := 0
	duplicateCount := 0

	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		language := languageOverride
		if language == "" {
			language = atomizer.LanguageFromExtension(filepath.Ext(path))
		}
		if language == "" {
			slog.Warn("skipping file with unrecognized extension", slog.String("path", path))
			continue
		}

		atoms, err := atomizer.Extract(ctx, language, source)
		if err != nil {
			return fmt.Errorf("atomizing %s: %w", path, err)
		}

		for _, a := range atoms {
			id := chunkid.FromContent([]byte(a.Source))
			hash := id[len("chunk:sha256:"):]
			loc := &atom.SourceLocation{FilePath: path, StartLine: a.StartLine, EndLine: a.EndLine}
			chunk := atom.NewChunkFromAtom(a, id, hash, loc)
			chunks = append(chunks, chunk)

			if err := store.StoreContent(ctx, chunk.ID, []byte(a.Source)); err != nil {
				return fmt.Errorf("storing content for %s: %w", chunk.ID, err)
			}

			result := normalize.Canonicalize(a.Language, a.Source)
			isFirst, previous, err := dedupIndex.RegisterCanonical(ctx, chunk.ID, result.SemanticHash, result.Canonical)
			if err != nil {
				return fmt.Errorf("indexing %s for dedup: %w", chunk.ID, err)
			}
			if !isFirst {
				duplicateCount++
				logging.ForChunk(slog.Default(), chunk.ID).Info("semantic duplicate found",
					slog.String("semantic_hash", result.SemanticHash),
					slog.Any("equivalent_to", previous))
			} else if near, nerr := dedupIndex.FindNearEquivalents(ctx, result.Canonical, 3); nerr == nil {
				for _, m := range near {
					if m.ChunkID != chunk.ID && m.Similarity >= 0.85 {
						logging.ForChunk(slog.Default(), chunk.ID).Info("near-duplicate candidate found",
							slog.String("candidate", m.ChunkID),
							slog.Float64("similarity", m.Similarity))
					}
				}
			}
		}
		totalAtoms += len(atoms)
	}

	if err := importer.Import(ctx, chunks, registry); err != nil {
		return fmt.Errorf("importing chunks: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "atomized %d file(s) into %d chunk(s), %d semantic duplicate(s)\n", len(paths), totalAtoms, duplicateCount)
	for _, c := range chunks {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s  %s\n", c.ID, c.Language, c.Granularity)
	}
	return nil
}

func openStore(cfg *config.Config) (graph.Store, error) {
	if cfg.Graph.Backend == "memory" {
		return graph.NewMemoryStore(), nil
	}
	return graph.Open(cfg.Graph.DataDir, slog.Default())
}
