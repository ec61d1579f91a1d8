package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConflictingTheories/cadi/internal/config"
	"github.com/ConflictingTheories/cadi/internal/watch"
	"github.com/ConflictingTheories/cadi/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var dataDir string
	var debounceMS int

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and keep the graph store current",
		Long: `watch runs a file-system watcher over the given directory and
re-atomizes every recognized source file as it changes, importing the
resulting chunks into the graph store without a full rescan.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0], dataDir, debounceMS)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "graph store cache root (default: graph.data_dir from config, ~/.cadi)")
	cmd.Flags().IntVar(&debounceMS, "debounce-ms", int(watch.DefaultDebounce/time.Millisecond), "debounce window in milliseconds")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir, dataDir string, debounceMS int) error {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		root = dir
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

	opts := watcher.DefaultOptions()
	opts.DebounceWindow = time.Duration(debounceMS) * time.Millisecond

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s (debounce %s)\n", dir, opts.DebounceWindow)

	r := watch.NewReatomizer(store, slog.Default())
	if err := r.Run(ctx, dir, opts); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
