package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ConflictingTheories/cadi/internal/config"
	"github.com/ConflictingTheories/cadi/internal/rehydrate"
)

func newViewCmd() *cobra.Command {
	var policyName string
	var explain bool
	var dataDir string

	cmd := &cobra.Command{
		Use:   "view <chunk-id>...",
		Short: "Assemble a rehydrated view around one or more seed chunks",
		Long: `view runs the rehydration engine's bounded BFS starting at the
given seed chunk-ids and prints the assembled source, optionally with
the narrative explanation of every ghost addition.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), cmd, args, policyName, explain, dataDir)
		},
	}

	cmd.Flags().StringVar(&policyName, "policy", "", "conservative, default, or aggressive (default: config or \"default\")")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the inclusion explanation after the source")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "graph store cache root (default: graph.data_dir from config, ~/.cadi)")

	return cmd
}

func runView(ctx context.Context, cmd *cobra.Command, seeds []string, policyName string, explain bool, dataDir string) error {
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
	if policyName == "" {
		policyName = cfg.Rehydration.Policy
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening graph store: %w", err)
	}
	defer store.Close()

	policy, err := resolvePolicy(policyName, cfg)
	if err != nil {
		return err
	}

	engine := rehydrate.NewEngine(store)
	view, err := engine.CreateView(ctx, seeds, policy)
	if err != nil {
		return fmt.Errorf("creating view: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), view.Source)
	fmt.Fprintf(cmd.ErrOrStderr(), "\n# %d atom(s), ~%d tokens, truncated=%v\n",
		len(view.Atoms), view.TokenEstimate, view.Truncated)

	if explain && view.Explanation != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), view.Explanation)
	}
	return nil
}

func resolvePolicy(name string, cfg *config.Config) (rehydrate.ExpansionPolicy, error) {
	var policy rehydrate.ExpansionPolicy
	switch name {
	case "conservative":
		policy = rehydrate.ConservativePolicy()
	case "aggressive":
		policy = rehydrate.AggressivePolicy()
	case "default", "":
		policy = rehydrate.DefaultPolicy()
	default:
		return policy, fmt.Errorf("unknown rehydration policy %q", name)
	}

	if cfg.Rehydration.MaxDepth != nil {
		policy.MaxDepth = *cfg.Rehydration.MaxDepth
	}
	if cfg.Rehydration.MaxAtoms != nil {
		policy.MaxAtoms = *cfg.Rehydration.MaxAtoms
	}
	if cfg.Rehydration.MaxTokens != nil {
		policy.MaxTokens = *cfg.Rehydration.MaxTokens
	}
	return policy, nil
}
