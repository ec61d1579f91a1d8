package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ConflictingTheories/cadi/internal/config"
	"github.com/ConflictingTheories/cadi/internal/rehydrate"
)

func newSimulateCmd() *cobra.Command {
	var policyName string
	var suggest bool
	var dataDir string

	cmd := &cobra.Command{
		Use:   "simulate <chunk-id>...",
		Short: "Dry-run the rehydration BFS without reading blob content",
		Long: `simulate reports which chunks a view would admit for the given
seeds and policy, and how many tokens they would cost, without ever
touching blob content. With --suggest it instead recommends a policy
based on the seeds' dependency fan-out.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), cmd, args, policyName, suggest, dataDir)
		},
	}

	cmd.Flags().StringVar(&policyName, "policy", "", "conservative, default, or aggressive (default: config or \"default\")")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "recommend a policy instead of simulating one")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "graph store cache root (default: graph.data_dir from config, ~/.cadi)")

	return cmd
}

func runSimulate(ctx context.Context, cmd *cobra.Command, seeds []string, policyName string, suggest bool, dataDir string) error {
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

	engine := rehydrate.NewEngine(store)

	if suggest {
		policy, err := engine.SuggestPolicy(ctx, seeds)
		if err != nil {
			return fmt.Errorf("suggesting policy: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "suggested: max_depth=%d max_atoms=%d max_tokens=%d follow=%v\n",
			policy.MaxDepth, policy.MaxAtoms, policy.MaxTokens, policy.FollowEdges)
		return nil
	}

	if policyName == "" {
		policyName = cfg.Rehydration.Policy
	}
	policy, err := resolvePolicy(policyName, cfg)
	if err != nil {
		return err
	}

	analyzer := rehydrate.NewAnalyzer(store)
	sim, err := analyzer.SimulateExpansion(ctx, seeds, policy)
	if err != nil {
		return fmt.Errorf("simulating expansion: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d atom(s), ~%d tokens, depth reached %d, truncated=%v\n",
		len(sim.IncludedAtoms), sim.TotalTokens, sim.MaxDepthReached, sim.Truncated)
	for _, id := range sim.IncludedAtoms {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
	}
	return nil
}
