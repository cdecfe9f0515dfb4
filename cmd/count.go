package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show the number of registered identities",
	Args:  cobra.NoArgs,
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count identities: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\n", cfg.Store.Backend)
	fmt.Fprintf(cmd.OutOrStdout(), "Identities: %d\n", n)
	return nil
}
