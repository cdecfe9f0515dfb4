package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup NAME",
	Short: "List the records registered under a name",
	Long:  `Lists every record whose name matches NAME exactly (case-sensitive), oldest first.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().Bool("json", false, "Print records as JSON, embeddings included")
}

func runLookup(cmd *cobra.Command, args []string) error {
	name := args[0]

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

	records, err := store.FindByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up %q: %w", name, err)
	}

	out := cmd.OutOrStdout()
	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		return fmt.Errorf("no user exist with this name: %s", name)
	}
	fmt.Fprintf(out, "%-8s %-24s %-30s %6s  %s\n", "ID", "NAME", "EMAIL", "AGE", "CREATED")
	for _, rec := range records {
		fmt.Fprintf(out, "%-8d %-24s %-30s %6.1f  %s\n",
			rec.ID, rec.Name, rec.Email, rec.AgeEstimate, rec.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
