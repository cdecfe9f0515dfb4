package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/registration"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register one identity in the configured store",
	Long: `Register a single identity directly in the configured store.

The embedding file must contain a JSON array of numbers whose length matches
FACE_EMBEDDING_DIM. Use "-" to read it from stdin.`,
	Example: `  face-auth register --name alice --email alice@example.com --embedding-file alice.json
  cat bob.json | face-auth register --name bob --embedding-file -`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Name of the identity (required)")
	registerCmd.Flags().String("email", "", "Contact email")
	registerCmd.Flags().Float64("age", 0, "Estimated age")
	registerCmd.Flags().String("gender", "", "Gender label")
	registerCmd.Flags().String("embedding-file", "", "JSON file with the face embedding (required)")
	registerCmd.Flags().Bool("json", false, "Print the created record as JSON")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("embedding-file")
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Backend == config.BackendMemory {
		return errors.New("the memory backend does not persist; set STORE_BACKEND")
	}

	embedding, err := readEmbeddingFile(mustGetString(cmd, "embedding-file"))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := registration.NewRegistrar(store, logger).Register(ctx, registration.Request{
		Name:          mustGetString(cmd, "name"),
		Email:         mustGetString(cmd, "email"),
		FaceEmbedding: embedding,
		Age:           mustGetFloat64(cmd, "age"),
		Gender:        mustGetString(cmd, "gender"),
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s with ID %d\n", rec.Name, rec.ID)
	return nil
}
