package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-auth/internal/auth"
	"github.com/kozaktomas/face-auth/internal/constants"
	"github.com/kozaktomas/face-auth/internal/matcher"
	"github.com/kozaktomas/face-auth/internal/registration"
	"github.com/kozaktomas/face-auth/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Auth web server.

Endpoints:
  POST /register        register an identity with its face embedding
  GET  /detail/{name}   list the embeddings registered under a name
  GET  /socket          websocket for authenticate / authResult events
  GET  /health          health check`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("matcher", "", "Matcher implementation: linear or hnsw (overrides MATCHER)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}
	if m := mustGetString(cmd, "matcher"); m != "" {
		cfg.Matching.Matcher = m
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := matcher.New(&cfg.Matching)
	if err != nil {
		return err
	}
	logger.Info("matcher ready", "matcher", cfg.Matching.Matcher, "threshold", matcher.Threshold, "dimension", cfg.Matching.Dimension)

	server := web.NewServer(cfg, web.Dependencies{
		Store:         store,
		Registrar:     registration.NewRegistrar(store, logger),
		Authenticator: auth.NewService(store, m, cfg.Matching.Dimension, logger),
		Logger:        logger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	shutdownErr := make(chan error, 1)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeoutSeconds*time.Second)
		defer shutdownCancel()

		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Starting Face Auth on http://%s\n", cfg.Server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	return nil
}
