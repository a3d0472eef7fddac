package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobaba99/truepick/internal/logging"
	"github.com/bobaba99/truepick/internal/server"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the TruePick HTTP API",
	Long: `Starts the HTTP API and blocks until interrupted.

Endpoints:
  POST /quiz     Submit questionnaire answers, get the compiled profile
  POST /consult  Run a purchase through the decision pipeline
  GET  /health   Liveness plus configured providers

In-flight requests drain on SIGINT/SIGTERM before the process exits.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Server("received shutdown signal")
		cancel()
	}()

	comps, err := bootPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to boot pipeline: %w", err)
	}
	defer comps.Close()

	srv := server.New(cfg, comps.engine, comps.profiles, comps.vectors, server.ProviderNames{
		Reasoner:  cfg.Reasoner.Provider,
		Embedding: comps.embedder.Name(),
	})

	fmt.Printf("TruePick API listening on %s (reasoner=%s, embedding=%s)\n",
		cfg.Server.Addr, cfg.Reasoner.Provider, comps.embedder.Name())

	return srv.Start(ctx)
}
