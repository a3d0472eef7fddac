package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobaba99/truepick/internal/knowledge"
	"github.com/bobaba99/truepick/internal/logging"
)

var ingestWatch bool

// ingestCmd loads knowledge documents into the vector store
var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Embed knowledge documents into the vector store",
	Long: `Chunks, embeds, and stores every supported document (.md, .txt, .html)
under the given directory. Defaults to the configured knowledge dir.

Re-running is idempotent: a changed file replaces its own chunks, a
shrunk file leaves no stale tail behind. Files that fail to parse are
skipped and reported, not fatal.

With --watch the command stays up and re-syncs files as they change on
disk, debounced so editors that write in bursts trigger one re-ingest.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "Stay running and re-ingest files as they change")
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := cfg.Knowledge.Dir
	if len(args) > 0 {
		dir = args[0]
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Ingest("received shutdown signal")
		cancel()
	}()

	embedder, err := bootEmbedding(cfg)
	if err != nil {
		return fmt.Errorf("failed to boot embedding engine: %w", err)
	}
	sqlite, vectors, _, err := bootStores(cfg, embedder.Dimensions())
	if err != nil {
		return err
	}
	defer sqlite.Close()

	ingestor := knowledge.NewIngestor(vectors, embedder, cfg.Knowledge.ChunkTokens, cfg.Knowledge.OverlapPercent)

	fmt.Printf("Ingesting %s with %s...\n", dir, embedder.Name())
	report, err := ingestor.Ingest(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Printf("Ingest complete: %d files seen, %d chunks written\n", report.FilesSeen, report.ChunksWritten)
	if report.FilesFailed > 0 {
		fmt.Printf("Skipped %d file(s):\n", report.FilesFailed)
		for _, source := range report.Failed {
			fmt.Printf("  - %s\n", source)
		}
	}

	if !ingestWatch {
		return nil
	}

	watcher, err := knowledge.NewWatcher(ingestor, dir, cfg.GetWatchDebounce())
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", dir)
	<-ctx.Done()
	return nil
}
