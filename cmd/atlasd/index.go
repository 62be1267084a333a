package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/atlasd/internal/config"
	"github.com/fyrsmithlabs/atlasd/internal/logging"
	"github.com/fyrsmithlabs/atlasd/internal/retrieval"
	"github.com/fyrsmithlabs/atlasd/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the grounding index from the occupancy database",
	Long: `Build the grounding index from the occupancy database.

Projects the room directory and utilization snapshots into text chunks and
indexes them into the configured vector store. Run it once after loading new
occupancy data; re-running replaces the projected chunks.`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := store.Open(cfg.Store, logger.Named("store"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	embedder, err := retrieval.NewEmbedder(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	vectors, err := retrieval.NewStore(cfg.Retrieval, embedder, logger.Named("retrieval"))
	if err != nil {
		return err
	}
	defer func() { _ = vectors.Close() }()

	ix, err := retrieval.NewIndexer(db, vectors, logger.Named("indexer"))
	if err != nil {
		return err
	}
	n, err := ix.BuildIndex(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d grounding chunks\n", n)
	return nil
}
