package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/sauti-labs/lugha/internal/config"
	"github.com/sauti-labs/lugha/internal/database"
	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/knowledge"
	"github.com/sauti-labs/lugha/internal/repository"
	"github.com/spf13/cobra"
)

// seedEntry is one record in the seed corpus file.
type seedEntry struct {
	Language  string `json:"language"`
	ChunkType string `json:"chunk_type"`
	Topic     string `json:"topic"`
	Content   string `json:"content"`
}

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a seed corpus into the knowledge store",
		Long:  "Load knowledge entries from a JSON file. Entries start at seed trust and are queued for embedding.",
		RunE:  runSeed,
	}

	cmd.Flags().StringP("file", "f", "", "Path to the seed corpus JSON file")
	cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path, _ := cmd.Flags().GetString("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("seed file contains no entries")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolConfig{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	svc := knowledge.NewService(
		repository.NewKnowledgeRepository(pool),
		repository.NewKnowledgeTxRunner(pool),
	)

	loaded := 0
	for i, entry := range entries {
		_, err := svc.Create(ctx, knowledge.CreateInput{
			Language:  entry.Language,
			ChunkType: domain.ChunkType(entry.ChunkType),
			Topic:     entry.Topic,
			Content:   entry.Content,
			Source:    "seed_corpus",
		})
		if err != nil {
			return fmt.Errorf("failed to load entry %d: %w", i, err)
		}
		loaded++
	}

	log.Printf("seed: loaded %d knowledge entries (embeddings will be generated by the worker)", loaded)
	return nil
}
