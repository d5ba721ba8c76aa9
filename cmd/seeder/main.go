package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/repforge/wodsearch/ai"
	"github.com/repforge/wodsearch/ai/openai"
	"github.com/repforge/wodsearch/ingestion"
	"github.com/repforge/wodsearch/storage/badger"
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	input := flag.String("input", "", "Path to the JSON workout export")
	dbPath := flag.String("db", "./wodsearch_db", "Path to BadgerDB database directory")
	host := flag.String("host", "http://localhost:11434/v1", "OpenAI-compatible host URL")
	embeddingModel := flag.String("embedding-model", "embeddinggemma", "Embedding model name")
	poolSize := flag.Int("pool-size", 4, "Embedding worker pool size")
	batchSize := flag.Int("batch-size", 32, "Records embedded per worker task")
	resume := flag.Bool("resume", false, "Resume from the last embedding checkpoint")
	flag.Parse()

	logger := slog.Default().With("component", "seeder")

	if *input == "" {
		logger.Error("missing required -input flag")
		os.Exit(1)
	}

	file, err := os.Open(*input)
	if err != nil {
		logger.Error("error opening export", "err", err)
		os.Exit(1)
	}
	records, err := ingestion.LoadRecords(file)
	file.Close()
	if err != nil {
		logger.Error("error loading export", "err", err)
		os.Exit(1)
	}
	logger.Info("loaded export", "records", len(records))

	backend, err := badger.OpenBackend(*dbPath, false)
	if err != nil {
		logger.Error("error opening database", "err", err)
		os.Exit(1)
	}
	defer backend.Close()

	workoutRepo, err := badger.NewWorkoutRepository(backend)
	if err != nil {
		logger.Error("error creating workout repository", "err", err)
		os.Exit(1)
	}
	checkpointRepo := badger.NewCheckpointRepository(backend)

	provider, err := openai.NewProvider(ai.NewConfig(
		ai.WithHost(*host),
		ai.WithEmbeddingModel(*embeddingModel),
	))
	if err != nil {
		logger.Error("error creating AI provider", "err", err)
		os.Exit(1)
	}
	defer provider.Close()

	pipeline, err := ingestion.NewPipeline(workoutRepo, checkpointRepo, provider.Embedder(),
		ingestion.WithPoolSize(*poolSize),
		ingestion.WithBatchSize(*batchSize))
	if err != nil {
		logger.Error("error creating pipeline", "err", err)
		os.Exit(1)
	}
	defer pipeline.Release()

	ctx := context.Background()

	if *resume {
		records, err = pipeline.SkipCompleted(ctx, records)
		if err != nil {
			logger.Error("error reading checkpoint", "err", err)
			os.Exit(1)
		}
	}

	added, err := pipeline.Ingest(ctx, records...)
	if err != nil {
		logger.Error("error ingesting records", "err", err)
		os.Exit(1)
	}

	pipeline.Wait()
	logger.Info("ingestion complete", "added", added)
}
