package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/repforge/wodsearch/ai"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
)

// defaultBatchSize is the number of records embedded per worker task.
const defaultBatchSize = 32

// Pipeline orchestrates the ingestion and enrichment of workout records.
// Records are written to storage synchronously; summary embeddings are
// generated asynchronously on a worker pool.
type Pipeline struct {
	workoutRepository    storage.WorkoutRepository
	checkpointRepository storage.CheckpointRepository
	embeddingPool        *ants.Pool
	embeddingProc        processor
	batchSize            int
	wg                   sync.WaitGroup
	logger               *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		p.embeddingPool = pool
		return nil
	}
}

// WithBatchSize sets how many records are embedded per worker task.
// Default is 32, with a minimum of 1.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	workoutRepository storage.WorkoutRepository,
	checkpointRepository storage.CheckpointRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if workoutRepository == nil {
		return nil, ErrWorkoutRepositoryRequired
	}
	if checkpointRepository == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		workoutRepository:    workoutRepository,
		checkpointRepository: checkpointRepository,
		embeddingPool:        pool,
		batchSize:            defaultBatchSize,
		logger:               slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	proc, err := newEmbeddingProcessor(workoutRepository, checkpointRepository, embedder, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = proc

	return p, nil
}

// Ingest adds workout records to storage and enriches them asynchronously.
// Records that already carry a summary vector are stored as-is and skipped
// by the embedding stage. Errors during async processing are logged but do
// not fail the ingestion. Returns the number of records added.
func (p *Pipeline) Ingest(ctx context.Context, records ...*core.WorkoutRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	added, err := p.workoutRepository.AddWorkouts(ctx, records...)
	if err != nil {
		return 0, err
	}
	if len(added) == 0 {
		return 0, nil
	}

	ids := make([]core.ID, len(added))
	for i, record := range added {
		ids[i] = record.Id
	}

	for start := 0; start < len(ids); start += p.batchSize {
		end := start + p.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		p.wg.Add(1)
		err := p.embeddingPool.Submit(func() {
			defer p.wg.Done()
			if procErr := p.embeddingProc.process(context.Background(), batch...); procErr != nil {
				p.logger.Error("error processing embeddings", "err", procErr)
				return
			}
			if cpErr := p.embeddingProc.checkpoint(); cpErr != nil {
				p.logger.Error("error applying embedding checkpoint", "err", cpErr)
			}
		})
		if err != nil {
			p.wg.Done()
			p.logger.Error("error submitting embedding batch", "err", err)
		}
	}

	return len(added), nil
}

// SkipCompleted consults the embedding checkpoint and returns the suffix of
// records that still needs ingesting. Records must be in the same order as
// the run that wrote the checkpoint. With no checkpoint, all records are
// returned.
func (p *Pipeline) SkipCompleted(ctx context.Context, records []*core.WorkoutRecord) ([]*core.WorkoutRecord, error) {
	cp, err := p.checkpointRepository.GetCheckpoint(ctx, embeddingStage)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return records, nil
		}
		return nil, err
	}

	for i, record := range records {
		if record.Id == cp.LastID {
			p.logger.Info("resuming from checkpoint", "stage", embeddingStage, "skipped", i+1)
			return records[i+1:], nil
		}
	}

	// Checkpoint doesn't match this export; ingestion is idempotent, so
	// start over rather than guess.
	return records, nil
}

// Wait blocks until all submitted embedding work has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
