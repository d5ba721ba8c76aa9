// Copyright 2025 Repforge Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/repforge/wodsearch/ai"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
)

// embeddingStage names the checkpoint written by the embedding processor.
const embeddingStage = "embeddings"

// processor is an internal interface for enriching workout records.
type processor interface {
	// process enriches the workout records identified by the given IDs.
	process(ctx context.Context, ids ...core.ID) error

	// checkpoint saves the processor's current state.
	checkpoint() error
}

// embeddingProcessor generates summary embeddings for workout records.
type embeddingProcessor struct {
	workoutRepository    storage.WorkoutRepository
	checkpointRepository storage.CheckpointRepository
	embedder             ai.Embedder
	mu                   sync.Mutex
	lastID               core.ID
	logger               *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(
	workoutRepository storage.WorkoutRepository,
	checkpointRepository storage.CheckpointRepository,
	embedder ai.Embedder,
	logger *slog.Logger,
) (processor, error) {
	if workoutRepository == nil {
		return nil, ErrWorkoutRepositoryRequired
	}
	if checkpointRepository == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		workoutRepository:    workoutRepository,
		checkpointRepository: checkpointRepository,
		embedder:             embedder,
		logger:               logger.With("processor", "embeddings"),
	}, nil
}

// process generates summary embeddings for the specified workout records.
// Records that already carry a vector are skipped, so reprocessing a batch
// is cheap.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	ep.logger.Info("processing records for embeddings", "records", len(ids))

	records, err := ep.workoutRepository.GetWorkouts(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving workout records", "err", err)
		return err
	}

	pending := make([]*core.WorkoutRecord, 0, len(records))
	for _, record := range records {
		if len(record.SummaryVector) == 0 {
			pending = append(pending, record)
		}
	}

	if len(pending) > 0 {
		texts := make([]string, len(pending))
		for i, record := range pending {
			texts[i] = embeddingText(record)
		}

		ep.logger.Debug("generating embeddings for workout records", "records", len(texts))
		embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			ep.logger.Error("error generating embeddings", "err", err)
			return err
		}

		if len(embeddings) != len(pending) {
			return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(pending), len(embeddings))
		}

		for i := range embeddings {
			pending[i].SummaryVector = embeddings[i]
		}

		if _, err := ep.workoutRepository.AddWorkouts(ctx, pending...); err != nil {
			return err
		}
	}

	if len(ids) > 0 {
		ep.mu.Lock()
		ep.lastID = ids[len(ids)-1]
		ep.mu.Unlock()
	}

	return nil
}

// checkpoint saves the ID of the last record whose batch finished embedding.
func (ep *embeddingProcessor) checkpoint() error {
	ep.mu.Lock()
	lastID := ep.lastID
	ep.mu.Unlock()

	if lastID == 0 {
		return nil
	}

	return ep.checkpointRepository.SaveCheckpoint(context.Background(), &core.Checkpoint{
		Name:   embeddingStage,
		LastID: lastID,
	})
}

// embeddingText returns the text a record's vector is computed over.
// The one-sentence summary is preferred; records without one fall back to
// the full searchable text.
func embeddingText(record *core.WorkoutRecord) string {
	if record.Summary != "" {
		return record.Summary
	}
	return record.SearchText()
}
