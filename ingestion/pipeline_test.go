package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/repforge/wodsearch/ai/mock"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
	"github.com/repforge/wodsearch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepositories(t *testing.T) (storage.WorkoutRepository, storage.CheckpointRepository) {
	t.Helper()

	workoutRepo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	return workoutRepo, badger.NewCheckpointRepository(backend)
}

func testRecord(date, name, workout string) *core.WorkoutRecord {
	d, _ := time.ParseInLocation("2006-01-02", date, time.UTC)
	return &core.WorkoutRecord{
		Id:      core.IDFromContent(date + "\n" + workout),
		Date:    d,
		Name:    name,
		Workout: workout,
		Summary: "A summary of " + workout,
	}
}

func TestNewPipelineValidation(t *testing.T) {
	workoutRepo, checkpointRepo := setupTestRepositories(t)
	embedder := mock.NewMockEmbedder()

	t.Run("missing workout repository", func(t *testing.T) {
		_, err := NewPipeline(nil, checkpointRepo, embedder)
		assert.ErrorIs(t, err, ErrWorkoutRepositoryRequired)
	})

	t.Run("missing checkpoint repository", func(t *testing.T) {
		_, err := NewPipeline(workoutRepo, nil, embedder)
		assert.ErrorIs(t, err, ErrCheckpointRepositoryRequired)
	})

	t.Run("missing embedder", func(t *testing.T) {
		_, err := NewPipeline(workoutRepo, checkpointRepo, nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("valid", func(t *testing.T) {
		p, err := NewPipeline(workoutRepo, checkpointRepo, embedder, WithPoolSize(2), WithBatchSize(8))
		require.NoError(t, err)
		defer p.Release()
	})
}

func TestIngestEmbedsSummaries(t *testing.T) {
	workoutRepo, checkpointRepo := setupTestRepositories(t)
	embedder := mock.NewMockEmbedder()

	p, err := NewPipeline(workoutRepo, checkpointRepo, embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	records := []*core.WorkoutRecord{
		testRecord("2024-01-15", "Murph", "Run 1 mile, 100 pull-ups, 200 push-ups, 300 squats, run 1 mile"),
		testRecord("2024-01-16", "", "5 rounds: 20 wall-ball shots, 15 box jumps"),
	}

	added, err := p.Ingest(context.Background(), records...)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	p.Wait()

	for _, record := range records {
		stored, err := workoutRepo.GetWorkout(context.Background(), record.Id)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.SummaryVector, "record %q should carry a vector", stored.Title())
	}

	cp, err := checkpointRepo.GetCheckpoint(context.Background(), "embeddings")
	require.NoError(t, err)
	assert.Equal(t, records[1].Id, cp.LastID)
}

func TestIngestSkipsRecordsWithVectors(t *testing.T) {
	workoutRepo, checkpointRepo := setupTestRepositories(t)
	embedder := mock.NewMockEmbedder()

	p, err := NewPipeline(workoutRepo, checkpointRepo, embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	record := testRecord("2024-02-01", "Fran", "21-15-9 thrusters and pull-ups")
	record.SummaryVector = []float32{0.5, 0.5, 0.5}

	_, err = p.Ingest(context.Background(), record)
	require.NoError(t, err)
	p.Wait()

	assert.Equal(t, 0, embedder.CallCount())

	stored, err := workoutRepo.GetWorkout(context.Background(), record.Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5, 0.5}, stored.SummaryVector)
}

func TestIngestEmbedderFailureDoesNotFailIngest(t *testing.T) {
	workoutRepo, checkpointRepo := setupTestRepositories(t)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding host down")
	}

	p, err := NewPipeline(workoutRepo, checkpointRepo, embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	record := testRecord("2024-03-01", "", "For time: 150 burpees")

	added, err := p.Ingest(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	p.Wait()

	// Record is stored, just without a vector yet.
	stored, err := workoutRepo.GetWorkout(context.Background(), record.Id)
	require.NoError(t, err)
	assert.Empty(t, stored.SummaryVector)

	// No checkpoint is written for a failed batch.
	_, err = checkpointRepo.GetCheckpoint(context.Background(), "embeddings")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSkipCompleted(t *testing.T) {
	workoutRepo, checkpointRepo := setupTestRepositories(t)
	embedder := mock.NewMockEmbedder()

	p, err := NewPipeline(workoutRepo, checkpointRepo, embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	records := []*core.WorkoutRecord{
		testRecord("2024-04-01", "", "Workout A"),
		testRecord("2024-04-02", "", "Workout B"),
		testRecord("2024-04-03", "", "Workout C"),
	}

	t.Run("no checkpoint returns everything", func(t *testing.T) {
		remaining, err := p.SkipCompleted(context.Background(), records)
		require.NoError(t, err)
		assert.Len(t, remaining, 3)
	})

	_, err = p.Ingest(context.Background(), records[0], records[1])
	require.NoError(t, err)
	p.Wait()

	t.Run("resumes after checkpointed record", func(t *testing.T) {
		remaining, err := p.SkipCompleted(context.Background(), records)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, records[2].Id, remaining[0].Id)
	})

	t.Run("unrecognized checkpoint restarts", func(t *testing.T) {
		other := []*core.WorkoutRecord{testRecord("2025-01-01", "", "Different export")}
		remaining, err := p.SkipCompleted(context.Background(), other)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})
}

func TestLoadRecords(t *testing.T) {
	t.Run("parses and orders by date", func(t *testing.T) {
		export := `[
			{"date": "2024-01-16", "workout": "5 rounds of rowing", "movements": ["Row", "row", " "]},
			{"date": "2024-01-15", "workout_name": "Murph", "workout": "Run, pull-ups, push-ups, squats",
			 "scaling": " Partition as needed ", "one_sentence_summary": "Hero workout Murph.",
			 "equipment": ["Pull-up Bar"], "workout_type": "Hero"}
		]`

		records, err := LoadRecords(strings.NewReader(export))
		require.NoError(t, err)
		require.Len(t, records, 2)

		murph := records[0]
		assert.Equal(t, "Murph", murph.Name)
		assert.Equal(t, "2024-01-15", murph.Date.Format("2006-01-02"))
		assert.Equal(t, "Partition as needed", murph.Scaling)
		assert.Equal(t, "Hero workout Murph.", murph.Summary)
		assert.Equal(t, []string{"pull-up bar"}, murph.Equipment)
		assert.Equal(t, "hero", murph.WorkoutType)
		assert.NotZero(t, murph.Id)

		assert.Equal(t, []string{"row"}, records[1].Movements)
	})

	t.Run("deterministic ids", func(t *testing.T) {
		export := `[{"date": "2024-01-15", "workout": "Run 5k"}]`

		first, err := LoadRecords(strings.NewReader(export))
		require.NoError(t, err)
		second, err := LoadRecords(strings.NewReader(export))
		require.NoError(t, err)

		assert.Equal(t, first[0].Id, second[0].Id)
	})

	t.Run("rejects bad date", func(t *testing.T) {
		export := `[{"date": "January 15", "workout": "Run 5k"}]`

		_, err := LoadRecords(strings.NewReader(export))
		assert.ErrorIs(t, err, core.ErrInvalidWorkoutRecord)
	})

	t.Run("rejects empty workout body", func(t *testing.T) {
		export := `[{"date": "2024-01-15", "workout": "  "}]`

		_, err := LoadRecords(strings.NewReader(export))
		assert.ErrorIs(t, err, core.ErrInvalidWorkoutRecord)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := LoadRecords(strings.NewReader("{not json"))
		assert.Error(t, err)
	})
}
