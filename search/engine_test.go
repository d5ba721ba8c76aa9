package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repforge/wodsearch/ai/mock"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
	"github.com/repforge/wodsearch/storage/badger"
)

// faultyRepository wraps a real repository and fails selected operations.
type faultyRepository struct {
	storage.WorkoutRepository
	failLexical bool
	failVector  bool
	failScan    bool
}

var errBackendDown = errors.New("backend down")

func (f *faultyRepository) LexicalSearch(ctx context.Context, query string, limit int) ([]storage.LexicalMatch, error) {
	if f.failLexical {
		return nil, errBackendDown
	}
	return f.WorkoutRepository.LexicalSearch(ctx, query, limit)
}

func (f *faultyRepository) VectorSearch(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]storage.VectorMatch, error) {
	if f.failVector {
		return nil, errBackendDown
	}
	return f.WorkoutRepository.VectorSearch(ctx, vector, minSimilarity, limit)
}

func (f *faultyRepository) ScanWorkouts(ctx context.Context, fn func(*core.WorkoutRecord) (bool, error)) error {
	if f.failScan {
		return errBackendDown
	}
	return f.WorkoutRepository.ScanWorkouts(ctx, fn)
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d.UTC()
}

// seedWorkouts stores three records with orthogonal summary vectors so tests
// can steer similarity through the mock embedder.
func seedWorkouts(t *testing.T, repo storage.WorkoutRepository) []*core.WorkoutRecord {
	t.Helper()

	records := []*core.WorkoutRecord{
		{
			Date:          date("2004-02-15"),
			Name:          "Murph",
			Workout:       "For time: 1 mile run, 100 pull-ups, 200 push-ups, 300 squats, 1 mile run",
			Movements:     []string{"run", "pull-up", "push-up", "squat"},
			WorkoutType:   "hero",
			SummaryVector: []float32{1, 0, 0},
		},
		{
			Date:          date("2010-07-04"),
			Workout:       "5 rounds: 10 deadlifts, 15 box jumps",
			Movements:     []string{"deadlift", "box-jump"},
			Equipment:     []string{"barbell", "box"},
			SummaryVector: []float32{0, 1, 0},
		},
		{
			Date:          date("2018-11-20"),
			Workout:       "Run 10k at moderate pace",
			Movements:     []string{"run"},
			SummaryVector: []float32{0, 0, 1},
		},
	}

	added, err := repo.AddWorkouts(context.Background(), records...)
	require.NoError(t, err)
	return added
}

func newTestEngine(t *testing.T, repo storage.WorkoutRepository, queryVector []float32) *Engine {
	t.Helper()

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return queryVector, nil
	}

	engine, err := NewEngine(repo, embedder)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestNewEngine(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		engine, err := NewEngine(workoutRepo, embedder)
		require.NoError(t, err)
		assert.NotNil(t, engine)
		engine.Close()
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewEngine(nil, embedder)
		assert.Equal(t, ErrWorkoutRepositoryRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewEngine(workoutRepo, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid weights", func(t *testing.T) {
		_, err := NewEngine(workoutRepo, embedder, WithWeights(Weights{Lexical: -1, Vector: 0.5}))
		assert.Equal(t, ErrInvalidWeights, err)
	})
}

func TestSearch_EmptyQueryAndLimit(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	seedWorkouts(t, workoutRepo)
	engine := newTestEngine(t, workoutRepo, []float32{1, 0, 0})

	ctx := context.Background()

	results, err := engine.Search(ctx, Query{Text: "   ", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = engine.Search(ctx, Query{Text: "murph", Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_HybridRecallPreserving(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	added := seedWorkouts(t, workoutRepo)

	// Query vector matches record 3 (the 10k run) but the query text only
	// matches records 1 and 3 lexically.
	engine := newTestEngine(t, workoutRepo, []float32{0, 0, 1})

	results, err := engine.Search(context.Background(), Query{Text: "run", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Record 3 is in both sets: fused = 0.3*lex + 0.7*vec.
	assert.Equal(t, added[2].Id, results[0].Record.Id)
	assert.True(t, results[0].Lexical.Valid())
	assert.True(t, results[0].Vector.Valid())
	assert.True(t, results[0].Fused.Valid())

	// Record 1 matched only lexically but is still included.
	assert.Equal(t, added[0].Id, results[1].Record.Id)
	assert.True(t, results[1].Lexical.Valid())
	assert.False(t, results[1].Vector.Valid())
	assert.True(t, results[1].Fused.Valid())
	assert.InDelta(t, 0.3, results[1].Fused.Value(), 0.001)
}

func TestSearch_CustomWeights(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	added := seedWorkouts(t, workoutRepo)
	engine := newTestEngine(t, workoutRepo, []float32{0, 0, 1})

	// All-lexical weighting ignores the vector-only advantage.
	results, err := engine.Search(context.Background(), Query{
		Text:    "run",
		Limit:   10,
		Weights: &Weights{Lexical: 1, Vector: 0},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Both records carry uniform normalized lexical 1.0; the vector score
	// then breaks the tie in favor of record 3.
	assert.Equal(t, added[2].Id, results[0].Record.Id)
	assert.InDelta(t, 1.0, results[0].Fused.Value(), 0.001)
	assert.InDelta(t, 1.0, results[1].Fused.Value(), 0.001)
}

func TestSearch_LexicalAndVectorModes(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	added := seedWorkouts(t, workoutRepo)
	engine := newTestEngine(t, workoutRepo, []float32{0, 1, 0})

	ctx := context.Background()

	results, err := engine.Search(ctx, Query{Text: "deadlifts", Mode: ModeLexical, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, added[1].Id, results[0].Record.Id)
	assert.True(t, results[0].Lexical.Valid())
	assert.False(t, results[0].Fused.Valid())

	results, err = engine.Search(ctx, Query{Text: "anything", Mode: ModeVector, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, added[1].Id, results[0].Record.Id)
	assert.True(t, results[0].Vector.Valid())
	assert.False(t, results[0].Fused.Valid())
}

func TestSearch_DegradedLexicalFallback(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	seedWorkouts(t, workoutRepo)
	faulty := &faultyRepository{WorkoutRepository: workoutRepo, failLexical: true}
	engine := newTestEngine(t, faulty, []float32{0, 0, 1})

	results, err := engine.Search(context.Background(), Query{Text: "deadlifts box jumps", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	foundDegraded := false
	for _, result := range results {
		if result.Lexical.Valid() {
			assert.True(t, result.Degraded, "fallback results must carry provenance")
			foundDegraded = true
		}
	}
	assert.True(t, foundDegraded)
}

func TestSearch_EmbeddingFailureDegradesToLexical(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	added := seedWorkouts(t, workoutRepo)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	engine, err := NewEngine(workoutRepo, embedder)
	require.NoError(t, err)
	defer engine.Close()

	results, err := engine.Search(context.Background(), Query{Text: "murph", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, added[0].Id, results[0].Record.Id)
	assert.False(t, results[0].Vector.Valid())
}

func TestSearch_BothPathsDown(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	seedWorkouts(t, workoutRepo)
	faulty := &faultyRepository{
		WorkoutRepository: workoutRepo,
		failLexical:       true,
		failVector:        true,
		failScan:          true,
	}
	engine := newTestEngine(t, faulty, []float32{1, 0, 0})

	_, err = engine.Search(context.Background(), Query{Text: "murph", Limit: 10})
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

func TestSearch_PostFilter(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	added := seedWorkouts(t, workoutRepo)
	engine := newTestEngine(t, workoutRepo, []float32{0, 0, 1})

	ctx := context.Background()

	results, err := engine.Search(ctx, Query{
		Text:   "run",
		Limit:  10,
		Filter: &core.WorkoutFilter{WorkoutType: "hero"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, added[0].Id, results[0].Record.Id)
	assert.True(t, results[0].FilterMatch)

	// A filter matching nothing yields an empty list, not an error.
	results, err = engine.Search(ctx, Query{
		Text:   "run",
		Limit:  10,
		Filter: &core.WorkoutFilter{WorkoutType: "benchmark"},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSortResults_TotalOrder(t *testing.T) {
	rec := func(id core.ID, d string) *core.WorkoutRecord {
		return &core.WorkoutRecord{Id: id, Date: date(d)}
	}

	results := []*core.SearchResult{
		{Record: rec(4, "2020-01-01"), Fused: core.SomeScore(0.5), Vector: core.SomeScore(0.2)},
		{Record: rec(3, "2020-01-01"), Fused: core.SomeScore(0.5), Vector: core.SomeScore(0.6)},
		{Record: rec(2, "2021-01-01"), Fused: core.SomeScore(0.5), Vector: core.SomeScore(0.6)},
		{Record: rec(1, "2021-01-01"), Fused: core.SomeScore(0.9), Vector: core.SomeScore(0.1)},
		{Record: rec(6, "2021-01-01"), Fused: core.SomeScore(0.5), Vector: core.SomeScore(0.6)},
	}
	sortResults(results)

	order := make([]core.ID, len(results))
	for i, r := range results {
		order[i] = r.Record.Id
	}
	// fused desc, then vector desc, then date desc, then id asc
	assert.Equal(t, []core.ID{1, 2, 6, 3, 4}, order)
}

func TestSearch_RepeatedQueriesAreIdentical(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	seedWorkouts(t, workoutRepo)
	engine := newTestEngine(t, workoutRepo, []float32{0, 0, 1})

	first, err := engine.Search(context.Background(), Query{Text: "run", Limit: 10})
	require.NoError(t, err)
	second, err := engine.Search(context.Background(), Query{Text: "run", Limit: 10})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Record.Id, second[i].Record.Id)
		assert.Equal(t, first[i].RankScore(), second[i].RankScore())
	}
}

func TestNormalizeLexical(t *testing.T) {
	t.Run("min-max scaling", func(t *testing.T) {
		scores := normalizeLexical([]storage.LexicalMatch{
			{RecordId: 1, Score: 0.2},
			{RecordId: 2, Score: 0.6},
			{RecordId: 3, Score: 1.0},
		})
		assert.InDelta(t, 0.0, scores[1], 0.001)
		assert.InDelta(t, 0.5, scores[2], 0.001)
		assert.InDelta(t, 1.0, scores[3], 0.001)
	})

	t.Run("uniform scores become 1.0", func(t *testing.T) {
		scores := normalizeLexical([]storage.LexicalMatch{
			{RecordId: 1, Score: 0.4},
			{RecordId: 2, Score: 0.4},
		})
		assert.InDelta(t, 1.0, scores[1], 0.001)
		assert.InDelta(t, 1.0, scores[2], 0.001)
	})
}
