package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repforge/wodsearch/ai/mock"
	"github.com/repforge/wodsearch/conversation"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/governor"
	"github.com/repforge/wodsearch/search"
	"github.com/repforge/wodsearch/storage/badger"
)

type fixture struct {
	orchestrator *Orchestrator
	model        *mock.MockModelCaller
	store        *conversation.MemoryStore
	cleanup      func()
}

// unavailableSearcher always reports both retrieval paths down.
type unavailableSearcher struct{}

func (unavailableSearcher) Search(ctx context.Context, query search.Query) ([]*core.SearchResult, error) {
	return nil, search.ErrRetrievalUnavailable
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	murphDate, _ := time.Parse("2006-01-02", "2004-02-15")
	_, err = workoutRepo.AddWorkouts(context.Background(), &core.WorkoutRecord{
		Date:          murphDate.UTC(),
		Name:          "Murph",
		Workout:       "For time: 1 mile run, 100 pull-ups, 200 push-ups, 300 squats, 1 mile run",
		Movements:     []string{"run", "pull-up", "push-up", "squat"},
		WorkoutType:   "hero",
		SummaryVector: []float32{1, 0, 0},
	})
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}
	engine, err := search.NewEngine(workoutRepo, embedder)
	require.NoError(t, err)

	store, err := conversation.NewMemoryStore(nil)
	require.NoError(t, err)

	model := mock.NewMockModelCaller()
	orchestrator, err := NewOrchestrator(engine, store, governor.New(), model, opts...)
	require.NoError(t, err)

	return &fixture{
		orchestrator: orchestrator,
		model:        model,
		store:        store,
		cleanup: func() {
			engine.Close()
			store.Close()
			convRepo.Close()
			workoutRepo.Close()
			backend.Close()
		},
	}
}

func TestHandleQuestion_ToolCallThenAnswer(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	f.model.
		EnqueueToolCall("call-1", "search", `{"query":"murph hero workout"}`).
		EnqueueText("Murph was first posted on 2004-02-15: a 1 mile run, 100 pull-ups, 200 push-ups, 300 squats, then another mile.")

	resp, err := f.orchestrator.HandleQuestion(context.Background(), Request{
		Question: "What is the Murph workout?",
		Verbose:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, StateAnswered, resp.State)
	assert.Contains(t, resp.Answer, "2004-02-15")
	assert.NotEmpty(t, resp.ConversationToken)

	require.Len(t, resp.Steps, 2)
	assert.Equal(t, "tool_call", resp.Steps[0].Action)
	assert.Equal(t, "search", resp.Steps[0].ToolName)
	assert.Contains(t, resp.Steps[0].Observation, "Murph")
	assert.Equal(t, "answer", resp.Steps[1].Action)

	// The second model request must carry the tool observation.
	requests := f.model.Requests()
	require.Len(t, requests, 2)
	last := requests[1].Messages[len(requests[1].Messages)-1]
	assert.Contains(t, last.Content, "pull-ups")

	// The exchange is persisted under the returned token.
	history, err := f.store.History(context.Background(), resp.ConversationToken)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
}

func TestHandleQuestion_FollowUpSeesHistory(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	f.model.EnqueueText("Murph is a hero workout from 2004.")
	first, err := f.orchestrator.HandleQuestion(context.Background(), Request{Question: "What is Murph?"})
	require.NoError(t, err)

	f.model.Reset()
	f.model.EnqueueText("It honors Lt. Michael Murphy.")
	second, err := f.orchestrator.HandleQuestion(context.Background(), Request{
		Question:          "Who does it honor?",
		ConversationToken: first.ConversationToken,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationToken, second.ConversationToken)

	// The follow-up transcript replays both prior turns.
	requests := f.model.Requests()
	require.Len(t, requests, 1)
	var sawFirstQuestion, sawFirstAnswer bool
	for _, msg := range requests[0].Messages {
		if msg.Content == "What is Murph?" {
			sawFirstQuestion = true
		}
		if msg.Content == "Murph is a hero workout from 2004." {
			sawFirstAnswer = true
		}
	}
	assert.True(t, sawFirstQuestion)
	assert.True(t, sawFirstAnswer)
}

func TestHandleQuestion_BudgetExhausted(t *testing.T) {
	f := newFixture(t, WithCallBudget(6))
	defer f.cleanup()

	// The model never stops searching; the script's last reply repeats.
	f.model.EnqueueToolCall("call-x", "search", `{"query":"pull-ups"}`)

	resp, err := f.orchestrator.HandleQuestion(context.Background(), Request{
		Question: "Find everything about pull-ups",
		Verbose:  true,
	})
	require.NoError(t, err)

	// The 7th admission is denied; only 6 model calls were issued, and the
	// user still gets a non-empty answer.
	assert.Equal(t, 6, f.model.CallCount())
	assert.Equal(t, StateBudgetExhausted, resp.State)
	assert.NotEmpty(t, resp.Answer)
	assert.Contains(t, resp.Answer, "Murph")
}

func TestHandleQuestion_EmptyQuestion(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	_, err := f.orchestrator.HandleQuestion(context.Background(), Request{Question: "   "})
	var agentErr *Error
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, KindInvalidInput, agentErr.Kind)
}

func TestHandleQuestion_RateLimited(t *testing.T) {
	workoutRepo, convRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	embedder := mock.NewMockEmbedder()
	engine, err := search.NewEngine(workoutRepo, embedder)
	require.NoError(t, err)
	defer engine.Close()

	store, err := conversation.NewMemoryStore(nil)
	require.NoError(t, err)
	defer store.Close()

	model := mock.NewMockModelCaller()
	model.EnqueueText("ok")

	gov := governor.New(governor.WithHourlyBudget(1))
	orchestrator, err := NewOrchestrator(engine, store, gov, model)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = orchestrator.HandleQuestion(ctx, Request{Question: "first", ClientKey: "1.2.3.4"})
	require.NoError(t, err)

	_, err = orchestrator.HandleQuestion(ctx, Request{Question: "second", ClientKey: "1.2.3.4"})
	var agentErr *Error
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, KindRateLimited, agentErr.Kind)
	assert.Greater(t, agentErr.RetryAfter, time.Duration(0))
}

func TestHandleQuestion_MalformedToolArgsRetried(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	f.model.
		EnqueueToolCall("call-1", "search", `{not json`).
		EnqueueText("Recovered after the corrective instruction.")

	resp, err := f.orchestrator.HandleQuestion(context.Background(), Request{
		Question: "What is Murph?",
		Verbose:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, StateAnswered, resp.State)
	assert.Equal(t, "Recovered after the corrective instruction.", resp.Answer)

	// The retry transcript carries the corrective instruction.
	requests := f.model.Requests()
	require.Len(t, requests, 2)
	var sawCorrective bool
	for _, msg := range requests[1].Messages {
		if msg.Content == correctiveInstruction {
			sawCorrective = true
		}
	}
	assert.True(t, sawCorrective)
	require.Len(t, resp.Steps, 2)
	assert.NotEmpty(t, resp.Steps[0].Err)
}

func TestHandleQuestion_DoubleFailureApologizes(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	f.model.
		EnqueueError(errors.New("connection reset")).
		EnqueueError(errors.New("connection reset"))

	resp, err := f.orchestrator.HandleQuestion(context.Background(), Request{Question: "What is Murph?"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, resp.State)
	assert.Equal(t, apologyAnswer, resp.Answer)
	assert.NotContains(t, resp.Answer, "connection reset")
}

func TestHandleQuestion_RetrievalUnavailable(t *testing.T) {
	store, err := conversation.NewMemoryStore(nil)
	require.NoError(t, err)
	defer store.Close()

	model := mock.NewMockModelCaller()
	model.EnqueueToolCall("call-1", "search", `{"query":"murph"}`)

	orchestrator, err := NewOrchestrator(unavailableSearcher{}, store, governor.New(), model)
	require.NoError(t, err)

	resp, err := orchestrator.HandleQuestion(context.Background(), Request{Question: "What is Murph?"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, resp.State)
	assert.Equal(t, retrievalUnavailableAnswer, resp.Answer)
}

func TestHandleQuestion_Cancellation(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	f.model.EnqueueText("never delivered")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orchestrator.HandleQuestion(ctx, Request{Question: "What is Murph?"})
	require.ErrorIs(t, err, context.Canceled)

	// Nothing was persisted for the cancelled request.
	assert.Zero(t, f.model.CallCount())
}

func TestHandleQuestion_VerboseOffOmitsSteps(t *testing.T) {
	f := newFixture(t)
	defer f.cleanup()

	f.model.EnqueueText("answer")
	resp, err := f.orchestrator.HandleQuestion(context.Background(), Request{Question: "What is Murph?"})
	require.NoError(t, err)
	assert.Empty(t, resp.Steps)
}

func TestParseSearchArgs(t *testing.T) {
	t.Run("full arguments", func(t *testing.T) {
		query, err := parseSearchArgs(`{
			"query": "heavy deadlifts",
			"mode": "lexical",
			"limit": 3,
			"filters": {"movements": ["deadlift"], "start_date": "2015-01-01", "end_date": "2015-12-31"}
		}`)
		require.NoError(t, err)
		assert.Equal(t, "heavy deadlifts", query.Text)
		assert.Equal(t, search.ModeLexical, query.Mode)
		assert.Equal(t, 3, query.Limit)
		require.NotNil(t, query.Filter)
		assert.Equal(t, []string{"deadlift"}, query.Filter.Movements)
		assert.Equal(t, 2015, query.Filter.StartDate.Year())
	})

	t.Run("defaults", func(t *testing.T) {
		query, err := parseSearchArgs(`{"query": "fran"}`)
		require.NoError(t, err)
		assert.Equal(t, search.ModeHybrid, query.Mode)
		assert.Equal(t, defaultSearchLimit, query.Limit)
		assert.Nil(t, query.Filter)
	})

	t.Run("limit capped", func(t *testing.T) {
		query, err := parseSearchArgs(`{"query": "fran", "limit": 1000}`)
		require.NoError(t, err)
		assert.Equal(t, maxSearchLimit, query.Limit)
	})

	t.Run("missing query", func(t *testing.T) {
		_, err := parseSearchArgs(`{"limit": 5}`)
		assert.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := parseSearchArgs(`{`)
		assert.Error(t, err)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := parseSearchArgs(`{"query": "x", "filters": {"start_date": "June 1st"}}`)
		assert.Error(t, err)
	})
}

func TestSynthesizeBestEffort(t *testing.T) {
	t.Run("no observations", func(t *testing.T) {
		assert.Equal(t, emptyBestEffortAnswer, synthesizeBestEffort(nil))
	})

	t.Run("with observations", func(t *testing.T) {
		obs := `{"results":[{"date":"2004-02-15","name":"Murph","workout":"1 mile run...","score":0.9}]}`
		answer := synthesizeBestEffort([]string{obs})
		assert.Contains(t, answer, "2004-02-15")
		assert.Contains(t, answer, "Murph")
	})
}
