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

package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/errgroup"

	"github.com/repforge/wodsearch/ai"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
)

// Mode selects which retrieval paths a search exercises.
type Mode int

const (
	// ModeHybrid runs both paths and fuses their scores. Zero value.
	ModeHybrid Mode = iota
	ModeLexical
	ModeVector
)

// String returns the mode name as accepted in tool arguments.
func (m Mode) String() string {
	switch m {
	case ModeLexical:
		return "lexical"
	case ModeVector:
		return "vector"
	default:
		return "hybrid"
	}
}

// ParseMode maps a mode name onto a Mode. Unknown names fall back to hybrid.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lexical":
		return ModeLexical
	case "vector":
		return ModeVector
	default:
		return ModeHybrid
	}
}

// Weights are the fusion coefficients for hybrid mode.
type Weights struct {
	Lexical float32
	Vector  float32
}

// DefaultWeights favors vector similarity; lexical matching mostly serves
// exact workout names and movement terms.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.3, Vector: 0.7}
}

// Query is one search request.
type Query struct {
	Text    string
	Mode    Mode
	Limit   int
	Weights *Weights // nil means DefaultWeights
	Filter  *core.WorkoutFilter
}

const (
	// Over-fetch factor applied to backend limits so the post-filter
	// intersection doesn't starve the result set.
	candidateMultiplier = 3

	// Minimum cosine similarity for the vector path.
	defaultMinSimilarity = 0.25

	embeddingCacheCounters = 10_000
	embeddingCacheMaxCost  = 32 << 20
)

// Engine provides hybrid lexical and vector search over workout records.
type Engine struct {
	workouts      storage.WorkoutRepository
	embedder      ai.Embedder
	cache         *ristretto.Cache[string, []float32]
	weights       Weights
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithWeights sets the default fusion weights, used when a query carries none.
func WithWeights(w Weights) Option {
	return func(e *Engine) error {
		if w.Lexical < 0 || w.Vector < 0 || w.Lexical+w.Vector <= 0 {
			return ErrInvalidWeights
		}
		e.weights = w
		return nil
	}
}

// WithMinSimilarity sets the vector-path similarity floor.
func WithMinSimilarity(min float32) Option {
	return func(e *Engine) error {
		e.minSimilarity = min
		return nil
	}
}

// NewEngine creates a search engine over the given repository and embedder.
func NewEngine(workouts storage.WorkoutRepository, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if workouts == nil {
		return nil, ErrWorkoutRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	// Query embeddings are pure functions of the query text, so a shared
	// cache is safe under concurrent searches.
	cache, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters: embeddingCacheCounters,
		MaxCost:     embeddingCacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		workouts:      workouts,
		embedder:      embedder,
		cache:         cache,
		weights:       DefaultWeights(),
		minSimilarity: defaultMinSimilarity,
		logger:        slog.Default().With("component", "search-engine"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			cache.Close()
			return nil, err
		}
	}

	return e, nil
}

// Close releases the embedding cache.
func (e *Engine) Close() error {
	e.cache.Close()
	return nil
}

// Search runs the query and returns ranked results.
func (e *Engine) Search(ctx context.Context, query Query) ([]*core.SearchResult, error) {
	return e.SearchWithMonitor(ctx, query, nil)
}

// lexicalOutcome carries one path's results across the errgroup boundary.
// Failures degrade the search instead of aborting it, so goroutines record
// errors here rather than returning them.
type lexicalOutcome struct {
	matches  []storage.LexicalMatch
	degraded bool
	err      error
}

type vectorOutcome struct {
	matches []storage.VectorMatch
	err     error
}

// SearchWithMonitor runs the query with stage callbacks.
// An empty query or non-positive limit returns an empty result, not an error.
func (e *Engine) SearchWithMonitor(ctx context.Context, query Query, monitor Monitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	text := strings.TrimSpace(query.Text)
	if text == "" || query.Limit <= 0 {
		return []*core.SearchResult{}, nil
	}
	monitor.Start(text, query.Mode)

	weights := e.weights
	if query.Weights != nil {
		weights = *query.Weights
	}
	if weights.Lexical < 0 || weights.Vector < 0 || weights.Lexical+weights.Vector <= 0 {
		return nil, ErrInvalidWeights
	}

	candidateLimit := query.Limit * candidateMultiplier

	var lex lexicalOutcome
	var vec vectorOutcome

	g, gctx := errgroup.WithContext(ctx)
	if query.Mode != ModeVector {
		g.Go(func() error {
			lex = e.lexicalPath(gctx, text, candidateLimit)
			return nil
		})
	}
	if query.Mode != ModeLexical {
		g.Go(func() error {
			vec = e.vectorPath(gctx, text, candidateLimit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if query.Mode != ModeVector {
		monitor.AfterLexicalSearch(lex.matches, lex.degraded)
	}
	if query.Mode != ModeLexical {
		monitor.AfterVectorSearch(vec.matches)
	}

	switch query.Mode {
	case ModeLexical:
		if lex.err != nil {
			return nil, ErrRetrievalUnavailable
		}
	case ModeVector:
		if vec.err != nil {
			return nil, ErrRetrievalUnavailable
		}
	default:
		if lex.err != nil && vec.err != nil {
			e.logger.Error("both retrieval paths unavailable", "lexErr", lex.err, "vecErr", vec.err)
			return nil, ErrRetrievalUnavailable
		}
	}

	results, err := e.assembleResults(ctx, query.Mode, weights, lex, vec)
	if err != nil {
		return nil, err
	}
	monitor.AfterFusion(len(results))

	if !query.Filter.IsZero() {
		kept := results[:0]
		for _, result := range results {
			if query.Filter.Matches(result.Record) {
				result.FilterMatch = true
				kept = append(kept, result)
			}
		}
		results = kept
		monitor.AfterFilter(len(results))
	}

	sortResults(results)
	if len(results) > query.Limit {
		results = results[:query.Limit]
	}
	monitor.Finish(results)

	return results, nil
}

// lexicalPath queries the lexical index, falling back to a keyword scan over
// stored records when the index is unavailable.
func (e *Engine) lexicalPath(ctx context.Context, text string, limit int) lexicalOutcome {
	matches, err := e.workouts.LexicalSearch(ctx, text, limit)
	if err == nil {
		return lexicalOutcome{matches: matches}
	}
	e.logger.Warn("lexical backend unavailable, using keyword fallback", "err", err)

	matches, fallbackErr := e.keywordFallback(ctx, text, limit)
	if fallbackErr != nil {
		e.logger.Error("keyword fallback failed", "err", fallbackErr)
		return lexicalOutcome{err: err}
	}
	return lexicalOutcome{matches: matches, degraded: true}
}

// keywordFallback scores records by stop-word-filtered keyword overlap.
func (e *Engine) keywordFallback(ctx context.Context, text string, limit int) ([]storage.LexicalMatch, error) {
	queryWords := tokenizeAndFilter(text)
	if len(queryWords) == 0 {
		return nil, nil
	}

	var matches []storage.LexicalMatch
	err := e.workouts.ScanWorkouts(ctx, func(record *core.WorkoutRecord) (bool, error) {
		if overlap := keywordOverlap(record.SearchText(), queryWords); overlap > 0 {
			matches = append(matches, storage.LexicalMatch{RecordId: record.Id, Score: overlap})
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b storage.LexicalMatch) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.RecordId < b.RecordId {
			return -1
		}
		if a.RecordId > b.RecordId {
			return 1
		}
		return 0
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// vectorPath embeds the query and searches by similarity. The embedding is
// cached keyed by query text.
func (e *Engine) vectorPath(ctx context.Context, text string, limit int) vectorOutcome {
	vector, found := e.cache.Get(text)
	if !found {
		var err error
		vector, err = e.embedder.EmbedText(ctx, text)
		if err != nil {
			e.logger.Warn("query embedding failed", "err", err)
			return vectorOutcome{err: err}
		}
		e.cache.Set(text, vector, int64(len(vector)*4))
	}

	matches, err := e.workouts.VectorSearch(ctx, vector, e.minSimilarity, limit)
	if err != nil {
		e.logger.Warn("vector backend unavailable", "err", err)
		return vectorOutcome{err: err}
	}
	return vectorOutcome{matches: matches}
}

// assembleResults unions both candidate sets, normalizes lexical scores, and
// computes fused scores in hybrid mode.
func (e *Engine) assembleResults(ctx context.Context, mode Mode, weights Weights, lex lexicalOutcome, vec vectorOutcome) ([]*core.SearchResult, error) {
	normLex := normalizeLexical(lex.matches)

	vecScores := make(map[core.ID]float32, len(vec.matches))
	for _, match := range vec.matches {
		vecScores[match.RecordId] = match.Score
	}

	ids := make([]core.ID, 0, len(normLex)+len(vecScores))
	for id := range normLex {
		ids = append(ids, id)
	}
	for id := range vecScores {
		if _, dup := normLex[id]; !dup {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []*core.SearchResult{}, nil
	}

	records, err := e.workouts.GetWorkouts(ctx, ids...)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}

		result := &core.SearchResult{Record: record}
		lexScore, inLex := normLex[record.Id]
		vecScore, inVec := vecScores[record.Id]

		if inLex {
			result.Lexical = core.SomeScore(lexScore)
			result.Degraded = lex.degraded
		}
		if inVec {
			result.Vector = core.SomeScore(vecScore)
		}
		if mode == ModeHybrid {
			// Recall-preserving: a single-path hit keeps the missing
			// term at 0 rather than being excluded.
			fused := weights.Lexical*result.Lexical.Or(0) + weights.Vector*result.Vector.Or(0)
			result.Fused = core.SomeScore(fused)
		}

		results = append(results, result)
	}
	return results, nil
}

// normalizeLexical min-max scales lexical scores into [0,1] within the
// candidate set. When all scores are equal the set is treated as uniform 1.0.
func normalizeLexical(matches []storage.LexicalMatch) map[core.ID]float32 {
	scores := make(map[core.ID]float32, len(matches))
	if len(matches) == 0 {
		return scores
	}

	min, max := matches[0].Score, matches[0].Score
	for _, match := range matches[1:] {
		if match.Score < min {
			min = match.Score
		}
		if match.Score > max {
			max = match.Score
		}
	}

	for _, match := range matches {
		if max == min {
			scores[match.RecordId] = 1.0
			continue
		}
		scores[match.RecordId] = (match.Score - min) / (max - min)
	}
	return scores
}

// sortResults applies the total order: fused desc, vector desc, date desc,
// id asc. Absent scores rank as 0 so the order stays total in single-path
// modes.
func sortResults(results []*core.SearchResult) {
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if c := compareDesc(a.RankScore(), b.RankScore()); c != 0 {
			return c
		}
		if c := compareDesc(a.Vector.Or(0), b.Vector.Or(0)); c != 0 {
			return c
		}
		if !a.Record.Date.Equal(b.Record.Date) {
			if a.Record.Date.After(b.Record.Date) {
				return -1
			}
			return 1
		}
		if a.Record.Id < b.Record.Id {
			return -1
		}
		if a.Record.Id > b.Record.Id {
			return 1
		}
		return 0
	})
}

func compareDesc(a, b float32) int {
	if a > b {
		return -1
	}
	if a < b {
		return 1
	}
	return 0
}
