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

package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
)

// WorkoutRepository implements storage.WorkoutRepository for BadgerDB.
type WorkoutRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.WorkoutRepository = (*WorkoutRepository)(nil)

// NewWorkoutRepository creates a new WorkoutRepository.
func NewWorkoutRepository(backend *Backend) (*WorkoutRepository, error) {
	idSeq, err := backend.GetSequence(workoutIDSeq)
	if err != nil {
		return nil, err
	}

	return &WorkoutRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *WorkoutRepository) Close() error {
	return r.idSeq.Release()
}

// AddWorkouts adds one or more workout records to storage and maintains the
// date and term indices. Records arriving with a nonzero ID keep it, which
// lets ingestion re-run idempotently with content-derived IDs.
func (r *WorkoutRepository) AddWorkouts(ctx context.Context, records ...*core.WorkoutRecord) ([]*core.WorkoutRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}

			if record.Id == 0 {
				nextID, err := r.idSeq.Next()
				if err != nil {
					return err
				}
				// BadgerDB sequences can return 0 on first call, so we skip it
				if nextID == 0 {
					nextID, err = r.idSeq.Next()
					if err != nil {
						return err
					}
				}
				record.Id = core.ID(nextID)
			}

			if record.InsertedAt.IsZero() {
				record.InsertedAt = now
			}
			record.UpdatedAt = now

			// Replacing an existing record must first drop its stale term
			// postings; the date index entry is overwritten in place.
			old, err := r.readWorkoutRecord(tx, makeWorkoutKey(record.Id))
			if err != nil {
				return err
			}
			if old != nil {
				if err := r.deleteTermIndex(tx, old); err != nil {
					return err
				}
			}

			// Store primary record
			key := makeWorkoutKey(record.Id)
			value := storage.MarshalWorkoutRecord(record)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index
			dateKey := makeWorkoutDateKey(record.Date)
			if err := tx.Set(dateKey, storage.MarshalID(record.Id)); err != nil {
				return err
			}

			// Update term postings index
			if err := r.updateTermIndex(tx, record); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// GetWorkout retrieves a single workout record by ID.
func (r *WorkoutRepository) GetWorkout(ctx context.Context, id core.ID) (*core.WorkoutRecord, error) {
	var result *core.WorkoutRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readWorkoutRecord(tx, makeWorkoutKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetWorkouts retrieves multiple workout records by their IDs.
// Missing IDs are skipped.
func (r *WorkoutRepository) GetWorkouts(ctx context.Context, ids ...core.ID) ([]*core.WorkoutRecord, error) {
	var result []*core.WorkoutRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			record, err := r.readWorkoutRecord(tx, makeWorkoutKey(id))
			if err != nil {
				return err
			}
			if record != nil {
				result = append(result, record)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetWorkoutByDate retrieves the workout published on the given calendar date.
func (r *WorkoutRepository) GetWorkoutByDate(ctx context.Context, date time.Time) (*core.WorkoutRecord, error) {
	var result *core.WorkoutRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeWorkoutDateKey(date))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var recordID core.ID
		if err := item.Value(func(val []byte) error {
			var err error
			recordID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		result, err = r.readWorkoutRecord(tx, makeWorkoutKey(recordID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// LexicalSearch runs ranked term matching over the postings index.
// Scoring is query coverage: the fraction of query terms a record contains.
// Quoted phrases and NOT terms are verified against the full record text,
// which requires loading candidates before ranking.
func (r *WorkoutRepository) LexicalSearch(ctx context.Context, query string, limit int) ([]storage.LexicalMatch, error) {
	parsed := parseLexicalQuery(query)
	if parsed.empty() || limit <= 0 {
		return nil, nil
	}

	// Phrases contribute their words to candidate generation so a
	// phrase-only query still finds records through the index.
	candidateTerms := slices.Clone(parsed.terms)
	for _, phrase := range parsed.phrases {
		candidateTerms = append(candidateTerms, indexTerms(phrase)...)
	}

	var matches []storage.LexicalMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		hits := make(map[core.ID]int)
		for _, term := range candidateTerms {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.collectTermPostings(tx, term, hits); err != nil {
				return err
			}
		}

		total := len(candidateTerms)
		for id, count := range hits {
			if err := ctx.Err(); err != nil {
				return err
			}

			if len(parsed.phrases) > 0 || len(parsed.excluded) > 0 {
				record, err := r.readWorkoutRecord(tx, makeWorkoutKey(id))
				if err != nil {
					return err
				}
				if record == nil || !verifyRecord(record, parsed) {
					continue
				}
			}

			matches = append(matches, storage.LexicalMatch{
				RecordId: id,
				Score:    float32(count) / float32(total),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sortLexicalMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// VectorSearch delegates to the backend.
func (r *WorkoutRepository) VectorSearch(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]storage.VectorMatch, error) {
	return r.backend.VectorSearch(ctx, vector, minSimilarity, limit)
}

// ScanWorkouts visits every stored record until fn returns false or an error.
func (r *WorkoutRepository) ScanWorkouts(ctx context.Context, fn func(*core.WorkoutRecord) (bool, error)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(workoutRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.WorkoutRecord
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalWorkoutRecord(val)
				return err
			}); err != nil {
				return err
			}

			cont, err := fn(record)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	}, false)
}

// readWorkoutRecord reads a workout record by key within a transaction.
// Returns nil (not an error) when the key doesn't exist.
func (r *WorkoutRepository) readWorkoutRecord(tx *badger.Txn, key []byte) (*core.WorkoutRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.WorkoutRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalWorkoutRecord(val)
		return err
	})
	return record, err
}

// updateTermIndex writes one posting per indexed term of the record.
func (r *WorkoutRepository) updateTermIndex(tx *badger.Txn, record *core.WorkoutRecord) error {
	for _, term := range indexTerms(record.SearchText()) {
		key := makeWorkoutTermKey(term, record.Id)
		if err := tx.Set(key, storage.MarshalID(record.Id)); err != nil {
			return err
		}
	}
	return nil
}

// deleteTermIndex removes the record's postings.
func (r *WorkoutRepository) deleteTermIndex(tx *badger.Txn, record *core.WorkoutRecord) error {
	for _, term := range indexTerms(record.SearchText()) {
		key := makeWorkoutTermKey(term, record.Id)
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// collectTermPostings increments the hit count for every record posted
// under the term.
func (r *WorkoutRepository) collectTermPostings(tx *badger.Txn, term string, hits map[core.ID]int) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialWorkoutTermKey(term)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := iter.Item().Value(func(val []byte) error {
			id, err := storage.UnmarshalID(val)
			if err != nil {
				return err
			}
			hits[id]++
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// verifyRecord checks quoted phrases and NOT terms against the record text.
func verifyRecord(record *core.WorkoutRecord, parsed *lexicalQuery) bool {
	text := strings.ToLower(record.SearchText())
	for _, phrase := range parsed.phrases {
		if !strings.Contains(text, phrase) {
			return false
		}
	}
	for _, term := range parsed.excluded {
		if containsTerm(text, term) {
			return false
		}
	}
	return true
}

// sortLexicalMatches orders matches by score descending, then record ID
// ascending so equal scores rank deterministically.
func sortLexicalMatches(matches []storage.LexicalMatch) {
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
}

// sortVectorMatches orders matches by similarity descending, then record ID
// ascending.
func sortVectorMatches(matches []storage.VectorMatch) {
	slices.SortFunc(matches, func(a, b storage.VectorMatch) int {
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
}
