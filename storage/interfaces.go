package storage

import (
	"context"
	"time"

	"github.com/repforge/wodsearch/core"
)

// LexicalMatch is a relevance-scored hit from the lexical index.
type LexicalMatch struct {
	RecordId core.ID
	Score    float32
}

// VectorMatch is a similarity-scored hit from the vector index.
// Score is cosine similarity normalized to [0,1].
type VectorMatch struct {
	RecordId core.ID
	Score    float32
}

// WorkoutRepository provides operations for storing and retrieving workout
// records. The search engine consumes it as an opaque lexical+vector index:
// no ranking or fusion logic lives behind this interface.
// Implementations must be thread-safe and support concurrent access.
type WorkoutRepository interface {
	// AddWorkouts adds one or more workout records to storage.
	// For records with ID=0, derives a content-based ID from the date.
	// Sets InsertedAt timestamp if not already set and maintains the
	// date and term indices.
	AddWorkouts(ctx context.Context, records ...*core.WorkoutRecord) ([]*core.WorkoutRecord, error)

	// GetWorkout retrieves a single workout record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetWorkout(ctx context.Context, id core.ID) (*core.WorkoutRecord, error)

	// GetWorkouts retrieves multiple workout records by their IDs.
	// Returns only the records that exist (no error for missing records).
	GetWorkouts(ctx context.Context, ids ...core.ID) ([]*core.WorkoutRecord, error)

	// GetWorkoutByDate retrieves the workout published on the given calendar
	// date (natural key). Returns ErrNotFound if no workout exists for it.
	GetWorkoutByDate(ctx context.Context, date time.Time) (*core.WorkoutRecord, error)

	// LexicalSearch runs ranked term matching over the indexed text fields.
	// Quoted phrases and uppercase boolean operators in the query are honored
	// by the index. Returns up to limit matches ordered by score descending;
	// an empty result is not an error.
	LexicalSearch(ctx context.Context, query string, limit int) ([]LexicalMatch, error)

	// VectorSearch finds workout records whose summary embedding is similar
	// to the given vector. Returns matches with similarity >= minSimilarity,
	// up to limit results, ordered by similarity descending.
	VectorSearch(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]VectorMatch, error)

	// ScanWorkouts visits every stored record until fn returns false or an
	// error. Used by the degraded keyword fallback and by reindexing jobs.
	ScanWorkouts(ctx context.Context, fn func(*core.WorkoutRecord) (bool, error)) error

	// Close releases repository resources.
	Close() error
}

// ConversationRepository is the durable backing for a conversation store.
// In-memory and BadgerDB implementations are interchangeable behind this
// interface.
type ConversationRepository interface {
	// PutConversation saves or replaces a conversation by its token.
	PutConversation(ctx context.Context, conv *core.Conversation) error

	// GetConversation retrieves a conversation by token.
	// Returns ErrNotFound if the token is unknown.
	GetConversation(ctx context.Context, token string) (*core.Conversation, error)

	// DeleteConversations removes conversations by token. Unknown tokens are
	// ignored.
	DeleteConversations(ctx context.Context, tokens ...string) error

	// StaleTokens returns up to limit tokens whose last activity is older
	// than the cutoff, oldest first.
	StaleTokens(ctx context.Context, cutoff time.Time, limit int) ([]string, error)

	// Close releases repository resources.
	Close() error
}

// CheckpointRepository persists ingestion progress markers.
type CheckpointRepository interface {
	// SaveCheckpoint stores or replaces the checkpoint for its stage name.
	SaveCheckpoint(ctx context.Context, cp *core.Checkpoint) error

	// GetCheckpoint retrieves the checkpoint for a stage name.
	// Returns ErrNotFound if no checkpoint has been saved.
	GetCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)
}
