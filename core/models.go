package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Role identifies the author of a conversation message.
type Role int

const (
	// RoleUser represents the human asking questions.
	RoleUser Role = iota + 1
	// RoleAssistant represents the answering agent.
	RoleAssistant
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// WorkoutRecord is a single published workout. Records are written once by
// ingestion and read-only everywhere else.
type WorkoutRecord struct {
	Id            ID
	Date          time.Time // Calendar date the workout was published (day precision, UTC)
	Name          string    // Named workouts ("Murph", "Fran"), empty for unnamed ones
	Workout       string    // Free-text body of the workout
	Scaling       string    // Optional scaling guidance
	Summary       string    // Optional one-sentence summary
	Movements     []string  // Movement tags ("pull-up", "deadlift")
	Equipment     []string  // Equipment tags ("barbell", "rings")
	WorkoutType   string    // Workout-type tag ("hero", "benchmark", ...), empty when untagged
	SummaryVector []float32 // Embedding over the summary, populated by ingestion
	InsertedAt    time.Time
	UpdatedAt     time.Time
}

// SearchText returns the concatenated text fields lexical relevance is
// computed over. Also used by the degraded keyword fallback.
func (w *WorkoutRecord) SearchText() string {
	s := w.Workout
	if w.Name != "" {
		s = w.Name + "\n" + s
	}
	if w.Summary != "" {
		s = s + "\n" + w.Summary
	}
	if w.Scaling != "" {
		s = s + "\n" + w.Scaling
	}
	return s
}

// Title returns a human-readable label for the record.
func (w *WorkoutRecord) Title() string {
	if w.Name != "" {
		return w.Name
	}
	return "Workout " + w.Date.Format("2006-01-02")
}

// Score is a relevance score that is either present or absent.
// The zero value is absent. Using a tagged variant instead of a sentinel
// keeps fusion arithmetic total.
type Score struct {
	value float32
	valid bool
}

// SomeScore returns a present Score carrying v.
func SomeScore(v float32) Score {
	return Score{value: v, valid: true}
}

// Valid reports whether the score is present.
func (s Score) Valid() bool { return s.valid }

// Value returns the score value, or 0 when absent.
func (s Score) Value() float32 { return s.value }

// Or returns the score value when present, otherwise fallback.
func (s Score) Or(fallback float32) float32 {
	if s.valid {
		return s.value
	}
	return fallback
}

// SearchResult is one ranked item of a search response.
// Invariant: at least one of Lexical or Vector is present; Fused is present
// only when hybrid fusion was computed.
type SearchResult struct {
	Record      *WorkoutRecord
	Lexical     Score // Lexical relevance, normalized within the candidate set
	Vector      Score // Vector similarity in [0,1]
	Fused       Score // Weighted combination, hybrid mode only
	FilterMatch bool  // Whether the record also matched the structured filter
	Degraded    bool  // Lexical score came from the keyword fallback path
}

// RankScore returns the score the result was ordered by.
func (r *SearchResult) RankScore() float32 {
	if r.Fused.Valid() {
		return r.Fused.Value()
	}
	if r.Vector.Valid() {
		return r.Vector.Value()
	}
	return r.Lexical.Value()
}

// WorkoutFilter is a structured metadata predicate applied to search results.
// Zero-valued fields match everything.
type WorkoutFilter struct {
	Movements   []string
	Equipment   []string
	WorkoutType string
	Name        string
	StartDate   time.Time
	EndDate     time.Time
}

// IsZero reports whether the filter constrains nothing.
func (f *WorkoutFilter) IsZero() bool {
	return f == nil || (len(f.Movements) == 0 && len(f.Equipment) == 0 &&
		f.WorkoutType == "" && f.Name == "" && f.StartDate.IsZero() && f.EndDate.IsZero())
}

// Matches reports whether the record satisfies every constrained field.
// Movement and equipment lists match when any listed tag is present.
func (f *WorkoutFilter) Matches(w *WorkoutRecord) bool {
	if f.IsZero() {
		return true
	}
	if len(f.Movements) > 0 && !anyTag(w.Movements, f.Movements) {
		return false
	}
	if len(f.Equipment) > 0 && !anyTag(w.Equipment, f.Equipment) {
		return false
	}
	if f.WorkoutType != "" && w.WorkoutType != f.WorkoutType {
		return false
	}
	if f.Name != "" && w.Name != f.Name {
		return false
	}
	if !f.StartDate.IsZero() && w.Date.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && w.Date.After(f.EndDate) {
		return false
	}
	return true
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// ConversationMessage is a single turn in a conversation.
// Immutable once appended.
type ConversationMessage struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Conversation is the per-token dialogue state held by the conversation
// store. Messages are append-only from the caller's perspective; trimming
// removes from the head.
type Conversation struct {
	Token        string
	Messages     []ConversationMessage
	CreatedAt    time.Time
	LastActivity time.Time
}

// Clone returns a deep copy so callers can read history without holding
// store locks.
func (c *Conversation) Clone() *Conversation {
	msgs := make([]ConversationMessage, len(c.Messages))
	copy(msgs, c.Messages)
	return &Conversation{
		Token:        c.Token,
		Messages:     msgs,
		CreatedAt:    c.CreatedAt,
		LastActivity: c.LastActivity,
	}
}

// Checkpoint records ingestion progress so interrupted runs can resume.
type Checkpoint struct {
	Name      string // Pipeline stage name
	LastID    ID
	UpdatedAt time.Time
}
