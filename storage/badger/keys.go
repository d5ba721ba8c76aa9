package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/repforge/wodsearch/core"
)

// Key prefixes for different data types
const (
	workoutRecordPrefix = "wodrec"
	workoutDatePrefix   = "wodrecd"
	workoutTermPrefix   = "wodrect"
	workoutIDSeq        = "wodrecseq"
	conversationPrefix  = "convrec"
	conversationActPfx  = "convact"
	checkpointPrefix    = "chkpt"
)

// makeWorkoutKey generates a key for a workout record by ID.
func makeWorkoutKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", workoutRecordPrefix, id))
}

// makeWorkoutDateKey generates a key for the date natural-key index.
// Format: prefix:YYYY-MM-DD — one workout per calendar date in practice,
// later inserts for the same date overwrite the index entry.
func makeWorkoutDateKey(date time.Time) []byte {
	return []byte(workoutDatePrefix + ":" + date.UTC().Format("2006-01-02"))
}

// makeWorkoutTermKey generates a composite key for the term postings index.
// Format: prefix:term:id — the ID is written BigEndian so lexicographic
// iteration yields ascending record IDs per term.
func makeWorkoutTermKey(term string, id core.ID) []byte {
	prefix := workoutTermPrefix + ":" + term + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialWorkoutTermKey generates a prefix key for postings iteration.
func makePartialWorkoutTermKey(term string) []byte {
	return []byte(workoutTermPrefix + ":" + term + ":")
}

// makeConversationKey generates a key for a conversation by token.
func makeConversationKey(token string) []byte {
	return []byte(conversationPrefix + ":" + token)
}

// makeConversationActivityKey generates a composite key for the activity
// index. BigEndian timestamp keeps the index ordered oldest first.
func makeConversationActivityKey(lastActivity time.Time, token string) []byte {
	prefix := conversationActPfx + ":"
	buf := make([]byte, len(prefix)+8+len(token))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(lastActivity.UnixMicro()))
	copy(buf[offset+8:], token)
	return buf
}

// makeCheckpointKey generates a key for an ingestion checkpoint.
func makeCheckpointKey(name string) []byte {
	return []byte(checkpointPrefix + ":" + name)
}
