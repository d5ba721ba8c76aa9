package conversation

import (
	"context"

	"github.com/repforge/wodsearch/core"
)

// Store holds per-token dialogue state. Implementations must be safe for
// concurrent use: appends to one conversation never block reads of another.
type Store interface {
	// GetOrCreate resolves a conversation token. An unknown non-empty token
	// binds a new conversation to that token; an empty or malformed token
	// gets a freshly generated one. Returns a copy of the conversation and
	// the bound token.
	GetOrCreate(ctx context.Context, token string) (*core.Conversation, string, error)

	// Append adds a message to the conversation, creating it if the token
	// is unknown. The stored history is trimmed to the message cap and
	// token budget, oldest first; the newest message is never trimmed.
	Append(ctx context.Context, token string, msg core.ConversationMessage) error

	// History returns a copy of the conversation's messages, newest last.
	// An unknown token yields an empty history.
	History(ctx context.Context, token string) ([]core.ConversationMessage, error)

	// EvictExpired removes conversations idle past the TTL and reports how
	// many were removed.
	EvictExpired(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}
