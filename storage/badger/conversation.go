package badger

import (
	"context"
	"slices"

	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
)

// ConversationRepository implements storage.ConversationRepository for
// BadgerDB. The activity index keys conversations by last-activity time so
// staleness sweeps read oldest entries first without scanning everything.
type ConversationRepository struct {
	backend *Backend
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) *ConversationRepository {
	return &ConversationRepository{
		backend: backend,
	}
}

// Close is a no-op; the repository holds no resources beyond the backend.
func (r *ConversationRepository) Close() error {
	return nil
}

// PutConversation saves or replaces a conversation by its token.
func (r *ConversationRepository) PutConversation(ctx context.Context, conv *core.Conversation) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(conv.Token)

		// Replacing requires moving the activity index entry.
		old, err := r.readConversation(tx, key)
		if err != nil {
			return err
		}
		if old != nil && !old.LastActivity.Equal(conv.LastActivity) {
			if err := tx.Delete(makeConversationActivityKey(old.LastActivity, old.Token)); err != nil {
				return err
			}
		}

		if err := tx.Set(key, storage.MarshalConversation(conv)); err != nil {
			return err
		}
		actKey := makeConversationActivityKey(conv.LastActivity, conv.Token)
		if err := tx.Set(actKey, []byte(conv.Token)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetConversation retrieves a conversation by token.
func (r *ConversationRepository) GetConversation(ctx context.Context, token string) (*core.Conversation, error) {
	var result *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readConversation(tx, makeConversationKey(token))
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

// DeleteConversations removes conversations by token. Unknown tokens are
// ignored.
func (r *ConversationRepository) DeleteConversations(ctx context.Context, tokens ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, token := range tokens {
			key := makeConversationKey(token)
			conv, err := r.readConversation(tx, key)
			if err != nil {
				return err
			}
			if conv == nil {
				continue
			}
			if err := tx.Delete(makeConversationActivityKey(conv.LastActivity, conv.Token)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// StaleTokens returns up to limit tokens whose last activity is older than
// the cutoff, oldest first.
func (r *ConversationRepository) StaleTokens(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	var tokens []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(conversationActPfx + ":")
		cutoffKey := makeConversationActivityKey(cutoff, "")

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid() && len(tokens) < limit; iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if slices.Compare(iter.Item().Key(), cutoffKey) >= 0 {
				break
			}
			if err := iter.Item().Value(func(val []byte) error {
				tokens = append(tokens, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}, false)
	return tokens, err
}

// readConversation reads a conversation by key within a transaction.
// Returns nil (not an error) when the key doesn't exist.
func (r *ConversationRepository) readConversation(tx *badger.Txn, key []byte) (*core.Conversation, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var conv *core.Conversation
	err = item.Value(func(val []byte) error {
		var err error
		conv, err = storage.UnmarshalConversation(val)
		return err
	})
	return conv, err
}
