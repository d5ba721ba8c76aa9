package conversation

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
)

const evictBatchSize = 256

// BadgerStore is a durable Store over a storage.ConversationRepository.
// Conversations survive process restarts; the same trimming and expiry
// policy as MemoryStore applies.
type BadgerStore struct {
	cfg    *Config
	repo   storage.ConversationRepository
	logger *slog.Logger
	now    func() time.Time

	// Striped locks serialize read-modify-write cycles per token.
	stripes [64]sync.Mutex
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore creates a durable conversation store.
// A nil config uses the defaults.
func NewBadgerStore(repo storage.ConversationRepository, cfg *Config) (*BadgerStore, error) {
	if repo == nil {
		return nil, errors.New("conversation repository required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &BadgerStore{
		cfg:    cfg,
		repo:   repo,
		logger: slog.Default().With("component", "conversation-badger"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *BadgerStore) stripe(token string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(token))
	return &s.stripes[h.Sum32()%uint32(len(s.stripes))]
}

// GetOrCreate resolves a conversation token.
func (s *BadgerStore) GetOrCreate(ctx context.Context, token string) (*core.Conversation, string, error) {
	if !validToken(token) {
		token = uuid.NewString()
	}

	mu := s.stripe(token)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	conv, err := s.repo.GetConversation(ctx, token)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		conv = &core.Conversation{Token: token, CreatedAt: now}
	case err != nil:
		return nil, "", err
	case now.Sub(conv.LastActivity) > s.cfg.TTL:
		// Expired: start over under the same token.
		conv = &core.Conversation{Token: token, CreatedAt: now}
	}

	conv.LastActivity = now
	if err := s.repo.PutConversation(ctx, conv); err != nil {
		return nil, "", err
	}
	return conv.Clone(), token, nil
}

// Append adds a message to the conversation, creating it if needed.
func (s *BadgerStore) Append(ctx context.Context, token string, msg core.ConversationMessage) error {
	if err := core.ValidateMessage(&msg); err != nil {
		return err
	}
	if !validToken(token) {
		token = uuid.NewString()
	}

	mu := s.stripe(token)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	conv, err := s.repo.GetConversation(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		conv = &core.Conversation{Token: token, CreatedAt: now}
	} else if err != nil {
		return err
	}

	conv.Messages = append(conv.Messages, msg)
	conv.Messages = trimHistory(conv.Messages, s.cfg.MaxMessages, s.cfg.TokenBudget)
	conv.LastActivity = now
	return s.repo.PutConversation(ctx, conv)
}

// History returns a copy of the conversation's messages.
func (s *BadgerStore) History(ctx context.Context, token string) ([]core.ConversationMessage, error) {
	conv, err := s.repo.GetConversation(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msgs := make([]core.ConversationMessage, len(conv.Messages))
	copy(msgs, conv.Messages)
	return msgs, nil
}

// EvictExpired removes conversations idle past the TTL, in batches until
// none remain.
func (s *BadgerStore) EvictExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.TTL)
	evicted := 0

	for {
		tokens, err := s.repo.StaleTokens(ctx, cutoff, evictBatchSize)
		if err != nil {
			return evicted, err
		}
		if len(tokens) == 0 {
			return evicted, nil
		}
		if err := s.repo.DeleteConversations(ctx, tokens...); err != nil {
			return evicted, err
		}
		evicted += len(tokens)
	}
}

// Close releases the underlying repository.
func (s *BadgerStore) Close() error {
	return s.repo.Close()
}
