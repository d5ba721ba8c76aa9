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

package conversation

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/repforge/wodsearch/core"
)

// entry is one live conversation. The entry mutex serializes message
// mutations and clones; elem and lastActive belong to the store's LRU index
// and are guarded by the store mutex instead.
type entry struct {
	mu         sync.Mutex
	conv       *core.Conversation
	elem       *list.Element
	lastActive time.Time
}

// MemoryStore is the in-process Store implementation: a bounded LRU of
// conversations with idle expiry. The store mutex covers only the index and
// LRU list; it is never held across an append or a clone, so operations on
// distinct conversations do not serialize.
type MemoryStore struct {
	cfg    *Config
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	index  map[string]*entry
	lru    *list.List // front = most recently active, values are tokens
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// StoreOption configures a MemoryStore.
type StoreOption func(*MemoryStore)

// WithStoreLogger sets a custom logger.
// Default is slog.Default().
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *MemoryStore) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an in-memory conversation store.
// A nil config uses the defaults.
func NewMemoryStore(cfg *Config, opts ...StoreOption) (*MemoryStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &MemoryStore{
		cfg:    cfg,
		logger: slog.Default().With("component", "conversation-store"),
		now:    func() time.Time { return time.Now().UTC() },
		index:  make(map[string]*entry),
		lru:    list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetOrCreate resolves a conversation token.
func (s *MemoryStore) GetOrCreate(ctx context.Context, token string) (*core.Conversation, string, error) {
	if !validToken(token) {
		token = uuid.NewString()
	}
	now := s.now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, "", ErrStoreClosed
	}
	e := s.touchOrCreateLocked(token, now)
	s.mu.Unlock()

	e.mu.Lock()
	e.conv.LastActivity = now
	clone := e.conv.Clone()
	e.mu.Unlock()

	return clone, token, nil
}

// Append adds a message to the conversation, creating it if needed.
func (s *MemoryStore) Append(ctx context.Context, token string, msg core.ConversationMessage) error {
	if err := core.ValidateMessage(&msg); err != nil {
		return err
	}
	if !validToken(token) {
		token = uuid.NewString()
	}
	now := s.now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	e := s.touchOrCreateLocked(token, now)
	s.mu.Unlock()

	e.mu.Lock()
	e.conv.Messages = append(e.conv.Messages, msg)
	e.conv.Messages = trimHistory(e.conv.Messages, s.cfg.MaxMessages, s.cfg.TokenBudget)
	e.conv.LastActivity = now
	e.mu.Unlock()

	return nil
}

// History returns a copy of the conversation's messages.
func (s *MemoryStore) History(ctx context.Context, token string) ([]core.ConversationMessage, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	e := s.index[token]
	s.mu.RUnlock()

	if e == nil {
		return nil, nil
	}

	e.mu.Lock()
	msgs := make([]core.ConversationMessage, len(e.conv.Messages))
	copy(msgs, e.conv.Messages)
	e.mu.Unlock()

	return msgs, nil
}

// EvictExpired removes conversations idle past the TTL.
func (s *MemoryStore) EvictExpired(ctx context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	evicted := 0
	// Walk from the least recently active end; stop at the first live entry.
	for elem := s.lru.Back(); elem != nil; {
		token := elem.Value.(string)
		e := s.index[token]
		if now.Sub(e.lastActive) <= s.cfg.TTL {
			break
		}
		prev := elem.Prev()
		s.removeLocked(token, e)
		evicted++
		elem = prev
	}

	if evicted > 0 {
		s.logger.Debug("evicted expired conversations", "count", evicted)
	}
	return evicted, nil
}

// Len returns the number of live conversations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Close drops all conversations and rejects further use.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.index = make(map[string]*entry)
	s.lru.Init()
	return nil
}

// touchOrCreateLocked returns the live entry for a token, discarding an
// expired one and creating a fresh entry when needed. Caller holds s.mu.
func (s *MemoryStore) touchOrCreateLocked(token string, now time.Time) *entry {
	if e := s.index[token]; e != nil {
		if now.Sub(e.lastActive) <= s.cfg.TTL {
			e.lastActive = now
			s.lru.MoveToFront(e.elem)
			return e
		}
		s.removeLocked(token, e)
	}

	// Capacity eviction: drop the least recently active conversation.
	for len(s.index) >= s.cfg.Capacity {
		back := s.lru.Back()
		if back == nil {
			break
		}
		victim := back.Value.(string)
		s.removeLocked(victim, s.index[victim])
	}

	e := &entry{
		conv: &core.Conversation{
			Token:        token,
			CreatedAt:    now,
			LastActivity: now,
		},
		lastActive: now,
	}
	e.elem = s.lru.PushFront(token)
	s.index[token] = e
	return e
}

// removeLocked unlinks an entry. Caller holds s.mu.
func (s *MemoryStore) removeLocked(token string, e *entry) {
	s.lru.Remove(e.elem)
	delete(s.index, token)
}
