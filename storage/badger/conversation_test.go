package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/repforge/wodsearch/core"
	"github.com/repforge/wodsearch/storage"
)

func TestConversationRoundTrip(t *testing.T) {
	workoutRepo, convRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	conv := &core.Conversation{
		Token: "tok-1",
		Messages: []core.ConversationMessage{
			{Role: core.RoleUser, Content: "What was the workout yesterday?", Timestamp: now},
		},
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := convRepo.PutConversation(ctx, conv); err != nil {
		t.Fatalf("Failed to put conversation: %v", err)
	}

	got, err := convRepo.GetConversation(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Failed to get conversation: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != core.RoleUser {
		t.Fatalf("Unexpected conversation contents: %+v", got)
	}

	_, err = convRepo.GetConversation(ctx, "unknown")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestConversationStaleTokens(t *testing.T) {
	workoutRepo, convRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	conversations := []*core.Conversation{
		{Token: "old-1", CreatedAt: now.Add(-48 * time.Hour), LastActivity: now.Add(-48 * time.Hour)},
		{Token: "old-2", CreatedAt: now.Add(-30 * time.Hour), LastActivity: now.Add(-30 * time.Hour)},
		{Token: "fresh", CreatedAt: now, LastActivity: now},
	}
	for _, conv := range conversations {
		if err := convRepo.PutConversation(ctx, conv); err != nil {
			t.Fatalf("Failed to put conversation %s: %v", conv.Token, err)
		}
	}

	stale, err := convRepo.StaleTokens(ctx, now.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("Failed to list stale tokens: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("Expected 2 stale tokens, got %d", len(stale))
	}
	// Oldest first.
	if stale[0] != "old-1" || stale[1] != "old-2" {
		t.Fatalf("Unexpected stale order: %v", stale)
	}

	if err := convRepo.DeleteConversations(ctx, stale...); err != nil {
		t.Fatalf("Failed to delete stale conversations: %v", err)
	}
	_, err = convRepo.GetConversation(ctx, "old-1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting unknown tokens is not an error.
	if err := convRepo.DeleteConversations(ctx, "never-existed"); err != nil {
		t.Fatalf("Expected nil for unknown token delete, got %v", err)
	}
}

func TestConversationActivityIndexMoves(t *testing.T) {
	workoutRepo, convRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { convRepo.Close(); workoutRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	conv := &core.Conversation{Token: "tok", CreatedAt: now.Add(-48 * time.Hour), LastActivity: now.Add(-48 * time.Hour)}
	if err := convRepo.PutConversation(ctx, conv); err != nil {
		t.Fatalf("Failed to put conversation: %v", err)
	}

	// Touch the conversation; it must no longer appear stale.
	conv.LastActivity = now
	if err := convRepo.PutConversation(ctx, conv); err != nil {
		t.Fatalf("Failed to update conversation: %v", err)
	}

	stale, err := convRepo.StaleTokens(ctx, now.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("Failed to list stale tokens: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("Expected no stale tokens, got %v", stale)
	}
}
