package data

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivis-ai/rag-gateway/internal/domain/model"
	"github.com/ivis-ai/rag-gateway/internal/testutil"
)

func TestChatHistoryRepo_Sessions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewChatHistoryRepo(db)
	ctx := context.Background()

	t.Run("ensure creates session", func(t *testing.T) {
		s, err := repo.EnsureSession(ctx, "sess-1", "What is RAG?")
		require.NoError(t, err)
		assert.Equal(t, "sess-1", s.ID)
		assert.Equal(t, "What is RAG?", s.Title)
		assert.False(t, s.CreatedAt.IsZero())
	})

	t.Run("ensure is idempotent and keeps first title", func(t *testing.T) {
		first, err := repo.EnsureSession(ctx, "sess-2", "first question")
		require.NoError(t, err)

		again, err := repo.EnsureSession(ctx, "sess-2", "a different title")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, "first question", again.Title)
		assert.Equal(t, first.CreatedAt, again.CreatedAt)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		_, err := repo.EnsureSession(ctx, "", "title")
		require.Error(t, err)
	})
}

func TestChatHistoryRepo_Messages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewChatHistoryRepo(db)
	ctx := context.Background()

	_, err := repo.EnsureSession(ctx, "sess-1", "t")
	require.NoError(t, err)

	t.Run("append assigns id and timestamp", func(t *testing.T) {
		msg := &model.ChatMessage{SessionID: "sess-1", Role: model.RoleUser, Content: "hello"}
		require.NoError(t, repo.Append(ctx, msg))
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
	})

	t.Run("append to missing session", func(t *testing.T) {
		msg := &model.ChatMessage{SessionID: "no-such-session", Role: model.RoleUser, Content: "hi"}
		err := repo.Append(ctx, msg)
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		msg := &model.ChatMessage{SessionID: "sess-1", Role: "system", Content: "x"}
		require.Error(t, repo.Append(ctx, msg))
	})

	t.Run("list recent returns chronological window", func(t *testing.T) {
		_, err := repo.EnsureSession(ctx, "sess-3", "t")
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			role := model.RoleUser
			if i%2 == 1 {
				role = model.RoleAssistant
			}
			msg := &model.ChatMessage{
				SessionID: "sess-3",
				Role:      role,
				Content:   fmt.Sprintf("turn %d", i),
			}
			require.NoError(t, repo.Append(ctx, msg))
		}

		msgs, err := repo.ListRecent(ctx, "sess-3", 4)
		require.NoError(t, err)
		require.Len(t, msgs, 4)

		// Newest four turns, oldest of them first.
		assert.Equal(t, "turn 1", msgs[0].Content)
		assert.Equal(t, "turn 4", msgs[3].Content)
		for i := 1; i < len(msgs); i++ {
			assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
		}
	})

	t.Run("list recent empty session", func(t *testing.T) {
		_, err := repo.EnsureSession(ctx, "sess-empty", "t")
		require.NoError(t, err)

		msgs, err := repo.ListRecent(ctx, "sess-empty", 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}
