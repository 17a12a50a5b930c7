package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/core"
)

var _ core.Backend = (*InMemoryBackend)(nil)

func seed(b *InMemoryBackend, limit *int64) {
	b.SeedProject(core.ContextSnapshot{
		ProjectID:     1,
		Agents:        []core.Agent{{ID: 1, Name: "Ada"}, {ID: 2, Name: "Ben"}},
		Conversations: []core.Conversation{{ID: 77, SenderID: 1, ReceiverID: 2}},
	}, core.Flags{TokenActive: true, MessageLimit: limit}, time.Now())
}

func TestProjectContext_NotFound(t *testing.T) {
	b := NewInMemoryBackend()
	_, err := b.ProjectContext(context.Background(), 9)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPendingMessages_OrderAndFiltering(t *testing.T) {
	b := NewInMemoryBackend()
	seed(b, nil)
	first := b.SeedMessage(core.Message{ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2, Content: "a", Status: core.StatusPending})
	b.SeedMessage(core.Message{ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2, Content: "b", Status: core.StatusSent})
	second := b.SeedMessage(core.Message{ProjectID: 1, ConversationID: 77, SenderID: 2, ReceiverID: 1, Content: "c", Status: core.StatusPending})
	b.SeedMessage(core.Message{ProjectID: 2, ConversationID: 5, SenderID: 9, ReceiverID: 8, Content: "other", Status: core.StatusPending})

	pending, err := b.PendingMessages(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
}

func TestRecentMessages_WindowKeepsNewest(t *testing.T) {
	b := NewInMemoryBackend()
	seed(b, nil)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		b.SeedMessage(core.Message{
			ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2,
			Content: string(rune('a' + i)), Status: core.StatusSent,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	// Not involving agent 2: must be excluded.
	b.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 5, ReceiverID: 6,
		Content: "x", Status: core.StatusSent, CreatedAt: base,
	})

	recent, err := b.RecentMessages(context.Background(), 1, 2, 4)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	// Oldest first within the window, and the window keeps the newest.
	assert.Equal(t, "c", recent[0].Content)
	assert.Equal(t, "f", recent[3].Content)
}

func TestCreateMessage_RejectsUnknownConversation(t *testing.T) {
	b := NewInMemoryBackend()
	seed(b, nil)

	err := b.CreateMessage(context.Background(), core.NewMessage{
		ProjectID: 1, ConversationID: 999, SenderID: 1, ReceiverID: 2, Content: "hi",
	})
	assert.Error(t, err)

	err = b.CreateMessage(context.Background(), core.NewMessage{
		ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2, Content: "hi",
	})
	require.NoError(t, err)

	all := b.AllMessages()
	require.Len(t, all, 1)
	// Unset status defaults to pending.
	assert.Equal(t, core.StatusPending, all[0].Status)
}

func TestDecrementMessageLimit_ClampsAtZero(t *testing.T) {
	limit := int64(1)
	b := NewInMemoryBackend()
	seed(b, &limit)

	require.NoError(t, b.DecrementMessageLimit(context.Background(), 1))
	require.NoError(t, b.DecrementMessageLimit(context.Background(), 1))

	flags, err := b.ProjectFlags(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *flags.MessageLimit)
}

func TestPauseProject(t *testing.T) {
	b := NewInMemoryBackend()
	seed(b, nil)

	require.NoError(t, b.PauseProject(context.Background(), 1, core.ReasonIdleTimeout))

	flags, err := b.ProjectFlags(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, flags.Paused)
	assert.Equal(t, core.ReasonIdleTimeout, b.PauseReason(1))

	active, err := b.ActiveProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSaveSummary_OverwritesAndResetsCounter(t *testing.T) {
	b := NewInMemoryBackend()
	seed(b, nil)
	require.NoError(t, b.IncrementAgentMessageCount(context.Background(), 1, 2))

	require.NoError(t, b.SaveSummary(context.Background(), core.SummaryRecord{
		ProjectID: 1, AgentID: 2, Summary: "first",
	}))
	require.NoError(t, b.SaveSummary(context.Background(), core.SummaryRecord{
		ProjectID: 1, AgentID: 2, Summary: "second",
	}))

	snap, err := b.ProjectContext(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "second", snap.Agents[1].Summary)
	assert.Equal(t, 0, snap.Agents[1].MessageCount)
}

func TestOldestPendingMessageTime(t *testing.T) {
	b := NewInMemoryBackend()
	seed(b, nil)

	_, ok, err := b.OldestPendingMessageTime(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	old := time.Now().Add(-time.Hour)
	b.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2,
		Content: "old", Status: core.StatusPending, CreatedAt: old,
	})
	b.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2,
		Content: "new", Status: core.StatusPending, CreatedAt: time.Now(),
	})

	ts, ok, err := b.OldestPendingMessageTime(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ts.Equal(old))
}
