package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/backend"
	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/model"
)

type fakeInvoker struct {
	summary    string
	err        error
	calls      int
	lastPrompt []model.Message
}

func (f *fakeInvoker) Chat(context.Context, []model.Message, string, string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeInvoker) Summarize(_ context.Context, messages []model.Message, _ string) (string, error) {
	f.calls++
	f.lastPrompt = messages
	return f.summary, f.err
}

var _ model.Invoker = (*fakeInvoker)(nil)

func seedProject(be *backend.InMemoryBackend) {
	be.SeedProject(core.ContextSnapshot{
		ProjectID:     1,
		Agents:        []core.Agent{{ID: 1, Name: "Ada"}, {ID: 2, Name: "Ben"}},
		Conversations: []core.Conversation{{ID: 77, SenderID: 1, ReceiverID: 2}},
	}, core.Flags{TokenActive: true}, time.Now())
}

var names = map[int64]string{1: "Ada", 2: "Ben"}

func TestSummarize_SavesResult(t *testing.T) {
	be := backend.NewInMemoryBackend()
	seedProject(be)
	be.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2,
		Content: "please review", Status: core.StatusSent,
	})
	inv := &fakeInvoker{summary: "  Ada asked Ben for a review.  "}
	s := NewSummarizer(be, inv)

	saved, err := s.Summarize(context.Background(), 1, 2, "sk-test", names)
	require.NoError(t, err)
	assert.True(t, saved)

	summaries := be.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(1), summaries[0].ProjectID)
	assert.Equal(t, int64(2), summaries[0].AgentID)
	assert.Equal(t, "Ada asked Ben for a review.", summaries[0].Summary)

	// Prompt carries the instruction and the rendered transcript.
	require.Len(t, inv.lastPrompt, 2)
	assert.Equal(t, model.RoleSystem, inv.lastPrompt[0].Role)
	assert.Contains(t, inv.lastPrompt[1].Content, "[Ada to Ben]: please review")
}

func TestSummarize_EmptyHistorySkips(t *testing.T) {
	be := backend.NewInMemoryBackend()
	seedProject(be)
	inv := &fakeInvoker{summary: "unused"}
	s := NewSummarizer(be, inv)

	saved, err := s.Summarize(context.Background(), 1, 2, "sk-test", names)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, 0, inv.calls)
	assert.Empty(t, be.Summaries())
}

func TestSummarize_EmptyResultSkipsSave(t *testing.T) {
	be := backend.NewInMemoryBackend()
	seedProject(be)
	be.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 2, ReceiverID: 1,
		Content: "noted", Status: core.StatusSent,
	})
	inv := &fakeInvoker{summary: "   "}
	s := NewSummarizer(be, inv)

	saved, err := s.Summarize(context.Background(), 1, 2, "sk-test", names)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, be.Summaries())
}

func TestSummarize_ModelErrorPropagates(t *testing.T) {
	be := backend.NewInMemoryBackend()
	seedProject(be)
	be.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 2, ReceiverID: 1,
		Content: "noted", Status: core.StatusSent,
	})
	inv := &fakeInvoker{err: errors.New("model down")}
	s := NewSummarizer(be, inv)

	saved, err := s.Summarize(context.Background(), 1, 2, "sk-test", names)
	require.Error(t, err)
	assert.False(t, saved)
	assert.Empty(t, be.Summaries())
}

func TestTranscript(t *testing.T) {
	messages := []core.Message{
		{SenderID: 1, ReceiverID: 2, Content: " hello "},
		{SenderID: 9, ReceiverID: 2, Content: "mystery"},
	}

	got := Transcript(messages, names)

	lines := strings.Split(got, "\n\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[Ada to Ben]: hello", lines[0])
	assert.Equal(t, "[UnknownSender to Ben]: mystery", lines[1])
}
