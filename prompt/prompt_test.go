package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/model"
)

func TestMainSystemPrompt(t *testing.T) {
	got := MainSystemPrompt("  Run a planning session.  ", "You are the architect.\n")

	assert.True(t, strings.HasPrefix(got, "Run a planning session."))
	assert.Contains(t, got, FormatRules)
	assert.Contains(t, got, "[AGENT ROLE]\nYou are the architect.")
	// Project prompt must precede format rules, which precede the role.
	assert.Less(t, strings.Index(got, "Run a planning"), strings.Index(got, "strict JSON"))
	assert.Less(t, strings.Index(got, "strict JSON"), strings.Index(got, "[AGENT ROLE]"))
}

func TestEnvelope(t *testing.T) {
	assert.Equal(t, "[FROM: Ada TO: Ben] hello", Envelope("Ada", "Ben", "  hello  "))
}

func TestSummaryContext(t *testing.T) {
	got := SummaryContext("They agreed on the schema.")
	assert.Equal(t, "Here's a summary of the conversation so far:\nThey agreed on the schema.", got)
}

func TestBuildChatPrompt_OrderAndRoles(t *testing.T) {
	names := map[int64]string{1: "Ada", 2: "Ben"}
	now := time.Now()
	history := []core.Message{
		{SenderID: 2, ReceiverID: 1, Content: "ping", CreatedAt: now.Add(-2 * time.Minute)},
		{SenderID: 1, ReceiverID: 2, Content: "pong", CreatedAt: now.Add(-time.Minute)},
	}

	msgs := BuildChatPrompt("MAIN", "SUMMARY", history, "[FROM: Ben TO: Ada] go on", 1, names)

	assert.Len(t, msgs, 5)
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.Equal(t, "MAIN", msgs[0].Content)
	assert.Equal(t, model.RoleSystem, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "SUMMARY")

	// History from the perspective agent is assistant, everything else user.
	assert.Equal(t, model.RoleUser, msgs[2].Role)
	assert.Equal(t, "[FROM: Ben TO: Ada] ping", msgs[2].Content)
	assert.Equal(t, model.RoleAssistant, msgs[3].Role)
	assert.Equal(t, "[FROM: Ada TO: Ben] pong", msgs[3].Content)

	assert.Equal(t, model.RoleUser, msgs[4].Role)
	assert.Equal(t, "[FROM: Ben TO: Ada] go on", msgs[4].Content)
}

func TestBuildChatPrompt_NoSummary(t *testing.T) {
	msgs := BuildChatPrompt("MAIN", "", nil, "[FROM: Ben TO: Ada] hi", 1, nil)
	assert.Len(t, msgs, 2)
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
}

func TestBuildChatPrompt_PlaceholderNames(t *testing.T) {
	names := map[int64]string{1: "Ada"}
	history := []core.Message{
		{SenderID: 9, ReceiverID: 8, Content: "lost"},
		{SenderID: SystemSenderID, ReceiverID: 1, Content: "kickoff"},
	}

	msgs := BuildChatPrompt("MAIN", "", history, "", 1, names)

	assert.Len(t, msgs, 3)
	assert.Equal(t, "[FROM: UnknownSender TO: UnknownReceiver] lost", msgs[1].Content)
	// Sender id 0 renders as the platform, not as an unknown agent.
	assert.Equal(t, "[FROM: System TO: Ada] kickoff", msgs[2].Content)
}
