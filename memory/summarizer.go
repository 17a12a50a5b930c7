// Package memory maintains each agent's rolling summary: once an agent has
// authored a full history window of turns, its recent messages are compressed
// into a short factual memory that replaces full history in future prompts.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/model"
	"github.com/parleyhq/parley/prompt"
)

// FetchLimit is the number of recent messages condensed per summarization.
const FetchLimit = 20

// summaryInstruction steers the model toward factual, non-interpretive
// compression.
const summaryInstruction = "You are an AI summarizer. Summarize the following conversation/messages " +
	"as a task-focused memory. Retain key facts, decisions, and outcomes. " +
	"Do not add interpretations or analysis. Be concise, clear, and specific."

// Options holds optional overrides for NewSummarizer.
type Options struct {
	// Logger receives debug traces; defaults to no-op.
	Logger logging.Logger
}

// Summarizer compresses an agent's recent history through the model backend
// and overwrites the stored summary wholesale. It reports failures to the
// caller, who owns catch-and-log.
type Summarizer struct {
	backend core.Backend
	invoker model.Invoker
	logger  logging.Logger
}

// NewSummarizer constructs a Summarizer with optional overrides.
func NewSummarizer(backend core.Backend, invoker model.Invoker, optFns ...func(o *Options)) *Summarizer {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Summarizer{backend: backend, invoker: invoker, logger: opts.Logger}
}

// Summarize fetches the agent's recent messages, renders them as a plain
// transcript and asks the model for a compressed summary. An empty history or
// an empty model result aborts without saving; on success the stored summary
// is overwritten, never merged. The returned bool reports whether a summary
// was saved, so callers only reset their counters when the store did.
func (s *Summarizer) Summarize(ctx context.Context, projectID, agentID int64, apiKey string, names map[int64]string) (bool, error) {
	recent, err := s.backend.RecentMessages(ctx, projectID, agentID, FetchLimit)
	if err != nil {
		return false, fmt.Errorf("fetch recent messages for agent %d: %w", agentID, err)
	}
	if len(recent) == 0 {
		s.logger.Debug("no recent messages to summarize", "project_id", projectID, "agent_id", agentID)
		return false, nil
	}

	transcript := Transcript(recent, names)
	messages := []model.Message{
		{Role: model.RoleSystem, Content: summaryInstruction},
		{Role: model.RoleUser, Content: "Please summarize the following conversation extract:\n\n" + transcript},
	}

	summary, err := s.invoker.Summarize(ctx, messages, apiKey)
	if err != nil {
		return false, fmt.Errorf("summarize agent %d: %w", agentID, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		s.logger.Warn("summarization returned an empty result", "project_id", projectID, "agent_id", agentID)
		return false, nil
	}

	record := core.SummaryRecord{ProjectID: projectID, AgentID: agentID, Summary: summary}
	if err := s.backend.SaveSummary(ctx, record); err != nil {
		return false, fmt.Errorf("save summary for agent %d: %w", agentID, err)
	}
	s.logger.Debug("summary saved", "project_id", projectID, "agent_id", agentID, "length", len(summary))
	return true, nil
}

// Transcript renders messages as "[Sender to Receiver]: content" lines,
// oldest first, separated by blank lines. Unresolvable ids degrade to
// placeholder labels.
func Transcript(messages []core.Message, names map[int64]string) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		sender, ok := names[msg.SenderID]
		if !ok {
			sender = prompt.UnknownSender
		}
		receiver, ok := names[msg.ReceiverID]
		if !ok {
			receiver = prompt.UnknownReceiver
		}
		lines = append(lines, fmt.Sprintf("[%s to %s]: %s", sender, receiver, strings.TrimSpace(msg.Content)))
	}
	return strings.Join(lines, "\n\n")
}
