package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/model"
	"github.com/parleyhq/parley/oplog"
	"github.com/parleyhq/parley/prompt"
	"github.com/parleyhq/parley/reply"
)

// Handle processes one pending message end to end. It never propagates an
// error: classified failures pause the project (or fail the message) with
// their specific reason, and anything unclassified, including panics, becomes
// a HANDLER_CRASH pause.
func (e *Engine) Handle(ctx context.Context, msg core.Message, pc *core.ProjectContext) {
	logger := logging.With(e.logger, "project_id", pc.ProjectID, "message_id", msg.ID)

	defer func() {
		if r := recover(); r != nil {
			e.pauseCrashed(ctx, pc.ProjectID,
				fmt.Errorf("panic while processing message %d: %v", msg.ID, r), logger)
			pc.Flags.Paused = true
		}
	}()

	if err := e.process(ctx, msg, pc, logger); err != nil {
		e.pauseCrashed(ctx, pc.ProjectID, err, logger)
		pc.Flags.Paused = true
	}
}

// process is the pipeline body. Returning a non-nil error means the failure
// was unclassified and the caller pauses with HANDLER_CRASH; every classified
// outcome is handled inline and returns nil.
func (e *Engine) process(ctx context.Context, msg core.Message, pc *core.ProjectContext, logger logging.Logger) error {
	if pc.APIKey == "" {
		e.ops.Project(ctx, pc.ProjectID, oplog.LevelError, string(core.ReasonNoAPIToken),
			"No model credential available; pausing")
		e.pauseContext(ctx, pc, core.ReasonNoAPIToken, logger)
		return nil
	}
	if pc.Flags.Paused {
		logger.Debug("project paused; leaving message pending")
		return nil
	}

	agent, ok := pc.Agents[msg.ReceiverID]
	if !ok {
		e.ops.Project(ctx, pc.ProjectID, oplog.LevelError, string(core.ReasonAgentNotFound),
			fmt.Sprintf("Receiving agent %d is not part of the project context", msg.ReceiverID))
		e.pauseContext(ctx, pc, core.ReasonAgentNotFound, logger)
		return nil
	}

	window := core.HistoryWindow(agent.MessageCount)
	history, err := e.backend.RecentMessages(ctx, pc.ProjectID, agent.ID, window)
	if err != nil {
		return fmt.Errorf("fetch history for agent %d: %w", agent.ID, err)
	}

	senderName, ok := pc.IDToName[msg.SenderID]
	if !ok {
		senderName = prompt.UnknownSender
		if msg.SenderID == prompt.SystemSenderID {
			senderName = "System"
		}
	}
	trigger := prompt.Envelope(senderName, agent.Name, msg.Content)
	main := prompt.MainSystemPrompt(pc.SystemPrompt, agent.Description)
	messages := prompt.BuildChatPrompt(main, agent.Summary, history, trigger, agent.ID, pc.IDToName)

	if e.logPrompts {
		logger.Debug("assembled prompt",
			"agent", agent.Name, "window", window, "messages", len(messages))
	}

	// The retry budget is counted across process restarts: a message that
	// already burned retries resumes at retry_count+1, so a crash between
	// attempts cannot reset the budget.
	var parsed *reply.Reply
	for attempt := msg.RetryCount + 1; attempt <= core.MaxRetries; attempt++ {
		raw, err := e.invoker.Chat(ctx, messages, agent.Model, pc.APIKey)
		if err != nil {
			reason := core.ReasonModelError
			var modelErr *model.Error
			if errors.As(err, &modelErr) {
				reason = modelErr.ReasonCode()
			}
			logger.Error("model call failed", "error", err, "attempt", attempt)
			e.ops.Project(ctx, pc.ProjectID, oplog.LevelError, string(reason),
				fmt.Sprintf("Model call failed for message %d: %v", msg.ID, err))
			e.pauseContext(ctx, pc, reason, logger)
			return nil
		}

		parsed = reply.Parse(raw)
		if parsed != nil {
			break
		}

		logger.Warn("model reply failed format validation", "attempt", attempt)
		if err := e.backend.IncrementRetryCount(ctx, msg.ID); err != nil {
			return fmt.Errorf("increment retry count for message %d: %w", msg.ID, err)
		}
		// The corrective notice lives only in the in-memory prompt; it is
		// never persisted as history.
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: prompt.BreachNotice})
	}

	if parsed == nil {
		// Exhausting the format retries fails only this message; the project
		// keeps running and the next pending message gets its own budget.
		e.ops.Project(ctx, pc.ProjectID, oplog.LevelError, string(core.ReasonValidationFailure),
			fmt.Sprintf("Message %d exhausted all %d reply-format attempts", msg.ID, core.MaxRetries))
		if err := e.backend.UpdateMessageStatus(ctx, msg.ID, core.StatusFailed); err != nil {
			return fmt.Errorf("mark message %d failed: %w", msg.ID, err)
		}
		return nil
	}

	senderID, okFrom := pc.NameToID[parsed.From]
	receiverID, okTo := pc.NameToID[parsed.To]
	if !okFrom || !okTo {
		e.ops.Project(ctx, pc.ProjectID, oplog.LevelError, string(core.ReasonInvalidAgentName),
			fmt.Sprintf("Reply to message %d names an unknown agent (from=%q to=%q)", msg.ID, parsed.From, parsed.To))
		if err := e.backend.UpdateMessageStatus(ctx, msg.ID, core.StatusFailed); err != nil {
			return fmt.Errorf("mark message %d failed: %w", msg.ID, err)
		}
		e.pauseContext(ctx, pc, core.ReasonInvalidAgentName, logger)
		return nil
	}

	convID, ok := pc.ConversationID(senderID, receiverID)
	if !ok {
		// The triggering message deliberately stays pending here: once a
		// conversation for the pair exists and the project resumes, the same
		// message is retried as-is.
		e.ops.Project(ctx, pc.ProjectID, oplog.LevelError, string(core.ReasonMissingConversation),
			fmt.Sprintf("No conversation exists between %q and %q", parsed.From, parsed.To))
		e.pauseContext(ctx, pc, core.ReasonMissingConversation, logger)
		return nil
	}

	newMsg := core.NewMessage{
		ProjectID:      pc.ProjectID,
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        parsed.Content,
		Kind:           core.KindAssistant,
		Status:         core.StatusPending,
	}
	if err := e.backend.CreateMessage(ctx, newMsg); err != nil {
		return fmt.Errorf("persist reply to message %d: %w", msg.ID, err)
	}
	if err := e.backend.UpdateMessageStatus(ctx, msg.ID, core.StatusSent); err != nil {
		return fmt.Errorf("mark message %d sent: %w", msg.ID, err)
	}
	if err := e.backend.DecrementMessageLimit(ctx, pc.ProjectID); err != nil {
		return fmt.Errorf("decrement message limit: %w", err)
	}
	if err := e.backend.IncrementAgentMessageCount(ctx, pc.ProjectID, senderID); err != nil {
		return fmt.Errorf("increment message count for agent %d: %w", senderID, err)
	}

	logger.Info("message processed",
		"reply_from", parsed.From, "reply_to", parsed.To, "conversation_id", convID)

	if author := pc.Agents[senderID]; author != nil {
		author.MessageCount++
		if author.MessageCount >= core.SummaryThreshold {
			saved, err := e.summarizer.Summarize(ctx, pc.ProjectID, author.ID, pc.APIKey, pc.IDToName)
			if err != nil {
				// Summary failures are isolated; the turn already committed.
				logger.Warn("summarization failed", "agent_id", author.ID, "error", err)
				e.ops.Project(ctx, pc.ProjectID, oplog.LevelWarn, "SUMMARY_FAILURE",
					fmt.Sprintf("Summarization failed for agent %d: %v", author.ID, err))
			}
			// The backend resets the stored counter only on save; mirror that
			// here so the in-run view never drifts from the store.
			if saved {
				author.MessageCount = 0
			}
		}
	}
	return nil
}
