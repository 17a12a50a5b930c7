// Package prompt assembles the ordered, role-tagged message sequences sent to
// the model backend. All functions are pure: they read the transient project
// context and message history and produce a []model.Message without side
// effects. The package also owns the canonical prompt text blocks (format
// rules, breach notice, envelope format) so wording changes happen in one
// place.
package prompt

import (
	"fmt"
	"strings"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/model"
)

// Placeholder labels used when an id cannot be resolved to an agent name.
// Prompt rendering degrades to these instead of failing the turn.
const (
	UnknownSender   = "UnknownSender"
	UnknownReceiver = "UnknownReceiver"
)

// SystemSenderID is the reserved id for platform-injected messages.
const SystemSenderID = 0

// roleTag introduces the agent-specific section of the system prompt.
const roleTag = "[AGENT ROLE]"

// FormatRules is appended to every main system prompt so the model replies
// with the machine-parseable three-field object.
const FormatRules = `Respond using this strict JSON format:
{
  "from": "<your name>",
  "to": "<recipient name>",
  "body": "<message content>"
}
Rules:
- Return a single raw JSON object
- No markdown, comments, or extra formatting
- The object must be valid JSON`

// BreachNotice is injected into the in-memory prompt (never persisted) after
// a malformed reply, before the next attempt.
const BreachNotice = `Your previous message was not valid JSON and did not match the required format.

Please reply using **exactly** this structure (as a real JSON object):

{
  "from": "Your name",
  "to": "Recipient name",
  "body": "Your message content"
}

- Do not include Markdown or code blocks
- Only return one JSON object — nothing else
- Avoid extra text or formatting`

// MainSystemPrompt combines the project-wide instructions, the format rules
// and the agent's role description into the primary system message.
func MainSystemPrompt(projectPrompt, agentPrompt string) string {
	return fmt.Sprintf("%s\n\n%s\n\n%s\n%s",
		strings.TrimSpace(projectPrompt),
		FormatRules,
		roleTag,
		strings.TrimSpace(agentPrompt),
	)
}

// SummaryContext renders the rolling summary as a system message body.
func SummaryContext(summary string) string {
	return fmt.Sprintf("Here's a summary of the conversation so far:\n%s", strings.TrimSpace(summary))
}

// Envelope renders a message with its sender/receiver routing prefix. Both
// the trigger message and historical entries use this form so the model sees
// one consistent addressing convention.
func Envelope(sender, receiver, content string) string {
	return fmt.Sprintf("[FROM: %s TO: %s] %s", sender, receiver, strings.TrimSpace(content))
}

// historyEntry renders one historical message, degrading missing names to
// placeholders. Sender id 0 renders as "System" when unmapped.
func historyEntry(msg core.Message, names map[int64]string) string {
	sender, ok := names[msg.SenderID]
	if !ok {
		sender = UnknownSender
		if msg.SenderID == SystemSenderID {
			sender = "System"
		}
	}
	receiver, ok := names[msg.ReceiverID]
	if !ok {
		receiver = UnknownReceiver
	}
	return Envelope(sender, receiver, msg.Content)
}

// BuildChatPrompt produces the full ordered prompt for one turn:
//
//	[system: main prompt] -> [system: summary, if any] ->
//	[history, oldest first] -> [user: trigger]
//
// History roles reconstruct the perspective agent's first-person view of the
// shared timeline: entries the agent authored are "assistant", everything
// else is "user". The trigger must already be envelope-formatted.
func BuildChatPrompt(
	mainSystemPrompt string,
	summary string,
	history []core.Message,
	trigger string,
	perspectiveID int64,
	names map[int64]string,
) []model.Message {
	messages := make([]model.Message, 0, len(history)+3)

	if mainSystemPrompt != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: mainSystemPrompt})
	}
	if summary != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: SummaryContext(summary)})
	}
	for _, msg := range history {
		role := model.RoleUser
		if msg.SenderID == perspectiveID {
			role = model.RoleAssistant
		}
		messages = append(messages, model.Message{Role: role, Content: historyEntry(msg, names)})
	}
	if trigger != "" {
		messages = append(messages, model.Message{Role: model.RoleUser, Content: strings.TrimSpace(trigger)})
	}
	return messages
}
