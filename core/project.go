package core

import "time"

// Agent is a named participant of a project with its own role prompt, model
// id and rolling memory. Name is unique within a project. MessageCount counts
// turns authored since the last summarization; Summary is the rolling memory
// replacing full history beyond the window (empty means none yet).
type Agent struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Model        string `json:"model"`
	MessageCount int    `json:"messageCount"`
	Summary      string `json:"summary,omitempty"`
}

// Conversation is the persistent channel identity for an unordered agent
// pair. It must exist before any message references the pair.
type Conversation struct {
	ID         int64 `json:"id"`
	SenderID   int64 `json:"senderId"`
	ReceiverID int64 `json:"receiverId"`
}

// Flags is the externally mutable project state re-read on every orchestrator
// iteration so pauses and limit changes take effect within one iteration.
// MessageLimit is nil when the project has no quota.
type Flags struct {
	Paused       bool   `json:"paused"`
	TokenActive  bool   `json:"is_token_active"`
	MessageLimit *int64 `json:"message_limit,omitempty"`
}

// ContextSnapshot is the wire form of a project context as served by the
// backend. The embedded credential is encrypted at rest and decrypted only
// into the transient ProjectContext.
type ContextSnapshot struct {
	ProjectID       int64          `json:"projectId"`
	SystemPrompt    string         `json:"systemPrompt"`
	EncryptedAPIKey string         `json:"apiKey"`
	Agents          []Agent        `json:"agents"`
	Conversations   []Conversation `json:"conversations"`
}

// ProjectStatus is the slim per-project view the watchdog sweeps over.
type ProjectStatus struct {
	ID             int64     `json:"id"`
	LastActivityAt time.Time `json:"last_activity_at"`
}
