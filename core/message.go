package core

import "time"

// Status tracks the delivery lifecycle of a message. A message is created
// pending by an external producer and only the message processor moves it to
// sent or failed. Messages are never deleted by this service.
type Status string

const (
	// StatusPending marks a message awaiting processing.
	StatusPending Status = "pending"
	// StatusSent marks a message that produced a valid assistant reply.
	StatusSent Status = "sent"
	// StatusFailed marks a message that exhausted its retry budget or failed
	// semantic validation.
	StatusFailed Status = "failed"
)

// Kind distinguishes externally injected user turns from generated
// assistant turns.
type Kind string

const (
	// KindUser is a turn injected from outside the agent loop.
	KindUser Kind = "user"
	// KindAssistant is a turn generated by a model acting as an agent.
	KindAssistant Kind = "assistant"
)

// Message is one exchanged unit of conversation content as stored by the
// backend. Sender and receiver must resolve to known agents of the owning
// project.
type Message struct {
	ID             int64     `json:"id"`
	ProjectID      int64     `json:"projectId"`
	ConversationID int64     `json:"conversationId"`
	SenderID       int64     `json:"senderId"`
	ReceiverID     int64     `json:"receiverId"`
	Content        string    `json:"content"`
	Kind           Kind      `json:"type"`
	Status         Status    `json:"status"`
	RetryCount     int       `json:"retryCount"`
	Attempts       int       `json:"attempts"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewMessage is the creation payload for a message. The conversation it
// references must already exist; the backend rejects orphan messages.
type NewMessage struct {
	ProjectID      int64  `json:"projectId"`
	ConversationID int64  `json:"conversationId"`
	SenderID       int64  `json:"senderId"`
	ReceiverID     int64  `json:"receiverId"`
	Content        string `json:"content"`
	Kind           Kind   `json:"type"`
	Status         Status `json:"status"`
}
