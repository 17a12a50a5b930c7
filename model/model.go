package model

import (
	"context"
	"fmt"

	"github.com/parleyhq/parley/core"
)

// Role tags a chat message with its conversational origin.
type Role string

const (
	// RoleSystem carries instructions and corrective notices.
	RoleSystem Role = "system"
	// RoleUser carries turns the perspective agent received.
	RoleUser Role = "user"
	// RoleAssistant carries turns the perspective agent authored.
	RoleAssistant Role = "assistant"
)

// Message is one entry of an ordered, role-tagged prompt sequence.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Invoker is the minimal interface required to generate agent replies and
// summaries. The credential is supplied per call because every project owns
// its own key; implementations must not cache it.
type Invoker interface {
	// Chat produces one structured agent reply for the assembled prompt.
	// Transport failures are returned as *Error so the caller can map them to
	// pause reason codes; the raw reply string is returned even when the
	// model ignored the format rules (the parser decides validity).
	Chat(ctx context.Context, messages []Message, modelID, apiKey string) (string, error)

	// Summarize compresses a rendered transcript into a rolling memory. It
	// runs at a lower temperature and a bounded output size compared to
	// conversational turns.
	Summarize(ctx context.Context, messages []Message, apiKey string) (string, error)
}

// Kind classifies model transport failures into the categories the engine
// pauses on. Reply-format problems are not transport failures and never
// surface as an Error.
type Kind int

const (
	// KindGeneric is an unclassified provider or network failure.
	KindGeneric Kind = iota
	// KindAuth is a rejected credential.
	KindAuth
	// KindRateLimit is a rate limit or exhausted quota.
	KindRateLimit
	// KindBadRequest is a request the provider refused as malformed.
	KindBadRequest
)

// Error is a model transport failure carrying its category. It wraps the
// provider error for logs while exposing a stable reason code for pauses.
type Error struct {
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("model call failed (%s): %v", e.ReasonCode(), e.Err)
}

// Unwrap exposes the provider error for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// ReasonCode maps the failure category to the pause reason persisted for
// operators.
func (e *Error) ReasonCode() core.ReasonCode {
	switch e.Kind {
	case KindAuth:
		return core.ReasonInvalidAPIKey
	case KindRateLimit:
		return core.ReasonTokenExhausted
	case KindBadRequest:
		return core.ReasonModelBadRequest
	default:
		return core.ReasonModelError
	}
}

// NewError wraps a provider error with its category.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
