package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Backend implementations when the requested
// entity does not exist. Callers treat it as an absent record, not a
// transport failure.
var ErrNotFound = errors.New("not found")

// LogEntry is a persistent operator-facing log record. ProjectID is nil for
// service-level entries (for example watchdog sweeps).
type LogEntry struct {
	ProjectID *int64 `json:"projectId"`
	Message   string `json:"message"`
	Level     string `json:"level"`
	Code      string `json:"code,omitempty"`
}

// SummaryRecord is the payload persisting an agent's rolling summary. The
// stored summary is overwritten wholesale, never merged.
type SummaryRecord struct {
	ProjectID   int64  `json:"projectId"`
	AgentID     int64  `json:"agentId"`
	Summary     string `json:"summary"`
	HistoryJSON string `json:"historyJson,omitempty"`
}

// Backend is the remote persistence collaborator. Every method is a network
// call; implementations own their transport timeouts. The orchestration core
// never caches across runs: ProjectContext is fetched per run and Flags are
// re-read per iteration.
type Backend interface {
	// ProjectContext returns the full context snapshot for a project, or
	// ErrNotFound when the project does not exist.
	ProjectContext(ctx context.Context, projectID int64) (*ContextSnapshot, error)

	// ProjectFlags returns the current pause/token/limit flags.
	ProjectFlags(ctx context.Context, projectID int64) (Flags, error)

	// PendingMessages returns the project's pending messages, oldest first.
	PendingMessages(ctx context.Context, projectID int64) ([]Message, error)

	// RecentMessages returns up to limit messages involving the agent,
	// oldest first.
	RecentMessages(ctx context.Context, projectID, agentID int64, limit int) ([]Message, error)

	// CreateMessage persists a new message. The referenced conversation must
	// already exist.
	CreateMessage(ctx context.Context, msg NewMessage) error

	// UpdateMessageStatus transitions a message to the given status.
	UpdateMessageStatus(ctx context.Context, messageID int64, status Status) error

	// IncrementRetryCount bumps the persisted retry counter for a message.
	IncrementRetryCount(ctx context.Context, messageID int64) error

	// DecrementMessageLimit consumes one unit of the project quota. The
	// backend clamps at zero.
	DecrementMessageLimit(ctx context.Context, projectID int64) error

	// IncrementAgentMessageCount bumps the agent's authored-turn counter.
	IncrementAgentMessageCount(ctx context.Context, projectID, agentID int64) error

	// PauseProject halts the project with a machine-readable reason. Paused
	// projects stay paused until externally resumed.
	PauseProject(ctx context.Context, projectID int64, reason ReasonCode) error

	// CreateLogEntry persists an operator log record.
	CreateLogEntry(ctx context.Context, entry LogEntry) error

	// SaveSummary overwrites an agent's rolling summary.
	SaveSummary(ctx context.Context, record SummaryRecord) error

	// ActiveProjects lists unpaused projects for the watchdog sweep.
	ActiveProjects(ctx context.Context) ([]ProjectStatus, error)

	// OldestPendingMessageTime returns the creation time of the oldest
	// pending message, with ok=false when the queue is empty.
	OldestPendingMessageTime(ctx context.Context, projectID int64) (ts time.Time, ok bool, err error)
}
