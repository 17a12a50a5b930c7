package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/parleyhq/parley/core"
)

// InMemoryBackend is a volatile core.Backend implementation storing all
// project state in process-local maps. It is safe for concurrent access and
// best suited for tests or local development. Returned slices are defensive
// copies so callers cannot mutate internal state.
type InMemoryBackend struct {
	mu        sync.RWMutex
	projects  map[int64]*projectRecord
	messages  map[int64]*core.Message
	order     []int64
	nextMsgID int64
	logs      []core.LogEntry
	summaries []core.SummaryRecord
}

type projectRecord struct {
	snapshot     core.ContextSnapshot
	flags        core.Flags
	lastActivity time.Time
	pauseReason  core.ReasonCode
}

var _ core.Backend = (*InMemoryBackend)(nil)

// NewInMemoryBackend constructs an empty in-memory backend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		projects: make(map[int64]*projectRecord),
		messages: make(map[int64]*core.Message),
	}
}

// SeedProject registers a project with its snapshot and initial flags.
func (b *InMemoryBackend) SeedProject(snap core.ContextSnapshot, flags core.Flags, lastActivity time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.projects[snap.ProjectID] = &projectRecord{
		snapshot:     snap,
		flags:        flags,
		lastActivity: lastActivity,
	}
}

// SeedMessage stores a message directly, assigning an id, and returns it.
// Used by tests and local producers to enqueue pending turns.
func (b *InMemoryBackend) SeedMessage(msg core.Message) core.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.storeLocked(msg)
}

func (b *InMemoryBackend) storeLocked(msg core.Message) core.Message {
	b.nextMsgID++
	msg.ID = b.nextMsgID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	b.messages[msg.ID] = &msg
	b.order = append(b.order, msg.ID)
	return msg
}

// ProjectContext implements core.Backend.
func (b *InMemoryBackend) ProjectContext(_ context.Context, projectID int64) (*core.ContextSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.projects[projectID]
	if !ok {
		return nil, core.ErrNotFound
	}
	snap := rec.snapshot
	snap.Agents = append([]core.Agent(nil), rec.snapshot.Agents...)
	snap.Conversations = append([]core.Conversation(nil), rec.snapshot.Conversations...)
	return &snap, nil
}

// ProjectFlags implements core.Backend.
func (b *InMemoryBackend) ProjectFlags(_ context.Context, projectID int64) (core.Flags, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.projects[projectID]
	if !ok {
		return core.Flags{}, core.ErrNotFound
	}
	flags := rec.flags
	if rec.flags.MessageLimit != nil {
		limit := *rec.flags.MessageLimit
		flags.MessageLimit = &limit
	}
	return flags, nil
}

// PendingMessages implements core.Backend.
func (b *InMemoryBackend) PendingMessages(_ context.Context, projectID int64) ([]core.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var pending []core.Message
	for _, id := range b.order {
		msg := b.messages[id]
		if msg.ProjectID == projectID && msg.Status == core.StatusPending {
			pending = append(pending, *msg)
		}
	}
	return pending, nil
}

// RecentMessages implements core.Backend.
func (b *InMemoryBackend) RecentMessages(_ context.Context, projectID, agentID int64, limit int) ([]core.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var involved []core.Message
	for _, id := range b.order {
		msg := b.messages[id]
		if msg.ProjectID != projectID {
			continue
		}
		if msg.SenderID == agentID || msg.ReceiverID == agentID {
			involved = append(involved, *msg)
		}
	}
	sort.SliceStable(involved, func(i, j int) bool {
		return involved[i].CreatedAt.Before(involved[j].CreatedAt)
	})
	if limit > 0 && len(involved) > limit {
		involved = involved[len(involved)-limit:]
	}
	return involved, nil
}

// CreateMessage implements core.Backend. Messages referencing a conversation
// unknown to the project are rejected.
func (b *InMemoryBackend) CreateMessage(_ context.Context, msg core.NewMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.projects[msg.ProjectID]
	if !ok {
		return core.ErrNotFound
	}
	known := false
	for _, conv := range rec.snapshot.Conversations {
		if conv.ID == msg.ConversationID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("conversation %d does not exist in project %d", msg.ConversationID, msg.ProjectID)
	}
	status := msg.Status
	if status == "" {
		status = core.StatusPending
	}
	b.storeLocked(core.Message{
		ProjectID:      msg.ProjectID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Content:        msg.Content,
		Kind:           msg.Kind,
		Status:         status,
	})
	rec.lastActivity = time.Now()
	return nil
}

// UpdateMessageStatus implements core.Backend.
func (b *InMemoryBackend) UpdateMessageStatus(_ context.Context, messageID int64, status core.Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, ok := b.messages[messageID]
	if !ok {
		return core.ErrNotFound
	}
	msg.Status = status
	return nil
}

// IncrementRetryCount implements core.Backend.
func (b *InMemoryBackend) IncrementRetryCount(_ context.Context, messageID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, ok := b.messages[messageID]
	if !ok {
		return core.ErrNotFound
	}
	msg.RetryCount++
	msg.Attempts++
	return nil
}

// DecrementMessageLimit implements core.Backend. The limit never drops below
// zero.
func (b *InMemoryBackend) DecrementMessageLimit(_ context.Context, projectID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.projects[projectID]
	if !ok {
		return core.ErrNotFound
	}
	if rec.flags.MessageLimit != nil && *rec.flags.MessageLimit > 0 {
		*rec.flags.MessageLimit--
	}
	return nil
}

// IncrementAgentMessageCount implements core.Backend.
func (b *InMemoryBackend) IncrementAgentMessageCount(_ context.Context, projectID, agentID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.projects[projectID]
	if !ok {
		return core.ErrNotFound
	}
	for i := range rec.snapshot.Agents {
		if rec.snapshot.Agents[i].ID == agentID {
			rec.snapshot.Agents[i].MessageCount++
			return nil
		}
	}
	return core.ErrNotFound
}

// PauseProject implements core.Backend.
func (b *InMemoryBackend) PauseProject(_ context.Context, projectID int64, reason core.ReasonCode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.projects[projectID]
	if !ok {
		return core.ErrNotFound
	}
	rec.flags.Paused = true
	rec.pauseReason = reason
	return nil
}

// CreateLogEntry implements core.Backend.
func (b *InMemoryBackend) CreateLogEntry(_ context.Context, entry core.LogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append(b.logs, entry)
	return nil
}

// SaveSummary implements core.Backend. The agent's stored summary is replaced
// wholesale and its authored-turn counter reset.
func (b *InMemoryBackend) SaveSummary(_ context.Context, record core.SummaryRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.projects[record.ProjectID]
	if !ok {
		return core.ErrNotFound
	}
	b.summaries = append(b.summaries, record)
	for i := range rec.snapshot.Agents {
		if rec.snapshot.Agents[i].ID == record.AgentID {
			rec.snapshot.Agents[i].Summary = record.Summary
			rec.snapshot.Agents[i].MessageCount = 0
			return nil
		}
	}
	return core.ErrNotFound
}

// ActiveProjects implements core.Backend.
func (b *InMemoryBackend) ActiveProjects(_ context.Context) ([]core.ProjectStatus, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var active []core.ProjectStatus
	for id, rec := range b.projects {
		if !rec.flags.Paused {
			active = append(active, core.ProjectStatus{ID: id, LastActivityAt: rec.lastActivity})
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

// OldestPendingMessageTime implements core.Backend.
func (b *InMemoryBackend) OldestPendingMessageTime(_ context.Context, projectID int64) (time.Time, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var oldest time.Time
	found := false
	for _, id := range b.order {
		msg := b.messages[id]
		if msg.ProjectID != projectID || msg.Status != core.StatusPending {
			continue
		}
		if !found || msg.CreatedAt.Before(oldest) {
			oldest = msg.CreatedAt
			found = true
		}
	}
	return oldest, found, nil
}

// Message returns a stored message by id. Test helper.
func (b *InMemoryBackend) Message(messageID int64) (core.Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msg, ok := b.messages[messageID]
	if !ok {
		return core.Message{}, false
	}
	return *msg, true
}

// AllMessages returns every stored message in creation order. Test helper.
func (b *InMemoryBackend) AllMessages() []core.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.Message, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.messages[id])
	}
	return out
}

// PauseReason returns the recorded pause reason for a project. Test helper.
func (b *InMemoryBackend) PauseReason(projectID int64) core.ReasonCode {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if rec, ok := b.projects[projectID]; ok {
		return rec.pauseReason
	}
	return ""
}

// Summaries returns every saved summary record. Test helper.
func (b *InMemoryBackend) Summaries() []core.SummaryRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.SummaryRecord(nil), b.summaries...)
}

// Logs returns every persisted operator log entry. Test helper.
func (b *InMemoryBackend) Logs() []core.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.LogEntry(nil), b.logs...)
}

// TouchActivity updates a project's last-activity timestamp. Test helper.
func (b *InMemoryBackend) TouchActivity(projectID int64, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok := b.projects[projectID]; ok {
		rec.lastActivity = at
	}
}
