package core

// PairKey identifies the conversation between two agents regardless of
// direction.
type PairKey struct {
	Low  int64
	High int64
}

// NewPairKey builds the canonical (ordered) key for an agent pair.
func NewPairKey(a, b int64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// ProjectContext is the authoritative in-memory view of one project for the
// duration of a single orchestrator run. It is built once from a
// ContextSnapshot, owned exclusively by that run, mutated in place as
// messages are processed (counter increments, refreshed flags) and discarded
// when the run ends. It is never the system of record and must not be shared
// across runs.
type ProjectContext struct {
	ProjectID    int64
	SystemPrompt string
	// APIKey is the decrypted model credential. It exists in memory only and
	// is never written back to the backend.
	APIKey string

	Agents        map[int64]*Agent
	NameToID      map[string]int64
	IDToName      map[int64]string
	Conversations map[PairKey]int64

	Flags Flags
}

// NewProjectContext derives the per-run lookup maps from a snapshot. The
// decrypted credential is supplied by the caller, which owns decryption and
// its failure handling.
func NewProjectContext(snap *ContextSnapshot, apiKey string) *ProjectContext {
	pc := &ProjectContext{
		ProjectID:     snap.ProjectID,
		SystemPrompt:  snap.SystemPrompt,
		APIKey:        apiKey,
		Agents:        make(map[int64]*Agent, len(snap.Agents)),
		NameToID:      make(map[string]int64, len(snap.Agents)),
		IDToName:      make(map[int64]string, len(snap.Agents)),
		Conversations: make(map[PairKey]int64, len(snap.Conversations)),
	}
	for i := range snap.Agents {
		agent := snap.Agents[i]
		pc.Agents[agent.ID] = &agent
		pc.NameToID[agent.Name] = agent.ID
		pc.IDToName[agent.ID] = agent.Name
	}
	for _, conv := range snap.Conversations {
		pc.Conversations[NewPairKey(conv.SenderID, conv.ReceiverID)] = conv.ID
	}
	return pc
}

// ConversationID resolves the conversation for an agent pair.
func (pc *ProjectContext) ConversationID(a, b int64) (int64, bool) {
	id, ok := pc.Conversations[NewPairKey(a, b)]
	return id, ok
}

// AgentName resolves an agent id to its name, falling back to the provided
// placeholder so prompt rendering degrades instead of failing.
func (pc *ProjectContext) AgentName(id int64, placeholder string) string {
	if name, ok := pc.IDToName[id]; ok {
		return name
	}
	return placeholder
}
