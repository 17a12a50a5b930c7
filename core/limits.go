package core

// Bounds shared by the orchestration pipeline. The history window doubles as
// the summarization trigger: once an agent has authored a full window of
// turns its memory is compressed and the counter reset by the backend.
const (
	// MaxRetries caps model-call attempts per message, counted across process
	// restarts via the persisted retry counter.
	MaxRetries = 3

	// HistoryWindowMin is the smallest history window fetched for a prompt.
	HistoryWindowMin = 5
	// HistoryWindowMax is the largest history window fetched for a prompt.
	HistoryWindowMax = 14

	// SummaryThreshold is the authored-turn count at which an agent's memory
	// is summarized. Deliberately equal to HistoryWindowMax: summarization
	// kicks in exactly when history no longer fits the window.
	SummaryThreshold = HistoryWindowMax

	// MaxRunIterations caps a single orchestrator run so a perpetually busy
	// queue cannot pin a worker forever.
	MaxRunIterations = 100
)

// HistoryWindow clamps an agent's authored-turn count into the fetchable
// history window.
func HistoryWindow(messageCount int) int {
	if messageCount < HistoryWindowMin {
		return HistoryWindowMin
	}
	if messageCount > HistoryWindowMax {
		return HistoryWindowMax
	}
	return messageCount
}
