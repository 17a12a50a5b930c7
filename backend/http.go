package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/parleyhq/parley/core"
)

// DefaultHTTPTimeout bounds every backend call made by clients created
// without a custom http.Client. It is intentionally short so a wedged
// backend cannot hang an orchestrator run.
const DefaultHTTPTimeout = 15 * time.Second

// HTTPBackend implements core.Backend over the operator backend's internal
// REST API. Requests authenticate with the shared service key as a bearer
// token and exchange JSON bodies.
type HTTPBackend struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
}

var _ core.Backend = (*HTTPBackend)(nil)

// APIError represents a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend api error (%d): %s", e.StatusCode, e.Message)
}

// NewHTTPBackend creates a client for the given base URL. When httpClient is
// nil a default client with a bounded timeout is used.
func NewHTTPBackend(baseURL, apiKey string, httpClient *http.Client) (*HTTPBackend, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPBackend{baseURL: parsed, apiKey: apiKey, httpClient: httpClient}, nil
}

// do executes one API call. A nil out skips response decoding; 404 maps to
// core.ErrNotFound so callers can treat absence as a domain condition.
func (b *HTTPBackend) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := *b.baseURL
	endpoint.Path, _ = url.JoinPath(endpoint.Path, path)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return core.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(apiErr); decodeErr != nil {
			apiErr.Message = resp.Status
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s %s: %w", method, path, err)
	}
	return nil
}

// ProjectContext implements core.Backend.
func (b *HTTPBackend) ProjectContext(ctx context.Context, projectID int64) (*core.ContextSnapshot, error) {
	var snap core.ContextSnapshot
	if err := b.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d/context", projectID), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ProjectFlags implements core.Backend.
func (b *HTTPBackend) ProjectFlags(ctx context.Context, projectID int64) (core.Flags, error) {
	var flags core.Flags
	err := b.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d/flags", projectID), nil, &flags)
	return flags, err
}

// PendingMessages implements core.Backend.
func (b *HTTPBackend) PendingMessages(ctx context.Context, projectID int64) ([]core.Message, error) {
	var messages []core.Message
	err := b.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d/messages/pending", projectID), nil, &messages)
	return messages, err
}

// RecentMessages implements core.Backend.
func (b *HTTPBackend) RecentMessages(ctx context.Context, projectID, agentID int64, limit int) ([]core.Message, error) {
	var messages []core.Message
	path := fmt.Sprintf("projects/%d/agents/%d/messages/recent?limit=%d", projectID, agentID, limit)
	err := b.do(ctx, http.MethodGet, path, nil, &messages)
	return messages, err
}

// CreateMessage implements core.Backend.
func (b *HTTPBackend) CreateMessage(ctx context.Context, msg core.NewMessage) error {
	return b.do(ctx, http.MethodPost, "messages", msg, nil)
}

// UpdateMessageStatus implements core.Backend.
func (b *HTTPBackend) UpdateMessageStatus(ctx context.Context, messageID int64, status core.Status) error {
	payload := map[string]core.Status{"status": status}
	return b.do(ctx, http.MethodPatch, fmt.Sprintf("messages/%d/status", messageID), payload, nil)
}

// IncrementRetryCount implements core.Backend.
func (b *HTTPBackend) IncrementRetryCount(ctx context.Context, messageID int64) error {
	return b.do(ctx, http.MethodPost, fmt.Sprintf("messages/%d/retry-count/increment", messageID), nil, nil)
}

// DecrementMessageLimit implements core.Backend.
func (b *HTTPBackend) DecrementMessageLimit(ctx context.Context, projectID int64) error {
	return b.do(ctx, http.MethodPost, fmt.Sprintf("projects/%d/message-limit/decrement", projectID), nil, nil)
}

// IncrementAgentMessageCount implements core.Backend.
func (b *HTTPBackend) IncrementAgentMessageCount(ctx context.Context, projectID, agentID int64) error {
	path := fmt.Sprintf("projects/%d/agents/%d/message-count/increment", projectID, agentID)
	return b.do(ctx, http.MethodPost, path, nil, nil)
}

// PauseProject implements core.Backend.
func (b *HTTPBackend) PauseProject(ctx context.Context, projectID int64, reason core.ReasonCode) error {
	payload := map[string]core.ReasonCode{"reason": reason}
	return b.do(ctx, http.MethodPost, fmt.Sprintf("projects/%d/pause", projectID), payload, nil)
}

// CreateLogEntry implements core.Backend.
func (b *HTTPBackend) CreateLogEntry(ctx context.Context, entry core.LogEntry) error {
	return b.do(ctx, http.MethodPost, "logs", entry, nil)
}

// SaveSummary implements core.Backend.
func (b *HTTPBackend) SaveSummary(ctx context.Context, record core.SummaryRecord) error {
	return b.do(ctx, http.MethodPut, "summaries", record, nil)
}

// ActiveProjects implements core.Backend.
func (b *HTTPBackend) ActiveProjects(ctx context.Context) ([]core.ProjectStatus, error) {
	var projects []core.ProjectStatus
	err := b.do(ctx, http.MethodGet, "projects/active", nil, &projects)
	return projects, err
}

// OldestPendingMessageTime implements core.Backend.
func (b *HTTPBackend) OldestPendingMessageTime(ctx context.Context, projectID int64) (time.Time, bool, error) {
	var payload struct {
		Timestamp *time.Time `json:"timestamp"`
	}
	err := b.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d/messages/oldest-pending", projectID), nil, &payload)
	if err != nil {
		return time.Time{}, false, err
	}
	if payload.Timestamp == nil {
		return time.Time{}, false, nil
	}
	return *payload.Timestamp, true, nil
}
