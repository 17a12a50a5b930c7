// Package anthropic provides a model.Invoker implementation backed by the
// Anthropic Messages API. The Messages API has no response_format equivalent,
// so the strict reply schema is carried entirely by the system prompt's
// format rules; the parser and retry loop enforce it downstream.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/parleyhq/parley/model"
)

// Options configure the Anthropic invoker.
type Options struct {
	// DefaultModel is used when a turn carries no model id.
	DefaultModel string
	// Temperature applies to conversational turns.
	Temperature float64
	// MaxTokens bounds conversational output size.
	MaxTokens int64
	// SummaryModel generates rolling summaries.
	SummaryModel string
	// SummaryTemperature is lower than Temperature to favor factual
	// compression.
	SummaryTemperature float64
	// SummaryMaxTokens bounds summary output size.
	SummaryMaxTokens int64
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

// Invoker implements model.Invoker on the official Anthropic client.
type Invoker struct {
	opts Options
}

// New creates an Anthropic invoker with optional overrides.
func New(optFns ...func(o *Options)) *Invoker {
	opts := Options{
		DefaultModel:       string(anthropic.ModelClaude3_5Sonnet20241022),
		Temperature:        0.7,
		MaxTokens:          4096,
		SummaryModel:       string(anthropic.ModelClaude3_5Sonnet20241022),
		SummaryTemperature: 0.3,
		SummaryMaxTokens:   512,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{opts: opts}
}

var _ model.Invoker = (*Invoker)(nil)

// Chat implements model.Invoker.
func (m *Invoker) Chat(ctx context.Context, messages []model.Message, modelID, apiKey string) (string, error) {
	if modelID == "" {
		modelID = m.opts.DefaultModel
	}
	return m.complete(ctx, messages, modelID, m.opts.Temperature, m.opts.MaxTokens, apiKey)
}

// Summarize implements model.Invoker.
func (m *Invoker) Summarize(ctx context.Context, messages []model.Message, apiKey string) (string, error) {
	return m.complete(ctx, messages, m.opts.SummaryModel, m.opts.SummaryTemperature, m.opts.SummaryMaxTokens, apiKey)
}

func (m *Invoker) complete(ctx context.Context, messages []model.Message, modelID string, temperature float64, maxTokens int64, apiKey string) (string, error) {
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if m.opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(m.opts.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelID),
		Messages:    buildMessages(messages),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if system := extractSystemBlocks(messages); len(system) > 0 {
		params.System = system
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", model.NewError(model.KindGeneric, fmt.Errorf("no text content returned"))
	}
	return sb.String(), nil
}

// buildMessages converts normalized messages into Anthropic message params.
// System messages are handled separately via the System field.
func buildMessages(messages []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			continue
		case model.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return out
}

// extractSystemBlocks collects system messages, preserving their order.
// Mid-prompt corrective notices become additional system blocks.
func extractSystemBlocks(messages []model.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, msg := range messages {
		if msg.Role == model.RoleSystem && msg.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Content})
		}
	}
	return blocks
}

// mapError classifies SDK errors into the model error taxonomy by HTTP
// status.
func mapError(err error) *model.Error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return model.NewError(model.KindAuth, err)
		case http.StatusTooManyRequests:
			return model.NewError(model.KindRateLimit, err)
		case http.StatusBadRequest:
			return model.NewError(model.KindBadRequest, err)
		}
	}
	return model.NewError(model.KindGeneric, err)
}
