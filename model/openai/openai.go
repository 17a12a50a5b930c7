// Package openai provides a model.Invoker implementation backed by the
// OpenAI Chat Completions API. Agent replies are forced into the structured
// agent_reply JSON schema via response_format; summaries run at a lower
// temperature with a bounded output size. The project credential is supplied
// per call, so a fresh client is constructed for each invocation.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/parleyhq/parley/model"
)

// replySchema is the strict JSON schema every conversational turn must
// satisfy. The parser re-validates; the schema just steers the model.
var replySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"from": map[string]any{
			"type":        "string",
			"description": "The name of the agent sending the message.",
		},
		"to": map[string]any{
			"type":        "string",
			"description": "The name of the agent intended to receive the message.",
		},
		"body": map[string]any{
			"type":        "string",
			"description": "The main content of the message.",
		},
	},
	"required":             []string{"from", "to", "body"},
	"additionalProperties": false,
}

// Options configure the OpenAI invoker. Fields mirror a minimal subset of
// Chat Completion parameters; extend via functional options without breaking
// callers.
type Options struct {
	// DefaultModel is used when a turn carries no model id.
	DefaultModel string
	// Temperature applies to conversational turns.
	Temperature float64
	// SummaryModel generates rolling summaries.
	SummaryModel string
	// SummaryTemperature is deliberately lower than Temperature to favor
	// factual compression over style.
	SummaryTemperature float64
	// SummaryMaxTokens bounds summary output size.
	SummaryMaxTokens int64
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

// Invoker implements model.Invoker on the official OpenAI client.
type Invoker struct {
	opts Options
}

// New creates an OpenAI invoker with optional overrides.
func New(optFns ...func(o *Options)) *Invoker {
	opts := Options{
		DefaultModel:       string(openai.ChatModelGPT4o),
		Temperature:        0.7,
		SummaryModel:       string(openai.ChatModelGPT4o),
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
	params := openai.ChatCompletionNewParams{
		Messages:    buildMessages(messages),
		Model:       openai.ChatModel(modelID),
		Temperature: openai.Float(m.opts.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "agent_reply",
					Description: openai.String("Structured reply from the agent, adhering to the specified JSON format."),
					Schema:      replySchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}
	return m.complete(ctx, params, apiKey)
}

// Summarize implements model.Invoker.
func (m *Invoker) Summarize(ctx context.Context, messages []model.Message, apiKey string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages),
		Model:               openai.ChatModel(m.opts.SummaryModel),
		Temperature:         openai.Float(m.opts.SummaryTemperature),
		MaxCompletionTokens: openai.Int(m.opts.SummaryMaxTokens),
	}
	return m.complete(ctx, params, apiKey)
}

func (m *Invoker) complete(ctx context.Context, params openai.ChatCompletionNewParams, apiKey string) (string, error) {
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if m.opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(m.opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", model.NewError(model.KindGeneric, fmt.Errorf("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts normalized messages into OpenAI chat messages.
func buildMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

// mapError classifies SDK errors into the model error taxonomy by HTTP
// status.
func mapError(err error) *model.Error {
	var apierr *openai.Error
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
