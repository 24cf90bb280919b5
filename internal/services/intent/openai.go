package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

const systemPrompt = `You parse voice-assistant commands for a reminder service. ` +
	`Classify the user's utterance and respond with valid JSON only, shaped as ` +
	`{"kind":"create_reminder|list_reminders|cancel_reminder|create_note|unknown",` +
	`"content":"what to remind about, without the time expression",` +
	`"time_text":"the time expression verbatim, empty if none",` +
	`"category":"a single lowercase word bucketing the task (medication, chores, work, ...), empty if unclear"}`

// OpenAIProvider implements the Provider interface using OpenAI's API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// ParseIntent classifies an utterance via the chat completions API
func (p *OpenAIProvider) ParseIntent(ctx context.Context, text string) (*Intent, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(text),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "parse_intent"),
			zap.String("model", p.model),
			zap.Int("text_length", len(text)),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "parse_intent"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to parse intent: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to parse intent: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "parse_intent"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return parseAndValidateIntentResponse(content)
}

func parseAndValidateIntentResponse(content string) (*Intent, error) {
	var parsed Intent
	raw := content
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Some models wrap the JSON in prose; take the outermost braces
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse intent response: %w", err)
		}
	}

	switch parsed.Kind {
	case KindCreateReminder, KindListReminders, KindCancelReminder, KindCreateNote:
	default:
		parsed.Kind = KindUnknown
	}
	return &parsed, nil
}
