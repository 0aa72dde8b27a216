package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName         = "openai"
	OpenAIDefaultModel = "gpt-4o"
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	Logger       *slog.Logger

	RPS        float64
	MaxRetries int
	RetryDelay time.Duration
}

// OpenAIClient implements LLMClient on the official OpenAI SDK.
type OpenAIClient struct {
	client       openai.Client
	apiKey       string
	defaultModel string
	policy       retryPolicy
	limiter      *RateLimiter

	rps        float64
	maxRetries int
}

// NewOpenAIClient creates a new OpenAI client. SDK-level retries are
// disabled; the shared retry policy owns backoff.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OpenAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RPS == 0 {
		cfg.RPS = 5
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	limiter := NewRateLimiter(cfg.RPS)
	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		limiter:      limiter,
		policy: retryPolicy{
			attempts: uint(cfg.MaxRetries),
			delay:    cfg.RetryDelay,
			limiter:  limiter,
			logger:   cfg.Logger,
			name:     OpenAIName,
		},
		rps:        cfg.RPS,
		maxRetries: cfg.MaxRetries,
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	for _, m := range req.Messages {
		params.Messages = append(params.Messages, openAIMessage(m))
	}
	if rf := req.ResponseFormat; rf != nil {
		format, err := openAIResponseFormat(rf)
		if err != nil {
			return nil, err
		}
		params.ResponseFormat = format
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenAIName,
	}

	var completion *openai.ChatCompletion
	attempts, err := c.policy.do(ctx, func(uint) error {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return transient(fmt.Errorf("empty choices in response (model=%s, id=%s)", resp.Model, resp.ID))
		}
		completion = resp
		return nil
	})
	result.Attempts = attempts
	result.ExecutionTime = time.Since(start)
	if err != nil {
		return result.fail("http_error", err)
	}

	content := completion.Choices[0].Message.Content
	result.Success = true
	result.Content = content
	result.ModelUsed = completion.Model
	result.PromptTokens = int(completion.Usage.PromptTokens)
	result.CompletionTokens = int(completion.Usage.CompletionTokens)
	result.TotalTokens = int(completion.Usage.TotalTokens)

	if req.ResponseFormat != nil && content != "" {
		if parsed, err := parseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		} else {
			result.Success = false
			result.ErrorType = "json_parse"
			result.ErrorMessage = fmt.Sprintf("failed to parse JSON response: %v", err)
		}
	}
	return result, nil
}

func openAIMessage(m Message) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case "system":
		return openai.SystemMessage(m.Content)
	case "assistant":
		return openai.AssistantMessage(m.Content)
	}
	if len(m.Images) == 0 {
		return openai.UserMessage(m.Content)
	}
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(m.Content)}
	for _, img := range m.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL(img),
		}))
	}
	return openai.UserMessage(parts)
}

// openAIResponseFormat converts the {"name","strict","schema"} envelope into
// the SDK's json_schema response format.
func openAIResponseFormat(rf *ResponseFormat) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	var env struct {
		Name   string         `json:"name"`
		Strict bool           `json:"strict"`
		Schema map[string]any `json:"schema"`
	}
	if err := json.Unmarshal(rf.JSONSchema, &env); err != nil {
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	if env.Name == "" {
		env.Name = "response"
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   env.Name,
				Schema: env.Schema,
				Strict: openai.Bool(env.Strict),
			},
		},
	}, nil
}

// classifyOpenAIError maps SDK errors onto the shared retry classification.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: "OpenAI", Status: apiErr.StatusCode, Body: apiErr.Message}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return transient(fmt.Errorf("request failed: %w", err))
}

var _ LLMClient = (*OpenAIClient)(nil)
