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
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	Logger       *slog.Logger

	RPS        float64       // Requests per second (default: 5)
	MaxRetries int           // Max attempts (default: 3)
	RetryDelay time.Duration // Base delay between retries (default: 1s)
}

// OpenRouterClient implements LLMClient using the OpenRouter API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	limiter      *RateLimiter
	policy       retryPolicy

	rps        float64
	maxRetries int
	retryDelay time.Duration
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "qwen/qwen2.5-vl-72b-instruct"
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

	limiter := NewRateLimiter(cfg.RPS)
	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       &http.Client{Timeout: cfg.Timeout},
		limiter:      limiter,
		policy: retryPolicy{
			attempts: uint(cfg.MaxRetries),
			delay:    cfg.RetryDelay,
			limiter:  limiter,
			logger:   cfg.Logger,
			name:     OpenRouterName,
		},
		rps:        cfg.RPS,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Limiter exposes the client's rate limiter for status reporting.
func (c *OpenRouterClient) Limiter() *RateLimiter {
	return c.limiter
}

// Chat sends a chat completion request.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	orReq := openRouterRequest{
		Model:       model,
		Messages:    make([]openRouterMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Usage:       &openRouterUsageRequest{Include: true},
	}
	for _, m := range req.Messages {
		orMsg := openRouterMessage{Role: m.Role, Content: m.Content}
		if len(m.Images) > 0 {
			parts := []any{map[string]any{"type": "text", "text": m.Content}}
			for _, img := range m.Images {
				parts = append(parts, map[string]any{
					"type":      "image_url",
					"image_url": map[string]any{"url": dataURL(img)},
				})
			}
			orMsg.Content = parts
		}
		orReq.Messages = append(orReq.Messages, orMsg)
	}

	rf, err := adaptedResponseFormat(model, req.ResponseFormat)
	if err != nil {
		return nil, err
	}
	orReq.ResponseFormat = rf
	if rf == nil && req.ResponseFormat != nil {
		orReq.Messages = append([]openRouterMessage{{
			Role:    "system",
			Content: schemaInstruction(req.ResponseFormat.JSONSchema),
		}}, orReq.Messages...)
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenRouterName,
	}

	var orResp openRouterResponse
	attempts, httpErr := c.policy.do(ctx, func(attempt uint) error {
		if attempt > 0 {
			injectNonce(&orReq, int(attempt))
		}
		orResp = openRouterResponse{}
		if err := postJSON(ctx, c.client, "OpenRouter", c.baseURL+"/chat/completions", c.headers(), &orReq, &orResp); err != nil {
			return err
		}
		return checkResponse(&orResp)
	})
	result.Attempts = attempts
	result.ExecutionTime = time.Since(start)
	if httpErr != nil {
		return result.fail("http_error", httpErr)
	}

	content, err := messageText(orResp.Choices[0].Message.Content)
	if err != nil {
		return result.fail("content_marshal_error", err)
	}

	result.Success = true
	result.Content = content
	result.ModelUsed = orResp.Model
	result.PromptTokens = orResp.Usage.PromptTokens
	result.CompletionTokens = orResp.Usage.CompletionTokens
	result.TotalTokens = orResp.Usage.TotalTokens
	result.CostUSD = orResp.Usage.Cost
	if result.CostUSD == 0 {
		result.CostUSD = orResp.Usage.NativeTotalCost
	}

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

func (c *OpenRouterClient) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"HTTP-Referer":  "https://github.com/jackzampolin/form32",
		"X-Title":       "form32",
	}
}

// checkResponse flags 200 responses that carry an error or no choices.
func checkResponse(resp *openRouterResponse) error {
	if resp.Error != nil {
		code := fmt.Sprintf("%v", resp.Error.Code)
		err := fmt.Errorf("OpenRouter API error (%s): %s", code, resp.Error.Message)
		switch code {
		case "overloaded", "rate_limit_exceeded", "503", "502", "500":
			return transient(err)
		}
		return err
	}
	if len(resp.Choices) == 0 {
		return transient(fmt.Errorf("empty choices in response (model=%s, id=%s)", resp.Model, resp.ID))
	}
	return nil
}

// messageText flattens string or multipart message content.
func messageText(content any) (string, error) {
	switch v := content.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []any:
		var text string
		for _, part := range v {
			if m, ok := part.(map[string]any); ok && m["type"] == "text" {
				if s, ok := m["text"].(string); ok {
					text += s
				}
			}
		}
		if text != "" {
			return text, nil
		}
	}
	b, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}
	return string(b), nil
}

// injectNonce appends a unique comment to the last user message so a retry
// after 413/422 is not served from a cached failure.
func injectNonce(req *openRouterRequest, attempt int) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		comment := fmt.Sprintf("\n<!-- retry_%d_id: %s -->", attempt, uuid.New().String()[:16])
		switch content := req.Messages[i].Content.(type) {
		case string:
			req.Messages[i].Content = content + comment
		case []any:
			for _, part := range content {
				if m, ok := part.(map[string]any); ok && m["type"] == "text" {
					if text, ok := m["text"].(string); ok {
						m["text"] = text + comment
						break
					}
				}
			}
		}
		return
	}
}

// IsRateLimited reports whether err came from a 429 response.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusTooManyRequests
}

var _ LLMClient = (*OpenRouterClient)(nil)
