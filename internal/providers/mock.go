package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing. Replies are served from
// Responses in order; once exhausted, ResponseText is returned.
type MockClient struct {
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	Responses    []string

	requestCount atomic.Int64

	mu       sync.Mutex
	requests []ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{
		ResponseText: "{}",
		Responses:    responses,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat records the request and returns the next scripted reply.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.ShouldFail {
		return result.fail("mock_failure", fmt.Errorf("mock client configured to fail"))
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return result.fail("mock_failure", fmt.Errorf("mock client failed after %d requests", c.FailAfter))
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return result.fail("context_cancelled", ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return result.fail("context_cancelled", err)
	}

	content := c.ResponseText
	if i := int(count) - 1; i < len(c.Responses) {
		content = c.Responses[i]
	}

	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)
	for _, m := range req.Messages {
		result.PromptTokens += len(m.Content) / 4
	}
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	if req.ResponseFormat != nil {
		if parsed, err := parseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		}
	}
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns copies of the requests received so far.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatRequest(nil), c.requests...)
}

var _ LLMClient = (*MockClient)(nil)

// MockOCRProvider is an OCRProvider for testing. Pages maps a page number to
// its text; unmapped pages get ResponseText.
type MockOCRProvider struct {
	ProviderName string
	ShouldFail   bool
	ResponseText string
	Pages        map[int]string

	requestCount atomic.Int64
}

// NewMockOCRProvider creates a new mock OCR provider.
func NewMockOCRProvider() *MockOCRProvider {
	return &MockOCRProvider{
		ProviderName: "mock-ocr",
		ResponseText: "mock OCR text",
	}
}

// Name returns the provider identifier.
func (p *MockOCRProvider) Name() string {
	return p.ProviderName
}

// ProcessImage returns the scripted text for pageNum.
func (p *MockOCRProvider) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	p.requestCount.Add(1)
	if err := ctx.Err(); err != nil {
		return &OCRResult{ErrorMessage: err.Error()}, err
	}
	if p.ShouldFail {
		err := fmt.Errorf("mock OCR provider configured to fail")
		return &OCRResult{ErrorMessage: err.Error()}, err
	}
	text, ok := p.Pages[pageNum]
	if !ok {
		text = p.ResponseText
	}
	return &OCRResult{
		Success:  true,
		Text:     text,
		Metadata: map[string]any{"page": pageNum, "image_bytes": len(image)},
	}, nil
}

// RequestCount returns the number of requests made.
func (p *MockOCRProvider) RequestCount() int64 {
	return p.requestCount.Load()
}

var _ OCRProvider = (*MockOCRProvider)(nil)
