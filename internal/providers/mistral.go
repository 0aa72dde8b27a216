package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	MistralOCRName    = "mistral-ocr"
	MistralOCRBaseURL = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"

	// Mistral OCR bills $1 per 1000 pages.
	MistralOCRCostPerPage = 0.001

	mistralAttempts   = 3
	mistralRetryDelay = 2 * time.Second
)

// MistralOCRConfig holds configuration for the Mistral OCR client.
type MistralOCRConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RateLimit float64 // Requests per second (default: 6.0)
	Logger    *slog.Logger
}

// MistralOCRClient implements OCRProvider using the Mistral OCR API. Scanned
// pages with no text layer are sent here one image at a time.
type MistralOCRClient struct {
	apiKey    string
	baseURL   string
	model     string
	rateLimit float64
	client    *http.Client
	policy    retryPolicy
}

// NewMistralOCRClient creates a new Mistral OCR client.
func NewMistralOCRClient(cfg MistralOCRConfig) *MistralOCRClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralOCRBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralOCRModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 6.0
	}

	c := &MistralOCRClient{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		rateLimit: cfg.RateLimit,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
	c.policy = retryPolicy{
		attempts: mistralAttempts,
		delay:    mistralRetryDelay,
		limiter:  NewRateLimiter(cfg.RateLimit),
		logger:   cfg.Logger,
		name:     MistralOCRName,
	}
	return c
}

// Name returns the provider identifier.
func (c *MistralOCRClient) Name() string {
	return MistralOCRName
}

// ProcessImage extracts markdown text from one page image.
func (c *MistralOCRClient) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	start := time.Now()

	reqBody := mistralOCRRequest{
		Model: c.model,
		Document: mistralDocument{
			Type:     "image_url",
			ImageURL: &mistralImageURL{URL: dataURL(image)},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp mistralOCRResponse
	attempts, err := c.policy.do(ctx, func(uint) error {
		resp = mistralOCRResponse{}
		return postJSON(ctx, c.client, "Mistral OCR", c.baseURL+"/ocr", headers, reqBody, &resp)
	})
	retries := max(attempts-1, 0)
	if err != nil {
		return &OCRResult{
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
			RetryCount:    retries,
		}, err
	}

	if len(resp.Pages) == 0 {
		err := fmt.Errorf("no pages in OCR response for page %d", pageNum)
		return &OCRResult{
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
			RetryCount:    retries,
		}, err
	}

	page := resp.Pages[0]
	metadata := map[string]any{
		"model_used": resp.Model,
		"page":       pageNum,
		"dimensions": map[string]any{
			"width":  page.Dimensions.Width,
			"height": page.Dimensions.Height,
			"dpi":    page.Dimensions.DPI,
		},
	}
	if resp.UsageInfo != nil {
		metadata["pages_processed"] = resp.UsageInfo.PagesProcessed
	}

	return &OCRResult{
		Success:       true,
		Text:          page.Markdown,
		Metadata:      metadata,
		CostUSD:       MistralOCRCostPerPage,
		ExecutionTime: time.Since(start),
		RetryCount:    retries,
	}, nil
}

// Mistral OCR API types

type mistralOCRRequest struct {
	Model              string          `json:"model"`
	Document           mistralDocument `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64,omitempty"`
}

type mistralDocument struct {
	Type     string           `json:"type"` // "image_url" or "document_url"
	ImageURL *mistralImageURL `json:"image_url,omitempty"`
}

type mistralImageURL struct {
	URL string `json:"url"`
}

type mistralOCRResponse struct {
	Model     string            `json:"model"`
	Pages     []mistralOCRPage  `json:"pages"`
	UsageInfo *mistralUsageInfo `json:"usage_info,omitempty"`
}

type mistralOCRPage struct {
	Index      int                   `json:"index"`
	Markdown   string                `json:"markdown"`
	Dimensions mistralPageDimensions `json:"dimensions"`
}

type mistralPageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	DPI    int `json:"dpi"`
}

type mistralUsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
}

var _ OCRProvider = (*MistralOCRClient)(nil)
