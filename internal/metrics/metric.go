// Package metrics provides cost and usage tracking for LLM and OCR calls.
package metrics

import (
	"time"

	"github.com/jackzampolin/form32/internal/providers"
)

// Stages attributed to provider calls.
const (
	StageOCR        = "ocr"
	StageExtraction = "extraction"
)

// Metric is a single recorded LLM or OCR call.
type Metric struct {
	// Attribution
	RunID   string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
	Stage   string `json:"stage" yaml:"stage"`
	ItemKey string `json:"item_key,omitempty" yaml:"item_key,omitempty"` // e.g. "page_0003", "pages_2-4"

	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`

	CostUSD          float64 `json:"cost_usd" yaml:"cost_usd"`
	PromptTokens     int     `json:"prompt_tokens,omitempty" yaml:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty" yaml:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty" yaml:"total_tokens,omitempty"`
	Attempts         int     `json:"attempts,omitempty" yaml:"attempts,omitempty"`

	ExecutionSeconds float64 `json:"execution_seconds" yaml:"execution_seconds"`

	Success   bool   `json:"success" yaml:"success"`
	ErrorType string `json:"error_type,omitempty" yaml:"error_type,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// FromChat builds a metric from an LLM chat result. A nil result (the call
// never reached the provider) yields a failed metric with no usage.
func FromChat(stage, itemKey string, res *providers.ChatResult) Metric {
	m := Metric{
		Stage:     stage,
		ItemKey:   itemKey,
		CreatedAt: time.Now(),
	}
	if res == nil {
		m.ErrorType = "no_result"
		return m
	}
	m.Provider = res.Provider
	m.Model = res.ModelUsed
	m.CostUSD = res.CostUSD
	m.PromptTokens = res.PromptTokens
	m.CompletionTokens = res.CompletionTokens
	m.TotalTokens = res.TotalTokens
	m.Attempts = res.Attempts
	m.ExecutionSeconds = res.ExecutionTime.Seconds()
	m.Success = res.Success
	m.ErrorType = res.ErrorType
	return m
}

// FromOCR builds a metric from an OCR result.
func FromOCR(provider, itemKey string, res *providers.OCRResult, err error) Metric {
	m := Metric{
		Stage:     StageOCR,
		ItemKey:   itemKey,
		Provider:  provider,
		CreatedAt: time.Now(),
	}
	if res != nil {
		m.CostUSD = res.CostUSD
		m.ExecutionSeconds = res.ExecutionTime.Seconds()
		m.Attempts = res.RetryCount + 1
		m.Success = res.Success
		if model, ok := res.Metadata["model"].(string); ok {
			m.Model = model
		}
	}
	if err != nil {
		m.Success = false
		m.ErrorType = "ocr_error"
	}
	return m
}
