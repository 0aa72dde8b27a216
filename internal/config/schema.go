package config

import (
	"time"

	"github.com/jackzampolin/form32/internal/classify"
	"github.com/jackzampolin/form32/internal/fallback"
	"github.com/jackzampolin/form32/internal/reconcile"
)

// Config holds form32 configuration.
// Stored at: {home}/config.yaml
type Config struct {
	OCRProviders map[string]OCRProviderCfg `mapstructure:"ocr_providers" yaml:"ocr_providers"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Pipeline     PipelineCfg               `mapstructure:"pipeline" yaml:"pipeline"`
	Examiner     ExaminerCfg               `mapstructure:"examiner" yaml:"examiner"`
	Output       OutputCfg                 `mapstructure:"output" yaml:"output"`
	Store        StoreCfg                  `mapstructure:"store" yaml:"store"`
}

// OCRProviderCfg configures an OCR provider.
type OCRProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "mistral-ocr"
	Model     string  `mapstructure:"model" yaml:"model"`           // Model name
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`     // Optional endpoint override
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"`   // "openrouter", "openai"
	Model      string  `mapstructure:"model" yaml:"model"` // Vision model name
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries"`
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	OCRProvider string `mapstructure:"ocr_provider" yaml:"ocr_provider"` // Empty disables OCR of scanned pages
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Vision model used for extraction
	MaxWorkers  int    `mapstructure:"max_workers" yaml:"max_workers"`   // Documents processed concurrently
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
}

// PipelineCfg tunes extraction and reconciliation.
type PipelineCfg struct {
	// AssistMode uses the checkbox-assist purpose template and lets filled
	// checkboxes override purpose flags the model left unset.
	AssistMode   bool    `mapstructure:"assist_mode" yaml:"assist_mode"`
	RenderDPI    int     `mapstructure:"render_dpi" yaml:"render_dpi"`
	MinPageChars int     `mapstructure:"min_page_chars" yaml:"min_page_chars"`
	Temperature  float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens" yaml:"max_tokens"`

	// Identifiers replaces the DWC-032 identifier phrases when non-empty.
	Identifiers []string            `mapstructure:"identifiers" yaml:"identifiers"`
	Checkbox    CheckboxCfg         `mapstructure:"checkbox" yaml:"checkbox"`
	Patterns    map[string][]string `mapstructure:"patterns" yaml:"patterns"` // field -> regex list, replaces defaults
	Prompts     map[string]string   `mapstructure:"prompts" yaml:"prompts"`   // prompt key -> template text
	Required    []string            `mapstructure:"required" yaml:"required"`
	Budgets     BudgetsCfg          `mapstructure:"budgets" yaml:"budgets"`
}

// CheckboxCfg overrides checkbox group fill thresholds, keyed by group name.
type CheckboxCfg struct {
	Thresholds map[string]float64 `mapstructure:"thresholds" yaml:"thresholds"`
}

// BudgetsCfg holds per-phase wall-clock budgets in seconds. Exceeding one is
// logged, never enforced.
type BudgetsCfg struct {
	ConvertSeconds    int `mapstructure:"convert_seconds" yaml:"convert_seconds"`
	ExtractionSeconds int `mapstructure:"extraction_seconds" yaml:"extraction_seconds"`
	CheckboxSeconds   int `mapstructure:"checkbox_seconds" yaml:"checkbox_seconds"`
	TotalSeconds      int `mapstructure:"total_seconds" yaml:"total_seconds"`
}

// ExaminerCfg holds examiner facts filled when the document omits them.
type ExaminerCfg struct {
	Phone        string `mapstructure:"phone" yaml:"phone"`
	LicenseType  string `mapstructure:"license_type" yaml:"license_type"`
	Jurisdiction string `mapstructure:"jurisdiction" yaml:"jurisdiction"`
}

// OutputCfg controls the per-patient output folders.
type OutputCfg struct {
	Root          string `mapstructure:"root" yaml:"root"` // Empty means {home}/patients
	CopySource    bool   `mapstructure:"copy_source" yaml:"copy_source"`
	WriteMarkdown bool   `mapstructure:"write_markdown" yaml:"write_markdown"`
	WriteTrace    bool   `mapstructure:"write_trace" yaml:"write_trace"`
}

// StoreCfg configures the record database.
type StoreCfg struct {
	Path    string `mapstructure:"path" yaml:"path"` // Empty means {home}/form32.db
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OCRProviders: map[string]OCRProviderCfg{
			"mistral": {
				Type:      "mistral-ocr",
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 6.0,
				Enabled:   true,
			},
		},
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:       "openrouter",
				Model:      "qwen/qwen2.5-vl-72b-instruct",
				APIKey:     "${OPENROUTER_API_KEY}",
				RateLimit:  5.0,
				MaxRetries: 3,
				Enabled:    true,
			},
			"openai": {
				Type:       "openai",
				Model:      "gpt-4o",
				APIKey:     "${OPENAI_API_KEY}",
				RateLimit:  5.0,
				MaxRetries: 3,
				Enabled:    false,
			},
		},
		Defaults: DefaultsCfg{
			OCRProvider: "mistral",
			LLMProvider: "openrouter",
			MaxWorkers:  4,
			LogLevel:    "info",
		},
		Pipeline: PipelineCfg{
			AssistMode:   false,
			RenderDPI:    200,
			MinPageChars: 20,
			Temperature:  0,
			MaxTokens:    2048,
			Budgets: BudgetsCfg{
				ConvertSeconds:    60,
				ExtractionSeconds: 300,
				CheckboxSeconds:   60,
				TotalSeconds:      480,
			},
		},
		Examiner: ExaminerCfg{
			Phone:        reconcile.DefaultExaminerPhone,
			LicenseType:  reconcile.DefaultLicenseType,
			Jurisdiction: reconcile.DefaultJurisdiction,
		},
		Output: OutputCfg{
			CopySource:    true,
			WriteMarkdown: true,
			WriteTrace:    true,
		},
		Store: StoreCfg{Enabled: true},
	}
}

// GetOCRProvider returns an OCR provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCRProviders[name]
	return cfg, ok
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// Markers returns the classification markers with configured identifiers
// applied.
func (c *Config) Markers() classify.Markers {
	m := classify.DefaultMarkers()
	if len(c.Pipeline.Identifiers) > 0 {
		m.Identifiers = append([]string(nil), c.Pipeline.Identifiers...)
	}
	return m
}

// Patterns returns the fallback pattern table with configured overrides.
func (c *Config) Patterns() []fallback.FieldPatterns {
	return fallback.WithOverrides(fallback.DefaultPatterns(), c.Pipeline.Patterns)
}

// ExaminerDefaults returns the reconcile defaults for the examiner section.
func (c *Config) ExaminerDefaults() []reconcile.Default {
	return reconcile.ExaminerDefaults(c.Examiner.Phone, c.Examiner.LicenseType, c.Examiner.Jurisdiction)
}

// Budget converts a seconds setting to a duration; zero disables the budget.
func Budget(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
