package config

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// Entry represents a single documented configuration setting.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// DefaultEntries returns the scalar configuration settings with their
// defaults. Provider maps are defaulted from DefaultConfig as a whole.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// ===================
		// Provider selection
		// ===================
		{
			Key:         "defaults.llm_provider",
			Value:       d.Defaults.LLMProvider,
			Description: "LLM provider (key of llm_providers) used for page extraction",
		},
		{
			Key:         "defaults.ocr_provider",
			Value:       d.Defaults.OCRProvider,
			Description: "OCR provider for pages without a text layer; empty disables OCR",
		},
		{
			Key:         "defaults.max_workers",
			Value:       d.Defaults.MaxWorkers,
			Description: "Documents processed concurrently by batch and watch",
		},
		{
			Key:         "defaults.log_level",
			Value:       d.Defaults.LogLevel,
			Description: "Log level: debug, info, warn or error",
		},

		// ===================
		// Pipeline
		// ===================
		{
			Key:         "pipeline.assist_mode",
			Value:       d.Pipeline.AssistMode,
			Description: "Ask the model about purpose checkboxes directly and let measured checkboxes fill unset purpose flags",
		},
		{
			Key:         "pipeline.render_dpi",
			Value:       d.Pipeline.RenderDPI,
			Description: "Page render resolution; checkbox regions are scaled from 200 DPI",
		},
		{
			Key:         "pipeline.min_page_chars",
			Value:       d.Pipeline.MinPageChars,
			Description: "Text layer length below which a page is sent to OCR",
		},
		{
			Key:         "pipeline.temperature",
			Value:       d.Pipeline.Temperature,
			Description: "Sampling temperature for extraction requests",
		},
		{
			Key:         "pipeline.max_tokens",
			Value:       d.Pipeline.MaxTokens,
			Description: "Completion token limit for extraction requests",
		},
		{
			Key:         "pipeline.budgets.convert_seconds",
			Value:       d.Pipeline.Budgets.ConvertSeconds,
			Description: "Conversion phase budget; exceeding it logs a warning",
		},
		{
			Key:         "pipeline.budgets.extraction_seconds",
			Value:       d.Pipeline.Budgets.ExtractionSeconds,
			Description: "Structured extraction phase budget",
		},
		{
			Key:         "pipeline.budgets.checkbox_seconds",
			Value:       d.Pipeline.Budgets.CheckboxSeconds,
			Description: "Checkbox analysis phase budget",
		},
		{
			Key:         "pipeline.budgets.total_seconds",
			Value:       d.Pipeline.Budgets.TotalSeconds,
			Description: "Whole document budget",
		},

		// ===================
		// Examiner
		// ===================
		{
			Key:         "examiner.phone",
			Value:       d.Examiner.Phone,
			Description: "Designated doctor phone used when the document has none",
		},
		{
			Key:         "examiner.license_type",
			Value:       d.Examiner.LicenseType,
			Description: "Designated doctor license type used when the document has none",
		},
		{
			Key:         "examiner.jurisdiction",
			Value:       d.Examiner.Jurisdiction,
			Description: "Designated doctor license jurisdiction used when the document has none",
		},

		// ===================
		// Output and storage
		// ===================
		{
			Key:         "output.root",
			Value:       d.Output.Root,
			Description: "Patient folder root; empty means {home}/patients",
		},
		{
			Key:         "output.copy_source",
			Value:       d.Output.CopySource,
			Description: "Copy the source PDF into the patient folder",
		},
		{
			Key:         "output.write_markdown",
			Value:       d.Output.WriteMarkdown,
			Description: "Write the converted page text as markdown",
		},
		{
			Key:         "output.write_trace",
			Value:       d.Output.WriteTrace,
			Description: "Write the extraction trace next to the record",
		},
		{
			Key:         "store.enabled",
			Value:       d.Store.Enabled,
			Description: "Persist finalized records in the local database",
		},
		{
			Key:         "store.path",
			Value:       d.Store.Path,
			Description: "Database file; empty means {home}/form32.db",
		},
	}
}

// GetDefault returns the default entry for a config key.
func GetDefault(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("%w for key %q", ErrNoDefault, key)
}
