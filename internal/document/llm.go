package document

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/form32/internal/metrics"
	"github.com/jackzampolin/form32/internal/prompts"
	"github.com/jackzampolin/form32/internal/prompts/extract"
	"github.com/jackzampolin/form32/internal/providers"
	"github.com/jackzampolin/form32/internal/templates"
)

// LLMExtractorConfig configures an LLMExtractor.
type LLMExtractorConfig struct {
	Client  providers.LLMClient
	Imager  PageImager
	Prompts *prompts.Resolver // nil uses the embedded extraction prompts

	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
}

// LLMExtractor fills templates by sending rendered page images to a vision
// model and validating the JSON it returns against the template schema.
type LLMExtractor struct {
	client      providers.LLMClient
	imager      PageImager
	prompts     *prompts.Resolver
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// NewLLMExtractor creates an extractor. Client and Imager are required.
func NewLLMExtractor(cfg LLMExtractorConfig) (*LLMExtractor, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("llm extractor: no LLM client configured")
	}
	if cfg.Imager == nil {
		return nil, fmt.Errorf("llm extractor: no page imager configured")
	}
	if cfg.Prompts == nil {
		cfg.Prompts = extract.NewResolver(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LLMExtractor{
		client:      cfg.Client,
		imager:      cfg.Imager,
		prompts:     cfg.Prompts,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}, nil
}

// ExtractStructured implements Extractor. Labels the model returns that are
// not in the template are dropped.
func (e *LLMExtractor) ExtractStructured(ctx context.Context, path string, pages PageRange, tmpl templates.Template) (map[string]any, error) {
	if pages.First < 1 || pages.Last < pages.First {
		return nil, fmt.Errorf("invalid page range %s", pages)
	}
	start := time.Now()

	images := make([][]byte, 0, pages.Last-pages.First+1)
	for p := pages.First; p <= pages.Last; p++ {
		img, err := e.imager.PageImage(ctx, path, p)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", p, err)
		}
		images = append(images, img)
	}

	schema, err := TemplateSchema(tmpl)
	if err != nil {
		return nil, fmt.Errorf("build schema for %s: %w", tmpl.Name, err)
	}
	format, err := providers.JSONSchemaFormat(SchemaName(tmpl.Name), schema)
	if err != nil {
		return nil, err
	}

	system, err := e.prompts.Render(extract.SystemPromptKey, nil)
	if err != nil {
		return nil, err
	}
	user, err := e.prompts.Render(extract.UserPromptKey, promptData(tmpl, pages))
	if err != nil {
		return nil, err
	}

	res, err := providers.ChatStructured(ctx, e.client, &providers.ChatRequest{
		Model: e.model,
		Messages: []providers.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user, Images: images},
		},
		Temperature:    e.temperature,
		MaxTokens:      e.maxTokens,
		ResponseFormat: format,
	})
	metrics.Record(ctx, metrics.FromChat(metrics.StageExtraction, tmpl.Name+"_pages_"+pages.String(), res))
	if err != nil {
		return nil, fmt.Errorf("extract %s (pages %s): %w", tmpl.Name, pages, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(res.ParsedJSON, &raw); err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", tmpl.Name, err)
	}
	values := make(map[string]any, len(tmpl.Fields))
	for _, label := range tmpl.Labels() {
		if v, ok := raw[label]; ok {
			values[label] = v
		}
	}

	e.logger.Debug("page extracted",
		"path", path,
		"pages", pages.String(),
		"template", tmpl.Name,
		"labels", len(values),
		"provider", res.Provider,
		"tokens", res.TotalTokens,
		"attempts", res.Attempts,
		"elapsed", time.Since(start),
	)
	return values, nil
}

func promptData(tmpl templates.Template, pages PageRange) extract.PageData {
	data := extract.PageData{
		Template: tmpl.Name,
		Pages:    pages.String(),
		Assist:   tmpl.IsAssist(),
	}
	for _, f := range tmpl.Fields {
		data.Fields = append(data.Fields, extract.Field{Label: f.Label, Options: f.Type.Enum})
	}
	return data
}

var _ Extractor = (*LLMExtractor)(nil)
