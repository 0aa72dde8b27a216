package providers

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Registry holds the configured LLM clients and OCR providers by name.
// The watch command reloads it when the config file changes.
type Registry struct {
	mu     sync.RWMutex
	llm    pool[LLMClient]
	ocr    pool[OCRProvider]
	logger *slog.Logger
}

// pool is one kind of provider keyed by config name.
type pool[T any] struct {
	kind  string
	items map[string]T
}

func newPool[T any](kind string) pool[T] {
	return pool[T]{kind: kind, items: make(map[string]T)}
}

func (p *pool[T]) get(name string) (T, error) {
	v, ok := p.items[name]
	if !ok {
		return v, fmt.Errorf("%s provider not found: %s", p.kind, name)
	}
	return v, nil
}

func (p *pool[T]) names() []string {
	return slices.Sorted(maps.Keys(p.items))
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llm:    newPool[LLMClient]("LLM"),
		ocr:    newPool[OCRProvider]("OCR"),
		logger: slog.Default(),
	}
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm.items[name] = client
}

// RegisterOCR registers an OCR provider by name.
func (r *Registry) RegisterOCR(name string, provider OCRProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocr.items[name] = provider
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.get(name)
}

// GetOCR returns an OCR provider by name.
func (r *Registry) GetOCR(name string) (OCRProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ocr.get(name)
}

// ListLLM returns the registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.names()
}

// ListOCR returns the registered OCR provider names, sorted.
func (r *Registry) ListOCR() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ocr.names()
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	_, err := r.GetLLM(name)
	return err == nil
}

// HasOCR checks if an OCR provider is registered.
func (r *Registry) HasOCR(name string) bool {
	_, err := r.GetOCR(name)
	return err == nil
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	Logger       *slog.Logger
	OCRProviders map[string]OCRProviderConfig
	LLMProviders map[string]LLMProviderConfig
}

// OCRProviderConfig matches config.OCRProviderCfg with resolved API key.
type OCRProviderConfig struct {
	Type      string  // "mistral-ocr"
	Model     string  // Model name (optional)
	BaseURL   string  // Override for self-hosted gateways
	APIKey    string  // Resolved API key
	RateLimit float64 // Requests per second
	Enabled   bool
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type       string  // "openrouter", "openai"
	Model      string  // Model name
	BaseURL    string  // Override for compatible gateways
	APIKey     string  // Resolved API key
	RateLimit  float64 // Requests per second
	MaxRetries int     // Attempts per request (0 = client default)
	Enabled    bool
}

// NewRegistryFromConfig creates a registry holding every enabled provider
// that has an API key and a known type.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	if cfg.Logger != nil {
		r.logger = cfg.Logger
	}
	r.Reload(cfg)
	return r
}

// Reload makes the registry match cfg. Providers no longer configured are
// dropped, changed ones are rebuilt, unchanged ones are kept as they are so
// their rate limiters carry over.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	syncPool(&r.llm, cfg.LLMProviders, r.logger,
		func(c LLMProviderConfig) bool { return c.Enabled && c.APIKey != "" },
		needsLLMUpdate,
		func(c LLMProviderConfig) (LLMClient, bool) { return createLLMClient(c, r.logger) })
	syncPool(&r.ocr, cfg.OCRProviders, r.logger,
		func(c OCRProviderConfig) bool { return c.Enabled && c.APIKey != "" },
		needsOCRUpdate,
		func(c OCRProviderConfig) (OCRProvider, bool) { return createOCRProvider(c, r.logger) })
}

func syncPool[T, C any](p *pool[T], want map[string]C, logger *slog.Logger,
	usable func(C) bool, stale func(T, C) bool, build func(C) (T, bool)) {
	keep := make(map[string]bool, len(want))
	for name, c := range want {
		if !usable(c) {
			continue
		}
		existing, had := p.items[name]
		if had && !stale(existing, c) {
			keep[name] = true
			continue
		}
		v, ok := build(c)
		if !ok {
			logger.Warn("unknown provider type", "kind", p.kind, "name", name)
			continue
		}
		p.items[name] = v
		keep[name] = true
		if had {
			logger.Info("updated provider", "kind", p.kind, "name", name)
		} else {
			logger.Debug("registered provider", "kind", p.kind, "name", name)
		}
	}
	for name := range p.items {
		if !keep[name] {
			delete(p.items, name)
			logger.Info("unregistered provider", "kind", p.kind, "name", name)
		}
	}
}

func createLLMClient(cfg LLMProviderConfig, logger *slog.Logger) (LLMClient, bool) {
	switch cfg.Type {
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
			MaxRetries:   cfg.MaxRetries,
			Logger:       logger,
		}), true
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
			MaxRetries:   cfg.MaxRetries,
			Logger:       logger,
		}), true
	default:
		return nil, false
	}
}

func createOCRProvider(cfg OCRProviderConfig, logger *slog.Logger) (OCRProvider, bool) {
	if cfg.Type != MistralOCRName {
		return nil, false
	}
	return NewMistralOCRClient(MistralOCRConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	}), true
}

func needsLLMUpdate(client LLMClient, cfg LLMProviderConfig) bool {
	switch c := client.(type) {
	case *OpenRouterClient:
		return cfg.Type != OpenRouterName || c.apiKey != cfg.APIKey ||
			c.defaultModel != cfg.Model || c.rps != cfg.RateLimit
	case *OpenAIClient:
		return cfg.Type != OpenAIName || c.apiKey != cfg.APIKey ||
			c.defaultModel != cfg.Model || c.rps != cfg.RateLimit
	default:
		return true
	}
}

func needsOCRUpdate(provider OCRProvider, cfg OCRProviderConfig) bool {
	p, ok := provider.(*MistralOCRClient)
	return !ok || cfg.Type != MistralOCRName || p.apiKey != cfg.APIKey || p.rateLimit != cfg.RateLimit
}
