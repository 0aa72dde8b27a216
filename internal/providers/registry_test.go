package providers

import (
	"strings"
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		llm := NewMockClient()
		ocr := NewMockOCRProvider()
		r.RegisterLLM("test-llm", llm)
		r.RegisterOCR("test-ocr", ocr)

		client, err := r.GetLLM("test-llm")
		if err != nil || client != llm {
			t.Errorf("GetLLM() = %v, %v", client, err)
		}
		provider, err := r.GetOCR("test-ocr")
		if err != nil || provider != ocr {
			t.Errorf("GetOCR() = %v, %v", provider, err)
		}
	})

	t.Run("missing names", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.GetLLM("nope"); err == nil {
			t.Error("expected error for missing LLM")
		}
		if _, err := r.GetOCR("nope"); err == nil {
			t.Error("expected error for missing OCR")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("zeta", NewMockClient())
		r.RegisterLLM("alpha", NewMockClient())
		if got := strings.Join(r.ListLLM(), ","); got != "alpha,zeta" {
			t.Errorf("ListLLM() = %s", got)
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("concurrent", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				r.GetLLM("concurrent")
			}()
		}
		wg.Wait()
	})
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("registers each provider type", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openrouter": {Type: "openrouter", Model: "qwen/qwen2.5-vl-72b-instruct", APIKey: "k1", Enabled: true},
				"openai":     {Type: "openai", Model: "gpt-4o-mini", APIKey: "k2", Enabled: true},
				"unknown":    {Type: "carrier-pigeon", APIKey: "k3", Enabled: true},
			},
			OCRProviders: map[string]OCRProviderConfig{
				"mistral": {Type: "mistral-ocr", APIKey: "k4", Enabled: true},
			},
		})

		if _, ok := mustLLM(t, r, "openrouter").(*OpenRouterClient); !ok {
			t.Error("openrouter is not an OpenRouterClient")
		}
		oa, ok := mustLLM(t, r, "openai").(*OpenAIClient)
		if !ok || oa.defaultModel != "gpt-4o-mini" {
			t.Errorf("openai client = %#v", oa)
		}
		if r.HasLLM("unknown") {
			t.Error("unknown provider type registered")
		}
		if !r.HasOCR("mistral") {
			t.Error("mistral not registered")
		}
	})

	t.Run("skips disabled and keyless providers", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"disabled": {Type: "openrouter", APIKey: "k", Enabled: false},
				"keyless":  {Type: "openrouter", Enabled: true},
			},
			OCRProviders: map[string]OCRProviderConfig{
				"mistral": {Type: "mistral-ocr", Enabled: true},
			},
		})
		if len(r.ListLLM()) != 0 || len(r.ListOCR()) != 0 {
			t.Errorf("registered %v %v", r.ListLLM(), r.ListOCR())
		}
	})
}

func mustLLM(t *testing.T, r *Registry, name string) LLMClient {
	t.Helper()
	c, err := r.GetLLM(name)
	if err != nil {
		t.Fatalf("GetLLM(%q) error = %v", name, err)
	}
	return c
}

func TestRegistry_Reload(t *testing.T) {
	base := func(key string) RegistryConfig {
		return RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openrouter": {Type: "openrouter", Model: "m", APIKey: key, RateLimit: 2, Enabled: true},
			},
			OCRProviders: map[string]OCRProviderConfig{
				"mistral": {Type: "mistral-ocr", APIKey: key, RateLimit: 2, Enabled: true},
			},
		}
	}

	t.Run("adds and removes", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{})
		r.Reload(base("k"))
		if !r.HasLLM("openrouter") || !r.HasOCR("mistral") {
			t.Fatal("providers not added")
		}
		r.Reload(RegistryConfig{})
		if r.HasLLM("openrouter") || r.HasOCR("mistral") {
			t.Error("providers not removed")
		}
	})

	t.Run("replaces changed and keeps unchanged", func(t *testing.T) {
		r := NewRegistryFromConfig(base("old"))
		before := mustLLM(t, r, "openrouter")

		r.Reload(base("old"))
		if mustLLM(t, r, "openrouter") != before {
			t.Error("unchanged client replaced")
		}

		r.Reload(base("new"))
		after := mustLLM(t, r, "openrouter").(*OpenRouterClient)
		if after == before || after.apiKey != "new" {
			t.Errorf("client not replaced: key=%s", after.apiKey)
		}
	})

	t.Run("switching type replaces client", func(t *testing.T) {
		r := NewRegistryFromConfig(base("k"))
		cfg := base("k")
		cfg.LLMProviders["openrouter"] = LLMProviderConfig{Type: "openai", Model: "m", APIKey: "k", RateLimit: 2, Enabled: true}
		r.Reload(cfg)
		if _, ok := mustLLM(t, r, "openrouter").(*OpenAIClient); !ok {
			t.Error("client type not switched")
		}
	})
}
