package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":    "gen-1",
		"model": "qwen/qwen2.5-vl-72b-instruct",
		"choices": []map[string]any{{
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     100,
			"completion_tokens": 20,
			"total_tokens":      120,
			"cost":              0.0021,
		},
	}
}

func newTestOpenRouter(url string) *OpenRouterClient {
	return NewOpenRouterClient(OpenRouterConfig{
		APIKey:     "test-key",
		BaseURL:    url,
		RPS:        1000,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
}

func TestOpenRouterClient_Chat(t *testing.T) {
	t.Run("vision request with structured output", func(t *testing.T) {
		var got openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			if r.Header.Get("X-Title") != "form32" {
				t.Errorf("X-Title = %q", r.Header.Get("X-Title"))
			}
			json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(completionBody(`{"Employee Name":"JANE DOE","Box A":"Checked"}`))
		}))
		defer server.Close()

		png := []byte("\x89PNG\r\n\x1a\n0000")
		res, err := newTestOpenRouter(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "extract"},
				{Role: "user", Content: "page 1", Images: [][]byte{png}},
			},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: labelSchema},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !res.Success || res.TotalTokens != 120 || res.CostUSD != 0.0021 || res.Attempts != 1 {
			t.Errorf("result = %+v", res)
		}
		if !strings.Contains(string(res.ParsedJSON), "JANE DOE") {
			t.Errorf("ParsedJSON = %s", res.ParsedJSON)
		}

		if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_schema" {
			t.Errorf("response_format = %+v", got.ResponseFormat)
		}
		if got.Usage == nil || !got.Usage.Include {
			t.Error("usage accounting not requested")
		}
		parts, ok := got.Messages[1].Content.([]any)
		if !ok || len(parts) != 2 {
			t.Fatalf("user content = %#v", got.Messages[1].Content)
		}
		img := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
		if !strings.HasPrefix(img, "data:image/png;base64,") {
			t.Errorf("image url = %.40s", img)
		}
	})

	t.Run("anthropic model gets schema in prompt", func(t *testing.T) {
		var got openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(completionBody(`{}`))
		}))
		defer server.Close()

		_, err := newTestOpenRouter(server.URL).Chat(context.Background(), &ChatRequest{
			Model:          "anthropic/claude-sonnet-4",
			Messages:       []Message{{Role: "user", Content: "x"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: labelSchema},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if got.ResponseFormat != nil {
			t.Error("response_format sent to anthropic model")
		}
		if got.Messages[0].Role != "system" || !strings.Contains(got.Messages[0].Content.(string), "Employee Name") {
			t.Errorf("first message = %+v", got.Messages[0])
		}
	})

	t.Run("retries transient errors with nonce", func(t *testing.T) {
		var calls atomic.Int32
		var last openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			json.NewDecoder(r.Body).Decode(&last)
			switch n {
			case 1:
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("upstream down"))
			case 2:
				json.NewEncoder(w).Encode(map[string]any{"id": "gen-2", "choices": []any{}})
			default:
				json.NewEncoder(w).Encode(completionBody("ok"))
			}
		}))
		defer server.Close()

		res, err := newTestOpenRouter(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "hello"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if res.Content != "ok" || res.Attempts != 3 {
			t.Errorf("content = %q attempts = %d", res.Content, res.Attempts)
		}
		if s, _ := last.Messages[0].Content.(string); !strings.Contains(s, "retry_2_id") {
			t.Errorf("nonce not injected: %q", s)
		}
	})

	t.Run("client error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad model"}})
		}))
		defer server.Close()

		res, err := newTestOpenRouter(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if err == nil || !strings.Contains(err.Error(), "bad model") {
			t.Fatalf("error = %v", err)
		}
		if calls.Load() != 1 || res.Success || res.ErrorType != "http_error" {
			t.Errorf("calls = %d result = %+v", calls.Load(), res)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := newTestOpenRouter(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if err == nil || !IsRateLimited(err) {
			t.Fatalf("error = %v, want rate limited", err)
		}
		if calls.Load() != 3 {
			t.Errorf("calls = %d, want 3", calls.Load())
		}
	})
}

func TestOpenRouterClient_Config(t *testing.T) {
	c := NewOpenRouterClient(OpenRouterConfig{APIKey: "k"})
	if c.Name() != OpenRouterName {
		t.Errorf("Name() = %q", c.Name())
	}
	if c.baseURL != OpenRouterBaseURL || c.maxRetries != 3 || c.rps != 5 {
		t.Errorf("defaults: base=%s retries=%d rps=%v", c.baseURL, c.maxRetries, c.rps)
	}
	if c.Limiter() == nil {
		t.Error("nil limiter")
	}
}
