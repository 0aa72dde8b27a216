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

func openAICompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 50, "completion_tokens": 10, "total_tokens": 60},
	}
}

func TestOpenAIClient_Chat(t *testing.T) {
	t.Run("structured vision request", func(t *testing.T) {
		var body map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openAICompletion(`{"Employee Name":"JANE DOE","Box A":null}`))
		}))
		defer server.Close()

		c := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1/", RPS: 1000})
		res, err := c.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "extract"},
				{Role: "user", Content: "page 2", Images: [][]byte{[]byte("\x89PNG\r\n\x1a\nxx")}},
			},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: labelSchema},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !res.Success || res.TotalTokens != 60 || res.ModelUsed != "gpt-4o" {
			t.Errorf("result = %+v", res)
		}
		if !strings.Contains(string(res.ParsedJSON), "JANE DOE") {
			t.Errorf("ParsedJSON = %s", res.ParsedJSON)
		}

		rf, _ := body["response_format"].(map[string]any)
		if rf["type"] != "json_schema" {
			t.Errorf("response_format = %v", body["response_format"])
		}
		msgs, _ := body["messages"].([]any)
		if len(msgs) != 2 {
			t.Fatalf("messages = %v", body["messages"])
		}
		raw, _ := json.Marshal(msgs[1])
		if !strings.Contains(string(raw), "data:image/png;base64,") {
			t.Errorf("user message = %s", raw)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openAICompletion("fine"))
		}))
		defer server.Close()

		c := NewOpenAIClient(OpenAIConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL + "/v1/",
			RPS:        1000,
			RetryDelay: time.Millisecond,
		})
		res, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if res.Content != "fine" || res.Attempts != 2 {
			t.Errorf("content = %q attempts = %d", res.Content, res.Attempts)
		}
	})

	t.Run("bad request not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"invalid schema","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		c := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1/", RPS: 1000, RetryDelay: time.Millisecond})
		res, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		if err == nil || res.Success {
			t.Fatalf("expected failure, got %+v", res)
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
	})
}
