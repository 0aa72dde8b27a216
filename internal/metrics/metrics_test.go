package metrics

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/form32/internal/providers"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFromChat(t *testing.T) {
	t.Run("result", func(t *testing.T) {
		m := FromChat(StageExtraction, "pages_2-4", &providers.ChatResult{
			Provider:         "openrouter",
			ModelUsed:        "vision-1",
			PromptTokens:     100,
			CompletionTokens: 20,
			TotalTokens:      120,
			CostUSD:          0.01,
			ExecutionTime:    1500 * time.Millisecond,
			Attempts:         2,
			Success:          true,
		})
		if m.Provider != "openrouter" || m.Model != "vision-1" || m.TotalTokens != 120 || !m.Success {
			t.Errorf("unexpected metric: %+v", m)
		}
		if !approx(m.ExecutionSeconds, 1.5) {
			t.Errorf("ExecutionSeconds = %v, want 1.5", m.ExecutionSeconds)
		}
		if m.Stage != StageExtraction || m.ItemKey != "pages_2-4" {
			t.Errorf("attribution = %q/%q", m.Stage, m.ItemKey)
		}
	})

	t.Run("nil result", func(t *testing.T) {
		m := FromChat(StageExtraction, "pages_1-1", nil)
		if m.Success || m.ErrorType != "no_result" {
			t.Errorf("unexpected metric: %+v", m)
		}
	})
}

func TestFromOCR(t *testing.T) {
	m := FromOCR("mistral", "page_0003", &providers.OCRResult{
		Success:    true,
		CostUSD:    0.002,
		RetryCount: 1,
		Metadata:   map[string]any{"model": "ocr-latest"},
	}, nil)
	if !m.Success || m.Model != "ocr-latest" || m.Attempts != 2 || m.Stage != StageOCR {
		t.Errorf("unexpected metric: %+v", m)
	}

	failed := FromOCR("mistral", "page_0004", nil, errors.New("timeout"))
	if failed.Success || failed.ErrorType != "ocr_error" {
		t.Errorf("unexpected failed metric: %+v", failed)
	}
}

func TestRecordAttribution(t *testing.T) {
	ctx := context.Background()

	// No recorder: nothing happens.
	Record(ctx, Metric{Stage: StageOCR})

	c := NewCollector()
	ctx = WithRecorder(ctx, c)
	ctx = WithAttribution(ctx, Attribution{RunID: "run-1", Source: "/in/a.pdf"})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Record(ctx, Metric{Stage: StageOCR})
		}()
	}
	wg.Wait()
	Record(ctx, Metric{Stage: StageExtraction, RunID: "explicit"})

	got := c.Metrics()
	if len(got) != 11 {
		t.Fatalf("recorded %d metrics, want 11", len(got))
	}
	for _, m := range got[:10] {
		if m.RunID != "run-1" || m.Source != "/in/a.pdf" {
			t.Errorf("attribution not applied: %+v", m)
		}
	}
	if got[10].RunID != "explicit" {
		t.Errorf("explicit RunID overwritten: %q", got[10].RunID)
	}
}

func TestSummarize(t *testing.T) {
	ms := []Metric{
		{Stage: StageOCR, Provider: "mistral", CostUSD: 0.01, ExecutionSeconds: 1, Success: true},
		{Stage: StageExtraction, Provider: "openrouter", CostUSD: 0.03, TotalTokens: 300, PromptTokens: 250, CompletionTokens: 50, ExecutionSeconds: 3, Success: true},
		{Stage: StageExtraction, Provider: "openrouter", CostUSD: 0.02, TotalTokens: 100, ExecutionSeconds: 2, ErrorType: "schema_validation"},
	}

	s := Summarize(ms)
	if s.Count != 3 || s.SuccessCount != 2 || s.ErrorCount != 1 {
		t.Errorf("counts = %d/%d/%d", s.Count, s.SuccessCount, s.ErrorCount)
	}
	if !approx(s.TotalCostUSD, 0.06) || !approx(s.AvgCostUSD, 0.02) {
		t.Errorf("cost = %v avg %v", s.TotalCostUSD, s.AvgCostUSD)
	}
	if s.TotalTokens != 400 || s.TotalPromptTokens != 250 || s.TotalCompletionTokens != 50 {
		t.Errorf("tokens = %+v", s)
	}
	if !approx(s.LatencyAvg, 2) || !approx(s.LatencyP50, 2) || !approx(s.LatencyMax, 3) {
		t.Errorf("latency avg=%v p50=%v max=%v", s.LatencyAvg, s.LatencyP50, s.LatencyMax)
	}
	if !approx(s.LatencyP95, 2.9) {
		t.Errorf("p95 = %v, want 2.9", s.LatencyP95)
	}

	if empty := Summarize(nil); empty.Count != 0 || empty.AvgCostUSD != 0 {
		t.Errorf("empty summary = %+v", empty)
	}

	byStage := GroupBy(ms, ByStage)
	if byStage[StageExtraction].Count != 2 || byStage[StageOCR].Count != 1 {
		t.Errorf("by stage = %+v", byStage)
	}
	byProvider := GroupBy(append(ms, Metric{}), ByProvider)
	if byProvider["unknown"].Count != 1 || !approx(byProvider["openrouter"].TotalCostUSD, 0.05) {
		t.Errorf("by provider = %+v", byProvider)
	}
}

func TestFilter(t *testing.T) {
	now := time.Now()
	ok := true
	m := Metric{RunID: "r1", Stage: StageOCR, Provider: "mistral", Success: true, CreatedAt: now}

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"zero", Filter{}, true},
		{"run", Filter{RunID: "r1"}, true},
		{"other run", Filter{RunID: "r2"}, false},
		{"stage", Filter{Stage: StageExtraction}, false},
		{"provider", Filter{Provider: "mistral"}, true},
		{"after", Filter{After: now.Add(-time.Minute)}, true},
		{"too old", Filter{After: now.Add(time.Minute)}, false},
		{"before", Filter{Before: now}, false},
		{"success", Filter{Success: &ok}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Match(m); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}
