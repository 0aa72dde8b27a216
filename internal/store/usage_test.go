package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackzampolin/form32/internal/metrics"
)

func TestUsage(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	if err := s.SaveUsage(ctx, nil); err != nil {
		t.Fatalf("SaveUsage(nil) error = %v", err)
	}

	in := []metrics.Metric{
		{RunID: "run-aaaa", Source: "/in/a.pdf", Stage: metrics.StageOCR, ItemKey: "page_0001", Provider: "mistral", CostUSD: 0.001, ExecutionSeconds: 0.5, Success: true, CreatedAt: base},
		{RunID: "run-aaaa", Source: "/in/a.pdf", Stage: metrics.StageExtraction, Provider: "openrouter", Model: "vision-1", CostUSD: 0.02, TotalTokens: 900, Attempts: 2, Success: false, ErrorType: "schema_validation", CreatedAt: base.Add(time.Second)},
		{RunID: "run-bbbb", Source: "/in/b.pdf", Stage: metrics.StageExtraction, Provider: "openrouter", CostUSD: 0.03, TotalTokens: 1200, Success: true, CreatedAt: base.Add(time.Hour)},
	}
	if err := s.SaveUsage(ctx, in); err != nil {
		t.Fatalf("SaveUsage() error = %v", err)
	}

	all, err := s.ListUsage(ctx, metrics.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d metrics, want 3", len(all))
	}
	got := all[1]
	if got.Model != "vision-1" || got.TotalTokens != 900 || got.Attempts != 2 || got.Success || got.ErrorType != "schema_validation" {
		t.Errorf("round trip lost data: %+v", got)
	}
	if !got.CreatedAt.Equal(base.Add(time.Second)) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}

	failed := false
	tests := []struct {
		name string
		f    metrics.Filter
		want int
	}{
		{"run prefix", metrics.Filter{RunID: "run-a"}, 2},
		{"stage", metrics.Filter{Stage: metrics.StageExtraction}, 2},
		{"provider", metrics.Filter{Provider: "mistral"}, 1},
		{"after", metrics.Filter{After: base.Add(time.Minute)}, 1},
		{"before", metrics.Filter{Before: base.Add(time.Second)}, 1},
		{"errors only", metrics.Filter{Success: &failed}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListUsage(ctx, tt.f)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d metrics, want %d", len(got), tt.want)
			}
		})
	}
}
