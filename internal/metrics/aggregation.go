package metrics

import (
	"sort"
	"time"
)

// Filter selects metrics. Zero fields match anything.
type Filter struct {
	RunID    string
	Stage    string
	Provider string
	After    time.Time
	Before   time.Time
	Success  *bool // nil = any, true = success only, false = errors only
}

// Match reports whether m passes the filter.
func (f Filter) Match(m Metric) bool {
	switch {
	case f.RunID != "" && m.RunID != f.RunID:
		return false
	case f.Stage != "" && m.Stage != f.Stage:
		return false
	case f.Provider != "" && m.Provider != f.Provider:
		return false
	case !f.After.IsZero() && m.CreatedAt.Before(f.After):
		return false
	case !f.Before.IsZero() && !m.CreatedAt.Before(f.Before):
		return false
	case f.Success != nil && m.Success != *f.Success:
		return false
	}
	return true
}

// Summary aggregates a set of metrics.
type Summary struct {
	Count        int     `json:"count" yaml:"count"`
	SuccessCount int     `json:"success_count" yaml:"success_count"`
	ErrorCount   int     `json:"error_count" yaml:"error_count"`
	TotalCostUSD float64 `json:"total_cost_usd" yaml:"total_cost_usd"`
	AvgCostUSD   float64 `json:"avg_cost_usd" yaml:"avg_cost_usd"`

	TotalPromptTokens     int `json:"total_prompt_tokens" yaml:"total_prompt_tokens"`
	TotalCompletionTokens int `json:"total_completion_tokens" yaml:"total_completion_tokens"`
	TotalTokens           int `json:"total_tokens" yaml:"total_tokens"`

	// Latency in seconds.
	LatencyAvg float64 `json:"latency_avg" yaml:"latency_avg"`
	LatencyP50 float64 `json:"latency_p50" yaml:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95" yaml:"latency_p95"`
	LatencyMax float64 `json:"latency_max" yaml:"latency_max"`
}

// Summarize aggregates metrics.
func Summarize(metrics []Metric) Summary {
	s := Summary{Count: len(metrics)}
	if len(metrics) == 0 {
		return s
	}

	var latencies []float64
	for _, m := range metrics {
		s.TotalCostUSD += m.CostUSD
		if m.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
		s.TotalPromptTokens += m.PromptTokens
		s.TotalCompletionTokens += m.CompletionTokens
		s.TotalTokens += m.TotalTokens
		if m.ExecutionSeconds > 0 {
			latencies = append(latencies, m.ExecutionSeconds)
		}
	}
	s.AvgCostUSD = s.TotalCostUSD / float64(s.Count)

	if len(latencies) > 0 {
		sort.Float64s(latencies)
		var sum float64
		for _, l := range latencies {
			sum += l
		}
		s.LatencyAvg = sum / float64(len(latencies))
		s.LatencyP50 = percentile(latencies, 50)
		s.LatencyP95 = percentile(latencies, 95)
		s.LatencyMax = latencies[len(latencies)-1]
	}
	return s
}

// GroupBy summarizes metrics per key, e.g. per stage or per provider.
func GroupBy(metrics []Metric, key func(Metric) string) map[string]Summary {
	groups := make(map[string][]Metric)
	for _, m := range metrics {
		k := key(m)
		groups[k] = append(groups[k], m)
	}
	out := make(map[string]Summary, len(groups))
	for k, ms := range groups {
		out[k] = Summarize(ms)
	}
	return out
}

// ByStage is a GroupBy key.
func ByStage(m Metric) string { return m.Stage }

// ByProvider is a GroupBy key; calls with no provider group as "unknown".
func ByProvider(m Metric) string {
	if m.Provider == "" {
		return "unknown"
	}
	return m.Provider
}

// ByRun groups by run ID.
func ByRun(m Metric) string { return m.RunID }

// percentile interpolates the p-th percentile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := (p / 100.0) * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
