package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/form32/internal/metrics"
	"github.com/jackzampolin/form32/internal/pipeline"
	"github.com/jackzampolin/form32/internal/record"
)

// Format is a structured CLI output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, FormatJSON:
		return Format(s), nil
	case "":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format: %s (want yaml or json)", s)
}

// Encode writes data to w in the given format.
func Encode(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// Summary is the CLI view of one processed document.
type Summary struct {
	ID        string            `json:"id" yaml:"id"`
	Path      string            `json:"path" yaml:"path"`
	Success   bool              `json:"success" yaml:"success"`
	Patient   string            `json:"patient,omitempty" yaml:"patient,omitempty"`
	ExamDate  string            `json:"exam_date,omitempty" yaml:"exam_date,omitempty"`
	Sources   map[string]int    `json:"sources,omitempty" yaml:"sources,omitempty"`
	Missing   []string          `json:"missing,omitempty" yaml:"missing,omitempty"`
	Warnings  []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors    []string          `json:"errors,omitempty" yaml:"errors,omitempty"`
	Artifacts *Artifacts        `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Timings   map[string]string `json:"timings,omitempty" yaml:"timings,omitempty"`
	Usage     *UsageSummary     `json:"usage,omitempty" yaml:"usage,omitempty"`
}

// UsageSummary is the provider spend for one document.
type UsageSummary struct {
	Calls   int     `json:"calls" yaml:"calls"`
	Errors  int     `json:"errors,omitempty" yaml:"errors,omitempty"`
	Tokens  int     `json:"tokens" yaml:"tokens"`
	CostUSD float64 `json:"cost_usd" yaml:"cost_usd"`
}

// Summarize builds the CLI view of a result. art may be nil.
func Summarize(res *pipeline.Result, art *Artifacts) Summary {
	s := Summary{
		ID:        res.ID,
		Path:      res.Path,
		Success:   res.Success,
		Warnings:  res.Warnings,
		Errors:    res.Errors,
		Artifacts: art,
	}
	if res.Record != nil {
		s.Patient = res.Record.Text("patient_name")
		s.ExamDate = res.Record.Text("exam_date")
		s.Sources = sourceCounts(res.Provenance)
	}
	if res.Validation != nil {
		s.Missing = res.Validation.Missing
	}
	if len(res.Timings) > 0 {
		s.Timings = make(map[string]string, len(res.Timings))
		for _, t := range res.Timings {
			s.Timings[t.Phase] = t.Elapsed.Round(time.Millisecond).String()
		}
	}
	if len(res.Usage) > 0 {
		u := metrics.Summarize(res.Usage)
		s.Usage = &UsageSummary{Calls: u.Count, Errors: u.ErrorCount, Tokens: u.TotalTokens, CostUSD: u.TotalCostUSD}
	}
	return s
}

func sourceCounts(p record.Provenance) map[string]int {
	counts := p.Counts()
	out := make(map[string]int, len(counts))
	for src, n := range counts {
		out[string(src)] = n
	}
	return out
}

// RecordFields returns the record as ordered key/value pairs for display.
func RecordFields(rec *record.Record, withUnset bool) []FieldValue {
	var out []FieldValue
	for _, f := range record.Fields() {
		v, set := rec.Get(f.Name)
		if !set && !withUnset {
			continue
		}
		out = append(out, FieldValue{Field: f.Name, Value: v})
	}
	return out
}

// FieldValue is one field of a displayed record.
type FieldValue struct {
	Field string `json:"field" yaml:"field"`
	Value any    `json:"value" yaml:"value"`
}
