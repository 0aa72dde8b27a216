package pipeline

import (
	"time"

	"github.com/jackzampolin/form32/internal/document"
	"github.com/jackzampolin/form32/internal/metrics"
	"github.com/jackzampolin/form32/internal/record"
	"github.com/jackzampolin/form32/internal/reconcile"
	"github.com/jackzampolin/form32/internal/templates"
	"github.com/jackzampolin/form32/internal/validate"
)

// Phase names used for timings and budgets.
const (
	PhaseConvert    = "convert"
	PhaseClassify   = "classify"
	PhaseExtraction = "extraction"
	PhaseFallback   = "fallback"
	PhaseCheckbox   = "checkbox"
	PhaseTotal      = "total"
)

// Timing is the wall-clock duration of one phase.
type Timing struct {
	Phase    string        `json:"phase" yaml:"phase"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`
	Budget   time.Duration `json:"budget,omitempty" yaml:"budget,omitempty"`
	Exceeded bool          `json:"exceeded,omitempty" yaml:"exceeded,omitempty"`
}

// Result is the outcome of processing one document. A successful result
// carries the record; a failed one carries only Errors.
type Result struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Success bool   `json:"success"`

	Record     *record.Record            `json:"record,omitempty"`
	Provenance record.Provenance         `json:"provenance,omitempty"`
	PageTypes  map[int]templates.PageType `json:"page_types,omitempty"`
	Validation *validate.Report          `json:"validation,omitempty"`
	Trace      *reconcile.Trace          `json:"trace,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Timings  []Timing `json:"timings,omitempty"`

	// Usage lists the LLM and OCR calls made for this document.
	Usage []metrics.Metric `json:"usage,omitempty"`

	// Conversion is kept for artifact writers; it is not serialized.
	Conversion *document.Conversion `json:"-"`
}

// Timing returns the recorded duration of a phase.
func (r *Result) Timing(phase string) (Timing, bool) {
	for _, t := range r.Timings {
		if t.Phase == phase {
			return t, true
		}
	}
	return Timing{}, false
}

func failure(id, path string, errs ...string) *Result {
	return &Result{ID: id, Path: path, Errors: errs}
}
