package reconcile

import (
	"github.com/jackzampolin/form32/internal/checkbox"
	"github.com/jackzampolin/form32/internal/extract"
	"github.com/jackzampolin/form32/internal/record"
)

// Attempt statuses.
const (
	StatusApplied = "applied"
	StatusSkipped = "skipped"
)

// Skip reasons.
const (
	ReasonModelOwned     = "model_owned"
	ReasonAlreadySet     = "already_set"
	ReasonEmptyValue     = "empty_value"
	ReasonAssistOverride = "assist_override"
	ReasonSetFailed      = "set_failed"
)

// Attempt records one try at writing a field during a fallback stage.
type Attempt struct {
	Field   string `json:"field,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Value   any    `json:"value,omitempty"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// Trace is the per-document audit of every extraction stage.
type Trace struct {
	ModelRaw         map[string]any           `json:"vlm_raw"`
	ModelPages       []extract.PageResult     `json:"vlm_pages,omitempty"`
	ModelMapped      []extract.Assignment     `json:"vlm_mapped"`
	RegexFallback    []Attempt                `json:"regex_fallback"`
	LocationFallback []Attempt                `json:"location_fallback"`
	Checkbox         []Attempt                `json:"checkbox_fallback"`
	CheckboxReadings []checkbox.Reading       `json:"checkbox_readings,omitempty"`
	Defaults         []Attempt                `json:"defaults"`
	FinalSources     map[string]record.Source `json:"final_sources"`
	SourceCounts     map[record.Source]int    `json:"source_counts,omitempty"`
}

func newTrace() *Trace {
	return &Trace{
		ModelRaw:         map[string]any{},
		ModelMapped:      []extract.Assignment{},
		RegexFallback:    []Attempt{},
		LocationFallback: []Attempt{},
		Checkbox:         []Attempt{},
		Defaults:         []Attempt{},
	}
}
