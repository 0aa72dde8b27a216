package extract

import (
	"log/slog"
	"sort"

	"github.com/jackzampolin/form32/internal/record"
	"github.com/jackzampolin/form32/internal/templates"
)

// Assignment is one model value destined for a canonical record field.
// Flag values are already normalized to bool.
type Assignment struct {
	Label string `json:"label"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Mapper translates template labels into canonical record fields.
type Mapper struct {
	registry *templates.Registry
	logger   *slog.Logger
}

// NewMapper creates a mapper over the given template registry.
func NewMapper(reg *templates.Registry, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{registry: reg, logger: logger}
}

// Map converts merged label values into assignments. Labels are visited in
// order; labels missing from order are appended sorted. Empty values, labels
// with no mapping, and mappings to unknown fields are dropped.
func (m *Mapper) Map(values map[string]any, order []string) []Assignment {
	var out []Assignment
	for _, label := range visitOrder(values, order) {
		raw := values[label]
		if record.IsEmptyRaw(raw) {
			continue
		}
		attr, ok := m.registry.Attribute(label)
		if !ok {
			m.logger.Debug("no field mapping for label", "label", label)
			continue
		}
		field, ok := record.Lookup(attr)
		if !ok {
			m.logger.Warn("label maps to unknown field", "label", label, "field", attr)
			continue
		}
		v := raw
		if field.IsFlag() {
			v = Truthy(raw)
		}
		out = append(out, Assignment{Label: label, Field: attr, Value: v})
	}
	return out
}

func visitOrder(values map[string]any, order []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, label := range order {
		if _, ok := values[label]; ok && !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	var rest []string
	for label := range values {
		if !seen[label] {
			rest = append(rest, label)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
