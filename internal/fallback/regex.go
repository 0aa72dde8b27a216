// Package fallback recovers record fields from the full document text with
// ordered regex patterns and parses the exam location block.
package fallback

import (
	"fmt"
	"iter"
	"regexp"

	"github.com/jackzampolin/form32/internal/record"
)

// Match is one pattern hit for a field. Value is the cleaned capture and may
// be empty when cleaning left nothing.
type Match struct {
	Field   string
	Pattern string
	Value   string
}

type compiledField struct {
	field    record.Field
	patterns []*regexp.Regexp
}

// Extractor applies per-field pattern lists to document text.
type Extractor struct {
	fields []compiledField
}

// NewExtractor compiles the pattern table. Every field must be a text field
// in the record registry and every pattern needs a capture group.
func NewExtractor(table []FieldPatterns) (*Extractor, error) {
	e := &Extractor{fields: make([]compiledField, 0, len(table))}
	for _, fp := range table {
		f, ok := record.Lookup(fp.Field)
		if !ok {
			return nil, fmt.Errorf("pattern table: %w: %s", record.ErrUnknownField, fp.Field)
		}
		if f.Kind != record.KindText {
			return nil, fmt.Errorf("pattern table: field %s is not a text field", fp.Field)
		}
		cf := compiledField{field: f}
		for i, p := range fp.Patterns {
			re, err := regexp.Compile("(?im)" + p)
			if err != nil {
				return nil, fmt.Errorf("pattern %d for %s: %w", i, fp.Field, err)
			}
			if re.NumSubexp() < 1 {
				return nil, fmt.Errorf("pattern %d for %s has no capture group", i, fp.Field)
			}
			cf.patterns = append(cf.patterns, re)
		}
		e.fields = append(e.fields, cf)
	}
	return e, nil
}

// MustDefault returns an extractor over DefaultPatterns.
func MustDefault() *Extractor {
	e, err := NewExtractor(DefaultPatterns())
	if err != nil {
		panic(err)
	}
	return e
}

// Fields returns the fields with patterns, in evaluation order.
func (e *Extractor) Fields() []string {
	out := make([]string, len(e.fields))
	for i, cf := range e.fields {
		out[i] = cf.field.Name
	}
	return out
}

// Matches yields the cleaned hits for field in pattern order. Patterns that
// do not match are skipped; iteration stops when the caller returns false.
func (e *Extractor) Matches(field, text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for _, cf := range e.fields {
			if cf.field.Name != field {
				continue
			}
			for _, re := range cf.patterns {
				m := re.FindStringSubmatch(text)
				if m == nil {
					continue
				}
				if !yield(Match{Field: field, Pattern: re.String(), Value: Clean(cf.field, m[1])}) {
					return
				}
			}
			return
		}
	}
}

// First returns the first hit for field whose cleaned value is non-empty.
func (e *Extractor) First(field, text string) (Match, bool) {
	for m := range e.Matches(field, text) {
		if m.Value != "" {
			return m, true
		}
	}
	return Match{}, false
}
