package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownField is returned when a name is not in the field registry.
var ErrUnknownField = errors.New("unknown record field")

// ErrKindMismatch is returned when a value cannot be stored in a field of
// the requested kind.
var ErrKindMismatch = errors.New("value does not match field kind")

// InjuryEvaluation is one row of the body area and diagnosis section.
type InjuryEvaluation struct {
	ConditionText       string    `json:"condition_text" yaml:"condition_text"`
	IsSubstantialFactor *bool     `json:"is_substantial_factor" yaml:"is_substantial_factor"`
	DiagnosisCodes      [4]string `json:"diagnosis_codes" yaml:"diagnosis_codes"`
}

// Record is the canonical structured record for one DWC-032 document.
// Text and flag values are kept in separate maps; a name that is absent
// from its map is unset.
type Record struct {
	text              map[string]string
	flags             map[string]bool
	InjuryEvaluations []InjuryEvaluation
}

// New returns an empty record.
func New() *Record {
	return &Record{
		text:  make(map[string]string),
		flags: make(map[string]bool),
	}
}

// Get returns the current value of a field and whether it has been set.
// Text fields yield a string, flag fields a bool.
func (r *Record) Get(name string) (any, bool) {
	f, ok := Lookup(name)
	if !ok {
		return nil, false
	}
	switch f.Kind {
	case KindText:
		v, ok := r.text[name]
		return v, ok
	case KindFlag:
		v, ok := r.flags[name]
		return v, ok
	case KindList:
		return r.InjuryEvaluations, len(r.InjuryEvaluations) > 0
	}
	return nil, false
}

// Text returns a text field value, or "" when unset.
func (r *Record) Text(name string) string {
	return r.text[name]
}

// Flag returns a flag value and whether it has been set.
func (r *Record) Flag(name string) (bool, bool) {
	v, ok := r.flags[name]
	return v, ok
}

// Set stores v in the named field. Text fields accept strings and other
// scalars (formatted); flag fields accept bools.
func (r *Record) Set(name string, v any) error {
	f, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	switch f.Kind {
	case KindText:
		s, err := toText(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrKindMismatch, name, err)
		}
		r.text[name] = s
	case KindFlag:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %s wants bool, got %T", ErrKindMismatch, name, v)
		}
		r.flags[name] = b
	case KindList:
		evals, ok := v.([]InjuryEvaluation)
		if !ok {
			return fmt.Errorf("%w: %s wants []InjuryEvaluation, got %T", ErrKindMismatch, name, v)
		}
		r.InjuryEvaluations = evals
	}
	return nil
}

// IsMissing reports whether the named field is unset or holds a missing
// sentinel value.
func (r *Record) IsMissing(name string) bool {
	f, ok := Lookup(name)
	if !ok {
		return true
	}
	v, set := r.Get(name)
	if !set {
		return true
	}
	return IsMissingValue(f, v)
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			s, err := toText(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), nil
	case []string:
		return strings.Join(x, ", "), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

// Map returns the record as a flat map keyed by canonical field name.
// Unset text fields are "" and unset flags are false.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(registry))
	for _, f := range registry {
		out[f.Name] = r.value(f)
	}
	return out
}

func (r *Record) value(f Field) any {
	switch f.Kind {
	case KindText:
		return r.text[f.Name]
	case KindFlag:
		return r.flags[f.Name]
	default:
		evals := r.InjuryEvaluations
		if evals == nil {
			evals = []InjuryEvaluation{}
		}
		return evals
	}
}

// MarshalJSON writes a flat object with every registered field in
// registry order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range registry {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.Name)
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.value(f))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON loads a flat object produced by MarshalJSON. Unknown keys
// are ignored. Empty text values and false flags are loaded as set.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if r.text == nil {
		r.text = make(map[string]string)
	}
	if r.flags == nil {
		r.flags = make(map[string]bool)
	}
	for name, msg := range raw {
		f, ok := Lookup(name)
		if !ok {
			continue
		}
		switch f.Kind {
		case KindText:
			var s *string
			if err := json.Unmarshal(msg, &s); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			if s != nil {
				r.text[name] = *s
			}
		case KindFlag:
			var b *bool
			if err := json.Unmarshal(msg, &b); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			if b != nil {
				r.flags[name] = *b
			}
		case KindList:
			if err := json.Unmarshal(msg, &r.InjuryEvaluations); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
		}
	}
	return nil
}
