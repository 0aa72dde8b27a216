package reconcile

import (
	"github.com/jackzampolin/form32/internal/checkbox"
	"github.com/jackzampolin/form32/internal/extract"
	"github.com/jackzampolin/form32/internal/fallback"
	"github.com/jackzampolin/form32/internal/record"
	"github.com/jackzampolin/form32/internal/validate"
)

// ApplyModel writes mapped model values. Each assignment overwrites the
// field and marks it model-owned, so later assignments to the same field
// win.
func (s *Session) ApplyModel(res *extract.Result, assignments []extract.Assignment) {
	if res != nil {
		s.Trace.ModelRaw = res.Values
		s.Trace.ModelPages = res.Pages
	}
	for _, a := range assignments {
		if err := s.assign(a.Field, a.Value, record.SourceModel); err != nil {
			s.logger.Warn("model value rejected", "label", a.Label, "field", a.Field, "error", err)
			continue
		}
		s.owned[a.Field] = true
		s.Trace.ModelMapped = append(s.Trace.ModelMapped, a)
	}
	s.logger.Debug("model values applied", "fields", len(s.owned))
}

// ApplyRegex runs the regex fallback over the full text for every field
// that is neither model-owned nor already set.
func (s *Session) ApplyRegex(e *fallback.Extractor) {
	for _, field := range e.Fields() {
		if s.owned[field] {
			s.Trace.RegexFallback = append(s.Trace.RegexFallback,
				Attempt{Field: field, Status: StatusSkipped, Reason: ReasonModelOwned})
			continue
		}
		if !s.Record.IsMissing(field) {
			s.Trace.RegexFallback = append(s.Trace.RegexFallback,
				Attempt{Field: field, Status: StatusSkipped, Reason: ReasonAlreadySet})
			continue
		}
		for m := range e.Matches(field, s.FullText) {
			if m.Value == "" {
				s.Trace.RegexFallback = append(s.Trace.RegexFallback,
					Attempt{Field: field, Pattern: m.Pattern, Status: StatusSkipped, Reason: ReasonEmptyValue})
				continue
			}
			ok, reason := s.fill(field, m.Value, record.SourceRegexFallback)
			att := Attempt{Field: field, Pattern: m.Pattern, Value: m.Value, Status: StatusApplied}
			if !ok {
				att.Status, att.Reason = StatusSkipped, reason
			}
			s.Trace.RegexFallback = append(s.Trace.RegexFallback, att)
			if ok {
				s.logger.Debug("regex fallback applied", "field", field, "value", m.Value)
				break
			}
		}
	}
}

// ApplyLocation parses the exam location block. It does nothing when the
// model owns all three location fields.
func (s *Session) ApplyLocation() {
	allOwned := true
	for _, f := range fallback.LocationFields {
		if !s.owned[f] {
			allOwned = false
			break
		}
	}
	if allOwned {
		s.Trace.LocationFallback = append(s.Trace.LocationFallback,
			Attempt{Status: StatusSkipped, Reason: ReasonModelOwned})
		return
	}

	loc, found := fallback.ParseLocation(s.FullText)
	if !found {
		return
	}
	values := loc.Values()
	for _, f := range fallback.LocationFields {
		v, ok := values[f]
		if !ok {
			continue
		}
		applied, reason := s.fill(f, v, record.SourceLocationFallback)
		att := Attempt{Field: f, Value: v, Status: StatusApplied}
		if !applied {
			att.Status, att.Reason = StatusSkipped, reason
		}
		s.Trace.LocationFallback = append(s.Trace.LocationFallback, att)
	}
}

// ApplyCheckboxes writes pixel readings. Fields the model owns are left
// alone, except that in assist mode a purpose flag the model left false is
// raised to true when the box is filled. Every other reading overwrites the
// field, false included.
func (s *Session) ApplyCheckboxes(res *checkbox.Result) {
	if res == nil {
		return
	}
	s.Trace.CheckboxReadings = res.Readings
	s.AddWarning(res.Warnings...)

	for _, rd := range res.Readings {
		if rd.Field == "" {
			continue
		}
		if s.owned[rd.Field] {
			if s.overridable(rd.Field) && rd.Filled {
				if cur, _ := s.Record.Flag(rd.Field); !cur {
					if err := s.assign(rd.Field, true, record.SourceCheckboxOverride); err == nil {
						s.Trace.Checkbox = append(s.Trace.Checkbox,
							Attempt{Field: rd.Field, Value: true, Status: StatusApplied, Reason: ReasonAssistOverride})
						s.logger.Debug("checkbox override applied", "field", rd.Field, "ratio", rd.Ratio)
						continue
					}
				}
			}
			s.Trace.Checkbox = append(s.Trace.Checkbox,
				Attempt{Field: rd.Field, Value: rd.Filled, Status: StatusSkipped, Reason: ReasonModelOwned})
			continue
		}
		att := Attempt{Field: rd.Field, Value: rd.Filled, Status: StatusApplied}
		if err := s.assign(rd.Field, rd.Filled, record.SourceCheckboxFallback); err != nil {
			att.Status, att.Reason = StatusSkipped, ReasonSetFailed
		}
		s.Trace.Checkbox = append(s.Trace.Checkbox, att)
	}
}

// overridable reports whether the assist override may raise field. An
// explicit false from the model counts the same as no answer.
func (s *Session) overridable(field string) bool {
	if !s.assist {
		return false
	}
	f, ok := record.Lookup(field)
	return ok && f.IsPurposeFlag()
}

// Default is a configured value for a field the document did not supply.
type Default struct {
	Field string
	Value string
}

// ApplyDefaults fills still-missing fields from the configured defaults.
func (s *Session) ApplyDefaults(defaults []Default) {
	for _, d := range defaults {
		if d.Value == "" {
			continue
		}
		if !s.Record.IsMissing(d.Field) {
			s.Trace.Defaults = append(s.Trace.Defaults,
				Attempt{Field: d.Field, Value: d.Value, Status: StatusSkipped, Reason: ReasonAlreadySet})
			continue
		}
		att := Attempt{Field: d.Field, Value: d.Value, Status: StatusApplied}
		if err := s.assign(d.Field, d.Value, record.SourceDefault); err != nil {
			s.logger.Warn("default value rejected", "field", d.Field, "error", err)
			att.Status, att.Reason = StatusSkipped, ReasonSetFailed
		}
		s.Trace.Defaults = append(s.Trace.Defaults, att)
	}
}

// Validate checks the required fields and records a warning when any are
// missing. It never fails the run.
func (s *Session) Validate(required []string) validate.Report {
	rep := validate.Record(s.Record, required)
	if !rep.OK() {
		s.logger.Warn("patient record is incomplete", "missing", rep.Missing)
		s.AddWarning(rep.Warning())
	}
	return rep
}

// Examiner contact facts used when neither the document nor the config
// supplies them.
const (
	DefaultExaminerPhone = "512-903-5083"
	DefaultLicenseType   = "D.C."
	DefaultJurisdiction  = "TX"
)

// ExaminerDefaults returns the designated doctor contact defaults in the
// order they are applied.
func ExaminerDefaults(phone, licenseType, jurisdiction string) []Default {
	return []Default{
		{Field: "doctor_phone", Value: phone},
		{Field: "doctor_license_type", Value: licenseType},
		{Field: "doctor_license_jurisdiction", Value: jurisdiction},
	}
}
