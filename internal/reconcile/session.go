// Package reconcile combines model, regex, location and checkbox results
// into one record under a fixed precedence policy.
//
// Precedence, highest first:
//   - a model-extracted value (the field becomes model-owned)
//   - the checkbox assist override for purpose flags
//   - the first fallback result for a field that is still missing
//
// All per-document state lives in a Session, created once per run.
package reconcile

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jackzampolin/form32/internal/document"
	"github.com/jackzampolin/form32/internal/record"
	"github.com/jackzampolin/form32/internal/templates"
)

// Options configures a Session.
type Options struct {
	// ID names the run; a random UUID is used when empty.
	ID string
	// Assist enables the checkbox override for purpose flags.
	Assist bool
	Logger *slog.Logger
}

// Session is the mutable state of one document run. It is not safe for
// concurrent use; each document gets its own.
type Session struct {
	ID        string
	Path      string
	FullText  string
	Pages     []string
	PageTypes map[int]templates.PageType

	Record     *record.Record
	Provenance record.Provenance
	Trace      *Trace
	Warnings   []string

	owned  map[string]bool
	assist bool
	logger *slog.Logger
}

// NewSession starts a run for the converted document.
func NewSession(path string, conv *document.Conversion, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	s := &Session{
		ID:         id,
		Path:       path,
		PageTypes:  map[int]templates.PageType{},
		Record:     record.New(),
		Provenance: record.Provenance{},
		Trace:      newTrace(),
		owned:      make(map[string]bool),
		assist:     opts.Assist,
		logger:     logger.With("run_id", id),
	}
	if conv != nil {
		s.FullText = conv.FullText
		s.Pages = conv.Pages
	}
	return s
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Assist reports whether checkbox assist mode is on for this run.
func (s *Session) Assist() bool { return s.assist }

// IsOwned reports whether the model assigned the field.
func (s *Session) IsOwned(field string) bool { return s.owned[field] }

// Owned returns the model-owned field names.
func (s *Session) Owned() []string {
	out := make([]string, 0, len(s.owned))
	for _, f := range record.Fields() {
		if s.owned[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}

// AddWarning records non-fatal problems.
func (s *Session) AddWarning(msgs ...string) {
	s.Warnings = append(s.Warnings, msgs...)
}

// Warnf records a formatted non-fatal problem.
func (s *Session) Warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// assign writes a value unconditionally and records its source.
func (s *Session) assign(field string, v any, src record.Source) error {
	if err := s.Record.Set(field, v); err != nil {
		return err
	}
	s.Provenance[field] = src
	return nil
}

// fill writes a value only when the field is neither model-owned nor
// already holding a real value. The returned reason explains a skip.
func (s *Session) fill(field string, v any, src record.Source) (bool, string) {
	if s.owned[field] {
		return false, ReasonModelOwned
	}
	if !s.Record.IsMissing(field) {
		return false, ReasonAlreadySet
	}
	if err := s.assign(field, v, src); err != nil {
		s.logger.Warn("fallback value rejected", "field", field, "source", src, "error", err)
		return false, ReasonSetFailed
	}
	return true, ""
}

// Finalize stamps the final source of every field into the trace and
// returns the record.
func (s *Session) Finalize() *record.Record {
	s.Trace.FinalSources = s.Provenance.Complete()
	s.Trace.SourceCounts = s.Provenance.Counts()
	return s.Record
}

// Summary returns a short description of where values came from, for logs.
func (s *Session) Summary() string {
	counts := s.Provenance.Counts()
	parts := make([]string, 0, len(counts))
	for _, src := range []record.Source{
		record.SourceModel, record.SourceRegexFallback, record.SourceLocationFallback,
		record.SourceCheckboxFallback, record.SourceCheckboxOverride, record.SourceDefault,
	} {
		if n := counts[src]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", src, n))
		}
	}
	return strings.Join(parts, " ")
}
