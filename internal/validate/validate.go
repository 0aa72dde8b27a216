// Package validate checks a finalized record for the fields every
// downstream form needs.
package validate

import (
	"strings"

	"github.com/jackzampolin/form32/internal/record"
)

// DefaultRequired lists the fields a record must carry to be complete.
var DefaultRequired = []string{"patient_name", "exam_date", "exam_location"}

// Report is the outcome of validating one record.
type Report struct {
	Missing []string `json:"missing,omitempty"`
}

// OK reports whether every required field is present.
func (r Report) OK() bool { return len(r.Missing) == 0 }

// Warning returns a one-line description of the missing fields, or "" when
// the record is complete.
func (r Report) Warning() string {
	if r.OK() {
		return ""
	}
	return "Patient record is incomplete: missing " + strings.Join(r.Missing, ", ")
}

// Record checks rec for the required fields. A nil required list uses
// DefaultRequired.
func Record(rec *record.Record, required []string) Report {
	if required == nil {
		required = DefaultRequired
	}
	var rep Report
	for _, name := range required {
		if rec == nil || rec.IsMissing(name) {
			rep.Missing = append(rep.Missing, name)
		}
	}
	return rep
}
