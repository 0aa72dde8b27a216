package validate

import (
	"reflect"
	"testing"

	"github.com/jackzampolin/form32/internal/record"
)

func TestRecord(t *testing.T) {
	rec := record.New()
	rep := Record(rec, nil)
	if rep.OK() {
		t.Fatal("empty record should be incomplete")
	}
	if !reflect.DeepEqual(rep.Missing, DefaultRequired) {
		t.Errorf("missing = %v", rep.Missing)
	}

	for name, v := range map[string]string{
		"patient_name":  "| |",
		"exam_date":     "3/14/2025",
		"exam_location": "Acme Clinic",
	} {
		if err := rec.Set(name, v); err != nil {
			t.Fatal(err)
		}
	}
	rep = Record(rec, nil)
	if !reflect.DeepEqual(rep.Missing, []string{"patient_name"}) {
		t.Errorf("missing = %v", rep.Missing)
	}
	if rep.Warning() != "Patient record is incomplete: missing patient_name" {
		t.Errorf("warning = %q", rep.Warning())
	}

	if err := rec.Set("patient_name", "Jane Doe"); err != nil {
		t.Fatal(err)
	}
	if rep := Record(rec, nil); !rep.OK() || rep.Warning() != "" {
		t.Errorf("report = %+v", rep)
	}

	if rep := Record(rec, []string{"ssn"}); rep.OK() {
		t.Error("custom required list ignored")
	}
}
