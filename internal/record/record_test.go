package record

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range Fields() {
		if seen[f.Name] {
			t.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		if f.Kind == KindFlag && f.Category != CategoryFlag {
			t.Errorf("flag field %q has category %q", f.Name, f.Category)
		}
	}

	for _, name := range []string{"patient_name", "exam_date", "exam_location", "doctor_phone", "purpose_box_c_checked"} {
		if _, ok := Lookup(name); !ok {
			t.Errorf("expected %q in registry", name)
		}
	}

	if _, ok := Lookup("no_such_field"); ok {
		t.Error("unexpected lookup hit for unknown field")
	}
}

func TestFieldsInGroup(t *testing.T) {
	purpose := FieldsInGroup(GroupPurpose)
	flags := 0
	for _, f := range purpose {
		if f.IsPurposeFlag() {
			flags++
		}
	}
	if flags != 9 {
		t.Errorf("purpose flags = %d, want 9 (boxes A-G plus DWC-024 pair)", flags)
	}

	if got := len(FieldsInGroup(GroupBodyArea)); got != 16 {
		t.Errorf("body area fields = %d, want 16", got)
	}
}

func TestRecord_Set(t *testing.T) {
	t.Run("text field", func(t *testing.T) {
		r := New()
		if err := r.Set("patient_name", "Jane Doe"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if r.Text("patient_name") != "Jane Doe" {
			t.Errorf("Text() = %q", r.Text("patient_name"))
		}
	})

	t.Run("text field formats scalars", func(t *testing.T) {
		r := New()
		if err := r.Set("dd_assignment_number", float64(12345)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if r.Text("dd_assignment_number") != "12345" {
			t.Errorf("Text() = %q", r.Text("dd_assignment_number"))
		}
	})

	t.Run("flag field", func(t *testing.T) {
		r := New()
		if _, set := r.Flag("body_area_eyes"); set {
			t.Fatal("expected unset flag")
		}
		if err := r.Set("body_area_eyes", false); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		v, set := r.Flag("body_area_eyes")
		if !set || v {
			t.Errorf("Flag() = %v, %v; want false, true", v, set)
		}
	})

	t.Run("flag rejects string", func(t *testing.T) {
		r := New()
		err := r.Set("body_area_eyes", "yes")
		if !errors.Is(err, ErrKindMismatch) {
			t.Errorf("expected ErrKindMismatch, got %v", err)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		r := New()
		err := r.Set("favorite_color", "blue")
		if !errors.Is(err, ErrUnknownField) {
			t.Errorf("expected ErrUnknownField, got %v", err)
		}
	})
}

func TestIsMissingValue(t *testing.T) {
	name, _ := Lookup("patient_name")
	plain, _ := Lookup("exam_location")

	tests := []struct {
		name  string
		field Field
		value any
		want  bool
	}{
		{"nil", plain, nil, true},
		{"empty", plain, "", true},
		{"whitespace", plain, "   ", true},
		{"single pipe", plain, "|", true},
		{"triple pipe", plain, " ||| ", true},
		{"real value", plain, "Austin Clinic", false},
		{"name with pipes and spaces", name, "| |", true},
		{"plain with pipes and spaces", plain, "| |", false},
		{"name value", name, "Jane Doe", false},
		{"false flag is a value", Field{Kind: KindFlag}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMissingValue(tt.field, tt.value); got != tt.want {
				t.Errorf("IsMissingValue(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRecord_IsMissing(t *testing.T) {
	r := New()
	if !r.IsMissing("patient_name") {
		t.Error("unset field should be missing")
	}
	r.Set("patient_name", "||")
	if !r.IsMissing("patient_name") {
		t.Error("pipe sentinel should be missing")
	}
	r.Set("patient_name", "Jane Doe")
	if r.IsMissing("patient_name") {
		t.Error("set field should not be missing")
	}
}

func TestRecord_JSON(t *testing.T) {
	r := New()
	r.Set("patient_name", "Jane Doe")
	r.Set("purpose_box_a_checked", true)
	yes := true
	r.InjuryEvaluations = []InjuryEvaluation{{
		ConditionText:       "lumbar strain",
		IsSubstantialFactor: &yes,
		DiagnosisCodes:      [4]string{"S39.012A"},
	}}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.HasPrefix(string(data), `{"patient_name":"Jane Doe","ssn":""`) {
		t.Errorf("expected registry ordering, got %s", data[:60])
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Unmarshal() flat error = %v", err)
	}
	if len(flat) != len(Fields()) {
		t.Errorf("flat keys = %d, want %d", len(flat), len(Fields()))
	}
	if flat["body_area_eyes"] != false {
		t.Errorf("unset flag should serialize as false, got %v", flat["body_area_eyes"])
	}

	loaded := New()
	if err := json.Unmarshal(data, loaded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if loaded.Text("patient_name") != "Jane Doe" {
		t.Errorf("patient_name = %q", loaded.Text("patient_name"))
	}
	if v, _ := loaded.Flag("purpose_box_a_checked"); !v {
		t.Error("purpose_box_a_checked lost")
	}
	if len(loaded.InjuryEvaluations) != 1 || *loaded.InjuryEvaluations[0].IsSubstantialFactor != true {
		t.Errorf("injury evaluations = %+v", loaded.InjuryEvaluations)
	}
}

func TestProvenance(t *testing.T) {
	p := Provenance{
		"patient_name": SourceModel,
		"exam_date":    SourceRegexFallback,
		"exam_time":    SourceRegexFallback,
	}

	if p.Get("doctor_phone") != SourceUnset {
		t.Errorf("unwritten field should be unset, got %q", p.Get("doctor_phone"))
	}

	complete := p.Complete()
	if len(complete) != len(Fields()) {
		t.Errorf("Complete() len = %d, want %d", len(complete), len(Fields()))
	}

	if got := p.Counts()[SourceRegexFallback]; got != 2 {
		t.Errorf("regex count = %d, want 2", got)
	}

	got := p.FieldsFrom(SourceRegexFallback)
	if len(got) != 2 || got[0] != "exam_date" || got[1] != "exam_time" {
		t.Errorf("FieldsFrom() = %v", got)
	}
}
