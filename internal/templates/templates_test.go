package templates

import (
	"testing"

	"github.com/jackzampolin/form32/internal/record"
)

func TestRegistry_EveryLabelMapsToRecordField(t *testing.T) {
	reg := Default()

	check := func(tmpl Template) {
		for _, f := range tmpl.Fields {
			attr, ok := reg.Attribute(f.Label)
			if !ok {
				t.Errorf("%s: label %q has no attribute", tmpl.Name, f.Label)
				continue
			}
			field, ok := record.Lookup(attr)
			if !ok {
				t.Errorf("%s: label %q maps to unknown field %q", tmpl.Name, f.Label, attr)
				continue
			}
			if field.IsFlag() && f.Type.IsText() {
				t.Errorf("%s: free text label %q maps to flag field %q", tmpl.Name, f.Label, attr)
			}
		}
	}

	for _, pt := range reg.PageTypes() {
		tmpl, ok := reg.For(pt, false)
		if !ok {
			t.Fatalf("no template for %s", pt)
		}
		check(tmpl)
	}
	assist, _ := reg.For(PagePart5, true)
	check(assist)
}

func TestRegistry_For(t *testing.T) {
	reg := Default()

	tests := []struct {
		name     string
		pageType PageType
		assist   bool
		wantName string
		wantOK   bool
	}{
		{"front page", PageFront, false, "front_page", true},
		{"purpose default", PagePart5, false, "DWC032_part5", true},
		{"purpose assist", PagePart5, true, "DWC032_part5_checkbox_assist", true},
		{"assist ignored for other pages", PagePart1, true, "DWC032_part1", true},
		{"generic has no template", PageGeneric, false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, ok := reg.For(tt.pageType, tt.assist)
			if ok != tt.wantOK {
				t.Fatalf("For() ok = %v, want %v", ok, tt.wantOK)
			}
			if tmpl.Name != tt.wantName {
				t.Errorf("For() name = %q, want %q", tmpl.Name, tt.wantName)
			}
		})
	}
}

func TestTemplate_Lookup(t *testing.T) {
	reg := Default()
	tmpl, _ := reg.For(PagePart3, false)

	typ, ok := tmpl.Lookup("Feet")
	if !ok {
		t.Fatal("expected Feet in part 3 template")
	}
	if typ.IsText() || len(typ.Enum) != 2 || typ.Enum[0] != "Checked" {
		t.Errorf("Feet type = %+v", typ)
	}

	if _, ok := tmpl.Lookup("Not a label"); ok {
		t.Error("unexpected hit for unknown label")
	}

	if got := len(tmpl.Labels()); got != 22 {
		t.Errorf("part 3 labels = %d, want 22", got)
	}
}

func TestRegistry_Labels(t *testing.T) {
	reg := Default()
	labels := reg.Labels("exam_date")
	if len(labels) != 2 {
		t.Errorf("exam_date labels = %v, want front page and page two labels", labels)
	}
}
