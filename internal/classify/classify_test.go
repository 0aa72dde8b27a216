package classify

import (
	"reflect"
	"testing"

	"github.com/jackzampolin/form32/internal/templates"
)

func TestClassifier_Classify(t *testing.T) {
	c := New(DefaultMarkers(), nil)

	tests := []struct {
		name  string
		pages []string
		want  map[int]templates.PageType
	}{
		{
			name:  "part marker on identified page",
			pages: []string{"DWC032 Request\nPart 1. Injured employee information\n1. Employee's name"},
			want:  map[int]templates.PageType{1: templates.PagePart1},
		},
		{
			name: "purpose page wins over front page markers",
			pages: []string{
				"DWC 032 ... Commissioner's Order ... designated doctor examination ... Part 5. Purpose of examination",
			},
			want: map[int]templates.PageType{1: templates.PagePart5},
		},
		{
			name:  "identified page without part marker is generic",
			pages: []string{"dwc032 instructions page"},
			want:  map[int]templates.PageType{1: templates.PageGeneric},
		},
		{
			name: "page two checked before front page",
			pages: []string{
				"Commissioner's Order. Your exam is on: 03/14/2025. Designated doctor information. Designated doctor examination",
			},
			want: map[int]templates.PageType{1: templates.PageExamOrderTwo},
		},
		{
			name:  "front page needs every marker",
			pages: []string{"Commissioner's Order only", "COMMISSIONER'S ORDER for a DESIGNATED DOCTOR EXAMINATION"},
			want:  map[int]templates.PageType{2: templates.PageFront},
		},
		{
			name:  "blank pages skipped and numbering is 1-indexed",
			pages: []string{"", "   \n", "DWC 032 Part 6. Requester information"},
			want:  map[int]templates.PageType{3: templates.PagePart6},
		},
		{
			name:  "unrelated page",
			pages: []string{"fax cover sheet"},
			want:  map[int]templates.PageType{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.pages)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifier_CustomMarkers(t *testing.T) {
	c := New(Markers{
		Identifiers:      []string{"DWC032", "DWC 032"},
		Parts:            []PartMarker{{PageType: "CUSTOM_PART", Marker: "my custom part marker"}},
		ExamOrderPageTwo: []string{"unique page two marker"},
		FrontPage:        []string{"front page marker one", "front page marker two"},
	}, nil)

	got := c.Classify([]string{
		"DWC 032 header and my custom part marker",
		"this includes unique page two marker only",
		"this includes front page marker one and front page marker two",
	})
	want := map[int]templates.PageType{
		1: "CUSTOM_PART",
		2: templates.PageExamOrderTwo,
		3: templates.PageFront,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Classify() = %v, want %v", got, want)
	}
}

func TestClassifier_EmptyMarkerSetNeverMatches(t *testing.T) {
	c := New(Markers{Identifiers: []string{"DWC032"}}, nil)
	got := c.Classify([]string{"any text at all"})
	if len(got) != 0 {
		t.Errorf("Classify() = %v, want empty", got)
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := New(DefaultMarkers(), nil)
	pages := []string{
		"Commissioner's Order designated doctor examination",
		"DWC032 Part 1. Injured employee information",
		"DWC032 Part 3. Treating doctor information",
		"DWC032 Part 5. Purpose of examination",
		"Your exam is on: 01/02/2025 Designated doctor information",
	}
	first := c.Classify(pages)
	for i := 0; i < 5; i++ {
		if got := c.Classify(pages); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: Classify() = %v, want %v", i, got, first)
		}
	}
}

func TestClassifier_Validate(t *testing.T) {
	c := New(Markers{
		Validation: []ValidationMarker{{Marker: "custom required marker", Description: "Custom marker"}},
	}, nil)

	missing := c.Validate("this text does not include it")
	if len(missing) != 1 || missing[0] != "Missing required element: Custom marker" {
		t.Errorf("Validate() = %v", missing)
	}

	if missing := c.Validate("this text includes CUSTOM REQUIRED MARKER"); len(missing) != 0 {
		t.Errorf("Validate() = %v, want none", missing)
	}
}

func TestCheckboxPages(t *testing.T) {
	pages := []string{
		"cover letter",
		"22. Does the claim have medical benefits through a certified network?",
		"Part 4. Designated doctor selection ... 30. Check all body areas",
		"Part 5. Purpose of examination. Check boxes A through G",
		"continued: purpose of examination",
	}

	got := CheckboxPages(pages, DefaultCheckboxPhrases())
	want := map[string]int{
		GroupNetwork:  1,
		GroupBodyArea: 2,
		GroupPurpose:  4,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CheckboxPages() = %v, want %v", got, want)
	}
}
