// Package templates defines the per-page extraction templates for the
// DWC-032 form and the mapping from template labels to record fields.
package templates

import "strings"

// PageType identifies which section of the form a page holds.
type PageType string

const (
	PageFront        PageType = "front_page"
	PagePart1        PageType = "DWC032_part1"
	PagePart3        PageType = "DWC032_part3"
	PagePart5        PageType = "DWC032_part5"
	PagePart6        PageType = "DWC032_part6"
	PageExamOrderTwo PageType = "exam_order_page_two"
	PageGeneric      PageType = "dwc032"
)

// FieldType is the declared type of a template field. A nil Enum means
// free text.
type FieldType struct {
	Enum []string
}

// IsText reports whether the field is free text.
func (t FieldType) IsText() bool { return len(t.Enum) == 0 }

// Field is one labelled entry in a template.
type Field struct {
	Label string
	Type  FieldType
}

// Template is an ordered set of labelled fields for one page type.
type Template struct {
	Name   string
	Fields []Field
}

// Labels returns the template labels in order.
func (t Template) Labels() []string {
	out := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		out[i] = f.Label
	}
	return out
}

// AssistSuffix marks the checkbox-assist variant of a template name.
const AssistSuffix = "_checkbox_assist"

// IsAssist reports whether t asks the model to judge checkbox ink.
func (t Template) IsAssist() bool { return strings.HasSuffix(t.Name, AssistSuffix) }

// Lookup returns the declared type of a label.
func (t Template) Lookup(label string) (FieldType, bool) {
	for _, f := range t.Fields {
		if f.Label == label {
			return f.Type, true
		}
	}
	return FieldType{}, false
}

var (
	selectedEnum = []string{"Selected", "Not Selected"}
	checkedEnum  = []string{"Checked", "Unchecked"}
	yesNoEnum    = []string{"Yes", "No"}
	assistEnum   = []string{"Checkbox filled", "Empty"}
)

func str(label string) Field { return Field{Label: label} }

func enum(label string, values []string) Field {
	return Field{Label: label, Type: FieldType{Enum: values}}
}

// Registry holds the immutable template set and label map.
type Registry struct {
	templates map[PageType]Template
	assist    Template
	attrs     map[string]string
}

// Default returns the built-in DWC-032 template registry.
func Default() *Registry {
	return &Registry{
		templates: map[PageType]Template{
			PageFront:        frontPage,
			PagePart1:        part1,
			PagePart3:        part3,
			PagePart5:        part5,
			PagePart6:        part6,
			PageExamOrderTwo: examOrderPageTwo,
		},
		assist: part5Assist,
		attrs:  fieldToAttribute,
	}
}

// For returns the template for a page type. With assist set, the purpose
// of examination page uses its checkbox-assist variant.
func (r *Registry) For(pt PageType, assist bool) (Template, bool) {
	if pt == PagePart5 && assist {
		return r.assist, true
	}
	t, ok := r.templates[pt]
	return t, ok
}

// Attribute returns the canonical record field a template label maps to.
func (r *Registry) Attribute(label string) (string, bool) {
	a, ok := r.attrs[label]
	return a, ok
}

// Labels returns every label mapped to attr across all templates.
func (r *Registry) Labels(attr string) []string {
	var out []string
	for label, a := range r.attrs {
		if a == attr {
			out = append(out, label)
		}
	}
	return out
}

// PageTypes returns the page types that have a template.
func (r *Registry) PageTypes() []PageType {
	return []PageType{PageFront, PagePart1, PagePart3, PagePart5, PagePart6, PageExamOrderTwo}
}
