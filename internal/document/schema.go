package document

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jackzampolin/form32/internal/templates"
)

// TemplateSchema builds the JSON schema a model reply for tmpl must satisfy:
// an object with every label present, each either null or a string (or one
// of the enumerated options).
func TemplateSchema(tmpl templates.Template) (json.RawMessage, error) {
	props := make(map[string]any, len(tmpl.Fields))
	required := make([]string, 0, len(tmpl.Fields))
	for _, f := range tmpl.Fields {
		prop := map[string]any{"type": []string{"string", "null"}}
		if !f.Type.IsText() {
			options := make([]any, 0, len(f.Type.Enum)+1)
			for _, v := range f.Type.Enum {
				options = append(options, v)
			}
			prop["enum"] = append(options, nil)
		}
		props[f.Label] = prop
		required = append(required, f.Label)
	}
	return json.Marshal(map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	})
}

var schemaNameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SchemaName turns a template name into an identifier accepted by
// structured-output APIs.
func SchemaName(name string) string {
	s := strings.Trim(schemaNameUnsafe.ReplaceAllString(name, "_"), "_")
	if s == "" {
		return "page"
	}
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}
