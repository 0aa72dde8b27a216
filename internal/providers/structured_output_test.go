package providers

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAdaptedResponseFormat(t *testing.T) {
	rf := &ResponseFormat{Type: "json_schema", JSONSchema: labelSchema}

	got, err := adaptedResponseFormat("anthropic/claude-sonnet-4", rf)
	if err != nil || got != nil {
		t.Errorf("anthropic model: got %+v, %v; want prompt-only schema", got, err)
	}

	got, err = adaptedResponseFormat("qwen/qwen2.5-vl-72b-instruct", rf)
	if err != nil {
		t.Fatalf("adaptedResponseFormat() error = %v", err)
	}
	if got == nil || string(got.JSONSchema) != string(labelSchema) {
		t.Errorf("schema not passed through: %+v", got)
	}

	if _, err := adaptedResponseFormat("openai/gpt-4o", &ResponseFormat{JSONSchema: json.RawMessage(`{bad`)}); err == nil {
		t.Error("expected error for invalid schema")
	}
}

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain", `{"ok":true}`, false},
		{"code fence", "```json\n{\"ok\":true}\n```", false},
		{"surrounding prose", "Here is the result:\n{\"ok\":true}\nDone.", false},
		{"empty", "   ", true},
		{"no json", "sorry, I cannot read this page", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStructuredJSON(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseStructuredJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != `{"ok":true}` {
				t.Errorf("got %s", got)
			}
		})
	}
}

func TestValidateStructuredJSON(t *testing.T) {
	valid := json.RawMessage(`{"Employee Name":null,"Box A":"Unchecked"}`)
	if err := validateStructuredJSON(labelSchema, valid); err != nil {
		t.Fatalf("validateStructuredJSON(valid) error = %v", err)
	}

	for name, doc := range map[string]string{
		"bad enum":      `{"Employee Name":"A","Box A":"Yes"}`,
		"missing label": `{"Employee Name":"A"}`,
		"extra label":   `{"Employee Name":"A","Box A":null,"Other":"x"}`,
	} {
		if err := validateStructuredJSON(labelSchema, json.RawMessage(doc)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestSchemaInstruction(t *testing.T) {
	got := schemaInstruction(labelSchema)
	if !strings.Contains(got, `"Employee Name"`) || strings.Contains(got, `"strict"`) {
		t.Errorf("instruction should embed only the core schema: %s", got)
	}
}
