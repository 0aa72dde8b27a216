package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxStructuredRepairAttempts limits self-repair rounds when structured
// output fails to parse or validate.
const maxStructuredRepairAttempts = 2

// ChatStructured sends req and returns a result whose ParsedJSON conforms to
// req.ResponseFormat. A reply that does not parse or validate is sent back
// to the model with the validation issue, up to maxStructuredRepairAttempts
// times.
func ChatStructured(ctx context.Context, client LLMClient, req *ChatRequest) (*ChatResult, error) {
	if req.ResponseFormat == nil {
		return client.Chat(ctx, req)
	}
	schema := req.ResponseFormat.JSONSchema

	cur := *req
	cur.Messages = append([]Message(nil), req.Messages...)
	var (
		result *ChatResult
		issue  error
	)
	for round := 0; round <= maxStructuredRepairAttempts; round++ {
		var err error
		result, err = client.Chat(ctx, &cur)
		if err != nil {
			return result, err
		}

		parsed, perr := parseStructuredJSON(result.Content)
		if perr == nil {
			perr = validateStructuredJSON(schema, parsed)
		}
		if perr == nil {
			result.ParsedJSON = parsed
			result.Success = true
			result.ErrorType, result.ErrorMessage = "", ""
			return result, nil
		}
		issue = perr
		cur.Messages = append(cur.Messages,
			Message{Role: "assistant", Content: result.Content},
			Message{Role: "user", Content: structuredRepairPrompt(schema, result.Content, perr)},
		)
	}
	result.Success = false
	result.ParsedJSON = nil
	result.ErrorType = "schema_validation"
	result.ErrorMessage = issue.Error()
	return result, fmt.Errorf("structured output invalid after %d repairs: %w", maxStructuredRepairAttempts, issue)
}

// adaptedResponseFormat returns a provider-compatible response format while
// the canonical schema stays available for local validation. A nil result
// means the schema travels in the prompt instead.
func adaptedResponseFormat(model string, rf *ResponseFormat) (*openRouterResponseFormat, error) {
	if rf == nil {
		return nil, nil
	}
	// OpenRouter may route anthropic/* models to backends that reject
	// native structured outputs; those rely on prompt + local validation.
	if promptOnlySchema(model) {
		return nil, nil
	}
	if len(rf.JSONSchema) > 0 && !json.Valid(rf.JSONSchema) {
		return nil, fmt.Errorf("invalid structured schema JSON")
	}
	return &openRouterResponseFormat{
		Type:       rf.Type,
		JSONSchema: rf.JSONSchema,
	}, nil
}

func promptOnlySchema(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "anthropic/")
}

// schemaInstruction is appended to the system prompt when the provider
// cannot enforce the schema natively.
func schemaInstruction(schemaRaw json.RawMessage) string {
	core, err := extractValidationSchema(schemaRaw)
	if err != nil {
		core = schemaRaw
	}
	return "Respond with ONLY a JSON object (no markdown, no commentary) conforming to this schema:\n" + string(core)
}

// parseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding text.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONObject(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}
		normalized, err := json.Marshal(parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return normalized, nil
	}
	return nil, fmt.Errorf("failed to parse structured JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONObject returns the outermost {...} span, which is all a
// per-page label map can be.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

// validateStructuredJSON validates parsed JSON against the canonical schema.
func validateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}
	core, err := extractValidationSchema(schemaRaw)
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(core)); err != nil {
		return fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile structured schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

// extractValidationSchema unwraps the {"name","strict","schema"} envelope.
func extractValidationSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	if inner, ok := root["schema"]; ok {
		return inner, nil
	}
	return schemaRaw, nil
}

func structuredRepairPrompt(schemaRaw json.RawMessage, lastOutput string, issue error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > 12000 {
		lastOutput = lastOutput[:12000] + "\n...[truncated]"
	}

	return fmt.Sprintf(`Return ONLY valid JSON (no markdown, no commentary) that strictly conforms to this schema.

Schema:
%s

Your previous output:
%s

Validation issue:
%v`, string(schemaRaw), lastOutput, issue)
}
