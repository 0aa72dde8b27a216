// Package prompts provides prompt management with embedded defaults and
// config-level overrides.
//
// Embedded .tmpl files are the source of truth for defaults. An operator may
// replace any prompt by key through the pipeline.prompts config section.
//
// Resolution order:
//  1. Config override (if set for the key)
//  2. Embedded default
//
// Every resolved prompt carries a content hash so the extraction trace can
// record exactly which prompt text produced a model reply.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: extract.page.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the result of resolving a prompt key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Hash       string   `json:"hash"`
}
