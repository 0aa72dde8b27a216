// Package extract holds the prompts for per-page structured extraction.
package extract

import (
	_ "embed"

	"github.com/jackzampolin/form32/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "extract.page.system"
	UserPromptKey   = "extract.page.user"
)

// Field is one label the model is asked to fill. Options is empty for free
// text.
type Field struct {
	Label   string
	Options []string
}

// PageData is the user prompt input.
type PageData struct {
	Template string
	Pages    string
	Fields   []Field
	Assist   bool
}

// RegisterPrompts registers the extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Per-page form extraction system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Per-page form extraction user prompt listing the template labels",
	})
}

// NewResolver returns a resolver with the extraction prompts registered.
func NewResolver(overrides map[string]string) *prompts.Resolver {
	r := prompts.NewResolver(nil)
	RegisterPrompts(r)
	r.SetOverrides(overrides)
	return r
}
