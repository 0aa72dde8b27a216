// Package classify assigns page types to the pages of a DWC-032 packet by
// marker text matching.
package classify

import (
	"log/slog"
	"strings"

	"github.com/jackzampolin/form32/internal/templates"
)

// PartMarker maps a part header phrase to the page type it identifies.
type PartMarker struct {
	PageType templates.PageType
	Marker   string
}

// ValidationMarker is a phrase the full document text must contain.
type ValidationMarker struct {
	Marker      string
	Description string
}

// Markers holds every phrase set used for classification. All phrase
// matching is case-insensitive.
type Markers struct {
	// Identifiers mark a page as part of the DWC-032 form itself.
	Identifiers []string
	// Parts are tried in order on identified pages; first match wins.
	Parts []PartMarker
	// ExamOrderPageTwo and FrontPage match only when every phrase is present.
	ExamOrderPageTwo []string
	FrontPage        []string
	Validation       []ValidationMarker
}

// DefaultMarkers returns the marker set for the current DWC-032 revision
// and the commissioner's order cover letter.
func DefaultMarkers() Markers {
	return Markers{
		Identifiers: []string{"DWC032", "DWC 032"},
		Parts: []PartMarker{
			{PageType: templates.PagePart1, Marker: "part 1. injured employee information"},
			{PageType: templates.PagePart3, Marker: "part 3. treating doctor information"},
			{PageType: templates.PagePart5, Marker: "part 5. purpose of examination"},
			{PageType: templates.PagePart6, Marker: "part 6. requester information"},
		},
		ExamOrderPageTwo: []string{"your exam is on", "designated doctor information"},
		FrontPage:        []string{"commissioner's order", "designated doctor examination"},
		Validation: []ValidationMarker{
			{Marker: "designated doctor examination", Description: "Designated doctor examination request"},
			{Marker: "part 1. injured employee information", Description: "Part 1 (injured employee information)"},
			{Marker: "part 5. purpose of examination", Description: "Part 5 (purpose of examination)"},
		},
	}
}

// Classifier tags pages by type.
type Classifier struct {
	markers Markers
	logger  *slog.Logger
}

// New creates a classifier for the given marker set.
func New(markers Markers, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{markers: markers, logger: logger}
}

// Classify maps 1-indexed page numbers to page types. Blank pages and pages
// matching no rule are left out of the map.
func (c *Classifier) Classify(pages []string) map[int]templates.PageType {
	out := make(map[int]templates.PageType)
	for i, text := range pages {
		pageNum := i + 1
		if strings.TrimSpace(text) == "" {
			c.logger.Debug("skipping empty page", "page", pageNum)
			continue
		}
		pt, ok := c.classifyPage(text)
		if !ok {
			c.logger.Debug("page not classified", "page", pageNum)
			continue
		}
		c.logger.Debug("classified page", "page", pageNum, "page_type", pt)
		out[pageNum] = pt
	}
	c.logger.Info("identified form pages", "count", len(out))
	return out
}

func (c *Classifier) classifyPage(text string) (templates.PageType, bool) {
	upper := strings.ToUpper(text)
	lower := strings.ToLower(text)

	if containsAny(upper, c.markers.Identifiers, strings.ToUpper) {
		for _, pm := range c.markers.Parts {
			if pm.Marker != "" && strings.Contains(lower, strings.ToLower(pm.Marker)) {
				return pm.PageType, true
			}
		}
		return templates.PageGeneric, true
	}
	if containsAll(lower, c.markers.ExamOrderPageTwo) {
		return templates.PageExamOrderTwo, true
	}
	if containsAll(lower, c.markers.FrontPage) {
		return templates.PageFront, true
	}
	return "", false
}

// Validate checks the full document text for every validation marker and
// returns one message per missing marker.
func (c *Classifier) Validate(fullText string) []string {
	lower := strings.ToLower(fullText)
	var missing []string
	for _, vm := range c.markers.Validation {
		if !strings.Contains(lower, strings.ToLower(vm.Marker)) {
			missing = append(missing, "Missing required element: "+vm.Description)
		}
	}
	return missing
}

func containsAny(text string, phrases []string, fold func(string) string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, fold(p)) {
			return true
		}
	}
	return false
}

// containsAll reports whether lower contains every phrase. An empty phrase
// set never matches.
func containsAll(lower string, phrases []string) bool {
	if len(phrases) == 0 {
		return false
	}
	for _, p := range phrases {
		if !strings.Contains(lower, strings.ToLower(p)) {
			return false
		}
	}
	return true
}
