// Package extract runs structured per-page extraction over classified pages
// and maps the merged template labels onto canonical record fields.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackzampolin/form32/internal/document"
	"github.com/jackzampolin/form32/internal/templates"
)

// ErrNoRelevantPages is returned when no classified page has a template.
var ErrNoRelevantPages = errors.New("no pages with an extraction template")

// PageResult records the outcome of extracting one page.
type PageResult struct {
	Page     int                `json:"page"`
	PageType templates.PageType `json:"page_type"`
	Template string             `json:"template"`
	Values   map[string]any     `json:"values,omitempty"`
	Error    string             `json:"error,omitempty"`
	Elapsed  time.Duration      `json:"elapsed"`
}

// Result is the merged output of a structured extraction run.
type Result struct {
	// Values holds label to value pairs merged across pages.
	Values map[string]any
	// Order lists labels in the order they were first seen: page order,
	// then template order within a page.
	Order []string
	Pages []PageResult
}

// Succeeded returns the number of pages that extracted without error.
func (r *Result) Succeeded() int {
	n := 0
	for _, p := range r.Pages {
		if p.Error == "" {
			n++
		}
	}
	return n
}

// Runner drives the extraction service page by page.
type Runner struct {
	extractor document.Extractor
	registry  *templates.Registry
	assist    bool
	logger    *slog.Logger
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Extractor document.Extractor
	Registry  *templates.Registry
	// Assist selects the checkbox-assist template for the purpose page.
	Assist bool
	Logger *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Registry == nil {
		cfg.Registry = templates.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		extractor: cfg.Extractor,
		registry:  cfg.Registry,
		assist:    cfg.Assist,
		logger:    cfg.Logger,
	}
}

// Run extracts every classified page that has a template, one page at a
// time in page order. A failing page is logged and contributes nothing.
// ErrNoRelevantPages is returned, along with an empty result, when no page
// has a template. Context cancellation stops the run.
func (r *Runner) Run(ctx context.Context, path string, pages map[int]templates.PageType) (*Result, error) {
	result := &Result{Values: make(map[string]any)}

	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	seen := make(map[string]bool)
	relevant := 0
	for _, n := range nums {
		pt := pages[n]
		tmpl, ok := r.registry.For(pt, r.assist)
		if !ok {
			r.logger.Debug("no template for page type", "page", n, "page_type", pt)
			continue
		}
		relevant++

		if err := ctx.Err(); err != nil {
			return result, err
		}

		start := time.Now()
		values, err := r.extractor.ExtractStructured(ctx, path, document.SinglePage(n), tmpl)
		pr := PageResult{Page: n, PageType: pt, Template: tmpl.Name, Elapsed: time.Since(start)}
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			pr.Error = err.Error()
			result.Pages = append(result.Pages, pr)
			r.logger.Warn("page extraction failed", "path", path, "page", n, "page_type", pt, "error", err)
			continue
		}
		pr.Values = values
		result.Pages = append(result.Pages, pr)

		Merge(result.Values, values)
		for _, label := range tmpl.Labels() {
			if _, ok := values[label]; ok && !seen[label] {
				seen[label] = true
				result.Order = append(result.Order, label)
			}
		}
		r.logger.Debug("page extracted", "page", n, "page_type", pt, "labels", len(values), "elapsed", pr.Elapsed)
	}

	if relevant == 0 {
		return result, fmt.Errorf("%s: %w", path, ErrNoRelevantPages)
	}
	return result, nil
}
