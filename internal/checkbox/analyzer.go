// Package checkbox reads checkbox states from rendered page images by
// measuring the ink coverage of fixed regions.
package checkbox

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"github.com/jackzampolin/form32/internal/classify"
	"github.com/jackzampolin/form32/internal/document"
)

// inkLevel is the gray value below which a pixel counts as ink.
const inkLevel = 128

// Reading is the measurement of one checkbox.
type Reading struct {
	Group  string  `json:"group"`
	Box    string  `json:"box"`
	Field  string  `json:"field,omitempty"`
	Page   int     `json:"page"` // 1-indexed, 0 when the page was not found
	Ratio  float64 `json:"ratio"`
	Filled bool    `json:"filled"`
}

// Result is the outcome of analyzing every group of one document.
type Result struct {
	// Groups maps group name to box name to filled state. Every configured
	// box is present; boxes on missing pages are false.
	Groups   map[string]map[string]bool
	Readings []Reading
	Warnings []string
}

// Flags returns the filled state keyed by record field for every box that
// feeds a field.
func (r *Result) Flags() map[string]bool {
	out := make(map[string]bool)
	for _, rd := range r.Readings {
		if rd.Field != "" {
			out[rd.Field] = rd.Filled
		}
	}
	return out
}

// Analyzer measures checkbox regions. Page images are rendered on first use
// and cached per document path for the analyzer's lifetime.
type Analyzer struct {
	raster  document.Rasterizer
	groups  []Group
	phrases classify.CheckboxPhrases
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string][]image.Image
}

// Config configures an Analyzer.
type Config struct {
	Rasterizer document.Rasterizer
	// Groups defaults to DefaultGroups.
	Groups []Group
	// Phrases defaults to classify.DefaultCheckboxPhrases.
	Phrases *classify.CheckboxPhrases
	Logger  *slog.Logger
}

// New creates an analyzer.
func New(cfg Config) *Analyzer {
	if cfg.Groups == nil {
		cfg.Groups = DefaultGroups()
	}
	phrases := classify.DefaultCheckboxPhrases()
	if cfg.Phrases != nil {
		phrases = *cfg.Phrases
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Analyzer{
		raster:  cfg.Rasterizer,
		groups:  cfg.Groups,
		phrases: phrases,
		logger:  cfg.Logger,
		cache:   make(map[string][]image.Image),
	}
}

// Analyze locates each group's page from the page texts and measures its
// boxes. A group whose page is not found, or whose page has no image, yields
// all-false results and a warning. Rendering failure is returned as an error.
func (a *Analyzer) Analyze(ctx context.Context, path string, pageTexts []string) (*Result, error) {
	res := &Result{Groups: make(map[string]map[string]bool, len(a.groups))}
	pages := classify.CheckboxPages(pageTexts, a.phrases)

	var images []image.Image
	if len(pages) > 0 {
		var err error
		images, err = a.images(ctx, path)
		if err != nil {
			return nil, err
		}
	}

	for _, g := range a.groups {
		states := make(map[string]bool, len(g.Regions))
		res.Groups[g.Name] = states

		idx, found := pages[g.Name]
		if !found || idx >= len(images) {
			msg := fmt.Sprintf("%s checkbox page not found", g.Name)
			if found {
				msg = fmt.Sprintf("%s checkbox page %d has no image", g.Name, idx+1)
			}
			a.logger.Warn(msg, "path", path)
			res.Warnings = append(res.Warnings, msg)
			for _, r := range g.Regions {
				states[r.Name] = false
				res.Readings = append(res.Readings, Reading{Group: g.Name, Box: r.Name, Field: r.Field})
			}
			continue
		}

		img := images[idx]
		for _, r := range g.Regions {
			ratio, ok := FillRatio(img, r.Rect())
			if !ok {
				msg := fmt.Sprintf("%s/%s region out of bounds at x=%d y=%d", g.Name, r.Name, r.X, r.Y)
				a.logger.Warn(msg, "path", path, "page", idx+1)
				res.Warnings = append(res.Warnings, msg)
			}
			filled := ok && ratio > g.Threshold
			states[r.Name] = filled
			res.Readings = append(res.Readings, Reading{
				Group: g.Name, Box: r.Name, Field: r.Field,
				Page: idx + 1, Ratio: ratio, Filled: filled,
			})
			a.logger.Debug("checkbox measured", "group", g.Name, "box", r.Name, "page", idx+1, "ratio", ratio, "filled", filled)
		}
	}
	return res, nil
}

func (a *Analyzer) images(ctx context.Context, path string) ([]image.Image, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if imgs, ok := a.cache[path]; ok {
		return imgs, nil
	}
	if a.raster == nil {
		return nil, fmt.Errorf("checkbox: no rasterizer configured")
	}
	imgs, err := a.raster.Rasterize(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize %s: %w", path, err)
	}
	a.cache[path] = imgs
	return imgs, nil
}

// FillRatio returns the fraction of ink pixels inside rect, clipped to the
// image. It reports false when the rectangle's origin lies outside the image.
func FillRatio(img image.Image, rect image.Rectangle) (float64, bool) {
	b := img.Bounds()
	if rect.Min.X >= b.Max.X || rect.Min.Y >= b.Max.Y {
		return 0, false
	}
	roi := rect.Intersect(b)
	if roi.Empty() {
		return 0, false
	}

	var ink int
	if g, ok := img.(*image.Gray); ok {
		for y := roi.Min.Y; y < roi.Max.Y; y++ {
			row := g.Pix[g.PixOffset(roi.Min.X, y):g.PixOffset(roi.Max.X, y)]
			for _, v := range row {
				if v < inkLevel {
					ink++
				}
			}
		}
	} else {
		for y := roi.Min.Y; y < roi.Max.Y; y++ {
			for x := roi.Min.X; x < roi.Max.X; x++ {
				if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < inkLevel {
					ink++
				}
			}
		}
	}
	return float64(ink) / float64(roi.Dx()*roi.Dy()), true
}
