// Package document is the boundary to the document extraction services:
// text conversion, structured per-page extraction and page rasterization.
package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jackzampolin/form32/internal/templates"
)

var (
	// ErrNoText is returned when a document yields no text from any source.
	ErrNoText = errors.New("document has no extractable text")

	// ErrUnsupportedFormat is returned for inputs no converter understands.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Conversion is the text form of a document.
type Conversion struct {
	Path     string
	FullText string
	// Pages holds per-page text in page order; entries may be empty.
	Pages []string
	// Markdown is a readable rendering of the pages for the output folder.
	Markdown string
	// OCRPages lists the 1-indexed pages whose text came from OCR.
	OCRPages []int
}

// PageCount returns the number of pages in the conversion.
func (c *Conversion) PageCount() int { return len(c.Pages) }

// Converter turns a document into text.
type Converter interface {
	Convert(ctx context.Context, path string) (*Conversion, error)
}

// PageRange is an inclusive 1-indexed page range.
type PageRange struct {
	First int
	Last  int
}

// SinglePage returns the range covering one page.
func SinglePage(n int) PageRange { return PageRange{First: n, Last: n} }

func (r PageRange) String() string {
	if r.First == r.Last {
		return fmt.Sprintf("%d", r.First)
	}
	return fmt.Sprintf("%d-%d", r.First, r.Last)
}

// Extractor fills a template from the given pages and returns label to
// value pairs. Values are strings, enum strings, lists or nil.
type Extractor interface {
	ExtractStructured(ctx context.Context, path string, pages PageRange, tmpl templates.Template) (map[string]any, error)
}

// Rasterizer renders every page of a document to an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) ([]image.Image, error)
}

// PageImager renders a single 1-indexed page to encoded image bytes.
type PageImager interface {
	PageImage(ctx context.Context, path string, page int) ([]byte, error)
}

// IsPDF reports whether the path has a PDF extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// IsImage reports whether the path is a supported scanned image.
func IsImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff", ".png":
		return true
	}
	return false
}

var pageMarker = regexp.MustCompile(`\nPAGE \d+\n`)

// SplitPages splits flattened text on line-anchored "PAGE <n>" markers. Text
// without markers comes back as a single page.
func SplitPages(full string) []string {
	parts := pageMarker.Split(full, -1)
	if len(parts) <= 1 {
		return []string{full}
	}
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		// Leading text before the first marker is a header, not a page.
		if i == 0 && strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Markdown renders page texts as a markdown document with one section per
// page.
func Markdown(title string, pages []string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("# ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	for i, p := range pages {
		fmt.Fprintf(&b, "## Page %d\n\n", i+1)
		b.WriteString(strings.TrimSpace(p))
		b.WriteString("\n\n")
	}
	return b.String()
}
