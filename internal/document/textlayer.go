package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jackzampolin/form32/internal/metrics"
	"github.com/jackzampolin/form32/internal/providers"
)

// DefaultMinPageChars is the text-layer length below which a PDF page is
// treated as a scan and sent to OCR.
const DefaultMinPageChars = 20

// TextLayerConverter reads the embedded text layer of a PDF and falls back to
// OCR for pages that have none. Image inputs go straight to OCR.
type TextLayerConverter struct {
	OCR          providers.OCRProvider // optional; without it scanned pages stay empty
	Imager       PageImager            // required when OCR is set
	MinPageChars int
	Logger       *slog.Logger
}

// Convert implements Converter.
func (c *TextLayerConverter) Convert(ctx context.Context, path string) (*Conversion, error) {
	var (
		pages []string
		err   error
	)
	switch {
	case IsPDF(path):
		pages, err = readTextLayer(path)
		if err != nil {
			return nil, err
		}
		if len(pages) == 0 {
			// Zero-page read means the page tree was unusable.
			return nil, fmt.Errorf("%w: %s has no readable pages", ErrNoText, path)
		}
	case IsImage(path):
		if c.OCR == nil {
			return nil, fmt.Errorf("%w: %s is an image and no OCR provider is configured", ErrUnsupportedFormat, path)
		}
		pages = []string{""}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	conv := &Conversion{Path: path, Pages: pages}
	if c.OCR != nil && c.Imager != nil {
		if err := c.ocrSparsePages(ctx, conv); err != nil {
			return nil, err
		}
	}

	if allBlank(conv.Pages) {
		return nil, fmt.Errorf("%w: %s", ErrNoText, path)
	}
	conv.FullText = strings.Join(conv.Pages, "\n\n")
	conv.Markdown = Markdown("", conv.Pages)
	return conv, nil
}

func (c *TextLayerConverter) ocrSparsePages(ctx context.Context, conv *Conversion) error {
	minChars := c.MinPageChars
	if minChars <= 0 {
		minChars = DefaultMinPageChars
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for i, text := range conv.Pages {
		if len(strings.TrimSpace(text)) >= minChars {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		page := i + 1
		img, err := c.Imager.PageImage(ctx, conv.Path, page)
		if err != nil {
			logger.Warn("page render for OCR failed", "path", conv.Path, "page", page, "error", err)
			continue
		}
		res, err := c.OCR.ProcessImage(ctx, img, page)
		metrics.Record(ctx, metrics.FromOCR(c.OCR.Name(), fmt.Sprintf("page_%04d", page), res, err))
		if err != nil {
			logger.Warn("OCR failed", "path", conv.Path, "page", page, "provider", c.OCR.Name(), "error", err)
			continue
		}
		conv.Pages[i] = Normalize(res.Text)
		conv.OCRPages = append(conv.OCRPages, page)
		logger.Debug("page OCRed", "path", conv.Path, "page", page, "chars", len(res.Text))
	}
	return nil
}

// readTextLayer returns per-page text. When the page tree yields nothing
// but the document as a whole has text, the flattened text is split on its
// PAGE markers instead.
func readTextLayer(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read %s: malformed PDF: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, perr := p.GetPlainText(nil)
		if perr != nil {
			continue
		}
		pages[i-1] = Normalize(text)
	}
	if !allBlank(pages) {
		return pages, nil
	}

	rd, err := r.GetPlainText()
	if err != nil {
		return pages, nil
	}
	raw, err := io.ReadAll(rd)
	if err != nil || strings.TrimSpace(string(raw)) == "" {
		return pages, nil
	}
	split := SplitPages(Normalize(string(raw)))
	if len(split) < len(pages) {
		// Pad so page numbers still line up with the file.
		split = append(split, make([]string, len(pages)-len(split))...)
	}
	return split, nil
}

func allBlank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

var _ Converter = (*TextLayerConverter)(nil)
