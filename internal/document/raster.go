package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"
)

// DefaultDPI is the render resolution the checkbox regions are calibrated
// against.
const DefaultDPI = 200

// PopplerRasterizer renders PDF pages with pdftoppm (poppler-utils).
type PopplerRasterizer struct {
	DPI     int    // default DefaultDPI
	Binary  string // default "pdftoppm"
	Workers int    // default runtime.NumCPU()
}

func (p *PopplerRasterizer) dpi() int {
	if p.DPI <= 0 {
		return DefaultDPI
	}
	return p.DPI
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()
	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// PageImage implements PageImager, returning PNG bytes.
func (p *PopplerRasterizer) PageImage(ctx context.Context, path string, page int) ([]byte, error) {
	if !IsPDF(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	tmpDir, err := os.MkdirTemp("", "form32-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	bin := p.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	prefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(page)
	// -singlefile: no page number suffix on the output name
	cmd := exec.CommandContext(ctx, bin,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(p.dpi()),
		"-singlefile",
		path,
		prefix,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed on page %d: %w (output: %s)", page, err, string(output))
	}
	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}

// Rasterize implements Rasterizer. Pages render concurrently.
func (p *PopplerRasterizer) Rasterize(ctx context.Context, path string) ([]image.Image, error) {
	n, err := PageCount(path)
	if err != nil {
		return nil, err
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	images := make([]image.Image, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range n {
		g.Go(func() error {
			data, err := p.PageImage(gctx, path, i+1)
			if err != nil {
				return err
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("decode page %d: %w", i+1, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// ImageRasterizer serves single-page scans (TIFF or PNG) as-is.
type ImageRasterizer struct{}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch filepath.Ext(path) {
	case ".tif", ".tiff", ".TIF", ".TIFF":
		return tiff.Decode(f)
	default:
		return png.Decode(f)
	}
}

// Rasterize implements Rasterizer.
func (ImageRasterizer) Rasterize(ctx context.Context, path string) ([]image.Image, error) {
	if !IsImage(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	img, err := decodeImageFile(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return []image.Image{img}, nil
}

// PageImage implements PageImager. Only page 1 exists.
func (r ImageRasterizer) PageImage(ctx context.Context, path string, page int) ([]byte, error) {
	if page != 1 {
		return nil, fmt.Errorf("page %d out of range for single-page image %s", page, path)
	}
	imgs, err := r.Rasterize(ctx, path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, imgs[0]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ByFormat dispatches to the PDF or image rasterizer by file extension.
type ByFormat struct {
	PDF   *PopplerRasterizer
	Image ImageRasterizer
}

// NewByFormat returns a dispatcher rendering PDFs at dpi.
func NewByFormat(dpi int) *ByFormat {
	return &ByFormat{PDF: &PopplerRasterizer{DPI: dpi}}
}

// Rasterize implements Rasterizer.
func (b *ByFormat) Rasterize(ctx context.Context, path string) ([]image.Image, error) {
	if IsImage(path) {
		return b.Image.Rasterize(ctx, path)
	}
	return b.PDF.Rasterize(ctx, path)
}

// PageImage implements PageImager.
func (b *ByFormat) PageImage(ctx context.Context, path string, page int) ([]byte, error) {
	if IsImage(path) {
		return b.Image.PageImage(ctx, path, page)
	}
	return b.PDF.PageImage(ctx, path, page)
}

// DPI returns the PDF render resolution.
func (b *ByFormat) DPI() int { return b.PDF.dpi() }

var (
	_ Rasterizer = (*ByFormat)(nil)
	_ PageImager = (*ByFormat)(nil)
)
