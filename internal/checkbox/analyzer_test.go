package checkbox

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/jackzampolin/form32/internal/classify"
)

func blankPage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// ink darkens the first n pixels of rect, row by row.
func ink(img *image.Gray, rect image.Rectangle, n int) {
	for y := rect.Min.Y; y < rect.Max.Y && n > 0; y++ {
		for x := rect.Min.X; x < rect.Max.X && n > 0; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
			n--
		}
	}
}

type fakeRasterizer struct {
	pages []image.Image
	calls int
	err   error
}

func (f *fakeRasterizer) Rasterize(context.Context, string) ([]image.Image, error) {
	f.calls++
	return f.pages, f.err
}

func TestFillRatio(t *testing.T) {
	img := blankPage(100, 100)
	rect := image.Rect(10, 10, 20, 20)
	ink(img, rect, 40)

	ratio, ok := FillRatio(img, rect)
	if !ok || math.Abs(ratio-0.4) > 1e-9 {
		t.Fatalf("FillRatio() = %v, %v, want 0.4", ratio, ok)
	}
	if !(ratio > 0.3) {
		t.Error("40% coverage should exceed a 0.3 threshold")
	}
	if ratio > 0.5 {
		t.Error("40% coverage should not exceed a 0.5 threshold")
	}

	t.Run("clipped to image", func(t *testing.T) {
		img := blankPage(20, 20)
		ink(img, image.Rect(15, 15, 20, 20), 25)
		ratio, ok := FillRatio(img, image.Rect(15, 15, 25, 25))
		if !ok || ratio != 1 {
			t.Errorf("FillRatio() = %v, %v, want 1", ratio, ok)
		}
	})

	t.Run("origin outside", func(t *testing.T) {
		if _, ok := FillRatio(blankPage(20, 20), image.Rect(20, 5, 30, 15)); ok {
			t.Error("expected out of bounds")
		}
		if _, ok := FillRatio(blankPage(20, 20), image.Rect(5, 25, 10, 30)); ok {
			t.Error("expected out of bounds")
		}
	})

	t.Run("non-gray image", func(t *testing.T) {
		rgba := image.NewRGBA(image.Rect(0, 0, 10, 10))
		for y := 0; y < 10; y++ {
			for x := 0; x < 10; x++ {
				c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
				if x < 5 {
					c = color.RGBA{A: 255}
				}
				rgba.SetRGBA(x, y, c)
			}
		}
		ratio, ok := FillRatio(rgba, rgba.Bounds())
		if !ok || ratio != 0.5 {
			t.Errorf("FillRatio() = %v, %v, want 0.5", ratio, ok)
		}
	})
}

func TestFillRatio_Monotonic(t *testing.T) {
	rect := image.Rect(0, 0, 10, 10)
	prev := -1.0
	for n := 0; n <= 100; n += 10 {
		img := blankPage(10, 10)
		ink(img, rect, n)
		ratio, _ := FillRatio(img, rect)
		if ratio < prev {
			t.Fatalf("ratio decreased from %v to %v at %d ink pixels", prev, ratio, n)
		}
		prev = ratio
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	groups := DefaultGroups()
	network, purpose := groups[0], groups[2]

	netPage := blankPage(1700, 2200)
	ink(netPage, network.Regions[0].Rect(), 22*22) // q22_yes
	ink(netPage, network.Regions[3].Rect(), 22*22) // q23_no
	purposePage := blankPage(1700, 2200)
	ink(purposePage, purpose.Regions[2].Rect(), 22*22/5) // box_c at ~20%
	ink(purposePage, purpose.Regions[7].Rect(), 22*22/10)

	raster := &fakeRasterizer{pages: []image.Image{blankPage(1700, 2200), netPage, purposePage}}
	a := New(Config{Rasterizer: raster})

	texts := []string{
		"cover",
		"22. Does the claim have medical benefits through a certified network?",
		"Part 5. Purpose of examination",
	}
	res, err := a.Analyze(context.Background(), "form.pdf", texts)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !res.Groups[classify.GroupNetwork]["q22_yes"] || res.Groups[classify.GroupNetwork]["q23_yes"] {
		t.Errorf("network = %v", res.Groups[classify.GroupNetwork])
	}
	if !res.Groups[classify.GroupNetwork]["q23_no"] {
		t.Error("q23_no should be filled")
	}
	if !res.Groups[classify.GroupPurpose]["box_c"] {
		t.Error("box_c should pass the 0.15 purpose threshold")
	}
	if res.Groups[classify.GroupPurpose]["dwc024_yes"] {
		t.Error("dwc024_yes at 10% should not be filled")
	}

	body := res.Groups[classify.GroupBodyArea]
	if len(body) != 16 {
		t.Errorf("body area boxes = %d, want 16", len(body))
	}
	for name, filled := range body {
		if filled {
			t.Errorf("body area %s filled without a page", name)
		}
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want one for the missing body area page", res.Warnings)
	}

	flags := res.Flags()
	if !flags["has_certified_network"] || flags["has_political_subdivision"] || !flags["purpose_box_c_checked"] {
		t.Errorf("flags = %v", flags)
	}
	if _, ok := flags["q23_no"]; ok {
		t.Error("unmapped box leaked into flags")
	}
	if len(flags) != 2+16+9 {
		t.Errorf("flags = %d entries", len(flags))
	}

	if _, err := a.Analyze(context.Background(), "form.pdf", texts); err != nil {
		t.Fatal(err)
	}
	if raster.calls != 1 {
		t.Errorf("rasterized %d times, want 1", raster.calls)
	}
}

func TestAnalyzer_NoCheckboxPages(t *testing.T) {
	raster := &fakeRasterizer{}
	a := New(Config{Rasterizer: raster})

	res, err := a.Analyze(context.Background(), "form.pdf", []string{"nothing relevant"})
	if err != nil {
		t.Fatal(err)
	}
	if raster.calls != 0 {
		t.Error("rasterized without any checkbox page")
	}
	if len(res.Warnings) != 3 {
		t.Errorf("warnings = %v", res.Warnings)
	}
	for _, filled := range res.Flags() {
		if filled {
			t.Fatal("flag set without a page")
		}
	}
}

func TestAnalyzer_PageWithoutImage(t *testing.T) {
	a := New(Config{Rasterizer: &fakeRasterizer{pages: []image.Image{blankPage(100, 100)}}})

	res, err := a.Analyze(context.Background(), "form.pdf", []string{"cover", "purpose of examination"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Groups[classify.GroupPurpose]) != 9 {
		t.Errorf("purpose boxes = %v", res.Groups[classify.GroupPurpose])
	}
	if len(res.Warnings) != 3 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestAnalyzer_OutOfBounds(t *testing.T) {
	a := New(Config{Rasterizer: &fakeRasterizer{pages: []image.Image{blankPage(200, 200)}}})

	res, err := a.Analyze(context.Background(), "form.pdf", []string{"check boxes A through G"})
	if err != nil {
		t.Fatal(err)
	}
	// purpose boxes sit at y >= 361, outside a 200px page; plus 2 missing groups
	if len(res.Warnings) != 9+2 {
		t.Errorf("warnings = %d, want 11", len(res.Warnings))
	}
}

func TestAnalyzer_RasterError(t *testing.T) {
	a := New(Config{Rasterizer: &fakeRasterizer{err: errors.New("pdftoppm missing")}})
	if _, err := a.Analyze(context.Background(), "form.pdf", []string{"purpose of examination"}); err == nil {
		t.Error("expected error")
	}
}

func TestScaleAndThresholds(t *testing.T) {
	groups := Scale(DefaultGroups(), 300)
	r := groups[2].Regions[0]
	if r.X != 131 || r.Y != 542 || r.W != 33 {
		t.Errorf("scaled box_a = %+v", r)
	}
	if same := Scale(DefaultGroups(), BaseDPI); same[2].Regions[0].X != 87 {
		t.Error("base dpi should not scale")
	}

	groups = WithThresholds(DefaultGroups(), map[string]float64{classify.GroupPurpose: 0.5, "unknown": 1})
	if groups[2].Threshold != 0.5 || groups[0].Threshold != 0.3 {
		t.Errorf("thresholds = %v %v", groups[0].Threshold, groups[2].Threshold)
	}

	if got := len(Fields(DefaultGroups())); got != 27 {
		t.Errorf("Fields() = %d, want 27", got)
	}
}
