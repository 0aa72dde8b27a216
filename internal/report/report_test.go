package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/form32/internal/document"
	"github.com/jackzampolin/form32/internal/metrics"
	"github.com/jackzampolin/form32/internal/pipeline"
	"github.com/jackzampolin/form32/internal/record"
	"github.com/jackzampolin/form32/internal/reconcile"
	"github.com/jackzampolin/form32/internal/validate"
)

func sampleResult(t *testing.T, source string) *pipeline.Result {
	t.Helper()
	rec := record.New()
	for field, v := range map[string]any{
		"patient_name":       "JANE Q DOE",
		"exam_location_city": "AUSTIN",
		"exam_date":          "03/14/2025",
		"body_area_spine":    true,
	} {
		if err := rec.Set(field, v); err != nil {
			t.Fatal(err)
		}
	}
	return &pipeline.Result{
		ID:         "run-1",
		Path:       source,
		Success:    true,
		Record:     rec,
		Provenance: record.Provenance{"patient_name": record.SourceModel},
		Trace:      &reconcile.Trace{FinalSources: map[string]record.Source{"patient_name": record.SourceModel}},
		Warnings:   []string{"missing exam_time"},
		Validation: &validate.Report{},
		Conversion: &document.Conversion{Markdown: "# page 1\n"},
	}
}

func writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWrite(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, "scan.pdf")
	w := NewWriter(Options{Root: root, CopySource: true, WriteMarkdown: true, WriteTrace: true}, nil)

	art, err := w.Write(sampleResult(t, src))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	wantDir := filepath.Join(root, "JANE_Q_DOE_AUSTIN_3.14.25")
	if art.Dir != wantDir {
		t.Errorf("Dir = %q, want %q", art.Dir, wantDir)
	}
	if art.SourceCopy != filepath.Join(wantDir, "FORM32 JANE Q DOE.pdf") {
		t.Errorf("SourceCopy = %q", art.SourceCopy)
	}
	copied, err := os.ReadFile(art.SourceCopy)
	if err != nil || string(copied) != "%PDF-1.4 fake" {
		t.Errorf("copy = %q, %v", copied, err)
	}

	data, err := os.ReadFile(art.Record)
	if err != nil {
		t.Fatal(err)
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatal(err)
	}
	if flat["patient_name"] != "JANE Q DOE" || flat["body_area_spine"] != true {
		t.Errorf("record json = %v", flat)
	}

	data, err = os.ReadFile(art.Trace)
	if err != nil {
		t.Fatal(err)
	}
	var trace map[string]any
	if err := json.Unmarshal(data, &trace); err != nil {
		t.Fatal(err)
	}
	if trace["run_id"] != "run-1" {
		t.Errorf("run_id = %v", trace["run_id"])
	}
	if fs, ok := trace["final_sources"].(map[string]any); !ok || fs["patient_name"] != string(record.SourceModel) {
		t.Errorf("final_sources = %v", trace["final_sources"])
	}

	if md, err := os.ReadFile(art.Markdown); err != nil || string(md) != "# page 1\n" {
		t.Errorf("markdown = %q, %v", md, err)
	}
}

func TestWriteOptional(t *testing.T) {
	src := writeSource(t, "scan.tiff")
	w := NewWriter(Options{Root: t.TempDir()}, nil)

	art, err := w.Write(sampleResult(t, src))
	if err != nil {
		t.Fatal(err)
	}
	if art.SourceCopy != "" || art.Trace != "" || art.Markdown != "" {
		t.Errorf("optional artifacts written: %+v", art)
	}
	entries, _ := os.ReadDir(art.Dir)
	if len(entries) != 1 || entries[0].Name() != RecordFileName {
		t.Errorf("entries = %v", entries)
	}

	t.Run("image copy keeps extension", func(t *testing.T) {
		if got := copyName("JANE DOE", src); got != "FORM32 JANE DOE.tiff" {
			t.Errorf("copyName = %q", got)
		}
	})
}

func TestWriteRejectsFailure(t *testing.T) {
	w := NewWriter(Options{Root: t.TempDir()}, nil)
	if _, err := w.Write(&pipeline.Result{Path: "x.pdf", Errors: []string{"boom"}}); err == nil {
		t.Error("expected error for failed result")
	}
	res := sampleResult(t, filepath.Join(t.TempDir(), "missing.pdf"))
	w = NewWriter(Options{Root: t.TempDir(), CopySource: true}, nil)
	if _, err := w.Write(res); err == nil {
		t.Error("expected error when the source cannot be copied")
	}
}

func TestEncode(t *testing.T) {
	res := sampleResult(t, "scan.pdf")
	sum := Summarize(res, nil)
	if sum.Patient != "JANE Q DOE" || sum.Sources["model"] != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Usage != nil {
		t.Errorf("usage = %+v, want nil without calls", sum.Usage)
	}

	t.Run("usage", func(t *testing.T) {
		withUsage := *res
		withUsage.Usage = []metrics.Metric{
			{Stage: metrics.StageOCR, CostUSD: 0.25, Success: true},
			{Stage: metrics.StageExtraction, CostUSD: 0.5, TotalTokens: 700},
		}
		u := Summarize(&withUsage, nil).Usage
		if u == nil || u.Calls != 2 || u.Errors != 1 || u.Tokens != 700 || u.CostUSD != 0.75 {
			t.Errorf("usage = %+v", u)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&buf, FormatJSON, sum); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `"patient": "JANE Q DOE"`) {
			t.Errorf("json = %s", buf.String())
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&buf, FormatYAML, RecordFields(res.Record, false)); err != nil {
			t.Fatal(err)
		}
		var got []FieldValue
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != 4 {
			t.Errorf("fields = %v", got)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := Encode(&bytes.Buffer{}, Format("xml"), sum); err == nil {
			t.Error("expected error")
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
