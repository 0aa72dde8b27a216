// Package report writes the per-patient output folder for a processed
// document.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackzampolin/form32/internal/home"
	"github.com/jackzampolin/form32/internal/pipeline"
	"github.com/jackzampolin/form32/internal/reconcile"
	"github.com/jackzampolin/form32/internal/templates"
)

// File names inside a patient folder.
const (
	RecordFileName   = "form32_data.json"
	TraceFileName    = "extracted_fields.json"
	MarkdownFileName = "document.md"
)

// Options selects which artifacts are written.
type Options struct {
	Root          string
	CopySource    bool
	WriteMarkdown bool
	WriteTrace    bool
}

// Artifacts lists what was written for one document. Empty paths were not
// written.
type Artifacts struct {
	Dir        string `json:"dir" yaml:"dir"`
	SourceCopy string `json:"source_copy,omitempty" yaml:"source_copy,omitempty"`
	Record     string `json:"record" yaml:"record"`
	Trace      string `json:"trace,omitempty" yaml:"trace,omitempty"`
	Markdown   string `json:"markdown,omitempty" yaml:"markdown,omitempty"`
}

// Writer writes patient folders under Options.Root.
type Writer struct {
	opts   Options
	logger *slog.Logger
}

// NewWriter creates a writer.
func NewWriter(opts Options, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{opts: opts, logger: logger}
}

// tracePayload is the provenance file: the full trace plus run context.
type tracePayload struct {
	*reconcile.Trace
	RunID     string                     `json:"run_id"`
	Source    string                     `json:"source"`
	PageTypes map[int]templates.PageType `json:"page_types"`
	Warnings  []string                   `json:"warnings"`
	Timings   []pipeline.Timing          `json:"timings,omitempty"`
}

// Write creates the patient folder for a successful result and fills it.
// The folder, the record file and the source copy must succeed; the trace
// and markdown files are best effort and only logged on failure.
func (w *Writer) Write(res *pipeline.Result) (*Artifacts, error) {
	if res == nil || !res.Success || res.Record == nil {
		return nil, fmt.Errorf("no record to write")
	}
	rec := res.Record
	name := rec.Text("patient_name")
	dir := home.PatientDir(w.opts.Root, name, rec.Text("exam_location_city"), rec.Text("exam_date"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create patient directory: %w", err)
	}
	art := &Artifacts{Dir: dir}

	if w.opts.CopySource {
		dest := filepath.Join(dir, copyName(name, res.Path))
		if err := copyFile(res.Path, dest); err != nil {
			return nil, fmt.Errorf("failed to copy source: %w", err)
		}
		art.SourceCopy = dest
	}

	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	art.Record = filepath.Join(dir, RecordFileName)
	if err := writeFile(art.Record, data); err != nil {
		return nil, err
	}

	if w.opts.WriteTrace && res.Trace != nil {
		payload := tracePayload{
			Trace:     res.Trace,
			RunID:     res.ID,
			Source:    res.Path,
			PageTypes: res.PageTypes,
			Warnings:  res.Warnings,
			Timings:   res.Timings,
		}
		if data, err := json.MarshalIndent(payload, "", "  "); err != nil {
			w.logger.Error("failed to marshal trace", "path", res.Path, "error", err)
		} else if path := filepath.Join(dir, TraceFileName); writeFile(path, data) != nil {
			w.logger.Error("failed to write trace", "path", path)
		} else {
			art.Trace = path
		}
	}

	if w.opts.WriteMarkdown && res.Conversion != nil && res.Conversion.Markdown != "" {
		path := filepath.Join(dir, MarkdownFileName)
		if err := writeFile(path, []byte(res.Conversion.Markdown)); err != nil {
			w.logger.Error("failed to write markdown", "path", path, "error", err)
		} else {
			art.Markdown = path
		}
	}

	w.logger.Info("patient folder written", "dir", dir, "source", res.Path)
	return art, nil
}

// copyName keeps the source extension for image intake scans.
func copyName(patientName, source string) string {
	name := home.SourceCopyName(patientName)
	if ext := strings.ToLower(filepath.Ext(source)); ext != "" && ext != ".pdf" {
		name = strings.TrimSuffix(name, ".pdf") + ext
	}
	return name
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// copyFile copies src to dst, keeping the source modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, time.Now(), info.ModTime())
}
