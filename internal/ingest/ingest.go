// Package ingest feeds DWC-032 packets through the pipeline, writes the
// patient folders and persists the records. Documents are processed one at
// a time, as a concurrent batch, or as they land in an inbox directory.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/form32/internal/document"
	"github.com/jackzampolin/form32/internal/home"
	"github.com/jackzampolin/form32/internal/metrics"
	"github.com/jackzampolin/form32/internal/pipeline"
	"github.com/jackzampolin/form32/internal/report"
	"github.com/jackzampolin/form32/internal/store"
)

// Processor runs one document through the pipeline.
type Processor interface {
	Process(ctx context.Context, path string) (*pipeline.Result, error)
}

// ArtifactWriter writes the patient folder for a successful result.
type ArtifactWriter interface {
	Write(res *pipeline.Result) (*report.Artifacts, error)
}

// RecordSaver persists finalized records and the provider usage behind them.
type RecordSaver interface {
	Save(ctx context.Context, r *store.StoredRecord) error
	SaveUsage(ctx context.Context, ms []metrics.Metric) error
}

// Outcome is what happened to one input document.
type Outcome struct {
	Result    *pipeline.Result  `json:"result"`
	Artifacts *report.Artifacts `json:"artifacts,omitempty"`
	// Err is set when processing failed or the record could not be written.
	Err error `json:"-"`
}

// OK reports whether the document produced a written record.
func (o Outcome) OK() bool { return o.Err == nil && o.Result != nil && o.Result.Success }

// Config configures a Service.
type Config struct {
	Processor Processor
	// Writer and Store are optional.
	Writer     ArtifactWriter
	Store      RecordSaver
	MaxWorkers int
	Logger     *slog.Logger
}

// Service processes documents and records their outcomes.
type Service struct {
	mu   sync.RWMutex
	proc Processor

	writer  ArtifactWriter
	store   RecordSaver
	workers int
	logger  *slog.Logger
}

// New creates an ingest service.
func New(cfg Config) (*Service, error) {
	if cfg.Processor == nil {
		return nil, fmt.Errorf("ingest: processor is required")
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		proc:    cfg.Processor,
		writer:  cfg.Writer,
		store:   cfg.Store,
		workers: cfg.MaxWorkers,
		logger:  cfg.Logger,
	}, nil
}

// SetProcessor swaps the processor used for documents started after the
// call, e.g. after a config reload.
func (s *Service) SetProcessor(p Processor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proc = p
}

func (s *Service) processor() Processor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proc
}

// One processes a single document, writes its folder and saves it.
func (s *Service) One(ctx context.Context, path string) Outcome {
	res, err := s.processor().Process(ctx, path)
	out := Outcome{Result: res, Err: err}
	s.saveUsage(ctx, res)
	if err != nil {
		return out
	}

	if s.writer != nil {
		art, err := s.writer.Write(res)
		if err != nil {
			out.Err = fmt.Errorf("write artifacts: %w", err)
			return out
		}
		out.Artifacts = art
	}

	if s.store != nil {
		if err := s.store.Save(ctx, storedRecord(res, out.Artifacts)); err != nil {
			out.Err = fmt.Errorf("save record: %w", err)
			return out
		}
	}
	return out
}

// saveUsage records provider spend for failed documents too. It survives
// cancellation since the calls were already billed.
func (s *Service) saveUsage(ctx context.Context, res *pipeline.Result) {
	if s.store == nil || res == nil || len(res.Usage) == 0 {
		return
	}
	if err := s.store.SaveUsage(context.WithoutCancel(ctx), res.Usage); err != nil {
		s.logger.Warn("failed to save usage", "path", res.Path, "error", err)
	}
}

// Batch processes paths concurrently, at most MaxWorkers at a time. The
// outcomes are returned in input order after sorting by numeric suffix. A
// failing document does not stop the others; only cancellation is
// returned as an error.
func (s *Service) Batch(ctx context.Context, paths []string) ([]Outcome, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no documents provided")
	}
	sorted := sortByNumber(paths)
	outcomes := make([]Outcome, len(sorted))

	start := time.Now()
	s.logger.Info("starting batch", "documents", len(sorted), "workers", s.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range sorted {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Result: &pipeline.Result{Path: path}, Err: err}
				return nil
			}
			outcomes[i] = s.One(gctx, path)
			if o := outcomes[i]; o.Err != nil {
				s.logger.Warn("document failed", "path", path, "error", o.Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
	}
	s.logger.Info("batch complete",
		"documents", len(sorted),
		"failed", failed,
		"elapsed", time.Since(start),
	)
	return outcomes, ctx.Err()
}

func storedRecord(res *pipeline.Result, art *report.Artifacts) *store.StoredRecord {
	rec := res.Record
	sr := &store.StoredRecord{
		ID:          res.ID,
		SourcePath:  res.Path,
		PatientName: rec.Text("patient_name"),
		ExamDate:    home.ISODate(rec.Text("exam_date")),
		ExamCity:    rec.Text("exam_location_city"),
		ClaimNumber: rec.Text("claim_number"),
		Record:      rec,
		Provenance:  res.Provenance,
		Warnings:    res.Warnings,
		ProcessedAt: time.Now().UTC(),
	}
	if art != nil {
		sr.OutputDir = art.Dir
	}
	return sr
}

// Supported reports whether path has an extension the pipeline accepts.
func Supported(path string) bool {
	return document.IsPDF(path) || document.IsImage(path)
}

// Collect expands the arguments into document paths. Directories
// contribute their supported files, not recursively.
func Collect(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("document not found: %s", arg)
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && Supported(e.Name()) {
				out = append(out, filepath.Join(arg, e.Name()))
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no documents found")
	}
	return out, nil
}

var numberSuffix = regexp.MustCompile(`-(\d+)\.[A-Za-z]+$`)

// sortByNumber sorts paths by their numeric suffix.
// e.g., ["scan-2.pdf", "scan-1.pdf", "scan-10.pdf"] -> ["scan-1.pdf", "scan-2.pdf", "scan-10.pdf"]
func sortByNumber(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)

	sort.SliceStable(sorted, func(i, j int) bool {
		mi := numberSuffix.FindStringSubmatch(sorted[i])
		mj := numberSuffix.FindStringSubmatch(sorted[j])

		if len(mi) > 1 && len(mj) > 1 {
			if strings.TrimSuffix(sorted[i], mi[0]) == strings.TrimSuffix(sorted[j], mj[0]) {
				ni, _ := strconv.Atoi(mi[1])
				nj, _ := strconv.Atoi(mj[1])
				return ni < nj
			}
			return sorted[i] < sorted[j]
		}

		// Files without numbers come first
		if len(mi) > 1 {
			return false
		}
		if len(mj) > 1 {
			return true
		}
		return sorted[i] < sorted[j]
	})

	return sorted
}
