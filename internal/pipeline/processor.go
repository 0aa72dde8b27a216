// Package pipeline runs one DWC-032 packet through every extraction phase
// and returns the reconciled record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/form32/internal/checkbox"
	"github.com/jackzampolin/form32/internal/classify"
	"github.com/jackzampolin/form32/internal/document"
	"github.com/jackzampolin/form32/internal/extract"
	"github.com/jackzampolin/form32/internal/fallback"
	"github.com/jackzampolin/form32/internal/metrics"
	"github.com/jackzampolin/form32/internal/reconcile"
	"github.com/jackzampolin/form32/internal/templates"
	"github.com/jackzampolin/form32/internal/validate"
)

var (
	// ErrConversion is returned when the document could not be turned into text.
	ErrConversion = errors.New("document conversion failed")

	// ErrInternal is returned when a phase panicked.
	ErrInternal = errors.New("internal pipeline error")
)

// Budgets are soft wall-clock limits per phase. Exceeding one only logs a
// warning. Zero disables a budget.
type Budgets struct {
	Convert    time.Duration
	Extraction time.Duration
	Checkbox   time.Duration
	Total      time.Duration
}

func (b Budgets) forPhase(phase string) time.Duration {
	switch phase {
	case PhaseConvert:
		return b.Convert
	case PhaseExtraction:
		return b.Extraction
	case PhaseCheckbox:
		return b.Checkbox
	case PhaseTotal:
		return b.Total
	}
	return 0
}

// Config wires a Processor.
type Config struct {
	// Converter is required.
	Converter document.Converter
	// Extractor may be nil, in which case only the fallbacks run.
	Extractor document.Extractor
	// Rasterizer may be nil, in which case checkbox analysis is skipped.
	Rasterizer document.Rasterizer
	Registry   *templates.Registry

	Markers        *classify.Markers
	Phrases        *classify.CheckboxPhrases
	Patterns       *fallback.Extractor
	CheckboxGroups []checkbox.Group

	Assist   bool
	Defaults []reconcile.Default
	Required []string
	Budgets  Budgets
	Logger   *slog.Logger
}

// Processor runs documents through the pipeline. It holds no per-document
// state and is safe for concurrent use when its dependencies are.
type Processor struct {
	cfg        Config
	classifier *classify.Classifier
	mapper     *extract.Mapper
	logger     *slog.Logger
}

// New creates a processor, filling unset optional dependencies with the
// built-in defaults.
func New(cfg Config) (*Processor, error) {
	if cfg.Converter == nil {
		return nil, fmt.Errorf("pipeline: converter is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = templates.Default()
	}
	markers := classify.DefaultMarkers()
	if cfg.Markers != nil {
		markers = *cfg.Markers
	}
	if cfg.Patterns == nil {
		cfg.Patterns = fallback.MustDefault()
	}
	if cfg.CheckboxGroups == nil {
		cfg.CheckboxGroups = checkbox.DefaultGroups()
	}
	if cfg.Required == nil {
		cfg.Required = validate.DefaultRequired
	}
	return &Processor{
		cfg:        cfg,
		classifier: classify.New(markers, cfg.Logger),
		mapper:     extract.NewMapper(cfg.Registry, cfg.Logger),
		logger:     cfg.Logger,
	}, nil
}

// Process runs every phase over the document at path. The returned result
// is never nil. A non-nil error means the run failed and the result
// carries no record; everything short of a conversion failure, a panic or
// cancellation degrades to warnings instead.
func (p *Processor) Process(ctx context.Context, path string) (res *Result, err error) {
	id := uuid.New().String()
	logger := p.logger.With("run_id", id, "path", path)
	start := time.Now()

	usage := metrics.NewCollector()
	ctx = metrics.WithRecorder(ctx, usage)
	ctx = metrics.WithAttribution(ctx, metrics.Attribution{RunID: id, Source: path})
	defer func() {
		if res != nil {
			res.Usage = usage.Metrics()
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", "panic", r, "stack", string(debug.Stack()))
			res = failure(id, path, fmt.Sprintf("internal error: %v", r))
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	logger.Info("processing document")

	t0 := time.Now()
	conv, err := p.cfg.Converter.Convert(ctx, path)
	if err != nil {
		logger.Error("conversion failed", "error", err)
		res = failure(id, path, fmt.Sprintf("conversion failed: %v", err))
		return res, fmt.Errorf("%w: %s: %w", ErrConversion, path, err)
	}
	res = &Result{ID: id, Path: path, Conversion: conv}
	p.record(res, logger, PhaseConvert, t0)

	s := reconcile.NewSession(path, conv, reconcile.Options{ID: id, Assist: p.cfg.Assist, Logger: p.logger})
	res.Trace = s.Trace

	t0 = time.Now()
	s.AddWarning(p.classifier.Validate(conv.FullText)...)
	s.PageTypes = p.classifier.Classify(conv.Pages)
	res.PageTypes = s.PageTypes
	p.record(res, logger, PhaseClassify, t0)

	if err := ctx.Err(); err != nil {
		return p.cancelled(res, err)
	}

	t0 = time.Now()
	if err := p.extract(ctx, s); err != nil {
		return p.cancelled(res, err)
	}
	p.record(res, logger, PhaseExtraction, t0)

	t0 = time.Now()
	s.ApplyRegex(p.cfg.Patterns)
	s.ApplyLocation()
	p.record(res, logger, PhaseFallback, t0)

	t0 = time.Now()
	if err := p.checkboxes(ctx, s); err != nil {
		return p.cancelled(res, err)
	}
	p.record(res, logger, PhaseCheckbox, t0)

	s.ApplyDefaults(p.cfg.Defaults)
	report := s.Validate(p.cfg.Required)

	res.Record = s.Finalize()
	res.Provenance = s.Provenance
	res.Validation = &report
	res.Warnings = s.Warnings
	res.Success = true
	p.record(res, logger, PhaseTotal, start)

	logger.Info("document processed",
		"sources", s.Summary(),
		"warnings", len(res.Warnings),
		"elapsed", time.Since(start),
	)
	return res, nil
}

// extract runs the model over the classified pages and applies the mapped
// values. Only cancellation is returned as an error.
func (p *Processor) extract(ctx context.Context, s *reconcile.Session) error {
	if p.cfg.Extractor == nil {
		s.AddWarning("no extraction service configured; using fallbacks only")
		return nil
	}
	runner := extract.NewRunner(extract.RunnerConfig{
		Extractor: p.cfg.Extractor,
		Registry:  p.cfg.Registry,
		Assist:    s.Assist(),
		Logger:    s.Logger(),
	})
	res, err := runner.Run(ctx, s.Path, s.PageTypes)
	switch {
	case errors.Is(err, extract.ErrNoRelevantPages):
		s.AddWarning("no form pages with an extraction template were found")
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Warnf("structured extraction failed: %v", err)
	}
	if res == nil {
		return nil
	}
	if n := len(res.Pages) - res.Succeeded(); n > 0 {
		s.Warnf("structured extraction failed on %d of %d pages", n, len(res.Pages))
	}
	s.ApplyModel(res, p.mapper.Map(res.Values, res.Order))
	return nil
}

// checkboxes measures the checkbox regions and applies the readings. A
// rendering failure is a warning; only cancellation is returned.
func (p *Processor) checkboxes(ctx context.Context, s *reconcile.Session) error {
	if p.cfg.Rasterizer == nil {
		s.Logger().Debug("no rasterizer configured, skipping checkbox analysis")
		return nil
	}
	// A fresh analyzer per document keeps its page cache scoped to the run.
	analyzer := checkbox.New(checkbox.Config{
		Rasterizer: p.cfg.Rasterizer,
		Groups:     p.cfg.CheckboxGroups,
		Phrases:    p.cfg.Phrases,
		Logger:     s.Logger(),
	})
	res, err := analyzer.Analyze(ctx, s.Path, s.Pages)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Warnf("checkbox analysis failed: %v", err)
		return nil
	}
	s.ApplyCheckboxes(res)
	return nil
}

func (p *Processor) cancelled(res *Result, err error) (*Result, error) {
	p.logger.Warn("processing cancelled", "path", res.Path, "error", err)
	out := failure(res.ID, res.Path, fmt.Sprintf("cancelled: %v", err))
	out.Timings = res.Timings
	return out, err
}

// record appends the timing of a phase, warning when it ran over budget.
func (p *Processor) record(res *Result, logger *slog.Logger, phase string, start time.Time) {
	t := Timing{Phase: phase, Elapsed: time.Since(start), Budget: p.cfg.Budgets.forPhase(phase)}
	if t.Budget > 0 && t.Elapsed > t.Budget {
		t.Exceeded = true
		logger.Warn("phase exceeded budget", "phase", phase, "elapsed", t.Elapsed, "budget", t.Budget)
	}
	res.Timings = append(res.Timings, t)
}
