package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackzampolin/form32/internal/checkbox"
	"github.com/jackzampolin/form32/internal/config"
	"github.com/jackzampolin/form32/internal/document"
	"github.com/jackzampolin/form32/internal/fallback"
	"github.com/jackzampolin/form32/internal/home"
	"github.com/jackzampolin/form32/internal/pipeline"
	extractprompts "github.com/jackzampolin/form32/internal/prompts/extract"
	"github.com/jackzampolin/form32/internal/providers"
	"github.com/jackzampolin/form32/internal/report"
	"github.com/jackzampolin/form32/internal/store"
)

// app is the state shared by commands that run or read the pipeline.
type app struct {
	home   *home.Dir
	config *config.Manager
	level  *slog.LevelVar
	logger *slog.Logger
}

// loadApp resolves the home directory, loads the config and builds the
// logger.
func loadApp() (*app, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	mgr, err := config.NewManager(path, logger)
	if err != nil {
		return nil, err
	}
	a := &app{home: h, config: mgr, level: level, logger: logger}
	a.setLevel(mgr.Get())
	if f := mgr.File(); f != "" {
		logger.Debug("config loaded", "file", f)
	}
	return a, nil
}

func (a *app) setLevel(cfg *config.Config) {
	if verbose {
		a.level.Set(slog.LevelDebug)
		return
	}
	lvl, err := config.ParseLevel(cfg.Defaults.LogLevel)
	if err != nil {
		lvl = slog.LevelInfo
	}
	a.level.Set(lvl)
}

func (a *app) registry(cfg *config.Config) *providers.Registry {
	return providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig(a.logger))
}

// newProcessor wires the pipeline from cfg. Missing providers degrade the
// pipeline instead of failing: no OCR leaves scanned pages blank, no vision
// model leaves extraction to the fallbacks.
func (a *app) newProcessor(cfg *config.Config, reg *providers.Registry) (*pipeline.Processor, error) {
	raster := document.NewByFormat(cfg.Pipeline.RenderDPI)

	conv := &document.TextLayerConverter{
		Imager:       raster,
		MinPageChars: cfg.Pipeline.MinPageChars,
		Logger:       a.logger,
	}
	if name := cfg.Defaults.OCRProvider; name != "" {
		if ocr, err := reg.GetOCR(name); err != nil {
			a.logger.Warn("OCR provider unavailable, scanned pages will have no text", "provider", name, "configured", reg.ListOCR(), "error", err)
		} else {
			conv.OCR = ocr
		}
	}

	var extractor document.Extractor
	name := cfg.Defaults.LLMProvider
	client, err := reg.GetLLM(name)
	if err != nil {
		a.logger.Warn("vision model unavailable, using fallbacks only", "provider", name, "configured", reg.ListLLM(), "error", err)
	} else {
		llm, _ := cfg.GetLLMProvider(name)
		ext, err := document.NewLLMExtractor(document.LLMExtractorConfig{
			Client:      client,
			Imager:      raster,
			Prompts:     extractprompts.NewResolver(cfg.Pipeline.Prompts),
			Model:       llm.Model,
			Temperature: cfg.Pipeline.Temperature,
			MaxTokens:   cfg.Pipeline.MaxTokens,
			Logger:      a.logger,
		})
		if err != nil {
			return nil, err
		}
		extractor = ext
	}

	patterns, err := fallback.NewExtractor(cfg.Patterns())
	if err != nil {
		return nil, fmt.Errorf("invalid fallback patterns: %w", err)
	}
	markers := cfg.Markers()
	groups := checkbox.WithThresholds(checkbox.Scale(checkbox.DefaultGroups(), raster.DPI()), cfg.Pipeline.Checkbox.Thresholds)

	return pipeline.New(pipeline.Config{
		Converter:      conv,
		Extractor:      extractor,
		Rasterizer:     raster,
		Markers:        &markers,
		Patterns:       patterns,
		CheckboxGroups: groups,
		Assist:         cfg.Pipeline.AssistMode,
		Defaults:       cfg.ExaminerDefaults(),
		Required:       cfg.Pipeline.Required,
		Budgets: pipeline.Budgets{
			Convert:    config.Budget(cfg.Pipeline.Budgets.ConvertSeconds),
			Extraction: config.Budget(cfg.Pipeline.Budgets.ExtractionSeconds),
			Checkbox:   config.Budget(cfg.Pipeline.Budgets.CheckboxSeconds),
			Total:      config.Budget(cfg.Pipeline.Budgets.TotalSeconds),
		},
		Logger: a.logger,
	})
}

// writer returns the patient folder writer for cfg.
func (a *app) writer(cfg *config.Config) *report.Writer {
	root := cfg.Output.Root
	if root == "" {
		root = a.home.PatientsPath()
	}
	return report.NewWriter(report.Options{
		Root:          root,
		CopySource:    cfg.Output.CopySource,
		WriteMarkdown: cfg.Output.WriteMarkdown,
		WriteTrace:    cfg.Output.WriteTrace,
	}, a.logger)
}

// openStore opens the record database.
func (a *app) openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		path = a.home.DBPath()
	}
	return store.Open(ctx, path, a.logger)
}
