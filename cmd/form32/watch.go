package main

import (
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/form32/internal/config"
	"github.com/jackzampolin/form32/internal/ingest"
	"github.com/jackzampolin/form32/internal/report"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [inbox]",
	Short: "Process packets as they are dropped into an inbox directory",
	Long: `Watch an inbox directory and process every PDF or scan that lands in it.

Files already in the inbox are processed first. A document that produced a
record is moved to {home}/archive; anything else is moved to {home}/failed
with a .error.txt note. Changes to the config file are picked up without a
restart.

Examples:
  form32 watch                   # Watch {home}/inbox
  form32 watch ~/Dropbox/dwc032  # Watch another directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := loadApp()
		if err != nil {
			return err
		}
		cfg := a.config.Get()
		reg := a.registry(cfg)

		proc, err := a.newProcessor(cfg, reg)
		if err != nil {
			return err
		}
		icfg := ingest.Config{
			Processor: proc,
			Writer:    a.writer(cfg),
			Logger:    a.logger,
		}
		if cfg.Store.Enabled {
			st, err := a.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			icfg.Store = st
		}
		svc, err := ingest.New(icfg)
		if err != nil {
			return err
		}

		a.config.OnChange(func(cfg *config.Config) {
			a.setLevel(cfg)
			reg.Reload(cfg.ToProviderRegistryConfig(a.logger))
			p, err := a.newProcessor(cfg, reg)
			if err != nil {
				a.logger.Error("keeping previous pipeline after config change", "error", err)
				return
			}
			svc.SetProcessor(p)
			a.logger.Info("pipeline rebuilt from config")
		})
		a.config.WatchConfig()

		inbox := a.home.InboxPath()
		if len(args) == 1 {
			inbox = args[0]
		}

		var mu sync.Mutex
		w, err := ingest.NewWatcher(svc, ingest.WatchConfig{
			Inbox:   inbox,
			Archive: a.home.ArchivePath(),
			Failed:  a.home.FailedPath(),
			Settle:  watchSettle,
			OnOutcome: func(o ingest.Outcome) {
				sum := report.Summarize(o.Result, o.Artifacts)
				if o.Err != nil && len(sum.Errors) == 0 {
					sum.Errors = []string{o.Err.Error()}
				}
				sum.Success = o.OK()
				mu.Lock()
				defer mu.Unlock()
				if err := report.Encode(os.Stdout, format, sum); err != nil {
					a.logger.Warn("failed to print outcome", "error", err)
				}
			},
			Logger: a.logger,
		})
		if err != nil {
			return err
		}
		return w.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", ingest.DefaultSettle, "quiet time before a new file is picked up")
}
