package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/form32/internal/ingest"
	"github.com/jackzampolin/form32/internal/report"
)

var (
	processNoStore    bool
	processNoOutput   bool
	processShowRecord bool
	processWorkers    int
)

// processOutput is a summary with the optional full record.
type processOutput struct {
	report.Summary `yaml:",inline"`
	Record         []report.FieldValue `json:"record,omitempty" yaml:"record,omitempty"`
}

var processCmd = &cobra.Command{
	Use:   "process <file|dir>...",
	Short: "Extract records from DWC-032 packets",
	Long: `Process one or more DWC-032 packets (PDF, or TIFF/PNG scans).

Directories contribute the supported files they contain. Several documents
are processed concurrently, up to defaults.max_workers at a time. Each
successful record gets a patient folder under the output root and a row in
the record database.

Examples:
  form32 process packet.pdf
  form32 process ~/scans --workers 8
  form32 process packet.pdf --no-store --show-record -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := loadApp()
		if err != nil {
			return err
		}
		cfg := a.config.Get()

		paths, err := ingest.Collect(args)
		if err != nil {
			return err
		}

		proc, err := a.newProcessor(cfg, a.registry(cfg))
		if err != nil {
			return err
		}

		icfg := ingest.Config{
			Processor:  proc,
			MaxWorkers: cfg.Defaults.MaxWorkers,
			Logger:     a.logger,
		}
		if processWorkers > 0 {
			icfg.MaxWorkers = processWorkers
		}
		if !processNoOutput {
			icfg.Writer = a.writer(cfg)
		}
		if cfg.Store.Enabled && !processNoStore {
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
		outcomes, err := svc.Batch(ctx, paths)
		if err != nil {
			return err
		}

		out := make([]processOutput, 0, len(outcomes))
		failed := 0
		for _, o := range outcomes {
			po := processOutput{Summary: report.Summarize(o.Result, o.Artifacts)}
			if o.Err != nil && len(po.Errors) == 0 {
				po.Errors = []string{o.Err.Error()}
			}
			if !o.OK() {
				po.Success = false
				failed++
			}
			if processShowRecord && o.Result.Record != nil {
				po.Record = report.RecordFields(o.Result.Record, false)
			}
			out = append(out, po)
		}

		if len(out) == 1 {
			err = report.Encode(os.Stdout, format, out[0])
		} else {
			err = report.Encode(os.Stdout, format, out)
		}
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(outcomes))
		}
		return nil
	},
}

func init() {
	processCmd.Flags().BoolVar(&processNoStore, "no-store", false, "do not save records to the database")
	processCmd.Flags().BoolVar(&processNoOutput, "no-output", false, "do not write patient folders")
	processCmd.Flags().BoolVar(&processShowRecord, "show-record", false, "include the extracted fields in the output")
	processCmd.Flags().IntVarP(&processWorkers, "workers", "w", 0, "documents processed at once (default: defaults.max_workers)")
}
