package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/form32/internal/metrics"
	"github.com/jackzampolin/form32/internal/report"
)

var (
	usageRun   string
	usageStage string
	usageSince time.Duration
	usageBy    string
	usageCalls bool
)

// usageOutput is the output of the usage command.
type usageOutput struct {
	Total  metrics.Summary            `json:"total" yaml:"total"`
	Groups map[string]metrics.Summary `json:"groups,omitempty" yaml:"groups,omitempty"`
	Calls  []metrics.Metric           `json:"calls,omitempty" yaml:"calls,omitempty"`
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show LLM and OCR spend recorded in the database",
	Long: `Summarize the provider calls made while processing documents: call
counts, tokens, cost and latency.

Examples:
  form32 usage                      # Everything
  form32 usage --since 24h --by provider
  form32 usage --run 3f2a --calls   # One document, call by call`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var key func(metrics.Metric) string
		switch usageBy {
		case "":
		case "stage":
			key = metrics.ByStage
		case "provider":
			key = metrics.ByProvider
		case "run":
			key = metrics.ByRun
		default:
			return fmt.Errorf("unknown grouping %q (use stage, provider or run)", usageBy)
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		st, err := a.openStore(ctx, a.config.Get())
		if err != nil {
			return err
		}
		defer st.Close()

		f := metrics.Filter{RunID: usageRun, Stage: usageStage}
		if usageSince > 0 {
			f.After = time.Now().Add(-usageSince)
		}
		ms, err := st.ListUsage(ctx, f)
		if err != nil {
			return err
		}

		out := usageOutput{Total: metrics.Summarize(ms)}
		if key != nil {
			out.Groups = metrics.GroupBy(ms, key)
		}
		if usageCalls {
			out.Calls = ms
		}
		return report.Encode(os.Stdout, format, out)
	},
}

func init() {
	usageCmd.Flags().StringVar(&usageRun, "run", "", "only calls for this record id (prefix)")
	usageCmd.Flags().StringVar(&usageStage, "stage", "", "only calls from this stage (ocr, extraction)")
	usageCmd.Flags().DurationVar(&usageSince, "since", 0, "only calls newer than this, e.g. 24h")
	usageCmd.Flags().StringVar(&usageBy, "by", "", "group totals by stage, provider or run")
	usageCmd.Flags().BoolVar(&usageCalls, "calls", false, "list individual calls")
}
