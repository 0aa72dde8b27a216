package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/form32/internal/record"
	"github.com/jackzampolin/form32/internal/report"
	"github.com/jackzampolin/form32/internal/store"
)

var (
	recordsPatient string
	recordsLimit   int
	recordsAll     bool
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List and inspect stored records",
}

// recordRow is one line of records list.
type recordRow struct {
	ID          string `json:"id" yaml:"id"`
	Patient     string `json:"patient" yaml:"patient"`
	ExamDate    string `json:"exam_date" yaml:"exam_date"`
	City        string `json:"city,omitempty" yaml:"city,omitempty"`
	Warnings    int    `json:"warnings" yaml:"warnings"`
	ProcessedAt string `json:"processed_at" yaml:"processed_at"`
	OutputDir   string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp()
		if err != nil {
			return err
		}
		st, err := a.openStore(ctx, a.config.Get())
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.List(ctx, store.ListOptions{Patient: recordsPatient, Limit: recordsLimit})
		if err != nil {
			return err
		}
		rows := make([]recordRow, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, recordRow{
				ID:          r.ID,
				Patient:     r.PatientName,
				ExamDate:    r.ExamDate,
				City:        r.ExamCity,
				Warnings:    len(r.Warnings),
				ProcessedAt: r.ProcessedAt.Local().Format(time.DateTime),
				OutputDir:   r.OutputDir,
			})
		}
		return report.Encode(os.Stdout, format, rows)
	},
}

// recordDetail is the output of records show.
type recordDetail struct {
	ID          string              `json:"id" yaml:"id"`
	SourcePath  string              `json:"source_path" yaml:"source_path"`
	OutputDir   string              `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	ProcessedAt time.Time           `json:"processed_at" yaml:"processed_at"`
	Warnings    []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Fields      []report.FieldValue `json:"fields" yaml:"fields"`
	Sources     map[string]string   `json:"sources" yaml:"sources"`
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one record and where each value came from",
	Long: `Show a stored record. The id may be any unique prefix of the record id.

Only fields with a value are shown unless --all is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp()
		if err != nil {
			return err
		}
		st, err := a.openStore(ctx, a.config.Get())
		if err != nil {
			return err
		}
		defer st.Close()

		r, err := st.Get(ctx, args[0])
		if err != nil {
			return err
		}
		d := recordDetail{
			ID:          r.ID,
			SourcePath:  r.SourcePath,
			OutputDir:   r.OutputDir,
			ProcessedAt: r.ProcessedAt,
			Warnings:    r.Warnings,
			Fields:      report.RecordFields(r.Record, recordsAll),
			Sources:     make(map[string]string),
		}
		for _, fv := range d.Fields {
			if src := r.Provenance.Get(fv.Field); src != record.SourceUnset || recordsAll {
				d.Sources[fv.Field] = string(src)
			}
		}
		return report.Encode(os.Stdout, format, d)
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored record (the patient folder is left in place)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp()
		if err != nil {
			return err
		}
		st, err := a.openStore(ctx, a.config.Get())
		if err != nil {
			return err
		}
		defer st.Close()

		// Resolve a prefix to the full id first.
		r, err := st.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if err := st.Delete(ctx, r.ID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "deleted %s (%s)\n", r.ID, r.PatientName)
		return nil
	},
}

func init() {
	recordsListCmd.Flags().StringVar(&recordsPatient, "patient", "", "only records whose patient name contains this text")
	recordsListCmd.Flags().IntVar(&recordsLimit, "limit", 0, "maximum number of records (0 = all)")
	recordsShowCmd.Flags().BoolVar(&recordsAll, "all", false, "include unset fields")

	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsShowCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
}
