package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/form32/internal/export"
	"github.com/jackzampolin/form32/internal/store"
)

var (
	exportFile    string
	exportPatient string
	exportLimit   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored records",
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx",
	Short: "Write stored records to an Excel workbook",
	Long: `Write stored records to an Excel workbook with two sheets: Records holds
every field, Provenance holds where each value came from.

Examples:
  form32 export xlsx
  form32 export xlsx --patient doe -f doe.xlsx`,
	Args: cobra.NoArgs,
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

		data, err := export.NewService(st, a.logger).RecordsXLSX(ctx, store.ListOptions{
			Patient: exportPatient,
			Limit:   exportLimit,
		})
		if err != nil {
			return err
		}

		path := exportFile
		if path == "" {
			path = fmt.Sprintf("form32-records-%s.xlsx", time.Now().Format("20060102"))
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
		return nil
	},
}

func init() {
	exportXLSXCmd.Flags().StringVarP(&exportFile, "file", "f", "", "output file (default: form32-records-YYYYMMDD.xlsx)")
	exportXLSXCmd.Flags().StringVar(&exportPatient, "patient", "", "only records whose patient name contains this text")
	exportXLSXCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum number of records (0 = all)")

	exportCmd.AddCommand(exportXLSXCmd)
}
