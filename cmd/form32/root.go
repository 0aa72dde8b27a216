package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/form32/internal/report"
	"github.com/jackzampolin/form32/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool

	// format is the parsed --output value, set before any command runs.
	format = report.FormatYAML
)

var rootCmd = &cobra.Command{
	Use:   "form32",
	Short: "Extract Texas DWC-032 designated doctor requests into structured records",
	Long: `form32 turns a DWC-032 designated doctor examination request packet into a
structured patient record.

Each packet goes through:
  - Text conversion (PDF text layer, OCR for scanned pages)
  - Page classification by form part
  - Per-page vision model extraction
  - Regex, exam location and checkbox fallbacks for anything still missing
  - Examiner defaults and required field validation

Records are written to a per-patient folder and kept in a local database
for listing and spreadsheet export.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: {home}/config.yaml, ./config.yaml or ~/.form32/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "form32 home directory (default: ~/.form32)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "debug logging",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		f, err := report.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		format = f
		return nil
	}

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
