package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/form32/internal/report"
	"github.com/jackzampolin/form32/version"
)

type versionInfo struct {
	Release string `json:"release" yaml:"release"`
	Go      string `json:"go" yaml:"go"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return report.Encode(os.Stdout, format, versionInfo{
			Release: version.GitRelease,
			Go:      version.GoInfo,
			Commit:  version.GitCommit,
			Date:    version.GitCommitDate,
		})
	},
}
