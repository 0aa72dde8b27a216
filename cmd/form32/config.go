package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/form32/internal/config"
	"github.com/jackzampolin/form32/internal/home"
	"github.com/jackzampolin/form32/internal/report"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage form32 configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to {home}/config.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		path := h.ConfigPath()
		if h.ConfigExists() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and FORM32_*
environment overrides are applied. API keys are shown unexpanded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return report.Encode(os.Stdout, format, a.config.Get())
	},
}

var configDefaultsCmd = &cobra.Command{
	Use:   "defaults [key]",
	Short: "List the built-in settings and what they do",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			e, err := config.GetDefault(args[0])
			if err != nil {
				return err
			}
			return report.Encode(os.Stdout, format, e)
		}
		return report.Encode(os.Stdout, format, config.DefaultEntries())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configDefaultsCmd)
}
