package cmd

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flag bindings
var (
	// Global flags
	configPath string
	token      string
	verbose    bool
)

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var rootCmd = &cobra.Command{
	Use:   "cci",
	Short: "Salesforce package dependency and release tooling",
	Long: `A CLI tool that reads a project's declared package dependencies,
resolves them against their source repositories, and installs them into a
target org in the right order.

This tool keeps multi-package Salesforce projects consistent by:
- Parsing dependency declarations from the project config
- Resolving dynamic repository dependencies to concrete commits
- Flattening transitive dependencies into an ordered install plan
- Installing managed packages and deploying unmanaged metadata`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetLevel(logger.DebugLevel)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

//nolint:gochecknoinits // Cobra flag registration
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the project config file (default: auto-detect cumulusci.yml)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "GitHub token for repository access (or connect a github service)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
