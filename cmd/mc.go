package cmd

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sfdcale/cumulusci/config"
	"github.com/sfdcale/cumulusci/infrastructure/marketingcloud"
)

//nolint:gochecknoglobals // Cobra flag bindings
var (
	mcCustomInputs string
	mcPollInterval time.Duration
	mcService      string
)

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var mcCmd = &cobra.Command{
	Use:   "mc",
	Short: "Marketing Cloud tasks",
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var mcDeployCmd = &cobra.Command{
	Use:   "deploy <package-zip>",
	Short: "Deploy a Marketing Cloud package zip",
	Long: `Deploy a Marketing Cloud package through the package manager service.
The zip is unpacked locally, turned into a deployment payload, uploaded,
and the deployment job is polled until it finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: runMcDeploy,
}

//nolint:gochecknoinits // Cobra flag registration
func init() {
	mcDeployCmd.Flags().StringVar(&mcCustomInputs, "custom-inputs", "", "Custom input values as key:value pairs, comma separated")
	mcDeployCmd.Flags().DurationVar(&mcPollInterval, "poll-interval", 10*time.Second, "Interval between deployment status checks")
	mcDeployCmd.Flags().StringVar(&mcService, "service", "", "Name of the marketing-cloud service to use (default: the default service)")

	mcCmd.AddCommand(mcDeployCmd)
	rootCmd.AddCommand(mcCmd)
}

func runMcDeploy(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := injectAppContext()
	if err != nil {
		return err
	}

	attrs, err := app.Keychain.GetService("marketing-cloud", mcService)
	if err != nil {
		return fmt.Errorf("connect a marketing-cloud service first: %w", err)
	}

	customInputs := map[string]string{}
	if mcCustomInputs != "" {
		customInputs, err = config.ParsePairs(mcCustomInputs)
		if err != nil {
			return err
		}
	}

	task := marketingcloud.NewDeployTask(app.Config.Tasks.MarketingCloud.Endpoint, marketingcloud.Credentials{
		AccessToken: attrs["access_token"],
		TSSD:        attrs["tssd"],
	})

	logger.Infof("Deploying %s to Marketing Cloud", args[0])
	return task.Run(ctx, marketingcloud.DeployOptions{
		PackageZipFile: args[0],
		CustomInputs:   customInputs,
		PollInterval:   mcPollInterval,
	})
}
