package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sfdcale/cumulusci/application"
	"github.com/sfdcale/cumulusci/domain"
	"github.com/sfdcale/cumulusci/infrastructure/resolver"
	"github.com/sfdcale/cumulusci/infrastructure/salesforce"
	"github.com/sfdcale/cumulusci/infrastructure/zipsource"
	"github.com/sfdcale/cumulusci/internal"
)

//nolint:gochecknoglobals // Cobra flag bindings
var (
	resolution   string
	outputFormat string

	instanceURL  string
	accessToken  string
	orgName      string
	securityType string
	activateRSS  bool
	noRetries    bool
)

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var dependenciesCmd = &cobra.Command{
	Use:   "dependencies",
	Short: "Work with the project's package dependencies",
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var dependenciesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Resolve and flatten dependencies into the ordered install plan",
	Long: `Resolve the project's declared dependencies against their repositories
and print the fully flattened, deduplicated install plan in order.`,
	RunE: runDependenciesList,
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var dependenciesInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the resolved dependencies into a target org",
	Long: `Resolve, flatten and install the project's dependencies into a target
org, in order. Managed packages are installed through the package install
API; unmanaged metadata is deployed through the metadata API.`,
	RunE: runDependenciesInstall,
}

//nolint:gochecknoinits // Cobra flag registration
func init() {
	dependenciesListCmd.Flags().StringVar(&resolution, "resolution", "", "Resolution strategy: production, beta, or unmanaged-head (default: from config)")
	dependenciesListCmd.Flags().StringVar(&outputFormat, "output", "table", "Output format: table or json")

	dependenciesInstallCmd.Flags().StringVar(&resolution, "resolution", "", "Resolution strategy: production, beta, or unmanaged-head (default: from config)")
	dependenciesInstallCmd.Flags().StringVar(&instanceURL, "instance-url", "", "Target org instance URL (or set SF_INSTANCE_URL)")
	dependenciesInstallCmd.Flags().StringVar(&accessToken, "access-token", "", "Target org access token (or set SF_ACCESS_TOKEN)")
	dependenciesInstallCmd.Flags().StringVar(&orgName, "org", "org", "Alias of the target org, used in output")
	dependenciesInstallCmd.Flags().StringVar(&securityType, "security-type", "FULL", "Package install security type: FULL, NONE, or PUSH")
	dependenciesInstallCmd.Flags().BoolVar(&activateRSS, "activate-remote-site-settings", true, "Activate remote site settings after managed installs")
	dependenciesInstallCmd.Flags().BoolVar(&noRetries, "no-retries", false, "Fail immediately instead of retrying retriable install errors")

	dependenciesCmd.AddCommand(dependenciesListCmd)
	dependenciesCmd.AddCommand(dependenciesInstallCmd)
	rootCmd.AddCommand(dependenciesCmd)
}

func runDependenciesList(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	app, err := injectAppContext()
	if err != nil {
		return err
	}

	deps, err := resolveStaticDependencies(ctx, app)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		entries := make([]map[string]string, 0, len(deps))
		for _, dep := range deps {
			entries = append(entries, map[string]string{
				"name":        dep.Name(),
				"description": dep.Description(),
			})
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	fmt.Printf("Install plan (%d dependencies):\n", len(deps))
	for i, dep := range deps {
		fmt.Printf("%3d. %s\n", i+1, dep.Description())
	}
	return nil
}

func runDependenciesInstall(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	app, err := injectAppContext()
	if err != nil {
		return err
	}

	if instanceURL == "" {
		instanceURL = os.Getenv("SF_INSTANCE_URL")
	}
	if accessToken == "" {
		accessToken = os.Getenv("SF_ACCESS_TOKEN")
	}
	if instanceURL == "" || accessToken == "" {
		return fmt.Errorf("target org credentials are required: pass --instance-url and --access-token or set SF_INSTANCE_URL and SF_ACCESS_TOKEN")
	}

	deps, err := resolveStaticDependencies(ctx, app)
	if err != nil {
		return err
	}
	if len(deps) == 0 {
		logger.Info("Project has no dependencies to install")
		return nil
	}

	client := salesforce.NewClient(instanceURL, accessToken, app.Config.Project.Package.APIVersion)
	org := salesforce.NewOrg(orgName, client)
	env := &domain.InstallEnv{
		Repos:    app.Repos,
		Packages: salesforce.NewInstaller(client),
		Zips:     zipsource.New(),
		Builder:  salesforce.NewZipBuilder(),
		Deployer: salesforce.NewDeployer(client),
	}
	depService := application.NewDependencyService(app.Repos, resolver.New(app.Repos), env)

	opts := &domain.InstallOptions{
		ActivateRemoteSiteSettings: activateRSS,
		SecurityType:               securityType,
	}
	retry := domain.DefaultRetryOptions()
	if noRetries {
		retry.Retries = 0
	}

	return depService.InstallDependencies(ctx, org, deps, opts, retry)
}

// resolveStaticDependencies runs the parse/resolve/flatten pipeline for
// the project's declared dependencies using the selected strategy order.
func resolveStaticDependencies(ctx context.Context, app *internal.AppContext) ([]domain.StaticDependency, error) {
	name := resolution
	if name == "" {
		name = app.Config.Project.DependencyResolution
	}
	strategies, err := app.Resolvers.Get(name)
	if err != nil {
		return nil, err
	}

	logger.Infof("Resolving dependencies of %s with the %s strategy", app.Config.Project.Name, name)

	depService := application.NewDependencyService(app.Repos, resolver.New(app.Repos), nil)
	return depService.GetStaticDependencies(ctx, app.Config.Project.Dependencies, strategies)
}
