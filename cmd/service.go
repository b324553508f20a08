package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sfdcale/cumulusci/config"
	"github.com/sfdcale/cumulusci/domain"
)

//nolint:gochecknoglobals // Cobra flag bindings
var serviceAttrs string

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage connected service credentials",
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var serviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured services and their connection state",
	RunE:  runServiceList,
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var serviceConnectCmd = &cobra.Command{
	Use:   "connect <type> [name]",
	Short: "Connect a named service of the given type",
	Long: `Connect a service by storing its attributes in the keychain.
Attribute values are given with --attrs; required attributes without a
value fall back to their configured environment variable.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runServiceConnect,
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var serviceInfoCmd = &cobra.Command{
	Use:   "info <type> [name]",
	Short: "Show the attributes of a connected service",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runServiceInfo,
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var serviceDefaultCmd = &cobra.Command{
	Use:   "default <type> <name>",
	Short: "Set the default service for a type",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		app, err := injectAppContext()
		if err != nil {
			return err
		}
		if err := app.Keychain.SetDefaultService(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Service %s is now the default %s service\n", args[1], args[0])
		return nil
	},
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var serviceRenameCmd = &cobra.Command{
	Use:   "rename <type> <old-name> <new-name>",
	Short: "Rename a connected service",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		app, err := injectAppContext()
		if err != nil {
			return err
		}
		if err := app.Keychain.RenameService(args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("Service %s renamed to %s\n", args[1], args[2])
		return nil
	},
}

//nolint:gochecknoglobals,exhaustruct // Cobra command definition
var serviceRemoveCmd = &cobra.Command{
	Use:   "remove <type> <name>",
	Short: "Remove a connected service",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		app, err := injectAppContext()
		if err != nil {
			return err
		}
		if err := app.Keychain.RemoveService(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Service %s removed\n", args[1])
		return nil
	},
}

//nolint:gochecknoinits // Cobra flag registration
func init() {
	serviceConnectCmd.Flags().StringVar(&serviceAttrs, "attrs", "", "Attribute values as key:value pairs, comma separated")

	serviceCmd.AddCommand(serviceListCmd)
	serviceCmd.AddCommand(serviceConnectCmd)
	serviceCmd.AddCommand(serviceInfoCmd)
	serviceCmd.AddCommand(serviceDefaultCmd)
	serviceCmd.AddCommand(serviceRenameCmd)
	serviceCmd.AddCommand(serviceRemoveCmd)
	rootCmd.AddCommand(serviceCmd)
}

func runServiceList(_ *cobra.Command, _ []string) error {
	app, err := injectAppContext()
	if err != nil {
		return err
	}

	connected, err := app.Keychain.ListServices()
	if err != nil {
		return err
	}

	types := make([]string, 0, len(app.Config.Services))
	for serviceType := range app.Config.Services {
		types = append(types, serviceType)
	}
	sort.Strings(types)

	heading := color.New(color.FgCyan, color.Bold).SprintFunc()
	ok := color.New(color.FgGreen).SprintFunc()
	missing := color.New(color.FgYellow).SprintFunc()

	for _, serviceType := range types {
		fmt.Printf("%s  %s\n", heading(serviceType), app.Config.Services[serviceType].Description)

		names := connected[serviceType]
		if len(names) == 0 {
			fmt.Printf("    %s\n", missing("not connected"))
			continue
		}

		defaultName, _ := app.Keychain.DefaultServiceName(serviceType)
		for _, name := range names {
			marker := " "
			if name == defaultName {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, ok(name))
		}
	}
	return nil
}

func runServiceConnect(_ *cobra.Command, args []string) error {
	app, err := injectAppContext()
	if err != nil {
		return err
	}

	serviceType := args[0]
	name := "default"
	if len(args) > 1 {
		name = args[1]
	}

	typeConfig, ok := app.Config.Services[serviceType]
	if !ok {
		return fmt.Errorf("unknown service type: %s", serviceType)
	}

	attrs := domain.ServiceAttributes{}
	if serviceAttrs != "" {
		pairs, parseErr := config.ParsePairs(serviceAttrs)
		if parseErr != nil {
			return parseErr
		}
		for key, value := range pairs {
			attrs[key] = value
		}
	}

	if err := app.Connector.Connect(serviceType, name, typeConfig, attrs); err != nil {
		return err
	}
	fmt.Printf("Service %s of type %s connected\n", name, serviceType)
	return nil
}

func runServiceInfo(_ *cobra.Command, args []string) error {
	app, err := injectAppContext()
	if err != nil {
		return err
	}

	serviceType := args[0]
	name := ""
	if len(args) > 1 {
		name = args[1]
	}

	attrs, err := app.Keychain.GetService(serviceType, name)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Printf("%-20s %s\n", key, attrs[key])
	}
	return nil
}
