package cmd

import (
	"go.uber.org/dig"

	"github.com/sfdcale/cumulusci/internal"
)

// injectAppContext builds the DIG container from the global flags and
// resolves the shared application context.
func injectAppContext() (*internal.AppContext, error) {
	container := dig.New()

	if err := container.Provide(func() internal.Options {
		return internal.Options{
			ConfigPath: configPath,
			Token:      token,
		}
	}); err != nil {
		return nil, err
	}

	if err := internal.RegisterProviders(container); err != nil {
		return nil, err
	}

	var appContext *internal.AppContext
	if err := container.Invoke(func(ac *internal.AppContext) {
		appContext = ac
	}); err != nil {
		return nil, err
	}

	return appContext, nil
}
