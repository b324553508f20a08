// Package internal wires the application together through a DIG
// container. Commands build the container once and invoke what they need.
package internal

import (
	"context"
	"os"

	logger "github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"github.com/sfdcale/cumulusci/config"
	"github.com/sfdcale/cumulusci/domain"
	"github.com/sfdcale/cumulusci/infrastructure/github"
	"github.com/sfdcale/cumulusci/infrastructure/gitrepo"
	"github.com/sfdcale/cumulusci/infrastructure/keychain"
	"github.com/sfdcale/cumulusci/infrastructure/resolver"
	"github.com/sfdcale/cumulusci/infrastructure/service"
)

// Options carry the command-line inputs the providers need.
type Options struct {
	ConfigPath string
	Token      string
}

// AppContext aggregates the shared collaborators commands work against.
type AppContext struct {
	Config    *config.Config
	Keychain  domain.Keychain
	Repos     domain.RepositoryReader
	Resolvers *resolver.Registry
	Services  *service.Registry
	Connector *service.Connector
}

// NewAppContext creates the aggregated application context.
func NewAppContext(
	cfg *config.Config,
	kc domain.Keychain,
	repos domain.RepositoryReader,
	resolvers *resolver.Registry,
	services *service.Registry,
	connector *service.Connector,
) *AppContext {
	return &AppContext{
		Config:    cfg,
		Keychain:  kc,
		Repos:     repos,
		Resolvers: resolvers,
		Services:  services,
		Connector: connector,
	}
}

// RegisterProviders registers all providers with the DIG container. The
// caller must provide an Options value before invoking.
func RegisterProviders(container *dig.Container) error {
	providers := []any{
		provideConfig,
		provideKeychain,
		provideRepositoryReader,
		resolver.DefaultRegistry,
		service.DefaultRegistry,
		service.NewConnector,
		NewAppContext,
	}
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return err
		}
	}
	return nil
}

func provideConfig(opts Options) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		found, err := config.FindConfigFile()
		if err != nil {
			return nil, err
		}
		path = found
	}
	return config.Load(path)
}

func provideKeychain() (domain.Keychain, error) {
	return keychain.New()
}

// provideRepositoryReader builds the composite reader: local paths go
// through the on-disk git reader, everything else through the hosted one.
func provideRepositoryReader(opts Options, kc domain.Keychain) domain.RepositoryReader {
	return &compositeReader{
		local:  gitrepo.NewReader(),
		hosted: github.NewReader(resolveToken(opts, kc)),
	}
}

// resolveToken picks the auth token for hosted repository access:
// the command-line flag wins, then the connected service, then the
// environment.
func resolveToken(opts Options, kc domain.Keychain) string {
	if opts.Token != "" {
		return opts.Token
	}
	if attrs, err := kc.GetService("github", ""); err == nil && attrs["token"] != "" {
		return attrs["token"]
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	logger.Debug("No GitHub token configured; hosted repository access is unauthenticated")
	return ""
}

type compositeReader struct {
	local  *gitrepo.Reader
	hosted *github.Reader
}

func (r *compositeReader) GetRepo(ctx context.Context, url string) (domain.Repository, error) {
	if r.local.Matches(url) {
		return r.local.GetRepo(ctx, url)
	}
	return r.hosted.GetRepo(ctx, url)
}
