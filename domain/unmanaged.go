package domain

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"
)

// unmanagedMetadata holds the install behavior shared by the static
// unmanaged dependency variants: fetch zip bytes, decide namespace
// handling, build the package payload and deploy it.
type unmanagedMetadata struct {
	Unmanaged       *bool
	Subfolder       string
	NamespaceInject string
	NamespaceStrip  string
}

// effectiveUnmanaged decides whether to deploy the metadata raw. With no
// explicit configuration, namespace tokens are injected if and only if
// the target namespace is not already installed in the org.
func (m *unmanagedMetadata) effectiveUnmanaged(ctx context.Context, org OrgReader) (bool, error) {
	if m.Unmanaged != nil {
		return *m.Unmanaged, nil
	}
	if m.NamespaceInject == "" {
		return true, nil
	}

	installed, err := org.InstalledPackages(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read installed packages: %w", err)
	}
	_, present := installed[m.NamespaceInject]
	return !present, nil
}

func (m *unmanagedMetadata) deploy(ctx context.Context, env *InstallEnv, org OrgReader, description string, zipBytes []byte) error {
	logger.Infof("Deploying unmanaged metadata from %s", description)

	unmanaged, err := m.effectiveUnmanaged(ctx, org)
	if err != nil {
		return err
	}

	payload, err := env.Builder.Build(zipBytes, ZipOptions{
		Unmanaged:       unmanaged,
		NamespaceInject: m.NamespaceInject,
		NamespaceStrip:  m.NamespaceStrip,
	})
	if err != nil {
		return fmt.Errorf("failed to build package payload for %s: %w", description, err)
	}

	return env.Deployer.Deploy(ctx, org, payload)
}

// UnmanagedGitHubRefDependency is a static dependency on unmanaged
// metadata in a specific GitHub ref and subfolder.
type UnmanagedGitHubRefDependency struct {
	GitHub string
	Ref    string

	Subfolder       string
	Unmanaged       *bool
	NamespaceInject string
	NamespaceStrip  string
}

// NewUnmanagedGitHubRefDependency builds the variant from a declaration
// record.
func NewUnmanagedGitHubRefDependency(rec Record) (*UnmanagedGitHubRefDependency, error) {
	if rec.Ref == "" {
		return nil, errors.New("`ref` is required")
	}
	url, err := normalizeGitHubParameters(rec)
	if err != nil {
		return nil, err
	}

	return &UnmanagedGitHubRefDependency{
		GitHub:          url,
		Ref:             rec.Ref,
		Subfolder:       rec.Subfolder,
		Unmanaged:       rec.Unmanaged,
		NamespaceInject: rec.NamespaceInject,
		NamespaceStrip:  rec.NamespaceStrip,
	}, nil
}

func (d *UnmanagedGitHubRefDependency) subfolderSuffix() string {
	if d.Subfolder != "" && d.Subfolder != "src" {
		return "/" + d.Subfolder
	}
	return ""
}

func (d *UnmanagedGitHubRefDependency) Name() string {
	return fmt.Sprintf("Deploy %s%s", d.GitHub, d.subfolderSuffix())
}

func (d *UnmanagedGitHubRefDependency) Description() string {
	return fmt.Sprintf("%s%s @%s", d.GitHub, d.subfolderSuffix(), d.Ref)
}

func (d *UnmanagedGitHubRefDependency) IsResolved() bool  { return true }
func (d *UnmanagedGitHubRefDependency) IsFlattened() bool { return true }

func (d *UnmanagedGitHubRefDependency) Flatten(context.Context, RepositoryReader) ([]Dependency, error) {
	return []Dependency{d}, nil
}

func (d *UnmanagedGitHubRefDependency) Key() string {
	unmanaged := "nil"
	if d.Unmanaged != nil {
		unmanaged = fmt.Sprintf("%t", *d.Unmanaged)
	}
	return fmt.Sprintf("unmanaged-github-ref|%s|%s|%s|%s|%s|%s",
		d.GitHub, d.Ref, d.Subfolder, unmanaged, d.NamespaceInject, d.NamespaceStrip)
}

// Install downloads the subfolder at the pinned ref and deploys it as
// unmanaged metadata.
func (d *UnmanagedGitHubRefDependency) Install(ctx context.Context, env *InstallEnv, org OrgReader, _ *InstallOptions, _ *RetryOptions) error {
	repo, err := env.Repos.GetRepo(ctx, d.GitHub)
	if err != nil {
		return fmt.Errorf("failed to read repo %s: %w", d.GitHub, err)
	}

	zipBytes, err := env.Zips.FromRepo(ctx, repo, d.Subfolder, d.Ref)
	if err != nil {
		return fmt.Errorf("failed to download metadata for %s: %w", d.Description(), err)
	}

	meta := unmanagedMetadata{
		Unmanaged:       d.Unmanaged,
		Subfolder:       d.Subfolder,
		NamespaceInject: d.NamespaceInject,
		NamespaceStrip:  d.NamespaceStrip,
	}
	return meta.deploy(ctx, env, org, d.Description(), zipBytes)
}

// UnmanagedZipURLDependency is a static dependency on unmanaged metadata
// downloaded as a zip file from a URL.
type UnmanagedZipURLDependency struct {
	ZipURL string

	Subfolder       string
	Unmanaged       *bool
	NamespaceInject string
	NamespaceStrip  string
}

// NewUnmanagedZipURLDependency builds the variant from a declaration
// record.
func NewUnmanagedZipURLDependency(rec Record) (*UnmanagedZipURLDependency, error) {
	if rec.ZipURL == "" {
		return nil, errors.New("`zip_url` is required")
	}
	return &UnmanagedZipURLDependency{
		ZipURL:          rec.ZipURL,
		Subfolder:       rec.Subfolder,
		Unmanaged:       rec.Unmanaged,
		NamespaceInject: rec.NamespaceInject,
		NamespaceStrip:  rec.NamespaceStrip,
	}, nil
}

func (d *UnmanagedZipURLDependency) subfolderSuffix() string {
	if d.Subfolder != "" {
		return "/" + d.Subfolder
	}
	return ""
}

func (d *UnmanagedZipURLDependency) Name() string {
	return fmt.Sprintf("Deploy %s%s", d.ZipURL, d.subfolderSuffix())
}

func (d *UnmanagedZipURLDependency) Description() string {
	return fmt.Sprintf("%s%s", d.ZipURL, d.subfolderSuffix())
}

func (d *UnmanagedZipURLDependency) IsResolved() bool  { return true }
func (d *UnmanagedZipURLDependency) IsFlattened() bool { return true }

func (d *UnmanagedZipURLDependency) Flatten(context.Context, RepositoryReader) ([]Dependency, error) {
	return []Dependency{d}, nil
}

func (d *UnmanagedZipURLDependency) Key() string {
	unmanaged := "nil"
	if d.Unmanaged != nil {
		unmanaged = fmt.Sprintf("%t", *d.Unmanaged)
	}
	return fmt.Sprintf("unmanaged-zip-url|%s|%s|%s|%s|%s",
		d.ZipURL, d.Subfolder, unmanaged, d.NamespaceInject, d.NamespaceStrip)
}

// Install downloads the zip and deploys it as unmanaged metadata.
func (d *UnmanagedZipURLDependency) Install(ctx context.Context, env *InstallEnv, org OrgReader, _ *InstallOptions, _ *RetryOptions) error {
	zipBytes, err := env.Zips.FromURL(ctx, d.ZipURL, d.Subfolder)
	if err != nil {
		return fmt.Errorf("failed to download metadata for %s: %w", d.Description(), err)
	}

	meta := unmanagedMetadata{
		Unmanaged:       d.Unmanaged,
		Subfolder:       d.Subfolder,
		NamespaceInject: d.NamespaceInject,
		NamespaceStrip:  d.NamespaceStrip,
	}
	return meta.deploy(ctx, env, org, d.Description(), zipBytes)
}
