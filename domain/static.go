package domain

import (
	"context"
	"errors"
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"
)

// PackageNamespaceVersionDependency is a static dependency on a managed
// package identified by namespace and version number.
type PackageNamespaceVersionDependency struct {
	Namespace       string
	Version         string
	PackageName     string
	PasswordEnvName string
}

// NewPackageNamespaceVersionDependency builds the variant from a
// declaration record.
func NewPackageNamespaceVersionDependency(rec Record) (*PackageNamespaceVersionDependency, error) {
	if rec.Namespace == "" || rec.Version == "" {
		return nil, errors.New("`namespace` and `version` are required")
	}
	return &PackageNamespaceVersionDependency{
		Namespace:       rec.Namespace,
		Version:         rec.Version,
		PackageName:     rec.PackageName,
		PasswordEnvName: rec.PasswordEnvName,
	}, nil
}

func (d *PackageNamespaceVersionDependency) packageLabel() string {
	if d.PackageName != "" {
		return d.PackageName
	}
	if d.Namespace != "" {
		return d.Namespace
	}
	return "Unknown Package"
}

func (d *PackageNamespaceVersionDependency) Name() string {
	return fmt.Sprintf("Install %s %s", d.packageLabel(), d.Version)
}

func (d *PackageNamespaceVersionDependency) Description() string {
	return fmt.Sprintf("%s %s", d.packageLabel(), d.Version)
}

func (d *PackageNamespaceVersionDependency) IsResolved() bool  { return true }
func (d *PackageNamespaceVersionDependency) IsFlattened() bool { return true }

func (d *PackageNamespaceVersionDependency) Flatten(context.Context, RepositoryReader) ([]Dependency, error) {
	return []Dependency{d}, nil
}

func (d *PackageNamespaceVersionDependency) Key() string {
	return fmt.Sprintf("package-namespace-version|%s|%s|%s|%s",
		d.Namespace, d.Version, d.PackageName, d.PasswordEnvName)
}

// Install installs the package by namespace and version unless the org
// already has the minimum version.
func (d *PackageNamespaceVersionDependency) Install(ctx context.Context, env *InstallEnv, org OrgReader, opts *InstallOptions, retry *RetryOptions) error {
	// Copy the options so a per-dependency password never leaks into
	// the caller's policy.
	local := InstallOptions{}
	if opts != nil {
		local = *opts
	}
	if d.PasswordEnvName != "" {
		local.Password = os.Getenv(d.PasswordEnvName)
	}
	if retry == nil {
		retry = DefaultRetryOptions()
	}

	version := BetaTokenVersion(d.Version)

	satisfied, err := org.HasMinimumPackageVersion(ctx, d.Namespace, version)
	if err != nil {
		return fmt.Errorf("failed to read installed packages: %w", err)
	}
	if satisfied {
		logger.Infof("%s or a newer version is already installed; skipping.", d.Description())
		return nil
	}

	logger.Infof("Installing %s", d.Description())
	return env.Packages.InstallByNamespaceVersion(ctx, org, d.Namespace, d.Version, &local, retry)
}

// PackageVersionIdDependency is a static dependency on a package
// identified by an opaque 04t version id.
type PackageVersionIdDependency struct {
	VersionID       string
	PackageName     string
	VersionNumber   string
	PasswordEnvName string
}

// NewPackageVersionIdDependency builds the variant from a declaration
// record.
func NewPackageVersionIdDependency(rec Record) (*PackageVersionIdDependency, error) {
	if rec.VersionID == "" {
		return nil, errors.New("`version_id` is required")
	}
	return &PackageVersionIdDependency{
		VersionID:       rec.VersionID,
		PackageName:     rec.PackageName,
		VersionNumber:   rec.VersionNumber,
		PasswordEnvName: rec.PasswordEnvName,
	}, nil
}

func (d *PackageVersionIdDependency) packageLabel() string {
	if d.PackageName != "" {
		return d.PackageName
	}
	return "Unknown Package"
}

func (d *PackageVersionIdDependency) Name() string {
	return fmt.Sprintf("Install %s", d.Description())
}

func (d *PackageVersionIdDependency) Description() string {
	version := d.VersionNumber
	if version == "" {
		version = d.VersionID
	}
	return fmt.Sprintf("%s %s", d.packageLabel(), version)
}

func (d *PackageVersionIdDependency) IsResolved() bool  { return true }
func (d *PackageVersionIdDependency) IsFlattened() bool { return true }

func (d *PackageVersionIdDependency) Flatten(context.Context, RepositoryReader) ([]Dependency, error) {
	return []Dependency{d}, nil
}

func (d *PackageVersionIdDependency) Key() string {
	return fmt.Sprintf("package-version-id|%s|%s|%s|%s",
		d.VersionID, d.PackageName, d.VersionNumber, d.PasswordEnvName)
}

// Install installs the package by version id unless the exact id is
// already present among the org's installed packages, in any namespace.
func (d *PackageVersionIdDependency) Install(ctx context.Context, env *InstallEnv, org OrgReader, opts *InstallOptions, retry *RetryOptions) error {
	local := InstallOptions{}
	if opts != nil {
		local = *opts
	}
	if d.PasswordEnvName != "" {
		local.Password = os.Getenv(d.PasswordEnvName)
	}
	if retry == nil {
		retry = DefaultRetryOptions()
	}

	installed, err := org.InstalledPackages(ctx)
	if err != nil {
		return fmt.Errorf("failed to read installed packages: %w", err)
	}
	for _, versions := range installed {
		for _, v := range versions {
			if v.ID == d.VersionID {
				logger.Infof("%s or a newer version is already installed; skipping.", d.Description())
				return nil
			}
		}
	}

	logger.Infof("Installing %s", d.Description())
	return env.Packages.InstallByVersionID(ctx, org, d.VersionID, &local, retry)
}
