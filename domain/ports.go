package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repository readers when a path, ref or file
// does not exist at the requested location.
var ErrNotFound = errors.New("not found")

// TreeEntry describes one entry of a repository directory listing.
type TreeEntry struct {
	SHA  string
	Type string // "dir", "file", "submodule", ...
}

// Repository is a read-only handle on a remote (or local) git repository.
type Repository interface {
	// URL returns the canonical URL the repository was opened with.
	URL() string

	// DefaultBranch returns the name of the default branch.
	DefaultBranch(ctx context.Context) (string, error)

	// DirectoryContents lists the entries of a directory at a ref,
	// keyed by entry name. Returns ErrNotFound when the directory does
	// not exist at that ref.
	DirectoryContents(ctx context.Context, path, ref string) (map[string]TreeEntry, error)

	// ProjectConfig fetches and parses the remote project's own
	// declaration file at a ref.
	ProjectConfig(ctx context.Context, ref string) (*RemoteProject, error)

	// ListReleases returns the repository's releases, newest first.
	ListReleases(ctx context.Context) ([]Release, error)

	// TagSHA resolves a tag name to the commit SHA it points at.
	TagSHA(ctx context.Context, tag string) (string, error)

	// BranchSHA resolves a branch name to its head commit SHA.
	BranchSHA(ctx context.Context, branch string) (string, error)

	// DownloadZip fetches a zip archive of the full repository tree at
	// the given ref.
	DownloadZip(ctx context.Context, ref string) ([]byte, error)
}

// RepositoryReader opens repository handles from URLs.
type RepositoryReader interface {
	GetRepo(ctx context.Context, url string) (Repository, error)
}

// RemoteProject is the subset of a remote project's declaration file
// that dependency processing needs.
type RemoteProject struct {
	Name             string
	PackageName      string
	Namespace        string
	GitPrefixRelease string
	GitPrefixBeta    string
	Dependencies     []Record
}

// Release is a published release of a repository.
type Release struct {
	TagName    string
	Draft      bool
	Prerelease bool
}

// PackageVersionInfo identifies one installed package version in an org.
type PackageVersionInfo struct {
	ID     string
	Number string
}

// OrgReader exposes the target org state needed for idempotency checks.
// This layer only ever reads org state; installs go through collaborators.
type OrgReader interface {
	// Name returns the org's alias for logging.
	Name() string

	// InstalledPackages maps namespace to the package versions installed
	// under it.
	InstalledPackages(ctx context.Context) (map[string][]PackageVersionInfo, error)

	// HasMinimumPackageVersion reports whether the org has at least the
	// given version of the namespace installed.
	HasMinimumPackageVersion(ctx context.Context, namespace, version string) (bool, error)
}

// PackageInstaller installs managed packages into an org. Retry behavior
// belongs to implementations; this layer passes the policy through.
type PackageInstaller interface {
	InstallByNamespaceVersion(ctx context.Context, org OrgReader, namespace, version string, opts *InstallOptions, retry *RetryOptions) error
	InstallByVersionID(ctx context.Context, org OrgReader, versionID string, opts *InstallOptions, retry *RetryOptions) error
}

// ZipSource fetches unmanaged metadata as zip bytes.
type ZipSource interface {
	// FromRepo downloads a repository subfolder at a ref.
	FromRepo(ctx context.Context, repo Repository, subfolder, ref string) ([]byte, error)

	// FromURL downloads a zip from a URL, optionally narrowing to a
	// subfolder.
	FromURL(ctx context.Context, url, subfolder string) ([]byte, error)
}

// ZipOptions control how a metadata package payload is built from raw
// zip bytes.
type ZipOptions struct {
	Unmanaged       bool
	NamespaceInject string
	NamespaceStrip  string
}

// PackageZipBuilder turns raw metadata zip bytes into a deployable
// base64 package payload with namespace options applied.
type PackageZipBuilder interface {
	Build(zipBytes []byte, opts ZipOptions) (string, error)
}

// MetadataDeployer executes a metadata deploy of a base64 package payload.
type MetadataDeployer interface {
	Deploy(ctx context.Context, org OrgReader, packageBase64 string) error
}

// InstallEnv bundles the external collaborators that static dependencies
// need to install themselves.
type InstallEnv struct {
	Repos    RepositoryReader
	Packages PackageInstaller
	Zips     ZipSource
	Builder  PackageZipBuilder
	Deployer MetadataDeployer
}
