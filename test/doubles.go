// Package testdoubles provides test doubles (spies, stubs, dummies) for domain
// interfaces. These are hand-crafted implementations — no mock frameworks.
package testdoubles

import (
	"context"
	"fmt"
	"strings"

	"github.com/sfdcale/cumulusci/domain"
)

// ---------------------------------------------------------------------------
// StubRepositoryReader / StubRepository
// ---------------------------------------------------------------------------

// StubRepositoryReader implements domain.RepositoryReader over an
// in-memory set of repositories keyed by URL.
type StubRepositoryReader struct {
	Repos map[string]*StubRepository

	// spy: URLs that were requested
	RequestedURLs []string
}

func (r *StubRepositoryReader) GetRepo(_ context.Context, url string) (domain.Repository, error) {
	r.RequestedURLs = append(r.RequestedURLs, url)
	repo, ok := r.Repos[url]
	if !ok {
		return nil, fmt.Errorf("unknown repo: %s", url)
	}
	return repo, nil
}

// StubRepository implements domain.Repository from fixed fixture data.
// Directory listings are keyed by path only; the ref is recorded for
// inspection but does not change the answer.
type StubRepository struct {
	RepoURL       string
	Branch        string
	Project       *domain.RemoteProject
	ProjectErr    error
	Dirs          map[string][]string // path -> entry names
	Releases      []domain.Release
	Tags          map[string]string // tag -> SHA
	Branches      map[string]string // branch -> SHA
	Zips          map[string][]byte // ref -> zipball
	ListedPaths   []string
	RequestedRefs []string
}

func (s *StubRepository) URL() string { return s.RepoURL }

func (s *StubRepository) DefaultBranch(context.Context) (string, error) {
	if s.Branch == "" {
		return "main", nil
	}
	return s.Branch, nil
}

func (s *StubRepository) DirectoryContents(_ context.Context, path, ref string) (map[string]domain.TreeEntry, error) {
	s.ListedPaths = append(s.ListedPaths, path)
	s.RequestedRefs = append(s.RequestedRefs, ref)

	names, ok := s.Dirs[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	contents := make(map[string]domain.TreeEntry, len(names))
	for _, name := range names {
		contents[name] = domain.TreeEntry{Type: "dir"}
	}
	return contents, nil
}

func (s *StubRepository) ProjectConfig(_ context.Context, ref string) (*domain.RemoteProject, error) {
	s.RequestedRefs = append(s.RequestedRefs, ref)
	if s.ProjectErr != nil {
		return nil, s.ProjectErr
	}
	if s.Project == nil {
		return nil, domain.ErrNotFound
	}
	return s.Project, nil
}

func (s *StubRepository) ListReleases(context.Context) ([]domain.Release, error) {
	return s.Releases, nil
}

func (s *StubRepository) TagSHA(_ context.Context, tag string) (string, error) {
	sha, ok := s.Tags[tag]
	if !ok {
		return "", domain.ErrNotFound
	}
	return sha, nil
}

func (s *StubRepository) BranchSHA(_ context.Context, branch string) (string, error) {
	sha, ok := s.Branches[branch]
	if !ok {
		return "", domain.ErrNotFound
	}
	return sha, nil
}

func (s *StubRepository) DownloadZip(_ context.Context, ref string) ([]byte, error) {
	zipBytes, ok := s.Zips[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return zipBytes, nil
}

// ---------------------------------------------------------------------------
// StubOrg
// ---------------------------------------------------------------------------

// StubOrg implements domain.OrgReader from fixture data.
type StubOrg struct {
	OrgName   string
	Installed map[string][]domain.PackageVersionInfo
	// MinimumVersions is keyed "namespace@version".
	MinimumVersions map[string]bool
}

func (o *StubOrg) Name() string {
	if o.OrgName == "" {
		return "test-org"
	}
	return o.OrgName
}

func (o *StubOrg) InstalledPackages(context.Context) (map[string][]domain.PackageVersionInfo, error) {
	if o.Installed == nil {
		return map[string][]domain.PackageVersionInfo{}, nil
	}
	return o.Installed, nil
}

func (o *StubOrg) HasMinimumPackageVersion(_ context.Context, namespace, version string) (bool, error) {
	return o.MinimumVersions[namespace+"@"+version], nil
}

// ---------------------------------------------------------------------------
// SpyInstaller
// ---------------------------------------------------------------------------

// SpyInstaller implements domain.PackageInstaller, recording every call.
type SpyInstaller struct {
	Err error

	// spy: "namespace version" and version-id install calls in order
	NamespaceVersionCalls []string
	VersionIDCalls        []string
	Passwords             []string
}

func (i *SpyInstaller) InstallByNamespaceVersion(_ context.Context, _ domain.OrgReader, namespace, version string, opts *domain.InstallOptions, _ *domain.RetryOptions) error {
	i.NamespaceVersionCalls = append(i.NamespaceVersionCalls, namespace+" "+version)
	if opts != nil {
		i.Passwords = append(i.Passwords, opts.Password)
	}
	return i.Err
}

func (i *SpyInstaller) InstallByVersionID(_ context.Context, _ domain.OrgReader, versionID string, opts *domain.InstallOptions, _ *domain.RetryOptions) error {
	i.VersionIDCalls = append(i.VersionIDCalls, versionID)
	if opts != nil {
		i.Passwords = append(i.Passwords, opts.Password)
	}
	return i.Err
}

// ---------------------------------------------------------------------------
// StubZipSource / StubZipBuilder / SpyDeployer
// ---------------------------------------------------------------------------

// StubZipSource implements domain.ZipSource returning fixed bytes.
type StubZipSource struct {
	Bytes []byte
	Err   error

	// spy: "url-or-repo|subfolder|ref" fetches in order
	Fetches []string
}

func (s *StubZipSource) FromRepo(_ context.Context, repo domain.Repository, subfolder, ref string) ([]byte, error) {
	s.Fetches = append(s.Fetches, strings.Join([]string{repo.URL(), subfolder, ref}, "|"))
	return s.Bytes, s.Err
}

func (s *StubZipSource) FromURL(_ context.Context, url, subfolder string) ([]byte, error) {
	s.Fetches = append(s.Fetches, strings.Join([]string{url, subfolder, ""}, "|"))
	return s.Bytes, s.Err
}

// StubZipBuilder implements domain.PackageZipBuilder, recording the
// options of every build.
type StubZipBuilder struct {
	Payload string
	Err     error

	Options []domain.ZipOptions
}

func (b *StubZipBuilder) Build(_ []byte, opts domain.ZipOptions) (string, error) {
	b.Options = append(b.Options, opts)
	return b.Payload, b.Err
}

// SpyDeployer implements domain.MetadataDeployer, recording payloads.
type SpyDeployer struct {
	Err error

	Payloads []string
}

func (d *SpyDeployer) Deploy(_ context.Context, _ domain.OrgReader, packageBase64 string) error {
	d.Payloads = append(d.Payloads, packageBase64)
	return d.Err
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// NewInstallEnv bundles the given doubles into a domain.InstallEnv,
// filling unset collaborators with empty doubles.
func NewInstallEnv(repos domain.RepositoryReader, installer *SpyInstaller, zips *StubZipSource, builder *StubZipBuilder, deployer *SpyDeployer) *domain.InstallEnv {
	if installer == nil {
		installer = &SpyInstaller{}
	}
	if zips == nil {
		zips = &StubZipSource{}
	}
	if builder == nil {
		builder = &StubZipBuilder{Payload: "UEsDBA=="}
	}
	if deployer == nil {
		deployer = &SpyDeployer{}
	}
	return &domain.InstallEnv{
		Repos:    repos,
		Packages: installer,
		Zips:     zips,
		Builder:  builder,
		Deployer: deployer,
	}
}
