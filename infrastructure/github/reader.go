package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/sfdcale/cumulusci/config"
	"github.com/sfdcale/cumulusci/domain"
)

const (
	perPage          = 100
	projectFileName  = "cumulusci.yml"
	zipMaxRedirects  = 3
	defaultBranchRef = "main"
)

// Reader implements domain.RepositoryReader against the GitHub API.
type Reader struct {
	client *gh.Client
	http   *http.Client
}

// NewReader creates a reader authenticated with the given token. All
// requests go through a retrying HTTP client.
func NewReader(token string) *Reader {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	httpClient := retryClient.StandardClient()

	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Reader{client: client, http: httpClient}
}

// GetRepo opens a handle on a repository URL such as
// https://github.com/SFDO-Tooling/CumulusCI-Test.
func (r *Reader) GetRepo(_ context.Context, url string) (domain.Repository, error) {
	owner, name, err := splitRepoURL(url)
	if err != nil {
		return nil, err
	}
	return &repository{
		reader: r,
		url:    url,
		owner:  owner,
		name:   name,
	}, nil
}

// splitRepoURL extracts the owner and repo name from a GitHub URL.
func splitRepoURL(url string) (string, string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(url, "/"), ".git")
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")

	parts := strings.Split(trimmed, "/")
	if len(parts) < 3 || !strings.Contains(parts[0], "github.com") {
		return "", "", fmt.Errorf("not a valid GitHub repository URL: %q", url)
	}
	return parts[1], parts[2], nil
}

type repository struct {
	reader *Reader
	url    string
	owner  string
	name   string
}

func (p *repository) URL() string { return p.url }

func (p *repository) DefaultBranch(ctx context.Context) (string, error) {
	repo, _, err := p.reader.client.Repositories.Get(ctx, p.owner, p.name)
	if err != nil {
		return "", fmt.Errorf("failed to read repo %s/%s: %w", p.owner, p.name, err)
	}
	if repo.GetDefaultBranch() == "" {
		return defaultBranchRef, nil
	}
	return repo.GetDefaultBranch(), nil
}

func (p *repository) DirectoryContents(ctx context.Context, path, ref string) (map[string]domain.TreeEntry, error) {
	_, entries, resp, err := p.reader.client.Repositories.GetContents(
		ctx, p.owner, p.name, path,
		&gh.RepositoryContentGetOptions{Ref: ref},
	)
	if err != nil {
		if isNotFound(resp, err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to list %s of %s/%s: %w", path, p.owner, p.name, err)
	}
	if entries == nil {
		// The path resolved to a file, not a directory.
		return nil, domain.ErrNotFound
	}

	contents := make(map[string]domain.TreeEntry, len(entries))
	for _, entry := range entries {
		contents[entry.GetName()] = domain.TreeEntry{
			SHA:  entry.GetSHA(),
			Type: entry.GetType(),
		}
	}
	return contents, nil
}

func (p *repository) ProjectConfig(ctx context.Context, ref string) (*domain.RemoteProject, error) {
	file, _, resp, err := p.reader.client.Repositories.GetContents(
		ctx, p.owner, p.name, projectFileName,
		&gh.RepositoryContentGetOptions{Ref: ref},
	)
	if err != nil {
		if isNotFound(resp, err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s of %s/%s: %w", projectFileName, p.owner, p.name, err)
	}
	if file == nil {
		return nil, domain.ErrNotFound
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s of %s/%s: %w", projectFileName, p.owner, p.name, err)
	}
	return config.ParseRemoteProject([]byte(content))
}

func (p *repository) ListReleases(ctx context.Context) ([]domain.Release, error) {
	var all []domain.Release
	opts := &gh.ListOptions{PerPage: perPage}

	for {
		releases, resp, err := p.reader.client.Repositories.ListReleases(ctx, p.owner, p.name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list releases of %s/%s: %w", p.owner, p.name, err)
		}
		for _, release := range releases {
			all = append(all, domain.Release{
				TagName:    release.GetTagName(),
				Draft:      release.GetDraft(),
				Prerelease: release.GetPrerelease(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (p *repository) TagSHA(ctx context.Context, tag string) (string, error) {
	ref, resp, err := p.reader.client.Git.GetRef(ctx, p.owner, p.name, "tags/"+tag)
	if err != nil {
		if isNotFound(resp, err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to read tag %s of %s/%s: %w", tag, p.owner, p.name, err)
	}

	// Annotated tags point at a tag object; dereference to the commit.
	if ref.Object.GetType() == "tag" {
		tagObj, _, tagErr := p.reader.client.Git.GetTag(ctx, p.owner, p.name, ref.Object.GetSHA())
		if tagErr != nil {
			return "", fmt.Errorf("failed to read annotated tag %s: %w", tag, tagErr)
		}
		return tagObj.Object.GetSHA(), nil
	}
	return ref.Object.GetSHA(), nil
}

func (p *repository) BranchSHA(ctx context.Context, branch string) (string, error) {
	ref, resp, err := p.reader.client.Git.GetRef(ctx, p.owner, p.name, "heads/"+branch)
	if err != nil {
		if isNotFound(resp, err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to read branch %s of %s/%s: %w", branch, p.owner, p.name, err)
	}
	return ref.Object.GetSHA(), nil
}

func (p *repository) DownloadZip(ctx context.Context, ref string) ([]byte, error) {
	link, _, err := p.reader.client.Repositories.GetArchiveLink(
		ctx, p.owner, p.name, gh.Zipball,
		&gh.RepositoryContentGetOptions{Ref: ref},
		zipMaxRedirects,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get archive link for %s/%s@%s: %w", p.owner, p.name, ref, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.reader.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download archive of %s/%s@%s: %w", p.owner, p.name, ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archive download of %s/%s@%s returned %d", p.owner, p.name, ref, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func isNotFound(resp *gh.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}
