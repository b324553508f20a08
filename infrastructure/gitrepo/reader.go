package gitrepo

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/sfdcale/cumulusci/config"
	"github.com/sfdcale/cumulusci/domain"
)

const projectFileName = "cumulusci.yml"

// Reader implements domain.RepositoryReader against local git clones,
// for file:// dependency URLs and offline processing.
type Reader struct{}

// NewReader creates a local-clone reader.
func NewReader() *Reader {
	return &Reader{}
}

// Matches reports whether the URL points at a local clone.
func (r *Reader) Matches(url string) bool {
	return strings.HasPrefix(url, "file://") || strings.HasPrefix(url, "/") || strings.HasPrefix(url, ".")
}

// GetRepo opens a local repository from a path or file:// URL.
func (r *Reader) GetRepo(_ context.Context, url string) (domain.Repository, error) {
	path := strings.TrimPrefix(url, "file://")
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repo %q: %w", path, err)
	}
	return &repository{url: url, repo: repo}, nil
}

type repository struct {
	url  string
	repo *git.Repository
}

func (p *repository) URL() string { return p.url }

func (p *repository) DefaultBranch(_ context.Context) (string, error) {
	head, err := p.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD of %s: %w", p.url, err)
	}
	return head.Name().Short(), nil
}

func (p *repository) treeAt(ref string) (*object.Tree, error) {
	hash, err := p.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, domain.ErrNotFound
	}
	commit, err := p.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", ref, err)
	}
	return commit.Tree()
}

func (p *repository) DirectoryContents(_ context.Context, path, ref string) (map[string]domain.TreeEntry, error) {
	tree, err := p.treeAt(ref)
	if err != nil {
		return nil, err
	}

	sub, err := tree.Tree(path)
	if err != nil {
		if errors.Is(err, object.ErrDirectoryNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to list %s at %s: %w", path, ref, err)
	}

	contents := make(map[string]domain.TreeEntry, len(sub.Entries))
	for _, entry := range sub.Entries {
		entryType := "file"
		if entry.Mode == filemode.Dir {
			entryType = "dir"
		}
		contents[entry.Name] = domain.TreeEntry{
			SHA:  entry.Hash.String(),
			Type: entryType,
		}
	}
	return contents, nil
}

func (p *repository) ProjectConfig(_ context.Context, ref string) (*domain.RemoteProject, error) {
	tree, err := p.treeAt(ref)
	if err != nil {
		return nil, err
	}

	file, err := tree.File(projectFileName)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s at %s: %w", projectFileName, ref, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at %s: %w", projectFileName, ref, err)
	}
	return config.ParseRemoteProject([]byte(content))
}

// ListReleases maps git tags onto releases using the project's tag
// prefixes: beta-prefixed tags become prereleases, release-prefixed tags
// final releases. Other tags are not releases.
func (p *repository) ListReleases(ctx context.Context) ([]domain.Release, error) {
	head, err := p.DefaultBranch(ctx)
	if err != nil {
		return nil, err
	}
	project, err := p.ProjectConfig(ctx, head)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	prefixRelease, prefixBeta := "release/", "beta/"
	if project != nil {
		prefixRelease, prefixBeta = project.GitPrefixRelease, project.GitPrefixBeta
	}

	tags, err := p.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", p.url, err)
	}

	var releases []domain.Release
	iterErr := tags.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		switch {
		case strings.HasPrefix(name, prefixBeta):
			releases = append(releases, domain.Release{TagName: name, Prerelease: true})
		case strings.HasPrefix(name, prefixRelease):
			releases = append(releases, domain.Release{TagName: name})
		}
		return nil
	})
	if iterErr != nil && !errors.Is(iterErr, storer.ErrStop) {
		return nil, iterErr
	}
	return releases, nil
}

func (p *repository) TagSHA(_ context.Context, tag string) (string, error) {
	hash, err := p.repo.ResolveRevision(plumbing.Revision("refs/tags/" + tag))
	if err != nil {
		return "", domain.ErrNotFound
	}
	return hash.String(), nil
}

func (p *repository) BranchSHA(_ context.Context, branch string) (string, error) {
	hash, err := p.repo.ResolveRevision(plumbing.Revision("refs/heads/" + branch))
	if err != nil {
		return "", domain.ErrNotFound
	}
	return hash.String(), nil
}

// DownloadZip builds a zipball of the tree at ref, with a top-level
// directory prefix matching what hosted zipballs contain.
func (p *repository) DownloadZip(_ context.Context, ref string) ([]byte, error) {
	hash, err := p.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, domain.ErrNotFound
	}
	commit, err := p.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", ref, err)
	}

	files, err := commit.Files()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	prefix := fmt.Sprintf("repo-%s/", hash.String()[:7])

	iterErr := files.ForEach(func(f *object.File) error {
		entry, createErr := writer.Create(prefix + f.Name)
		if createErr != nil {
			return createErr
		}
		reader, openErr := f.Reader()
		if openErr != nil {
			return openErr
		}
		defer reader.Close()
		_, copyErr := io.Copy(entry, reader)
		return copyErr
	})
	if iterErr != nil {
		return nil, iterErr
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
