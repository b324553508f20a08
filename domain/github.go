package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"

	logger "github.com/sirupsen/logrus"
)

// GitHubDynamicDependency is a dependency on a whole GitHub repository,
// which needs to be resolved to a specific ref and, for managed package
// flows, a specific package version.
type GitHubDynamicDependency struct {
	baseGitHubDependency

	Unmanaged       bool
	NamespaceInject string
	NamespaceStrip  string
	PasswordEnvName string
	Skip            []string

	// ManagedDependency is set by resolution when the remote repo
	// publishes a managed package at the resolved ref.
	ManagedDependency StaticDependency
}

// NewGitHubDynamicDependency builds the variant from a declaration
// record, validating its cross-field invariants.
func NewGitHubDynamicDependency(rec Record) (*GitHubDynamicDependency, error) {
	if rec.Ref != "" {
		return nil, errors.New("must not specify `ref` at creation")
	}
	if rec.Subfolder != "" {
		return nil, errors.New("`subfolder` is not valid for a repository dependency")
	}

	unmanaged := rec.Unmanaged != nil && *rec.Unmanaged
	if !unmanaged && (rec.NamespaceInject != "" || rec.NamespaceStrip != "") {
		return nil, errors.New("the namespace_strip and namespace_inject fields require unmanaged = True")
	}

	url, err := normalizeGitHubParameters(rec)
	if err != nil {
		return nil, err
	}

	return &GitHubDynamicDependency{
		baseGitHubDependency: baseGitHubDependency{GitHub: url, Tag: rec.Tag},
		Unmanaged:            unmanaged,
		NamespaceInject:      rec.NamespaceInject,
		NamespaceStrip:       rec.NamespaceStrip,
		PasswordEnvName:      rec.PasswordEnvName,
		Skip:                 rec.Skip,
	}, nil
}

func (d *GitHubDynamicDependency) Name() string {
	return fmt.Sprintf("Dependency: %s", d.GitHub)
}

func (d *GitHubDynamicDependency) Description() string {
	unmanaged := ""
	if d.Unmanaged {
		unmanaged = " (unmanaged)"
	}
	return fmt.Sprintf("%s%s%s", d.GitHub, unmanaged, d.locSuffix())
}

func (d *GitHubDynamicDependency) IsUnmanaged() bool { return d.Unmanaged }

func (d *GitHubDynamicDependency) SetManagedDependency(dep StaticDependency) {
	d.ManagedDependency = dep
}

func (d *GitHubDynamicDependency) Key() string {
	managed := ""
	if d.ManagedDependency != nil {
		managed = d.ManagedDependency.Key()
	}
	return fmt.Sprintf("github-dynamic|%s|%s|%s|%t|%s|%s|%s|%v|%s",
		d.GitHub, d.Tag, d.Ref, d.Unmanaged, d.NamespaceInject,
		d.NamespaceStrip, d.PasswordEnvName, d.Skip, managed)
}

// Flatten expands the repository into installable dependencies:
// the remote project's own declared dependencies first, then subfolders
// of unpackaged/pre, then the package itself (or raw src metadata for an
// unmanaged install), then subfolders of unpackaged/post. The order is
// an install-correctness invariant.
func (d *GitHubDynamicDependency) Flatten(ctx context.Context, repos RepositoryReader) ([]Dependency, error) {
	if !d.IsResolved() {
		return nil, newResolutionError("Dependency %s is not resolved and cannot be flattened.", d.Description())
	}

	var deps []Dependency

	logger.Infof("Collecting dependencies from GitHub repo %s", d.GitHub)
	repo, err := repos.GetRepo(ctx, d.GitHub)
	if err != nil {
		return nil, fmt.Errorf("failed to read repo %s: %w", d.GitHub, err)
	}

	project, err := repo.ProjectConfig(ctx, d.Ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read project config for %s: %w", d.GitHub, err)
	}

	for _, rec := range project.Dependencies {
		parsed := ParseDependency(rec)
		if parsed == nil {
			return nil, newResolutionError("Unable to flatten dependency %s because a transitive dependency could not be parsed.", d.Description())
		}
		deps = append(deps, parsed)
	}

	managed := project.Namespace != "" && !d.Unmanaged

	// unpackaged/pre is always deployed unmanaged, no namespace manipulation.
	pre, err := d.flattenUnpackaged(ctx, repo, "unpackaged/pre", false, "")
	if err != nil {
		return nil, err
	}
	deps = append(deps, pre...)

	if !managed {
		contents, err := repo.DirectoryContents(ctx, "src", d.Ref)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to list src of %s: %w", d.GitHub, err)
		}
		if len(contents) > 0 {
			unmanaged := d.Unmanaged
			deps = append(deps, &UnmanagedGitHubRefDependency{
				GitHub:          d.GitHub,
				Ref:             d.Ref,
				Subfolder:       "src",
				Unmanaged:       &unmanaged,
				NamespaceInject: d.NamespaceInject,
				NamespaceStrip:  d.NamespaceStrip,
			})
		}
	} else {
		if d.ManagedDependency == nil {
			return nil, newResolutionError("Could not find latest release for %s", d.Description())
		}
		deps = append(deps, d.ManagedDependency)
	}

	// The project's namespace is injected into unpackaged/post metadata
	// if and only if this is a managed install.
	post, err := d.flattenUnpackaged(ctx, repo, "unpackaged/post", managed, project.Namespace)
	if err != nil {
		return nil, err
	}
	deps = append(deps, post...)

	return deps, nil
}

// flattenUnpackaged locates unmanaged dependencies in a repository
// subfolder such as unpackaged/pre or unpackaged/post.
func (d *GitHubDynamicDependency) flattenUnpackaged(ctx context.Context, repo Repository, subfolder string, managed bool, namespace string) ([]Dependency, error) {
	contents, err := repo.DirectoryContents(ctx, subfolder, d.Ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s of %s: %w", subfolder, d.GitHub, err)
	}

	names := make([]string, 0, len(contents))
	for name := range contents {
		names = append(names, name)
	}
	sort.Strings(names)

	var unpackaged []Dependency
	for _, name := range names {
		path := subfolder + "/" + name
		if contains(d.Skip, path) {
			continue
		}

		inject, strip := "", ""
		if namespace != "" {
			if managed {
				inject = namespace
			} else {
				strip = namespace
			}
		}
		unmanaged := !managed
		unpackaged = append(unpackaged, &UnmanagedGitHubRefDependency{
			GitHub:          d.GitHub,
			Ref:             d.Ref,
			Subfolder:       path,
			Unmanaged:       &unmanaged,
			NamespaceInject: inject,
			NamespaceStrip:  strip,
		})
	}
	return unpackaged, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// GitHubDynamicSubfolderDependency is a dependency on a subfolder of a
// GitHub repo, to be resolved to a specific ref. It is always unmanaged.
type GitHubDynamicSubfolderDependency struct {
	baseGitHubDependency

	Subfolder       string
	NamespaceInject string
	NamespaceStrip  string
}

// NewGitHubDynamicSubfolderDependency builds the variant from a
// declaration record.
func NewGitHubDynamicSubfolderDependency(rec Record) (*GitHubDynamicSubfolderDependency, error) {
	if rec.Ref != "" {
		return nil, errors.New("must not specify `ref` at creation")
	}
	if rec.Subfolder == "" {
		return nil, errors.New("`subfolder` is required")
	}

	url, err := normalizeGitHubParameters(rec)
	if err != nil {
		return nil, err
	}

	return &GitHubDynamicSubfolderDependency{
		baseGitHubDependency: baseGitHubDependency{GitHub: url, Tag: rec.Tag},
		Subfolder:            rec.Subfolder,
		NamespaceInject:      rec.NamespaceInject,
		NamespaceStrip:       rec.NamespaceStrip,
	}, nil
}

func (d *GitHubDynamicSubfolderDependency) Name() string {
	return fmt.Sprintf("Dependency: %s/%s", d.GitHub, d.Subfolder)
}

func (d *GitHubDynamicSubfolderDependency) Description() string {
	return fmt.Sprintf("%s/%s%s", d.GitHub, d.Subfolder, d.locSuffix())
}

func (d *GitHubDynamicSubfolderDependency) IsUnmanaged() bool { return true }

// SetManagedDependency is a no-op; a subfolder dependency never carries
// a managed package.
func (d *GitHubDynamicSubfolderDependency) SetManagedDependency(StaticDependency) {}

func (d *GitHubDynamicSubfolderDependency) Key() string {
	return fmt.Sprintf("github-subfolder|%s|%s|%s|%s|%s|%s",
		d.GitHub, d.Tag, d.Ref, d.Subfolder, d.NamespaceInject, d.NamespaceStrip)
}

// Flatten converts to a static dependency carrying the resolved ref.
func (d *GitHubDynamicSubfolderDependency) Flatten(ctx context.Context, repos RepositoryReader) ([]Dependency, error) {
	if !d.IsResolved() {
		return nil, newResolutionError("Dependency %s is not resolved and cannot be flattened.", d.Description())
	}

	return []Dependency{
		&UnmanagedGitHubRefDependency{
			GitHub:          d.GitHub,
			Ref:             d.Ref,
			Subfolder:       d.Subfolder,
			NamespaceInject: d.NamespaceInject,
			NamespaceStrip:  d.NamespaceStrip,
		},
	}, nil
}
