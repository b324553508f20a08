package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/sfdcale/cumulusci/domain"
)

// TagStrategy resolves a dependency that names an explicit tag. An
// explicit tag that does not exist is an error, not a pass.
type TagStrategy struct{}

func (s *TagStrategy) Name() string { return "tag" }

func (s *TagStrategy) Resolve(ctx context.Context, dep domain.DynamicDependency, repo domain.Repository) (string, domain.StaticDependency, error) {
	tag := dep.DeclaredTag()
	if tag == "" {
		return "", nil, nil
	}

	sha, err := repo.TagSHA(ctx, tag)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, &domain.DependencyResolutionError{
				Message: fmt.Sprintf("No commit found for tag %s in %s", tag, repo.URL()),
			}
		}
		return "", nil, fmt.Errorf("failed to resolve tag %s: %w", tag, err)
	}

	managed, err := managedPackageAt(ctx, dep, repo, sha, tag)
	if err != nil {
		return "", nil, err
	}
	return sha, managed, nil
}

// LatestReleaseStrategy resolves to the newest final (non-draft,
// non-prerelease) release of the repository.
type LatestReleaseStrategy struct{}

func (s *LatestReleaseStrategy) Name() string { return "latest-release" }

func (s *LatestReleaseStrategy) Resolve(ctx context.Context, dep domain.DynamicDependency, repo domain.Repository) (string, domain.StaticDependency, error) {
	return resolveFromReleases(ctx, dep, repo, false)
}

// LatestBetaStrategy resolves to the newest prerelease of the repository.
type LatestBetaStrategy struct{}

func (s *LatestBetaStrategy) Name() string { return "latest-beta" }

func (s *LatestBetaStrategy) Resolve(ctx context.Context, dep domain.DynamicDependency, repo domain.Repository) (string, domain.StaticDependency, error) {
	return resolveFromReleases(ctx, dep, repo, true)
}

// UnmanagedHeadStrategy resolves to the head of the default branch with
// no managed package. It always matches, so it belongs at the end of a
// strategy order.
type UnmanagedHeadStrategy struct{}

func (s *UnmanagedHeadStrategy) Name() string { return "unmanaged-head" }

func (s *UnmanagedHeadStrategy) Resolve(ctx context.Context, dep domain.DynamicDependency, repo domain.Repository) (string, domain.StaticDependency, error) {
	branch, err := repo.DefaultBranch(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read default branch of %s: %w", repo.URL(), err)
	}

	sha, err := repo.BranchSHA(ctx, branch)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve branch %s: %w", branch, err)
	}
	return sha, nil, nil
}

func resolveFromReleases(ctx context.Context, dep domain.DynamicDependency, repo domain.Repository, prerelease bool) (string, domain.StaticDependency, error) {
	if dep.DeclaredTag() != "" {
		return "", nil, nil
	}

	releases, err := repo.ListReleases(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list releases of %s: %w", repo.URL(), err)
	}

	best := ""
	for _, release := range releases {
		if release.Draft || release.Prerelease != prerelease {
			continue
		}
		if best == "" || tagLess(best, release.TagName) {
			best = release.TagName
		}
	}
	if best == "" {
		return "", nil, nil
	}

	sha, err := repo.TagSHA(ctx, best)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve tag %s: %w", best, err)
	}

	managed, err := managedPackageAt(ctx, dep, repo, sha, best)
	if err != nil {
		return "", nil, err
	}
	return sha, managed, nil
}

// managedPackageAt builds the static package dependency published at a
// resolved ref, when the remote project declares a namespace and the
// dependency did not request an unmanaged install.
func managedPackageAt(ctx context.Context, dep domain.DynamicDependency, repo domain.Repository, sha, tag string) (domain.StaticDependency, error) {
	if dep.IsUnmanaged() {
		return nil, nil
	}

	project, err := repo.ProjectConfig(ctx, sha)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read project config of %s: %w", repo.URL(), err)
	}
	if project.Namespace == "" {
		return nil, nil
	}

	version := versionFromTag(tag, project)
	if version == "" {
		return nil, nil
	}

	return &domain.PackageNamespaceVersionDependency{
		Namespace:   project.Namespace,
		Version:     version,
		PackageName: project.PackageName,
	}, nil
}

// versionFromTag translates a release tag name into a display version:
// "release/1.2" becomes "1.2" and "beta/1.2-Beta_3" becomes
// "1.2 (Beta 3)".
func versionFromTag(tag string, project *domain.RemoteProject) string {
	if project.GitPrefixBeta != "" && strings.HasPrefix(tag, project.GitPrefixBeta) {
		version := strings.TrimPrefix(tag, project.GitPrefixBeta)
		if strings.Contains(version, "-Beta_") {
			version = strings.Replace(version, "-Beta_", " (Beta ", 1) + ")"
		}
		return version
	}
	if project.GitPrefixRelease != "" && strings.HasPrefix(tag, project.GitPrefixRelease) {
		return strings.TrimPrefix(tag, project.GitPrefixRelease)
	}
	return ""
}

// tagLess orders tag names by the semantic version embedded after the
// prefix, falling back to the raw string for non-semver tags.
func tagLess(a, b string) bool {
	va, vb := normalizeTagVersion(a), normalizeTagVersion(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb) < 0
	}
	return a < b
}

func normalizeTagVersion(tag string) string {
	if idx := strings.LastIndexByte(tag, '/'); idx >= 0 {
		tag = tag[idx+1:]
	}
	if cut := strings.IndexByte(tag, '-'); cut >= 0 {
		tag = tag[:cut]
	}
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	return tag
}
