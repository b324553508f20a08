package domain

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// Dependency is a single declared dependency of a project.
//
// Dependencies can be _resolved_ to an immutable version ref, or not.
// They can also be _flattened_ (expanded into the ordered list of
// installable units they represent) or not.
type Dependency interface {
	// Name returns a short human-readable identifier.
	Name() string

	// Description returns the user-facing description used in log and
	// error messages.
	Description() string

	// IsResolved reports whether the dependency is pinned to an
	// immutable version or ref.
	IsResolved() bool

	// IsFlattened reports whether the dependency is directly installable
	// without further expansion.
	IsFlattened() bool

	// Flatten expands this dependency into the ordered list of
	// dependencies it represents, including transitive ones. Static
	// dependencies return themselves.
	Flatten(ctx context.Context, repos RepositoryReader) ([]Dependency, error)

	// Key returns a canonical representation of all fields. Two
	// dependencies built from identical field values share a key, which
	// is what order-preserving deduplication relies on.
	Key() string
}

// StaticDependency is a dependency that is already both resolved and
// flattened, and therefore knows how to install itself.
type StaticDependency interface {
	Dependency

	Install(ctx context.Context, env *InstallEnv, org OrgReader, opts *InstallOptions, retry *RetryOptions) error
}

// DynamicDependency is a dependency pointing at a mutable reference
// (a GitHub repo) that must be resolved before it can be flattened.
type DynamicDependency interface {
	Dependency

	// RepoURL returns the repository the dependency points at.
	RepoURL() string

	// DeclaredTag returns the tag named in the declaration, if any.
	DeclaredTag() string

	// IsUnmanaged reports whether the dependency requests an unmanaged
	// (raw metadata) install even when the remote package is namespaced.
	IsUnmanaged() bool

	// SetRef pins the dependency to an immutable commit ref. Only
	// resolution is allowed to call this.
	SetRef(ref string)

	// SetManagedDependency attaches the static package dependency found
	// for the resolved ref of a managed package flow.
	SetManagedDependency(dep StaticDependency)
}

// baseGitHubDependency carries the fields shared by the dynamic GitHub
// dependency variants.
type baseGitHubDependency struct {
	GitHub string
	Tag    string
	Ref    string
}

func (b *baseGitHubDependency) RepoURL() string     { return b.GitHub }
func (b *baseGitHubDependency) DeclaredTag() string { return b.Tag }
func (b *baseGitHubDependency) IsResolved() bool    { return b.Ref != "" }
func (b *baseGitHubDependency) IsFlattened() bool   { return false }
func (b *baseGitHubDependency) SetRef(ref string)   { b.Ref = ref }

// locSuffix renders the " @tag-or-ref" part of descriptions.
func (b *baseGitHubDependency) locSuffix() string {
	if b.Tag != "" {
		return " @" + b.Tag
	}
	if b.Ref != "" {
		return " @" + b.Ref
	}
	return ""
}

// normalizeGitHubParameters validates the github / repo_owner+repo_name
// alternative and collapses the deprecated pair into a full URL.
func normalizeGitHubParameters(rec Record) (string, error) {
	if rec.RepoOwner != "" || rec.RepoName != "" {
		logger.Warn("The dependency keys `repo_owner` and `repo_name` are deprecated. Use the full repo URL with the `github` key instead.")
	}

	if rec.GitHub != "" {
		return strings.TrimSuffix(rec.GitHub, "/"), nil
	}
	if rec.RepoOwner != "" && rec.RepoName != "" {
		return fmt.Sprintf("https://github.com/%s/%s", rec.RepoOwner, rec.RepoName), nil
	}
	return "", fmt.Errorf("must specify `github` or `repo_owner` and `repo_name`")
}
