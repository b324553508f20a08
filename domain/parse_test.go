package domain //nolint:testpackage // exercises variant constructors directly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestParseDependency(t *testing.T) {
	t.Parallel()

	t.Run("should parse namespace and version as a managed package dependency", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{Namespace: "npsp", Version: "3.0"}

		// when
		dep := ParseDependency(rec)

		// then
		require.IsType(t, &PackageNamespaceVersionDependency{}, dep)
		pkg := dep.(*PackageNamespaceVersionDependency)
		assert.Equal(t, "npsp", pkg.Namespace)
		assert.Equal(t, "3.0", pkg.Version)
	})

	t.Run("should prefer namespace and version even when a ref is present", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{Namespace: "npsp", Version: "3.0", GitHub: "https://github.com/org/repo", Ref: "abc123"}

		// when
		dep := ParseDependency(rec)

		// then
		assert.IsType(t, &PackageNamespaceVersionDependency{}, dep)
	})

	t.Run("should parse a version id as a package version dependency", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{VersionID: "04t000000000001", PackageName: "Test Package"}

		// when
		dep := ParseDependency(rec)

		// then
		require.IsType(t, &PackageVersionIdDependency{}, dep)
		assert.Equal(t, "04t000000000001", dep.(*PackageVersionIdDependency).VersionID)
	})

	t.Run("should parse a repo with a ref as a static unmanaged dependency", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{GitHub: "https://github.com/org/repo", Ref: "abc123", Subfolder: "unpackaged/config"}

		// when
		dep := ParseDependency(rec)

		// then
		require.IsType(t, &UnmanagedGitHubRefDependency{}, dep)
		ref := dep.(*UnmanagedGitHubRefDependency)
		assert.Equal(t, "abc123", ref.Ref)
		assert.Equal(t, "unpackaged/config", ref.Subfolder)
		assert.True(t, ref.IsResolved())
		assert.True(t, ref.IsFlattened())
	})

	t.Run("should parse a zip url as a static unmanaged dependency", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{ZipURL: "https://example.com/metadata.zip"}

		// when
		dep := ParseDependency(rec)

		// then
		assert.IsType(t, &UnmanagedZipURLDependency{}, dep)
	})

	t.Run("should parse a bare repo url as a dynamic repository dependency", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{GitHub: "https://github.com/org/repo"}

		// when
		dep := ParseDependency(rec)

		// then
		require.IsType(t, &GitHubDynamicDependency{}, dep)
		dynamic := dep.(*GitHubDynamicDependency)
		assert.False(t, dynamic.IsResolved())
		assert.False(t, dynamic.IsFlattened())
	})

	t.Run("should strip a trailing slash from the repo url", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{GitHub: "https://github.com/org/repo/"}

		// when
		dep := ParseDependency(rec)

		// then
		require.IsType(t, &GitHubDynamicDependency{}, dep)
		assert.Equal(t, "https://github.com/org/repo", dep.(*GitHubDynamicDependency).GitHub)
	})

	t.Run("should accept the deprecated repo_owner and repo_name pair", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{RepoOwner: "org", RepoName: "repo"}

		// when
		dep := ParseDependency(rec)

		// then
		require.IsType(t, &GitHubDynamicDependency{}, dep)
		assert.Equal(t, "https://github.com/org/repo", dep.(*GitHubDynamicDependency).GitHub)
	})

	t.Run("should parse a repo with a subfolder as a dynamic subfolder dependency", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{GitHub: "https://github.com/org/repo", Subfolder: "unpackaged/config", Tag: "release/1.0"}

		// when
		dep := ParseDependency(rec)

		// then
		require.IsType(t, &GitHubDynamicSubfolderDependency{}, dep)
		sub := dep.(*GitHubDynamicSubfolderDependency)
		assert.Equal(t, "unpackaged/config", sub.Subfolder)
		assert.Equal(t, "release/1.0", sub.DeclaredTag())
	})

	t.Run("should return nil for a record matching no variant", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{Namespace: "npsp"} // version is missing

		// when
		dep := ParseDependency(rec)

		// then
		assert.Nil(t, dep)
	})
}

func TestNewGitHubDynamicDependency(t *testing.T) {
	t.Parallel()

	t.Run("should reject namespace handling without unmanaged", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{GitHub: "https://github.com/org/repo", NamespaceInject: "ns"}

		// when
		_, err := NewGitHubDynamicDependency(rec)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unmanaged")
	})

	t.Run("should accept namespace handling with unmanaged", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{GitHub: "https://github.com/org/repo", Unmanaged: boolPtr(true), NamespaceStrip: "ns"}

		// when
		dep, err := NewGitHubDynamicDependency(rec)

		// then
		require.NoError(t, err)
		assert.True(t, dep.IsUnmanaged())
		assert.Equal(t, "ns", dep.NamespaceStrip)
	})

	t.Run("should reject a preset ref", func(t *testing.T) {
		t.Parallel()

		// given
		rec := Record{GitHub: "https://github.com/org/repo", Ref: "abc123", Unmanaged: boolPtr(true)}

		// when
		_, err := NewGitHubDynamicDependency(rec)

		// then
		require.Error(t, err)
	})
}

func TestParseDependencies(t *testing.T) {
	t.Parallel()

	t.Run("should parse every record in order", func(t *testing.T) {
		t.Parallel()

		// given
		records := []Record{
			{Namespace: "npsp", Version: "3.0"},
			{GitHub: "https://github.com/org/repo"},
		}

		// when
		deps, err := ParseDependencies(records)

		// then
		require.NoError(t, err)
		require.Len(t, deps, 2)
		assert.IsType(t, &PackageNamespaceVersionDependency{}, deps[0])
		assert.IsType(t, &GitHubDynamicDependency{}, deps[1])
	})

	t.Run("should fail the whole batch when one record matches no variant", func(t *testing.T) {
		t.Parallel()

		// given
		records := []Record{
			{Namespace: "npsp", Version: "3.0"},
			{Tag: "release/1.0"}, // no repo, package or zip identity
		}

		// when
		_, err := ParseDependencies(records)

		// then
		require.Error(t, err)
		var parseErr *DependencyParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, parseErr.Message, "Unable to parse dependency")
	})
}
