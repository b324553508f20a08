package domain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdcale/cumulusci/domain"
	testdoubles "github.com/sfdcale/cumulusci/test"
)

func TestUnmanagedGitHubRefDependency_Install(t *testing.T) {
	t.Parallel()

	newEnv := func(repo *testdoubles.StubRepository) (*domain.InstallEnv, *testdoubles.StubZipSource, *testdoubles.StubZipBuilder, *testdoubles.SpyDeployer) {
		reader := &testdoubles.StubRepositoryReader{
			Repos: map[string]*testdoubles.StubRepository{repo.RepoURL: repo},
		}
		zips := &testdoubles.StubZipSource{Bytes: []byte("zip-bytes")}
		builder := &testdoubles.StubZipBuilder{Payload: "cGF5bG9hZA=="}
		deployer := &testdoubles.SpyDeployer{}
		return testdoubles.NewInstallEnv(reader, nil, zips, builder, deployer), zips, builder, deployer
	}

	t.Run("should download the subfolder at the ref and deploy it", func(t *testing.T) {
		t.Parallel()

		// given
		repo := &testdoubles.StubRepository{RepoURL: "https://github.com/org/repo"}
		env, zips, builder, deployer := newEnv(repo)
		unmanaged := true
		dep := &domain.UnmanagedGitHubRefDependency{
			GitHub:    repo.RepoURL,
			Ref:       "abc123",
			Subfolder: "unpackaged/pre/first",
			Unmanaged: &unmanaged,
		}

		// when
		err := dep.Install(context.Background(), env, &testdoubles.StubOrg{}, nil, nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"https://github.com/org/repo|unpackaged/pre/first|abc123"}, zips.Fetches)
		require.Len(t, builder.Options, 1)
		assert.True(t, builder.Options[0].Unmanaged)
		assert.Equal(t, []string{"cGF5bG9hZA=="}, deployer.Payloads)
	})

	t.Run("should inject the namespace when it is not installed in the org", func(t *testing.T) {
		t.Parallel()

		// given
		repo := &testdoubles.StubRepository{RepoURL: "https://github.com/org/repo"}
		env, _, builder, _ := newEnv(repo)
		dep := &domain.UnmanagedGitHubRefDependency{
			GitHub:          repo.RepoURL,
			Ref:             "abc123",
			Subfolder:       "unpackaged/post/config",
			NamespaceInject: "ns",
		}
		org := &testdoubles.StubOrg{} // namespace not installed

		// when
		err := dep.Install(context.Background(), env, org, nil, nil)

		// then
		require.NoError(t, err)
		require.Len(t, builder.Options, 1)
		assert.True(t, builder.Options[0].Unmanaged)
		assert.Equal(t, "ns", builder.Options[0].NamespaceInject)
	})

	t.Run("should deploy namespaced when the namespace is installed in the org", func(t *testing.T) {
		t.Parallel()

		// given
		repo := &testdoubles.StubRepository{RepoURL: "https://github.com/org/repo"}
		env, _, builder, _ := newEnv(repo)
		dep := &domain.UnmanagedGitHubRefDependency{
			GitHub:          repo.RepoURL,
			Ref:             "abc123",
			Subfolder:       "unpackaged/post/config",
			NamespaceInject: "ns",
		}
		org := &testdoubles.StubOrg{
			Installed: map[string][]domain.PackageVersionInfo{
				"ns": {{ID: "04t000000000001", Number: "1.0"}},
			},
		}

		// when
		err := dep.Install(context.Background(), env, org, nil, nil)

		// then
		require.NoError(t, err)
		require.Len(t, builder.Options, 1)
		assert.False(t, builder.Options[0].Unmanaged)
	})

	t.Run("should honor an explicit unmanaged flag over the org state", func(t *testing.T) {
		t.Parallel()

		// given
		repo := &testdoubles.StubRepository{RepoURL: "https://github.com/org/repo"}
		env, _, builder, _ := newEnv(repo)
		unmanaged := false
		dep := &domain.UnmanagedGitHubRefDependency{
			GitHub:          repo.RepoURL,
			Ref:             "abc123",
			Subfolder:       "src",
			Unmanaged:       &unmanaged,
			NamespaceInject: "ns",
		}

		// when
		err := dep.Install(context.Background(), env, &testdoubles.StubOrg{}, nil, nil)

		// then
		require.NoError(t, err)
		require.Len(t, builder.Options, 1)
		assert.False(t, builder.Options[0].Unmanaged)
	})
}

func TestUnmanagedZipURLDependency_Install(t *testing.T) {
	t.Parallel()

	t.Run("should download the zip and deploy it", func(t *testing.T) {
		t.Parallel()

		// given
		zips := &testdoubles.StubZipSource{Bytes: []byte("zip-bytes")}
		builder := &testdoubles.StubZipBuilder{Payload: "cGF5bG9hZA=="}
		deployer := &testdoubles.SpyDeployer{}
		env := testdoubles.NewInstallEnv(&testdoubles.StubRepositoryReader{}, nil, zips, builder, deployer)
		dep := &domain.UnmanagedZipURLDependency{ZipURL: "https://example.com/metadata.zip"}

		// when
		err := dep.Install(context.Background(), env, &testdoubles.StubOrg{}, nil, nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/metadata.zip||"}, zips.Fetches)
		assert.Equal(t, []string{"cGF5bG9hZA=="}, deployer.Payloads)
	})
}

func TestDependencyKeys(t *testing.T) {
	t.Parallel()

	t.Run("should give identical keys to dependencies built from identical fields", func(t *testing.T) {
		t.Parallel()

		// given
		a := &domain.PackageNamespaceVersionDependency{Namespace: "npsp", Version: "3.0"}
		b := &domain.PackageNamespaceVersionDependency{Namespace: "npsp", Version: "3.0"}

		// then
		assert.Equal(t, a.Key(), b.Key())
	})

	t.Run("should distinguish a nil unmanaged flag from an explicit false", func(t *testing.T) {
		t.Parallel()

		// given
		unmanaged := false
		a := &domain.UnmanagedGitHubRefDependency{GitHub: "https://github.com/org/repo", Ref: "abc"}
		b := &domain.UnmanagedGitHubRefDependency{GitHub: "https://github.com/org/repo", Ref: "abc", Unmanaged: &unmanaged}

		// then
		assert.NotEqual(t, a.Key(), b.Key())
	})
}
