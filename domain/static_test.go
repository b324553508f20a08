package domain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdcale/cumulusci/domain"
	testdoubles "github.com/sfdcale/cumulusci/test"
)

func TestPackageNamespaceVersionDependency_Install(t *testing.T) {
	t.Parallel()

	t.Run("should install through the package installer", func(t *testing.T) {
		t.Parallel()

		// given
		installer := &testdoubles.SpyInstaller{}
		env := testdoubles.NewInstallEnv(&testdoubles.StubRepositoryReader{}, installer, nil, nil, nil)
		org := &testdoubles.StubOrg{}
		dep := &domain.PackageNamespaceVersionDependency{Namespace: "npsp", Version: "3.0"}

		// when
		err := dep.Install(context.Background(), env, org, nil, nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"npsp 3.0"}, installer.NamespaceVersionCalls)
	})

	t.Run("should skip when the org already has the minimum version", func(t *testing.T) {
		t.Parallel()

		// given
		installer := &testdoubles.SpyInstaller{}
		env := testdoubles.NewInstallEnv(&testdoubles.StubRepositoryReader{}, installer, nil, nil, nil)
		org := &testdoubles.StubOrg{
			MinimumVersions: map[string]bool{"npsp@3.0": true},
		}
		dep := &domain.PackageNamespaceVersionDependency{Namespace: "npsp", Version: "3.0"}

		// when
		err := dep.Install(context.Background(), env, org, nil, nil)

		// then
		require.NoError(t, err)
		assert.Empty(t, installer.NamespaceVersionCalls)
	})

	t.Run("should check the beta token form of a beta version", func(t *testing.T) {
		t.Parallel()

		// given
		installer := &testdoubles.SpyInstaller{}
		env := testdoubles.NewInstallEnv(&testdoubles.StubRepositoryReader{}, installer, nil, nil, nil)
		org := &testdoubles.StubOrg{
			MinimumVersions: map[string]bool{"npsp@3.0b2": true},
		}
		dep := &domain.PackageNamespaceVersionDependency{Namespace: "npsp", Version: "3.0 (Beta 2)"}

		// when
		err := dep.Install(context.Background(), env, org, nil, nil)

		// then
		require.NoError(t, err)
		assert.Empty(t, installer.NamespaceVersionCalls)
	})

}

// Not parallel: mutates the process environment.
func TestPackageNamespaceVersionDependency_InstallPassword(t *testing.T) {
	// given
	t.Setenv("TEST_PKG_PASSWORD", "hunter2")
	installer := &testdoubles.SpyInstaller{}
	env := testdoubles.NewInstallEnv(&testdoubles.StubRepositoryReader{}, installer, nil, nil, nil)
	org := &testdoubles.StubOrg{}
	dep := &domain.PackageNamespaceVersionDependency{
		Namespace:       "npsp",
		Version:         "3.0",
		PasswordEnvName: "TEST_PKG_PASSWORD",
	}
	opts := &domain.InstallOptions{SecurityType: "FULL"}

	// when
	err := dep.Install(context.Background(), env, org, opts, nil)

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"hunter2"}, installer.Passwords)
	assert.Empty(t, opts.Password, "caller options must not be mutated")
}

func TestPackageVersionIdDependency_Install(t *testing.T) {
	t.Parallel()

	t.Run("should install by version id", func(t *testing.T) {
		t.Parallel()

		// given
		installer := &testdoubles.SpyInstaller{}
		env := testdoubles.NewInstallEnv(&testdoubles.StubRepositoryReader{}, installer, nil, nil, nil)
		org := &testdoubles.StubOrg{}
		dep := &domain.PackageVersionIdDependency{VersionID: "04t000000000001"}

		// when
		err := dep.Install(context.Background(), env, org, nil, nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"04t000000000001"}, installer.VersionIDCalls)
	})

	t.Run("should skip when the exact version id is already installed", func(t *testing.T) {
		t.Parallel()

		// given
		installer := &testdoubles.SpyInstaller{}
		env := testdoubles.NewInstallEnv(&testdoubles.StubRepositoryReader{}, installer, nil, nil, nil)
		org := &testdoubles.StubOrg{
			Installed: map[string][]domain.PackageVersionInfo{
				"ns": {{ID: "04t000000000001", Number: "1.0"}},
			},
		}
		dep := &domain.PackageVersionIdDependency{VersionID: "04t000000000001"}

		// when
		err := dep.Install(context.Background(), env, org, nil, nil)

		// then
		require.NoError(t, err)
		assert.Empty(t, installer.VersionIDCalls)
	})
}

func TestStaticDependency_Descriptions(t *testing.T) {
	t.Parallel()

	t.Run("should prefer the package name over the namespace", func(t *testing.T) {
		t.Parallel()

		// given
		dep := &domain.PackageNamespaceVersionDependency{
			Namespace:   "npsp",
			Version:     "3.0",
			PackageName: "Nonprofit Success Pack",
		}

		// then
		assert.Equal(t, "Nonprofit Success Pack 3.0", dep.Description())
	})

	t.Run("should fall back to the version id when no number is known", func(t *testing.T) {
		t.Parallel()

		// given
		dep := &domain.PackageVersionIdDependency{VersionID: "04t000000000001"}

		// then
		assert.Equal(t, "Unknown Package 04t000000000001", dep.Description())
	})
}
