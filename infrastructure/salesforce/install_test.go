package salesforce //nolint:testpackage // tests the payload builder directly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdcale/cumulusci/domain"
)

func TestInstalledPackagePayload(t *testing.T) {
	t.Parallel()

	t.Run("should build a package with the manifest and the installed package entry", func(t *testing.T) {
		t.Parallel()

		// when
		payload, err := installedPackagePayload("npsp", "3.0", nil, "58.0")

		// then
		require.NoError(t, err)
		files := decodePayload(t, payload)
		require.Contains(t, files, "package.xml")
		require.Contains(t, files, "installedPackages/npsp.installedPackage")
		assert.Contains(t, files["package.xml"], "<members>npsp</members>")
		assert.Contains(t, files["package.xml"], "<version>58.0</version>")
		assert.Contains(t, files["installedPackages/npsp.installedPackage"], "<versionNumber>3.0</versionNumber>")
		assert.Contains(t, files["installedPackages/npsp.installedPackage"], "<activateRSS>false</activateRSS>")
		assert.NotContains(t, files["installedPackages/npsp.installedPackage"], "<password>")
	})

	t.Run("should carry the password and remote site activation when set", func(t *testing.T) {
		t.Parallel()

		// given
		opts := &domain.InstallOptions{Password: "hunter2", ActivateRemoteSiteSettings: true}

		// when
		payload, err := installedPackagePayload("npsp", "3.0", opts, "58.0")

		// then
		require.NoError(t, err)
		files := decodePayload(t, payload)
		entry := files["installedPackages/npsp.installedPackage"]
		assert.Contains(t, entry, "<password>hunter2</password>")
		assert.Contains(t, entry, "<activateRSS>true</activateRSS>")
	})
}
