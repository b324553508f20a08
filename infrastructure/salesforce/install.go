package salesforce

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sfdcale/cumulusci/domain"
)

// Installer implements domain.PackageInstaller. Install-by-namespace
// deploys an InstalledPackage metadata entry; install-by-version-id goes
// through a PackageInstallRequest.
type Installer struct {
	client *Client
}

// NewInstaller creates an installer on the given client.
func NewInstaller(client *Client) *Installer {
	return &Installer{client: client}
}

func (i *Installer) InstallByNamespaceVersion(ctx context.Context, org domain.OrgReader, namespace, version string, opts *domain.InstallOptions, retry *domain.RetryOptions) error {
	payload, err := installedPackagePayload(namespace, version, opts, i.client.apiVersion)
	if err != nil {
		return err
	}

	description := fmt.Sprintf("install of %s %s into %s", namespace, version, org.Name())
	return withRetries(ctx, retry, description, func() error {
		return i.client.deployZip(ctx, payload)
	})
}

func (i *Installer) InstallByVersionID(ctx context.Context, org domain.OrgReader, versionID string, opts *domain.InstallOptions, retry *domain.RetryOptions) error {
	request := map[string]any{
		"SubscriberPackageVersionKey": versionID,
	}
	if opts != nil {
		if opts.Password != "" {
			request["Password"] = opts.Password
		}
		if opts.SecurityType != "" {
			request["SecurityType"] = opts.SecurityType
		}
		request["EnableRss"] = opts.ActivateRemoteSiteSettings
	}

	path := fmt.Sprintf("/services/data/v%s/tooling/sobjects/PackageInstallRequest", i.client.apiVersion)
	description := fmt.Sprintf("install of %s into %s", versionID, org.Name())
	return withRetries(ctx, retry, description, func() error {
		return i.client.doJSON(ctx, http.MethodPost, path, request, nil)
	})
}

// installedPackagePayload builds the base64 metadata package that
// installs a managed package by namespace and version.
func installedPackagePayload(namespace, version string, opts *domain.InstallOptions, apiVersion string) (string, error) {
	password := ""
	activateRSS := false
	if opts != nil {
		password = opts.Password
		activateRSS = opts.ActivateRemoteSiteSettings
	}

	manifest := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Package xmlns="http://soap.sforce.com/2006/04/metadata">
    <types>
        <members>%s</members>
        <name>InstalledPackage</name>
    </types>
    <version>%s</version>
</Package>
`, namespace, apiVersion)

	passwordElement := ""
	if password != "" {
		passwordElement = fmt.Sprintf("\n    <password>%s</password>", password)
	}
	installedPackage := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<InstalledPackage xmlns="http://soap.sforce.com/2006/04/metadata">
    <versionNumber>%s</versionNumber>
    <activateRSS>%t</activateRSS>%s
</InstalledPackage>
`, version, activateRSS, passwordElement)

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	files := map[string]string{
		"package.xml": manifest,
		fmt.Sprintf("installedPackages/%s.installedPackage", namespace): installedPackage,
	}
	for name, content := range files {
		entry, err := writer.Create(name)
		if err != nil {
			return "", err
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
