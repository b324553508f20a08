package salesforce

import (
	"context"
	"fmt"

	"github.com/sfdcale/cumulusci/domain"
)

// Org implements domain.OrgReader by querying the org's installed
// subscriber packages. Results are cached for the lifetime of the Org;
// this layer never mutates org state.
type Org struct {
	name      string
	client    *Client
	installed map[string][]domain.PackageVersionInfo
}

// NewOrg creates an org reader with the given alias.
func NewOrg(name string, client *Client) *Org {
	return &Org{name: name, client: client}
}

func (o *Org) Name() string { return o.name }

type installedPackageRecord struct {
	SubscriberPackage struct {
		NamespacePrefix string `json:"NamespacePrefix"`
	} `json:"SubscriberPackage"`
	SubscriberPackageVersion struct {
		ID           string `json:"Id"`
		MajorVersion int    `json:"MajorVersion"`
		MinorVersion int    `json:"MinorVersion"`
		PatchVersion int    `json:"PatchVersion"`
		BuildNumber  int    `json:"BuildNumber"`
		IsBeta       bool   `json:"IsBeta"`
	} `json:"SubscriberPackageVersion"`
}

func (o *Org) InstalledPackages(ctx context.Context) (map[string][]domain.PackageVersionInfo, error) {
	if o.installed != nil {
		return o.installed, nil
	}

	var result struct {
		Records []installedPackageRecord `json:"records"`
	}
	soql := "SELECT SubscriberPackage.NamespacePrefix, SubscriberPackageVersion.Id, " +
		"SubscriberPackageVersion.MajorVersion, SubscriberPackageVersion.MinorVersion, " +
		"SubscriberPackageVersion.PatchVersion, SubscriberPackageVersion.BuildNumber, " +
		"SubscriberPackageVersion.IsBeta FROM InstalledSubscriberPackage"
	if err := o.client.toolingQuery(ctx, soql, &result); err != nil {
		return nil, fmt.Errorf("failed to query installed packages: %w", err)
	}

	installed := make(map[string][]domain.PackageVersionInfo)
	for _, record := range result.Records {
		version := record.SubscriberPackageVersion
		number := fmt.Sprintf("%d.%d", version.MajorVersion, version.MinorVersion)
		if version.PatchVersion > 0 {
			number = fmt.Sprintf("%s.%d", number, version.PatchVersion)
		}
		if version.IsBeta {
			number = fmt.Sprintf("%sb%d", number, version.BuildNumber)
		}

		namespace := record.SubscriberPackage.NamespacePrefix
		installed[namespace] = append(installed[namespace], domain.PackageVersionInfo{
			ID:     version.ID,
			Number: number,
		})
	}

	o.installed = installed
	return installed, nil
}

func (o *Org) HasMinimumPackageVersion(ctx context.Context, namespace, version string) (bool, error) {
	installed, err := o.InstalledPackages(ctx)
	if err != nil {
		return false, err
	}

	wanted, err := domain.ParseVersion(version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", version, err)
	}

	for _, info := range installed[namespace] {
		have, parseErr := domain.ParseVersion(info.Number)
		if parseErr != nil {
			continue
		}
		if have.Compare(wanted) >= 0 {
			return true, nil
		}
	}
	return false, nil
}
