package salesforce

import (
	"context"
	"fmt"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"github.com/sfdcale/cumulusci/domain"
)

// Deployer implements domain.MetadataDeployer over the metadata deploy
// REST endpoint.
type Deployer struct {
	client *Client
}

// NewDeployer creates a deployer on the given client.
func NewDeployer(client *Client) *Deployer {
	return &Deployer{client: client}
}

func (d *Deployer) Deploy(ctx context.Context, org domain.OrgReader, packageBase64 string) error {
	logger.Infof("Deploying metadata package to org %s", org.Name())
	return d.client.deployZip(ctx, packageBase64)
}

func (c *Client) deployZip(ctx context.Context, packageBase64 string) error {
	path := fmt.Sprintf("/services/data/v%s/metadata/deployRequest", c.apiVersion)
	request := map[string]any{
		"deployOptions": map[string]any{
			"singlePackage":   true,
			"rollbackOnError": true,
		},
		"zipFile": packageBase64,
	}
	return c.doJSON(ctx, http.MethodPost, path, request, nil)
}
