// Package salesforce is the thin HTTP glue between dependency dispatch
// and the org: package install requests, metadata deploys and
// installed-package queries. The wire protocol itself is deliberately
// minimal; correctness lives in the dependency layer.
package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	logger "github.com/sirupsen/logrus"

	"github.com/sfdcale/cumulusci/domain"
)

const defaultAPIVersion = "58.0"

// Client talks to one org's REST endpoints.
type Client struct {
	http        *http.Client
	instanceURL string
	accessToken string
	apiVersion  string
}

// NewClient creates a client for an org instance.
func NewClient(instanceURL, accessToken, apiVersion string) *Client {
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	return &Client{
		http:        retryClient.StandardClient(),
		instanceURL: instanceURL,
		accessToken: accessToken,
		apiVersion:  apiVersion,
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.instanceURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) toolingQuery(ctx context.Context, soql string, out any) error {
	path := fmt.Sprintf("/services/data/v%s/tooling/query/?q=%s", c.apiVersion, url.QueryEscape(soql))
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// withRetries runs op under the bounded retry policy: a fixed number of
// attempts with a growing interval between them.
func withRetries(ctx context.Context, retry *domain.RetryOptions, description string, op func() error) error {
	if retry == nil {
		retry = domain.DefaultRetryOptions()
	}

	interval := retry.RetryInterval
	var err error
	for attempt := 0; attempt <= retry.Retries; attempt++ {
		if attempt > 0 {
			logger.Warnf("Retrying %s (attempt %d of %d): %v", description, attempt, retry.Retries, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
			interval += retry.RetryIntervalAdd
		}

		if err = op(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", description, retry.Retries, err)
}
