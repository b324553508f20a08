// Package marketingcloud deploys Marketing Cloud package zips through
// the package-manager service: upload, poll, validate.
package marketingcloud

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	logger "github.com/sirupsen/logrus"
)

const defaultPollInterval = 5 * time.Second

// DeploymentError indicates the service reported a failed deployment.
type DeploymentError struct {
	Message string
}

func (e *DeploymentError) Error() string {
	return e.Message
}

// Credentials authenticate against the package-manager service.
type Credentials struct {
	AccessToken string
	TSSD        string
}

// DeployOptions configure a single deploy run.
type DeployOptions struct {
	PackageZipFile string
	CustomInputs   map[string]string
	PollInterval   time.Duration
}

// DeployTask uploads a package payload and polls the deployment job
// until it finishes.
type DeployTask struct {
	http     *http.Client
	endpoint string
	creds    Credentials
}

// NewDeployTask creates a deploy task against the given endpoint.
func NewDeployTask(endpoint string, creds Credentials) *DeployTask {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	return &DeployTask{
		http:     retryClient.StandardClient(),
		endpoint: strings.TrimSuffix(endpoint, "/"),
		creds:    creds,
	}
}

// payload mirrors what the package-manager deployment endpoint expects.
type payload struct {
	Namespace  namespaceValues                       `json:"namespace"`
	Config     configValues                          `json:"config"`
	References json.RawMessage                       `json:"references"`
	Input      []map[string]any                      `json:"input"`
	Entities   map[string]map[string]json.RawMessage `json:"entities"`
}

type namespaceValues struct {
	Category  string `json:"category"`
	Prepend   string `json:"prepend"`
	Append    string `json:"append"`
	Timestamp bool   `json:"timestamp"`
}

type configValues struct {
	PreserveCategories bool `json:"preserveCategories"`
}

type jobInfo struct {
	Info struct {
		ID string `json:"id"`
	} `json:"info"`
	Status   string                                `json:"status"`
	Entities map[string]map[string]json.RawMessage `json:"entities"`
}

type entityStatus struct {
	Status string   `json:"status"`
	Issues []string `json:"issues"`
}

// Run extracts the package zip, builds the payload, starts the
// deployment and polls until it completes.
func (t *DeployTask) Run(ctx context.Context, opts DeployOptions) error {
	info, err := os.Stat(opts.PackageZipFile)
	if err != nil || info.IsDir() {
		return fmt.Errorf("package zip file not valid: %s", opts.PackageZipFile)
	}

	tempDir, err := os.MkdirTemp("", "mc-deploy-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	if err := extractZip(opts.PackageZipFile, tempDir); err != nil {
		return fmt.Errorf("failed to extract package zip: %w", err)
	}

	body, err := ConstructPayload(tempDir, opts.CustomInputs)
	if err != nil {
		return err
	}

	jobID, err := t.startDeployment(ctx, body)
	if err != nil {
		return err
	}
	logger.Infof("Started job %s", jobID)

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return t.poll(ctx, jobID, interval)
}

func (t *DeployTask) startDeployment(ctx context.Context, body *payload) (string, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/deployments", bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	t.setHeaders(req)

	var job jobInfo
	if err := t.doJSON(req, &job); err != nil {
		return "", fmt.Errorf("failed to start deployment: %w", err)
	}
	return job.Info.ID, nil
}

func (t *DeployTask) poll(ctx context.Context, jobID string, interval time.Duration) error {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"/deployments/"+jobID, nil)
		if err != nil {
			return err
		}
		t.setHeaders(req)

		var job jobInfo
		if err := t.doJSON(req, &job); err != nil {
			return fmt.Errorf("failed to poll deployment %s: %w", jobID, err)
		}

		logger.Infof("Waiting [%s]...", job.Status)
		if job.Status == "DONE" {
			return validateResult(&job)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (t *DeployTask) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+t.creds.AccessToken)
	req.Header.Set("SFMC-TSSD", t.creds.TSSD)
	req.Header.Set("Content-Type", "application/json")
}

func (t *DeployTask) doJSON(req *http.Request, out any) error {
	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d: %s", req.URL.Path, resp.StatusCode, raw)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ConstructPayload builds the deployment payload from an extracted
// package directory: references.json, input.json and entities/**/*.json,
// with custom inputs applied over the declared input keys.
func ConstructPayload(dir string, customInputs map[string]string) (*payload, error) {
	body := &payload{
		Namespace: namespaceValues{Timestamp: true},
		Config:    configValues{PreserveCategories: true},
		Entities:  map[string]map[string]json.RawMessage{},
	}

	references, err := os.ReadFile(filepath.Join(dir, "references.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read references.json: %w", err)
	}
	body.References = references

	inputRaw, err := os.ReadFile(filepath.Join(dir, "input.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read input.json: %w", err)
	}
	if err := json.Unmarshal(inputRaw, &body.Input); err != nil {
		return nil, fmt.Errorf("failed to parse input.json: %w", err)
	}

	entitiesDir := filepath.Join(dir, "entities")
	walkErr := filepath.WalkDir(entitiesDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		entityName := filepath.Base(filepath.Dir(path))
		entityID := strings.TrimSuffix(filepath.Base(path), ".json")
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		if body.Entities[entityName] == nil {
			body.Entities[entityName] = map[string]json.RawMessage{}
		}
		body.Entities[entityName][entityID] = content
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if err := applyCustomInputs(body, customInputs); err != nil {
		return nil, err
	}
	return body, nil
}

func applyCustomInputs(body *payload, customInputs map[string]string) error {
	for key, value := range customInputs {
		found := false
		for _, input := range body.Input {
			if input["key"] == key {
				input["value"] = value
				found = true
				break
			}
		}
		if !found {
			return &DeploymentError{Message: fmt.Sprintf("Custom input of key %s not found in package.", key)}
		}
	}
	return nil
}

// validateResult checks every entity status in the finished job and
// fails when any reported something other than SUCCESS.
func validateResult(job *jobInfo) error {
	hasError := false
	for entity, infos := range job.Entities {
		for entityID, raw := range infos {
			var status entityStatus
			if err := json.Unmarshal(raw, &status); err != nil {
				continue
			}
			if status.Status != "SUCCESS" {
				hasError = true
				logger.Errorf("Failed to deploy %s/%s. Status: %s. Issues: %v",
					entity, entityID, status.Status, status.Issues)
			}
		}
	}

	if hasError {
		return &DeploymentError{Message: "Marketing Cloud reported deployment failures."}
	}
	logger.Info("Deployment completed successfully.")
	return nil
}

func extractZip(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(destDir, filepath.Clean(file.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry %q escapes the target directory", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		src, openErr := file.Open()
		if openErr != nil {
			return openErr
		}
		dst, createErr := os.Create(target)
		if createErr != nil {
			src.Close()
			return createErr
		}
		if _, copyErr := io.Copy(dst, src); copyErr != nil {
			src.Close()
			dst.Close()
			return copyErr
		}
		src.Close()
		dst.Close()
	}
	return nil
}
