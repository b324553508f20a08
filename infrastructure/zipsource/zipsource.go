// Package zipsource fetches unmanaged metadata as zip bytes, either from
// a repository ref or from a plain URL, narrowed to a subfolder.
package zipsource

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/sfdcale/cumulusci/domain"
)

// Source implements domain.ZipSource.
type Source struct {
	http *http.Client
}

// New creates a zip source downloading over a retrying HTTP client.
func New() *Source {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	return &Source{http: retryClient.StandardClient()}
}

// FromRepo downloads the repository zipball at a ref and narrows it to
// the given subfolder.
func (s *Source) FromRepo(ctx context.Context, repo domain.Repository, subfolder, ref string) ([]byte, error) {
	zipBytes, err := repo.DownloadZip(ctx, ref)
	if err != nil {
		return nil, err
	}
	return ExtractSubfolder(zipBytes, subfolder)
}

// FromURL downloads a zip file and narrows it to the given subfolder.
func (s *Source) FromURL(ctx context.Context, url, subfolder string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download of %s returned %d", url, resp.StatusCode)
	}

	zipBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ExtractSubfolder(zipBytes, subfolder)
}

// ExtractSubfolder rewrites a zip so the given subfolder becomes its
// root. Zipballs carry a single top-level directory; that prefix is
// stripped first. An empty subfolder keeps the whole tree.
func ExtractSubfolder(zipBytes []byte, subfolder string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to read zip: %w", err)
	}

	prefix := topLevelPrefix(reader)
	want := prefix
	if subfolder != "" {
		want = prefix + strings.Trim(subfolder, "/") + "/"
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	found := false

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if !strings.HasPrefix(file.Name, want) {
			continue
		}
		found = true

		entry, createErr := writer.Create(strings.TrimPrefix(file.Name, want))
		if createErr != nil {
			return nil, createErr
		}
		src, openErr := file.Open()
		if openErr != nil {
			return nil, openErr
		}
		if _, copyErr := io.Copy(entry, src); copyErr != nil {
			src.Close()
			return nil, copyErr
		}
		src.Close()
	}

	if subfolder != "" && !found {
		return nil, fmt.Errorf("subfolder %q not found in zip", subfolder)
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// topLevelPrefix returns the shared single top-level directory of a
// zipball, or "" when the archive has none.
func topLevelPrefix(reader *zip.Reader) string {
	prefix := ""
	for _, file := range reader.File {
		idx := strings.IndexByte(file.Name, '/')
		if idx < 0 {
			return ""
		}
		top := file.Name[:idx+1]
		if prefix == "" {
			prefix = top
		} else if prefix != top {
			return ""
		}
	}
	return prefix
}
