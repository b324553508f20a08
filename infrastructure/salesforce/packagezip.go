package salesforce

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/sfdcale/cumulusci/domain"
)

// Namespace tokens understood inside unmanaged metadata. Content tokens
// appear in file bodies, the filename token in entry names.
const (
	tokenNamespace     = "%%%NAMESPACE%%%"
	tokenNamespacedOrg = "%%%NAMESPACED_ORG%%%"
	tokenFileName      = "___NAMESPACE___"
)

// ZipBuilder implements domain.PackageZipBuilder: it rewrites raw
// metadata zip bytes with namespace options applied and returns the
// base64 payload the deploy collaborator expects.
type ZipBuilder struct{}

// NewZipBuilder creates a builder.
func NewZipBuilder() *ZipBuilder {
	return &ZipBuilder{}
}

func (b *ZipBuilder) Build(zipBytes []byte, opts domain.ZipOptions) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", fmt.Errorf("failed to read metadata zip: %w", err)
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		src, openErr := file.Open()
		if openErr != nil {
			return "", openErr
		}
		content, readErr := io.ReadAll(src)
		src.Close()
		if readErr != nil {
			return "", readErr
		}

		name := processName(file.Name, opts)
		entry, createErr := writer.Create(name)
		if createErr != nil {
			return "", createErr
		}
		if _, writeErr := entry.Write(processContent(content, opts)); writeErr != nil {
			return "", writeErr
		}
	}

	if err := writer.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func processName(name string, opts domain.ZipOptions) string {
	prefix := ""
	if !opts.Unmanaged && opts.NamespaceInject != "" {
		prefix = opts.NamespaceInject + "__"
	}
	return strings.ReplaceAll(name, tokenFileName, prefix)
}

func processContent(content []byte, opts domain.ZipOptions) []byte {
	text := string(content)

	prefix := ""
	if !opts.Unmanaged && opts.NamespaceInject != "" {
		prefix = opts.NamespaceInject + "__"
	}
	text = strings.ReplaceAll(text, tokenNamespace, prefix)
	text = strings.ReplaceAll(text, tokenNamespacedOrg, prefix)

	if opts.NamespaceStrip != "" {
		text = strings.ReplaceAll(text, opts.NamespaceStrip+"__", "")
	}

	return []byte(text)
}
