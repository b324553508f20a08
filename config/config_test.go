package config //nolint:testpackage // tests defaulting helpers alongside Load

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cumulusci.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("should parse the project and its dependency records", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, `
project:
  name: TestProject
  package:
    name: Test Package
    namespace: testns
    api_version: "58.0"
  dependencies:
    - namespace: npsp
      version: "3.0"
    - github: https://github.com/org/repo
      skip: unpackaged/pre/sample
`)

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "TestProject", cfg.Project.Name)
		assert.Equal(t, "testns", cfg.Project.Package.Namespace)
		require.Len(t, cfg.Project.Dependencies, 2)
		assert.Equal(t, "npsp", cfg.Project.Dependencies[0].Namespace)
		assert.Equal(t, []string{"unpackaged/pre/sample"}, []string(cfg.Project.Dependencies[1].Skip))
	})

	t.Run("should apply defaults for git prefixes and resolution", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, "project:\n  name: TestProject\n")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "main", cfg.Project.Git.DefaultBranch)
		assert.Equal(t, "release/", cfg.Project.Git.PrefixRelease)
		assert.Equal(t, "beta/", cfg.Project.Git.PrefixBeta)
		assert.Equal(t, "production", cfg.Project.DependencyResolution)
		assert.Equal(t, "snowfakery", cfg.Tasks.DataGeneration.Executable)
		assert.NotEmpty(t, cfg.Tasks.MarketingCloud.Endpoint)
	})

	t.Run("should register builtin service types without overriding declared ones", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, `
project:
  name: TestProject
services:
  github:
    description: custom github access
    attributes:
      token:
        required: true
`)

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "custom github access", cfg.Services["github"].Description)
		assert.Contains(t, cfg.Services, "marketing-cloud")
	})

	t.Run("should fail without a project name", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, "project:\n  package:\n    namespace: ns\n")

		// when
		_, err := Load(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "project.name")
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))

		// then
		require.Error(t, err)
	})
}

// Not parallel: mutates the process environment.
func TestLoad_EnvExpansion(t *testing.T) {
	// given
	t.Setenv("TEST_CONFIG_NS", "envns")
	path := writeConfig(t, `
project:
  name: TestProject
  package:
    namespace: ${TEST_CONFIG_NS}
`)

	// when
	cfg, err := Load(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, "envns", cfg.Project.Package.Namespace)
}

func TestParsePairs(t *testing.T) {
	t.Parallel()

	t.Run("should parse comma separated key value pairs", func(t *testing.T) {
		t.Parallel()

		// when
		pairs, err := ParsePairs("a:1, b:two")

		// then
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1", "b": "two"}, pairs)
	})

	t.Run("should return an empty map for an empty string", func(t *testing.T) {
		t.Parallel()

		// when
		pairs, err := ParsePairs("")

		// then
		require.NoError(t, err)
		assert.Empty(t, pairs)
	})

	t.Run("should fail on a pair without a separator", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := ParsePairs("novalue")

		// then
		require.Error(t, err)
	})
}

func TestParseRemoteProject(t *testing.T) {
	t.Parallel()

	t.Run("should map the remote declaration onto the project subset", func(t *testing.T) {
		t.Parallel()

		// given
		data := []byte(`
project:
  name: Remote
  package:
    name: Remote Package
    namespace: remote
  git:
    prefix_release: rel/
    prefix_beta: beta/
  dependencies:
    - namespace: base
      version: "1.0"
`)

		// when
		project, err := ParseRemoteProject(data)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Remote", project.Name)
		assert.Equal(t, "Remote Package", project.PackageName)
		assert.Equal(t, "remote", project.Namespace)
		assert.Equal(t, "rel/", project.GitPrefixRelease)
		require.Len(t, project.Dependencies, 1)
		assert.Equal(t, "base", project.Dependencies[0].Namespace)
	})
}
