package marketingcloud //nolint:testpackage // tests payload construction internals

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePackageDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "references.json"), []byte(`{"refs":[]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input.json"),
		[]byte(`[{"key":"businessUnit","value":"default"}]`), 0o600))

	assets := filepath.Join(dir, "entities", "assets")
	require.NoError(t, os.MkdirAll(assets, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "welcome-email.json"),
		[]byte(`{"name":"Welcome"}`), 0o600))

	return dir
}

func TestConstructPayload(t *testing.T) {
	t.Parallel()

	t.Run("should assemble references, input and entities", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writePackageDir(t)

		// when
		body, err := ConstructPayload(dir, nil)

		// then
		require.NoError(t, err)
		assert.JSONEq(t, `{"refs":[]}`, string(body.References))
		require.Len(t, body.Input, 1)
		assert.Equal(t, "default", body.Input[0]["value"])
		require.Contains(t, body.Entities, "assets")
		assert.JSONEq(t, `{"name":"Welcome"}`, string(body.Entities["assets"]["welcome-email"]))
		assert.True(t, body.Namespace.Timestamp)
		assert.True(t, body.Config.PreserveCategories)
	})

	t.Run("should apply a custom input over the declared value", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writePackageDir(t)

		// when
		body, err := ConstructPayload(dir, map[string]string{"businessUnit": "emea"})

		// then
		require.NoError(t, err)
		assert.Equal(t, "emea", body.Input[0]["value"])
	})

	t.Run("should fail on a custom input the package does not declare", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writePackageDir(t)

		// when
		_, err := ConstructPayload(dir, map[string]string{"unknown": "x"})

		// then
		require.Error(t, err)
		var deployErr *DeploymentError
		require.ErrorAs(t, err, &deployErr)
		assert.Equal(t, "Custom input of key unknown not found in package.", deployErr.Message)
	})

	t.Run("should tolerate a package without entities", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writePackageDir(t)
		require.NoError(t, os.RemoveAll(filepath.Join(dir, "entities")))

		// when
		body, err := ConstructPayload(dir, nil)

		// then
		require.NoError(t, err)
		assert.Empty(t, body.Entities)
	})

	t.Run("should fail without references.json", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writePackageDir(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "references.json")))

		// when
		_, err := ConstructPayload(dir, nil)

		// then
		require.Error(t, err)
	})
}

func TestValidateResult(t *testing.T) {
	t.Parallel()

	t.Run("should pass when every entity reports success", func(t *testing.T) {
		t.Parallel()

		// given
		job := &jobInfo{
			Status: "DONE",
			Entities: map[string]map[string]json.RawMessage{
				"assets": {"welcome-email": json.RawMessage(`{"status":"SUCCESS"}`)},
			},
		}

		// when
		err := validateResult(job)

		// then
		require.NoError(t, err)
	})

	t.Run("should fail when any entity reports a non success status", func(t *testing.T) {
		t.Parallel()

		// given
		job := &jobInfo{
			Status: "DONE",
			Entities: map[string]map[string]json.RawMessage{
				"assets": {
					"welcome-email": json.RawMessage(`{"status":"SUCCESS"}`),
					"broken-email":  json.RawMessage(`{"status":"ERROR","issues":["bad reference"]}`),
				},
			},
		}

		// when
		err := validateResult(job)

		// then
		require.Error(t, err)
		var deployErr *DeploymentError
		require.ErrorAs(t, err, &deployErr)
		assert.Equal(t, "Marketing Cloud reported deployment failures.", deployErr.Message)
	})
}
