package resolver //nolint:testpackage // verifies the registered strategy orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	t.Run("should register the standard strategy orders", func(t *testing.T) {
		t.Parallel()

		// when
		registry := DefaultRegistry()

		// then
		assert.ElementsMatch(t, []string{"production", "beta", "unmanaged-head"}, registry.Names())
	})

	t.Run("should order production as tag then latest release", func(t *testing.T) {
		t.Parallel()

		// given
		registry := DefaultRegistry()

		// when
		strategies, err := registry.Get("production")

		// then
		require.NoError(t, err)
		require.Len(t, strategies, 2)
		assert.Equal(t, "tag", strategies[0].Name())
		assert.Equal(t, "latest-release", strategies[1].Name())
	})

	t.Run("should try betas before final releases in the beta order", func(t *testing.T) {
		t.Parallel()

		// given
		registry := DefaultRegistry()

		// when
		strategies, err := registry.Get("beta")

		// then
		require.NoError(t, err)
		require.Len(t, strategies, 3)
		assert.Equal(t, "tag", strategies[0].Name())
		assert.Equal(t, "latest-beta", strategies[1].Name())
		assert.Equal(t, "latest-release", strategies[2].Name())
	})

	t.Run("should fail for an unknown order name", func(t *testing.T) {
		t.Parallel()

		// given
		registry := DefaultRegistry()

		// when
		_, err := registry.Get("nightly")

		// then
		require.Error(t, err)
	})
}
