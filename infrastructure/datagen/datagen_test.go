package datagen //nolint:testpackage // tests continuation plumbing internals

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyExecutor records requests instead of invoking the engine.
type spyExecutor struct {
	Err      error
	Requests []Request

	// OnExecute lets a test create side effects such as the
	// continuation file the engine would have written.
	OnExecute func(req Request)
}

func (e *spyExecutor) Execute(_ context.Context, req Request) error {
	e.Requests = append(e.Requests, req)
	if e.OnExecute != nil {
		e.OnExecute(req)
	}
	return e.Err
}

func writeRecipe(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipe.yml")
	require.NoError(t, os.WriteFile(path, []byte("- object: Account\n"), 0o600))
	return path
}

func TestTask_Run(t *testing.T) {
	t.Parallel()

	t.Run("should pass the recipe and options through to the executor", func(t *testing.T) {
		t.Parallel()

		// given
		executor := &spyExecutor{}
		task := NewTask(executor)
		recipe := writeRecipe(t)

		// when
		err := task.Run(context.Background(), Options{
			RecipePath:          recipe,
			Vars:                map[string]string{"count": "10"},
			NumRecords:          100,
			NumRecordsTablename: "Account",
		})

		// then
		require.NoError(t, err)
		require.Len(t, executor.Requests, 1)
		req := executor.Requests[0]
		assert.Equal(t, 100, req.TargetRecords)
		assert.Equal(t, "Account", req.TargetTable)
		assert.Equal(t, map[string]string{"count": "10"}, req.Vars)
	})

	t.Run("should fail when the recipe file does not exist", func(t *testing.T) {
		t.Parallel()

		// given
		task := NewTask(&spyExecutor{})

		// when
		err := task.Run(context.Background(), Options{
			RecipePath: filepath.Join(t.TempDir(), "missing.yml"),
		})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot find")
	})

	t.Run("should fail on a record target without a tablename", func(t *testing.T) {
		t.Parallel()

		// given
		task := NewTask(&spyExecutor{})

		// when
		err := task.Run(context.Background(), Options{
			RecipePath: writeRecipe(t),
			NumRecords: 100,
		})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "num_records_tablename")
	})

	t.Run("should fail when an explicit continuation file does not exist", func(t *testing.T) {
		t.Parallel()

		// given
		task := NewTask(&spyExecutor{})

		// when
		err := task.Run(context.Background(), Options{
			RecipePath:       writeRecipe(t),
			ContinuationFile: filepath.Join(t.TempDir(), "missing.yml"),
		})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("should chain continuation files across batches in a working directory", func(t *testing.T) {
		t.Parallel()

		// given
		workDir := t.TempDir()
		executor := &spyExecutor{
			OnExecute: func(req Request) {
				if req.GenerateContinuationFile != "" {
					_ = os.WriteFile(req.GenerateContinuationFile, []byte("state"), 0o600)
				}
			},
		}
		task := NewTask(executor)
		recipe := writeRecipe(t)

		// when: first batch has no continuation input
		err := task.Run(context.Background(), Options{
			RecipePath:       recipe,
			WorkingDirectory: workDir,
		})

		// then
		require.NoError(t, err)
		require.Len(t, executor.Requests, 1)
		assert.Empty(t, executor.Requests[0].ContinuationFile)
		assert.FileExists(t, filepath.Join(workDir, continuationFileName))

		// when: the second batch picks up the rotated continuation file
		err = task.Run(context.Background(), Options{
			RecipePath:       recipe,
			WorkingDirectory: workDir,
		})

		// then
		require.NoError(t, err)
		require.Len(t, executor.Requests, 2)
		assert.Equal(t, filepath.Join(workDir, continuationFileName), executor.Requests[1].ContinuationFile)
	})

	t.Run("should not rotate an explicitly requested continuation file", func(t *testing.T) {
		t.Parallel()

		// given
		workDir := t.TempDir()
		target := filepath.Join(workDir, "explicit-next.yml")
		executor := &spyExecutor{
			OnExecute: func(req Request) {
				_ = os.WriteFile(req.GenerateContinuationFile, []byte("state"), 0o600)
			},
		}
		task := NewTask(executor)

		// when
		err := task.Run(context.Background(), Options{
			RecipePath:               writeRecipe(t),
			WorkingDirectory:         workDir,
			GenerateContinuationFile: target,
		})

		// then
		require.NoError(t, err)
		assert.FileExists(t, target)
		assert.NoFileExists(t, filepath.Join(workDir, continuationFileName))
	})
}
