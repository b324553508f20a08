// Package datagen wraps an external recipe-execution engine that
// generates synthetic data from YAML recipes.
package datagen

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	logger "github.com/sirupsen/logrus"
)

const (
	continuationFileName     = "continuation.yml"
	nextContinuationFileName = "continuation_next.yml"
)

// Request is what the external recipe engine is invoked with.
type Request struct {
	RecipePath               string
	Vars                     map[string]string
	TargetRecords            int
	TargetTable              string
	ContinuationFile         string
	GenerateContinuationFile string
	MappingFile              string
	DatabaseURL              string
}

// Executor runs the external recipe engine. The engine itself is an
// external collaborator; this package only prepares its inputs.
type Executor interface {
	Execute(ctx context.Context, req Request) error
}

// Options configure a single generation run.
type Options struct {
	RecipePath               string
	Vars                     map[string]string
	NumRecords               int
	NumRecordsTablename      string
	ContinuationFile         string
	GenerateContinuationFile string
	WorkingDirectory         string
	MappingFile              string
	DatabaseURL              string
}

// Task validates generation options, manages continuation files across
// batches, and delegates to the executor.
type Task struct {
	exec Executor
}

// NewTask creates a task on the given executor.
func NewTask(exec Executor) *Task {
	return &Task{exec: exec}
}

// Run executes the recipe once with the resolved options.
func (t *Task) Run(ctx context.Context, opts Options) error {
	recipePath, err := filepath.Abs(opts.RecipePath)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(recipePath); statErr != nil {
		return fmt.Errorf("cannot find %s", recipePath)
	}

	if opts.NumRecords > 0 && opts.NumRecordsTablename == "" {
		return fmt.Errorf("cannot specify num_records without num_records_tablename")
	}

	continuation, err := t.oldContinuationFile(opts)
	if err != nil {
		return err
	}

	nextContinuation := opts.GenerateContinuationFile
	if nextContinuation == "" && opts.WorkingDirectory != "" {
		nextContinuation = filepath.Join(opts.WorkingDirectory, nextContinuationFileName)
	}

	req := Request{
		RecipePath:               recipePath,
		Vars:                     opts.Vars,
		TargetRecords:            opts.NumRecords,
		TargetTable:              opts.NumRecordsTablename,
		ContinuationFile:         continuation,
		GenerateContinuationFile: nextContinuation,
		MappingFile:              opts.MappingFile,
		DatabaseURL:              opts.DatabaseURL,
	}

	if opts.NumRecords > 0 {
		logger.Infof("Generating %d %s records from %s", opts.NumRecords, opts.NumRecordsTablename, filepath.Base(recipePath))
	}
	if err := t.exec.Execute(ctx, req); err != nil {
		return err
	}
	logger.Info("Generated batch")

	return t.rotateContinuation(nextContinuation, opts)
}

// oldContinuationFile selects the continuation input: an explicit file
// (which must exist) or one left in the working directory by a previous
// batch.
func (t *Task) oldContinuationFile(opts Options) (string, error) {
	if opts.ContinuationFile != "" {
		if _, err := os.Stat(opts.ContinuationFile); err != nil {
			return "", fmt.Errorf("%s does not exist", opts.ContinuationFile)
		}
		return opts.ContinuationFile, nil
	}

	if opts.WorkingDirectory != "" {
		candidate := filepath.Join(opts.WorkingDirectory, continuationFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// rotateContinuation moves the freshly generated continuation file into
// the working directory slot the next batch reads from.
func (t *Task) rotateContinuation(nextContinuation string, opts Options) error {
	if nextContinuation == "" || opts.WorkingDirectory == "" || opts.GenerateContinuationFile != "" {
		return nil
	}
	if _, err := os.Stat(nextContinuation); err != nil {
		return nil
	}
	return os.Rename(nextContinuation, filepath.Join(opts.WorkingDirectory, continuationFileName))
}

// CLIExecutor invokes the recipe engine as an external command.
type CLIExecutor struct {
	Executable string
}

// NewCLIExecutor creates an executor running the named binary.
func NewCLIExecutor(executable string) *CLIExecutor {
	return &CLIExecutor{Executable: executable}
}

func (e *CLIExecutor) Execute(ctx context.Context, req Request) error {
	args := []string{req.RecipePath}

	keys := make([]string, 0, len(req.Vars))
	for key := range req.Vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--option", key, req.Vars[key])
	}

	if req.TargetRecords > 0 {
		args = append(args, "--target-number", strconv.Itoa(req.TargetRecords), req.TargetTable)
	}
	if req.ContinuationFile != "" {
		args = append(args, "--continuation-file", req.ContinuationFile)
	}
	if req.GenerateContinuationFile != "" {
		args = append(args, "--generate-continuation-file", req.GenerateContinuationFile)
	}
	if req.MappingFile != "" {
		args = append(args, "--generate-cci-mapping-file", req.MappingFile)
	}
	if req.DatabaseURL != "" {
		args = append(args, "--dburl", req.DatabaseURL)
	}

	cmd := exec.CommandContext(ctx, e.Executable, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logger.Infof("Running %s %v", e.Executable, args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("recipe execution failed: %w", err)
	}
	return nil
}
