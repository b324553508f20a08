package domain

import "fmt"

// DependencyParseError indicates that a dependency declaration record
// did not match the schema of any known dependency variant.
type DependencyParseError struct {
	Message string
}

func (e *DependencyParseError) Error() string {
	return e.Message
}

func newParseError(format string, args ...any) *DependencyParseError {
	return &DependencyParseError{Message: fmt.Sprintf(format, args...)}
}

// DependencyResolutionError indicates that a dependency could not be
// resolved or flattened: a missing ref, a missing managed-package link,
// or a transitive declaration that failed to parse.
type DependencyResolutionError struct {
	Message string
}

func (e *DependencyResolutionError) Error() string {
	return e.Message
}

func newResolutionError(format string, args ...any) *DependencyResolutionError {
	return &DependencyResolutionError{Message: fmt.Sprintf(format, args...)}
}
