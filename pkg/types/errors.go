package types

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidSelectionError is returned when a caller requests categories that
// are not in the catalog. It is raised before any deletion starts.
type InvalidSelectionError struct {
	Unknown []string
	Allowed []string
}

// Error returns the error message.
func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid artifact(s) %s (allowed: %s)",
		strings.Join(quoteAll(e.Unknown), ", "), strings.Join(e.Allowed, ", "))
}

// NewInvalidSelectionError creates a new InvalidSelectionError.
func NewInvalidSelectionError(unknown, allowed []string) *InvalidSelectionError {
	return &InvalidSelectionError{Unknown: unknown, Allowed: allowed}
}

// IsInvalidSelection checks if an error is an InvalidSelectionError.
func IsInvalidSelection(err error) bool {
	var target *InvalidSelectionError
	return errors.As(err, &target)
}

// OperationError records a collaborator call that failed for a reason other
// than the resource being absent.
type OperationError struct {
	Category ArtifactCategory
	Step     string
	Target   string
	Err      error
}

// Error returns the error message.
func (e *OperationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Category, e.Step, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// AggregateError is returned at the end of a run in which one or more
// categories failed.
type AggregateError struct {
	Failed []ArtifactCategory
	Errs   []error
}

// Error returns the error message.
func (e *AggregateError) Error() string {
	msg := fmt.Sprintf("teardown failed for %s", strings.Join(CatalogNames(e.Failed), ", "))
	if len(e.Errs) == 0 {
		return msg
	}
	parts := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		parts[i] = err.Error()
	}
	return msg + ": " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-operation errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errs
}

// IsAggregateFailure checks if an error is an AggregateError.
func IsAggregateFailure(err error) bool {
	var target *AggregateError
	return errors.As(err, &target)
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
