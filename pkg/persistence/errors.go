// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrRequestNotFound indicates a request ticket was not found.
	ErrRequestNotFound = errors.New("request not found")

	// ErrDuplicateExternalKey indicates a conflicting insert that bypassed upsert.
	ErrDuplicateExternalKey = errors.New("duplicate external key")
)

// RequestError wraps request-ticket errors with operation context.
type RequestError struct {
	Op          string // Operation being performed (e.g. "Upsert", "Save")
	RequestID   string
	ExternalKey string
	Err         error
}

func (e *RequestError) Error() string {
	target := e.RequestID
	if e.ExternalKey != "" {
		target = fmt.Sprintf("key %s", e.ExternalKey)
	}

	return fmt.Sprintf("%s operation failed for request %s: %v", e.Op, target, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsRequestNotFound checks if an error indicates a missing request ticket.
func IsRequestNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound)
}
