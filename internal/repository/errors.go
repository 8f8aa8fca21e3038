package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound represents a resource not found error in the repository layer.
type ErrNotFound struct {
	Resource string // "node" or "relationship"
	ID       string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
}

// IsNotFound checks if an error is a repository not found error.
func IsNotFound(err error) bool {
	var target ErrNotFound
	return errors.As(err, &target)
}

// NewNotFound creates a new ErrNotFound.
func NewNotFound(resource, id string) ErrNotFound {
	return ErrNotFound{Resource: resource, ID: id}
}

// ErrEndpointNotFound is returned when a relationship references a node
// that does not exist.
type ErrEndpointNotFound struct {
	SourceID string
	TargetID string
}

func (e ErrEndpointNotFound) Error() string {
	return fmt.Sprintf("source node '%s' or target node '%s' not found", e.SourceID, e.TargetID)
}

// IsEndpointNotFound checks if an error is an ErrEndpointNotFound.
func IsEndpointNotFound(err error) bool {
	var target ErrEndpointNotFound
	return errors.As(err, &target)
}

// ErrUnexpectedResult is returned when the store answers with a shape the
// repository cannot map.
type ErrUnexpectedResult struct {
	Operation string
	Reason    string
}

func (e ErrUnexpectedResult) Error() string {
	return fmt.Sprintf("unexpected result from %s: %s", e.Operation, e.Reason)
}

// ErrTransient marks a store failure that may succeed when retried, such as
// a dropped connection or a cluster leader switch.
type ErrTransient struct {
	Operation string
	Err       error
}

func (e ErrTransient) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Operation, e.Err)
}

func (e ErrTransient) Unwrap() error { return e.Err }

// IsTransient checks if an error is an ErrTransient.
func IsTransient(err error) bool {
	var target ErrTransient
	return errors.As(err, &target)
}
