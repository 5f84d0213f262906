// ABOUTME: Sentinel errors shared by the store, index and pipeline
// ABOUTME: Callers match with errors.Is after wrapping
package models

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrMissingContent    = errors.New("content is required")
	ErrUnresolvedDate    = errors.New("start date could not be resolved")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrInvalidFilter     = errors.New("invalid filter")
)
