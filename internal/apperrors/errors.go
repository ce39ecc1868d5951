// Package apperrors defines the sentinel errors shared across the store,
// the QuickBooks client and the services.
package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
// Store lookups by id return an absent result instead; this sentinel is
// for callers that require the resource to exist.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed a domain check, such as
// a status transition that would move a transaction backwards.
var ErrValidation = errors.New("validation error")

// ErrExternalService indicates a failed QuickBooks call. The concrete
// error carries the HTTP status; callers only branch on this sentinel.
var ErrExternalService = errors.New("external service error")
